// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/campuslab/roomkeeper/pkg/pagination"
)

// ErrStoreUnavailable reports that the verification store could not be
// reached. Callers decide per call site whether to degrade (cache reads) or
// fail the operation (authoritative writes).
var ErrStoreUnavailable = errors.New("auth: verification store unavailable")

// # User Data Access

// UserRepository defines the durable data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists changes to mutable profile fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		List returns a page of accounts ordered by creation time, plus the
		total account count for pagination metadata.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []*User: Page of accounts
		  - int: Total account count
		  - error: Database retrieval failures
	*/
	List(context context.Context, params pagination.Params) ([]*User, int, error)
}

// # Volatile Data Access

// VerificationStore defines the contract for short-lived security artifacts:
// session records, reset state, and user snapshot cache entries.
//
// An absent or expired key is a MISS (found == false, nil error), never an
// error. Errors are reserved for infrastructure failures and wrap
// [ErrStoreUnavailable].
type VerificationStore interface {

	/*
		SetWithTTL stores a value under the key for a limited duration.

		Parameters:
		  - context: context.Context
		  - key: string
		  - value: string
		  - ttl: time.Duration

		Returns:
		  - error: ErrStoreUnavailable on infrastructure failures
	*/
	SetWithTTL(context context.Context, key, value string, ttl time.Duration) error

	/*
		Get retrieves the value stored under the key.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - string: Stored value (empty on miss)
		  - bool: Whether the key was present
		  - error: ErrStoreUnavailable on infrastructure failures
	*/
	Get(context context.Context, key string) (string, bool, error)

	/*
		GetAndRefresh retrieves the value and atomically resets its TTL,
		implementing sliding expiration.

		Parameters:
		  - context: context.Context
		  - key: string
		  - ttl: time.Duration

		Returns:
		  - string: Stored value (empty on miss)
		  - bool: Whether the key was present
		  - error: ErrStoreUnavailable on infrastructure failures
	*/
	GetAndRefresh(context context.Context, key string, ttl time.Duration) (string, bool, error)

	/*
		Delete removes the key. Deleting an absent key is not an error.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: ErrStoreUnavailable on infrastructure failures
	*/
	Delete(context context.Context, key string) error
}

// Copyright (c) 2026 Roomkeeper. All rights reserved.

/*
Package auth implements the core identity and credential security system.

It handles everything from user registration and Argon2id password hashing to
cookie-session lifecycle management (stored in Redis) and the multi-step
password reset protocol.

Architecture:

  - Service: Orchestrates account use cases (Register, Login, Reset).
  - Backend: Cache-aside identity resolution and session verification.
  - Repository: Abstracted interfaces for Postgres (users) and Redis
    (sessions, reset state, snapshots).

The package ensures that identity data remains consistent and secure
throughout the platform's lifecycle.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/mail"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
	"github.com/campuslab/roomkeeper/pkg/pagination"
	"github.com/campuslab/roomkeeper/pkg/pointer"
	"github.com/campuslab/roomkeeper/pkg/uuid"
)

// # Service

// Service implements user account use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	backend  *Backend
	users    UserRepository
	store    VerificationStore
	sessions *SessionManager
	hasher   *sec.Hasher
	mailer   mail.Sender
	logger   *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	backend *Backend,
	users UserRepository,
	store VerificationStore,
	sessions *SessionManager,
	hasher *sec.Hasher,
	mailer mail.Sender,
	logger *slog.Logger,
) *Service {
	return &Service{
		backend:  backend,
		users:    users,
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		logger:   logger,
	}
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// All email comparisons in this package go through this function, so
// "  Alice@Example.COM " and "alice@example.com" address the same account
// and the same reset state.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	PhoneNumber string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrolls a new member with the default role, handling password
hashing and email normalization.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	normalized := NormalizeEmail(input.Email)

	// Verify email uniqueness. Return a client-safe Conflict error.
	if _, err := service.users.FindByEmail(context, normalized); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict error.
	if _, err := service.users.FindByUsername(context, input.Username); err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := service.hasher.Hash(context, []byte(input.Password))
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        normalized,
		PasswordHash: hashedPassword,
		PhoneNumber:  input.PhoneNumber,
		Role:         sec.RoleUser,
	}

	// Persist the user to the database. The unique constraints on email and
	// username close the race left open by the checks above.
	if err := service.users.Create(context, user); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "user_registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	SessionID string
	User      *User
}

/*
Login validates user credentials and establishes a server-side session.

Description: Delegates credential verification to the [Backend], then mints a
session pinned to the password hash that authenticated it.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Session ID for the cookie plus the user profile
  - error: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	user, err := service.backend.Authenticate(context, NormalizeEmail(input.Email), input.Password)
	if err != nil {
		return nil, err
	}

	sessionID, err := service.sessions.Create(context, user)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		SessionID: sessionID,
		User:      user,
	}, nil
}

/*
Logout destroys the caller's server-side session.

Description: Idempotent; logging out an already-dead session succeeds.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Store failures
*/
func (service *Service) Logout(context context.Context, sessionID string) error {
	if err := service.sessions.Destroy(context, sessionID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Account Management

/*
ChangePassword allows an authenticated user to rotate their credentials.

Description: Verifies the current password before hashing and storing the new
one. Other sessions of this user die on their next request because their
pinned credential hash no longer matches; the current session is re-pinned so
the caller stays signed in.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - sessionID: string (the caller's own session, re-pinned to the new hash)

Returns:
  - error: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, sessionID string) error {

	// Fetch the authoritative record; credential checks never trust the cache.
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return err
	}

	// Verify the current password before allowing the change.
	match, err := service.hasher.Verify(context, []byte(currentPassword), user.PasswordHash)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_verify_failed: %w", err)
	}
	if !match {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := service.hasher.Hash(context, []byte(newPassword))
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	// Stale snapshots would let old sessions survive the rotation window.
	service.backend.InvalidateUser(context, userID)

	// Keep the caller signed in: re-pin their session to the new hash. Every
	// other session stays pinned to the dead hash and dies on its next request.
	user.PasswordHash = hashedPassword
	if err := service.sessions.Repin(context, sessionID, user); err != nil {
		service.logger.WarnContext(context, "change_password_session_repin_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(context, "password_changed",
		slog.String("user_id", userID),
	)

	return nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	Username    *string
	PhoneNumber *string
}

/*
UpdateProfile applies partial changes to the caller's profile.

Description: Only the provided fields change. A username change checks
uniqueness first.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *User: Updated entity
  - error: Conflict, NotFound, or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*User, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != user.Username {
		if _, err := service.users.FindByUsername(context, *input.Username); err == nil {
			return nil, apperr.Conflict("Username is already taken")
		}
		user.Username = *input.Username
	}

	user.PhoneNumber = pointer.Fallback(input.PhoneNumber, user.PhoneNumber)

	if err := service.users.Update(context, user); err != nil {
		return nil, err
	}

	// Cached readers should see the new profile immediately.
	service.backend.InvalidateUser(context, userID)

	return user, nil
}

/*
ListUsers returns a page of accounts for administrative review.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []*User: Page of accounts
  - pagination.Meta: Pagination metadata
  - error: Storage failures
*/
func (service *Service) ListUsers(context context.Context, params pagination.Params) ([]*User, pagination.Meta, error) {
	users, total, err := service.users.List(context, params)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return users, pagination.NewMeta(params.Page, params.Limit, total), nil
}

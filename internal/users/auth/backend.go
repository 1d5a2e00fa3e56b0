// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/constants"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

// # Authentication Backend

// Backend answers the three questions the rest of the system asks about a
// caller: who are they (GetUser), are their credentials right (Authenticate),
// and what may they do (HasPermission).
//
// # Caching
//
// GetUser runs a cache-aside loop over the verification store: snapshot hit
// with sliding TTL, otherwise durable lookup plus a best-effort snapshot
// write. The durable store stays authoritative throughout; a broken or
// unreachable cache only costs latency, never correctness.
type Backend struct {
	users    UserRepository
	store    VerificationStore
	sessions *SessionManager
	hasher   *sec.Hasher
	logger   *slog.Logger
}

// userSnapshot is the cache representation of a [User].
//
// Unlike the API shape of [User], the snapshot must round-trip the password
// hash: session resolution compares the hash pinned at login against the
// user's current hash, and that check has to work on cache hits too. Snapshot
// JSON therefore never leaves the server.
type userSnapshot struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	PhoneNumber  string    `json:"phone_number"`
	Role         sec.Role  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func snapshotFromUser(user *User) userSnapshot {
	return userSnapshot{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		PhoneNumber:  user.PhoneNumber,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (s userSnapshot) toUser() *User {
	return &User{
		ID:           s.ID,
		Username:     s.Username,
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		PhoneNumber:  s.PhoneNumber,
		Role:         s.Role,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// NewBackend constructs a [Backend] with its dependencies.
func NewBackend(
	users UserRepository,
	store VerificationStore,
	sessions *SessionManager,
	hasher *sec.Hasher,
	logger *slog.Logger,
) *Backend {
	return &Backend{
		users:    users,
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

/*
Authenticate validates an email/password pair against the durable store.

Description: The lookup goes straight to the durable store (credentials are
never checked against a cached snapshot). A missing account and a wrong
password produce the same generic error to prevent account enumeration.

Parameters:
  - context: context.Context
  - email: string (normalized by the caller)
  - password: string

Returns:
  - *User: Authenticated account
  - error: apperr.Unauthorized on bad credentials, internal errors otherwise
*/
func (backend *Backend) Authenticate(context context.Context, email, password string) (*User, error) {
	user, err := backend.users.FindByEmail(context, email)
	if err != nil {
		if ae := apperr.As(err); ae != nil && ae.HTTPStatus == http.StatusNotFound {
			return nil, apperr.Unauthorized("Invalid login credentials")
		}
		return nil, err
	}

	match, err := backend.hasher.Verify(context, []byte(password), user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_backend_verify_failed: %w", err)
	}
	if !match {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Warm the snapshot cache so the first authenticated request after login
	// does not pay for another durable lookup.
	backend.cacheSnapshot(context, user)

	return user, nil
}

/*
GetUser resolves a user by ID through the snapshot cache.

Description: Cache-aside with sliding expiration. A snapshot hit refreshes the
TTL and skips the durable store entirely. A miss, an unreachable cache, or an
undecodable snapshot all fall through to the durable store, followed by a
best-effort snapshot write whose failure is logged and otherwise ignored.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated account
  - error: apperr.NotFound or durable store failures
*/
func (backend *Backend) GetUser(context context.Context, userID string) (*User, error) {
	key := snapshotKey(userID)

	payload, found, err := backend.store.GetAndRefresh(context, key, UserSnapshotTTL)
	if err != nil {
		// Degraded cache: log and serve from the durable store.
		backend.logger.WarnContext(context, "user_snapshot_read_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	} else if found {
		var snapshot userSnapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err == nil {
			return snapshot.toUser(), nil
		}
		// Corrupt snapshot: drop it and fall through.
		_ = backend.store.Delete(context, key)
	}

	user, err := backend.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	backend.cacheSnapshot(context, user)

	return user, nil
}

/*
HasPermission reports whether the user holds the required role.

Parameters:
  - user: *User
  - required: sec.Role

Returns:
  - bool: Exact role match (no hierarchy)
*/
func (backend *Backend) HasPermission(user *User, required sec.Role) bool {
	return user != nil && user.Role.Is(required)
}

/*
ResolveSession turns a session cookie value into a verified caller identity.

Description: Resolves the session record, re-fetches the user through the
snapshot cache, and compares the session's pinned credential hash against the
user's current hash in constant time. A mismatch (password changed since
login) destroys the session.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *sec.Identity: Verified caller identity
  - error: apperr.Unauthorized for any non-resolvable session
*/
func (backend *Backend) ResolveSession(context context.Context, sessionID string) (*sec.Identity, error) {
	record, found, err := backend.sessions.Resolve(context, sessionID)
	if err != nil {
		// Fail closed: if the session store is down we cannot vouch for anyone.
		return nil, apperr.Unauthorized("Session could not be verified")
	}
	if !found {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	user, err := backend.GetUser(context, record.UserID)
	if err != nil {
		_ = backend.sessions.Destroy(context, sessionID)
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	if subtle.ConstantTimeCompare([]byte(record.AuthHash), []byte(user.PasswordHash)) != 1 {
		// Credentials rotated after login; this session is no longer trusted.
		_ = backend.sessions.Destroy(context, sessionID)
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	return user.Identity(), nil
}

// InvalidateUser drops the user's cached snapshot after a credential or
// profile change so readers stop seeing stale data within one round trip.
func (backend *Backend) InvalidateUser(context context.Context, userID string) {
	if err := backend.store.Delete(context, snapshotKey(userID)); err != nil {
		backend.logger.WarnContext(context, "user_snapshot_invalidate_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// cacheSnapshot writes the user snapshot on a best-effort basis.
func (backend *Backend) cacheSnapshot(context context.Context, user *User) {
	payload, err := json.Marshal(snapshotFromUser(user))
	if err != nil {
		backend.logger.WarnContext(context, "user_snapshot_encode_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := backend.store.SetWithTTL(context, snapshotKey(user.ID), string(payload), UserSnapshotTTL); err != nil {
		backend.logger.WarnContext(context, "user_snapshot_write_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}

// snapshotKey builds the cache key for a user snapshot.
func snapshotKey(userID string) string {
	return constants.RedisPrefixUserSnapshot + userID
}

// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campuslab/roomkeeper/internal/platform/constants"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
)

// # Session Management

// sessionRecord is the server-side state stored per session.
//
// AuthHash pins the session to the password hash that was current at login.
// If the user's credentials change, every session minted before the change
// stops resolving, because the stored hash no longer matches.
type sessionRecord struct {
	UserID   string `json:"user_id"`
	AuthHash string `json:"auth_hash"`
}

// SessionManager creates, resolves, and destroys server-side sessions in the
// verification store.
type SessionManager struct {
	store VerificationStore
}

// NewSessionManager constructs a [SessionManager] backed by the given store.
func NewSessionManager(store VerificationStore) *SessionManager {
	return &SessionManager{store: store}
}

/*
Create mints a fresh session for the user and persists it.

Parameters:
  - context: context.Context
  - user: *User (credentials as of the moment of login)

Returns:
  - string: Opaque session ID for the client cookie
  - error: Generation or storage failures
*/
func (manager *SessionManager) Create(context context.Context, user *User) (string, error) {
	sessionID, err := sec.RandomString(sec.AlphabetToken, SessionIDLength)
	if err != nil {
		return "", fmt.Errorf("auth_session_id_generation_failed: %w", err)
	}

	payload, err := json.Marshal(sessionRecord{
		UserID:   user.ID,
		AuthHash: user.PasswordHash,
	})
	if err != nil {
		return "", fmt.Errorf("auth_session_encode_failed: %w", err)
	}

	if err := manager.store.SetWithTTL(context, sessionKey(sessionID), string(payload), SessionTTL); err != nil {
		return "", fmt.Errorf("auth_session_store_failed: %w", err)
	}

	return sessionID, nil
}

/*
Resolve looks up a session by its ID and slides its expiration window.

Description: A hit extends the session by [SessionTTL], so active users stay
signed in while idle sessions expire. An undecodable record is treated as a
miss and removed.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *sessionRecord: Stored session state
  - bool: Whether an intact session was found
  - error: ErrStoreUnavailable on infrastructure failures
*/
func (manager *SessionManager) Resolve(context context.Context, sessionID string) (*sessionRecord, bool, error) {
	key := sessionKey(sessionID)

	payload, found, err := manager.store.GetAndRefresh(context, key, SessionTTL)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	record := &sessionRecord{}
	if err := json.Unmarshal([]byte(payload), record); err != nil {
		_ = manager.store.Delete(context, key)
		return nil, false, nil
	}

	return record, true, nil
}

/*
Repin rewrites an existing session's credential hash in place.

Description: Used when the session's owner changes their own password: the
session ID (and the client cookie) survives, but the pinned hash moves to the
new credentials. The TTL restarts, matching a fresh login.

Parameters:
  - context: context.Context
  - sessionID: string
  - user: *User (carrying the new password hash)

Returns:
  - error: Encoding or storage failures
*/
func (manager *SessionManager) Repin(context context.Context, sessionID string, user *User) error {
	payload, err := json.Marshal(sessionRecord{
		UserID:   user.ID,
		AuthHash: user.PasswordHash,
	})
	if err != nil {
		return fmt.Errorf("auth_session_encode_failed: %w", err)
	}

	if err := manager.store.SetWithTTL(context, sessionKey(sessionID), string(payload), SessionTTL); err != nil {
		return fmt.Errorf("auth_session_store_failed: %w", err)
	}

	return nil
}

/*
Destroy removes a session, signing the client out server-side.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Deletion failures
*/
func (manager *SessionManager) Destroy(context context.Context, sessionID string) error {
	return manager.store.Delete(context, sessionKey(sessionID))
}

// sessionKey builds the storage key for a session ID.
func sessionKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID
}

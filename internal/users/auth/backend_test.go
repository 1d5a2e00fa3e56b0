// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/constants"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
	"github.com/campuslab/roomkeeper/internal/users/auth"
)

/*
TestBackend_Authenticate covers credential verification, including the
uniform error for unknown accounts and wrong passwords.
*/
func TestBackend_Authenticate(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "correct horse", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	t.Run("valid_credentials", func(t *testing.T) {
		user, err := fx.backend.Authenticate(ctx, "alice@campus.edu", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)

		// A successful login warms the snapshot cache.
		assert.True(t, fx.store.has(constants.RedisPrefixUserSnapshot+"user-1"))
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := fx.backend.Authenticate(ctx, "alice@campus.edu", "wrong")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "Invalid login credentials", ae.Message)
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := fx.backend.Authenticate(ctx, "nobody@campus.edu", "whatever")
		ae := apperr.As(err)
		require.NotNil(t, ae)

		// Identical to the wrong-password error, so the endpoint cannot be
		// used to probe which addresses have accounts.
		assert.Equal(t, "Invalid login credentials", ae.Message)
	})
}

/*
TestBackend_GetUser_CacheAside exercises the snapshot cache loop: a miss
populates the cache, a hit skips the durable store.
*/
func TestBackend_GetUser_CacheAside(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	// First read misses and hits the durable store.
	user, err := fx.backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, fx.repo.findByIDCalls)
	assert.True(t, fx.store.has(constants.RedisPrefixUserSnapshot+"user-1"))

	// Second read is served from the snapshot alone.
	user, err = fx.backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, fx.repo.findByIDCalls)

	// The snapshot carries the password hash: session verification must be
	// able to compare hashes on cache hits.
	assert.Equal(t, seeded.PasswordHash, user.PasswordHash)
}

/*
TestBackend_GetUser_StoreDegraded verifies that an unreachable cache only
costs latency: reads fall through to the durable store.
*/
func TestBackend_GetUser_StoreDegraded(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	fx.store.failWith = fmt.Errorf("%w: connection refused", auth.ErrStoreUnavailable)

	user, err := fx.backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, 1, fx.repo.findByIDCalls)
}

/*
TestBackend_GetUser_CorruptSnapshot checks that an undecodable snapshot is
dropped and the durable store answers instead.
*/
func TestBackend_GetUser_CorruptSnapshot(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	key := constants.RedisPrefixUserSnapshot + "user-1"
	fx.store.put(key, "{definitely not json")

	user, err := fx.backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, fx.repo.findByIDCalls)
}

/*
TestBackend_GetUser_SnapshotExpiry runs the cache loop against a real TTL
store: once the snapshot's window lapses without reads, the durable store
answers again.
*/
func TestBackend_GetUser_SnapshotExpiry(t *testing.T) {
	server, store := newMiniredisStore(t)
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)

	repo := newFakeUserRepository(seeded)
	backend := auth.NewBackend(repo, store, auth.NewSessionManager(store), hasher, testLogger())
	ctx := context.Background()

	_, err := backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.findByIDCalls)

	// Each read slides the 60s window.
	server.FastForward(auth.UserSnapshotTTL - time.Second)
	_, err = backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findByIDCalls)

	// Left untouched past the TTL, the snapshot is gone.
	server.FastForward(auth.UserSnapshotTTL + time.Second)
	_, err = backend.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findByIDCalls)
}

/*
TestBackend_GetUser_NotFound verifies that a missing account surfaces the
durable store's 404.
*/
func TestBackend_GetUser_NotFound(t *testing.T) {
	fx := newTestFixture(t)

	_, err := fx.backend.GetUser(context.Background(), "ghost")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 404, ae.HTTPStatus)
}

/*
TestBackend_HasPermission checks the exact-match role rule. There is no role
hierarchy: an admin is not implicitly a user.
*/
func TestBackend_HasPermission(t *testing.T) {
	fx := newTestFixture(t)

	admin := &auth.User{Role: sec.RoleAdmin}
	member := &auth.User{Role: sec.RoleUser}

	assert.True(t, fx.backend.HasPermission(admin, sec.RoleAdmin))
	assert.True(t, fx.backend.HasPermission(member, sec.RoleUser))
	assert.False(t, fx.backend.HasPermission(member, sec.RoleAdmin))
	assert.False(t, fx.backend.HasPermission(admin, sec.RoleUser))
	assert.False(t, fx.backend.HasPermission(nil, sec.RoleUser))
}

/*
TestBackend_ResolveSession covers the full session-to-identity path.
*/
func TestBackend_ResolveSession(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleAdmin)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	sessionID, err := fx.sessions.Create(ctx, seeded)
	require.NoError(t, err)

	identity, err := fx.backend.ResolveSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, sec.RoleAdmin, identity.Role)
}

/*
TestBackend_ResolveSession_Unknown verifies that a dead or never-issued
session ID is rejected.
*/
func TestBackend_ResolveSession_Unknown(t *testing.T) {
	fx := newTestFixture(t)

	_, err := fx.backend.ResolveSession(context.Background(), "no-such-session")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Invalid or expired session", ae.Message)
}

/*
TestBackend_ResolveSession_StoreDown verifies the fail-closed rule: when the
session store is unreachable, nobody gets an identity.
*/
func TestBackend_ResolveSession_StoreDown(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	sessionID, err := fx.sessions.Create(ctx, seeded)
	require.NoError(t, err)

	fx.store.failWith = fmt.Errorf("%w: connection refused", auth.ErrStoreUnavailable)

	_, err = fx.backend.ResolveSession(ctx, sessionID)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Session could not be verified", ae.Message)
}

/*
TestBackend_ResolveSession_StaleCredentials verifies that a session pinned to
an old password hash is destroyed the next time it is presented.
*/
func TestBackend_ResolveSession_StaleCredentials(t *testing.T) {
	hasher := testHasher(t)
	seeded := seedUser(t, hasher, "user-1", "alice", "alice@campus.edu", "old pw", sec.RoleUser)
	fx := newTestFixture(t, seeded)
	ctx := context.Background()

	sessionID, err := fx.sessions.Create(ctx, seeded)
	require.NoError(t, err)

	// Rotate the password behind the session's back.
	newHash, err := hasher.Hash(ctx, []byte("new pw"))
	require.NoError(t, err)
	require.NoError(t, fx.repo.UpdatePassword(ctx, "user-1", newHash))
	fx.backend.InvalidateUser(ctx, "user-1")

	_, err = fx.backend.ResolveSession(ctx, sessionID)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Invalid or expired session", ae.Message)

	// The stale session was removed, not just rejected.
	assert.False(t, fx.store.has(constants.RedisPrefixSession+sessionID))
}

// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslab/roomkeeper/internal/users/auth"
)

// newMiniredisStore spins up an in-process Redis and a store wired to it.
func newMiniredisStore(t *testing.T) (*miniredis.Miniredis, *auth.RedisVerificationStore) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return server, auth.NewVerificationStore(client)
}

/*
TestRedisVerificationStore_SetGet checks the basic write/read cycle and the
miss semantics for absent keys.
*/
func TestRedisVerificationStore_SetGet(t *testing.T) {
	_, store := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "k1", "v1", time.Minute))

	value, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", value)

	// Absent key is a miss, not an error.
	value, found, err = store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

/*
TestRedisVerificationStore_Expiration verifies that values disappear once
their TTL elapses.
*/
func TestRedisVerificationStore_Expiration(t *testing.T) {
	server, store := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "k1", "v1", time.Minute))

	server.FastForward(time.Minute + time.Second)

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

/*
TestRedisVerificationStore_GetAndRefresh checks the sliding expiration read:
each hit resets the TTL, and a miss slides nothing.
*/
func TestRedisVerificationStore_GetAndRefresh(t *testing.T) {
	server, store := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "k1", "v1", time.Minute))

	// Burn most of the window, then refresh it.
	server.FastForward(50 * time.Second)

	value, found, err := store.GetAndRefresh(ctx, "k1", time.Minute)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", value)

	// Another 50s would have expired the original TTL; the refreshed key survives.
	server.FastForward(50 * time.Second)

	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)

	// Miss path.
	_, found, err = store.GetAndRefresh(ctx, "absent", time.Minute)
	require.NoError(t, err)
	assert.False(t, found)
}

/*
TestRedisVerificationStore_Delete verifies removal and the idempotency of
deleting an absent key.
*/
func TestRedisVerificationStore_Delete(t *testing.T) {
	_, store := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "k1", "v1", time.Minute))
	require.NoError(t, store.Delete(ctx, "k1"))

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "k1"))
}

/*
TestRedisVerificationStore_Unavailable checks that infrastructure failures
surface as ErrStoreUnavailable on every operation.
*/
func TestRedisVerificationStore_Unavailable(t *testing.T) {
	server, store := newMiniredisStore(t)
	ctx := context.Background()

	server.Close()

	err := store.SetWithTTL(ctx, "k1", "v1", time.Minute)
	assert.ErrorIs(t, err, auth.ErrStoreUnavailable)

	_, _, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, auth.ErrStoreUnavailable)

	_, _, err = store.GetAndRefresh(ctx, "k1", time.Minute)
	assert.ErrorIs(t, err, auth.ErrStoreUnavailable)

	err = store.Delete(ctx, "k1")
	assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
}

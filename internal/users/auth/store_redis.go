// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Verification Store

// RedisVerificationStore implements VerificationStore using Redis.
//
// All infrastructure failures are wrapped in [ErrStoreUnavailable] so callers
// can distinguish "key absent" from "store down" without inspecting go-redis
// error types.
type RedisVerificationStore struct {
	client *redis.Client
}

// NewVerificationStore creates a new Redis-backed VerificationStore.
func NewVerificationStore(client *redis.Client) *RedisVerificationStore {
	return &RedisVerificationStore{client: client}
}

/*
SetWithTTL stores a value under the key for a limited duration.

Parameters:
  - context: context.Context
  - key: string
  - value: string
  - ttl: time.Duration

Returns:
  - error: ErrStoreUnavailable on execution errors
*/
func (store *RedisVerificationStore) SetWithTTL(context context.Context, key, value string, ttl time.Duration) error {
	if err := store.client.Set(context, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %q: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

/*
Get retrieves the value stored under the key.

Description: An absent or expired key is reported as a miss, not an error.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - string: Stored value (empty on miss)
  - bool: Whether the key was present
  - error: ErrStoreUnavailable on connectivity errors
*/
func (store *RedisVerificationStore) Get(context context.Context, key string) (string, bool, error) {
	value, err := store.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get %q: %v", ErrStoreUnavailable, key, err)
	}
	return value, true, nil
}

/*
GetAndRefresh retrieves the value and atomically resets its TTL.

Description: Backed by Redis GETEX, so the read and the expiration reset are a
single round trip and cannot race.

Parameters:
  - context: context.Context
  - key: string
  - ttl: time.Duration

Returns:
  - string: Stored value (empty on miss)
  - bool: Whether the key was present
  - error: ErrStoreUnavailable on connectivity errors
*/
func (store *RedisVerificationStore) GetAndRefresh(context context.Context, key string, ttl time.Duration) (string, bool, error) {
	value, err := store.client.GetEx(context, key, ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: getex %q: %v", ErrStoreUnavailable, key, err)
	}
	return value, true, nil
}

/*
Delete removes the key from Redis. Deleting an absent key succeeds.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - error: ErrStoreUnavailable on deletion failures
*/
func (store *RedisVerificationStore) Delete(context context.Context, key string) error {
	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("%w: del %q: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

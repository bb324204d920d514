// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/teamdesk/internal/platform/constants"
)

// clearBatchSize is the SCAN page size used by Clear.
const clearBatchSize = 100

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed Store whose keys live under namespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: namespace + ":" + constants.RedisPrefixStorage,
	}
}

/*
Get retrieves the value for key.

Parameters:
  - ctx: context.Context
  - key: string

Returns:
  - string: Stored value
  - bool: false if the key is absent
  - error: Connectivity errors
*/
func (store *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := store.client.Get(ctx, store.prefix+key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis_storage_get_failed: %w", err)
	}

	return value, true, nil
}

// Set stores value under key without expiry.
func (store *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := store.client.Set(ctx, store.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis_storage_set_failed: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (store *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = store.prefix + key
	}

	if err := store.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis_storage_delete_failed: %w", err)
	}
	return nil
}

/*
Clear removes every key under this store's namespace.

Description: Walks the keyspace with SCAN so a shared Redis is never blocked.

Parameters:
  - ctx: context.Context

Returns:
  - error: Scan or deletion failures
*/
func (store *RedisStore) Clear(ctx context.Context) error {
	iterator := store.client.Scan(ctx, 0, store.prefix+"*", clearBatchSize).Iterator()

	batch := make([]string, 0, clearBatchSize)
	for iterator.Next(ctx) {
		batch = append(batch, iterator.Val())
		if len(batch) == clearBatchSize {
			if err := store.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis_storage_clear_failed: %w", err)
			}
			batch = batch[:0]
		}
	}

	if err := iterator.Err(); err != nil {
		return fmt.Errorf("redis_storage_scan_failed: %w", err)
	}

	if len(batch) > 0 {
		if err := store.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis_storage_clear_failed: %w", err)
		}
	}

	return nil
}

// Close closes the underlying client.
func (store *RedisStore) Close() error {
	return store.client.Close()
}

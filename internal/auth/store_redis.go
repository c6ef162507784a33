// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/voxboard/internal/platform/constants"
)

// RedisLocalStore implements [LocalStore] using Redis.
//
// Keys follow auth:client:{namespace}:{key}; every write refreshes the
// [LocalStateTTL] so abandoned clients disappear on their own.
type RedisLocalStore struct {
	client redis.UniversalClient
}

// NewRedisLocalStore creates a new Redis-backed LocalStore.
func NewRedisLocalStore(client redis.UniversalClient) *RedisLocalStore {
	return &RedisLocalStore{client: client}
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixClient, namespace, key)
}

/*
Get retrieves the value stored under key.

Parameters:
  - context: context.Context
  - namespace: string
  - key: string

Returns:
  - []byte: Stored value, nil if absent
  - error: Connectivity errors
*/
func (repository *RedisLocalStore) Get(context context.Context, namespace, key string) ([]byte, error) {
	value, err := repository.client.Get(context, redisKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_local_state_get_failed: %w", err)
	}
	return value, nil
}

/*
Set writes all entries in one MULTI/EXEC transaction.

Parameters:
  - context: context.Context
  - namespace: string
  - entries: map[string][]byte

Returns:
  - error: Execution errors
*/
func (repository *RedisLocalStore) Set(context context.Context, namespace string, entries map[string][]byte) error {
	_, err := repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(context, redisKey(namespace, key), value, LocalStateTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_local_state_set_failed: %w", err)
	}
	return nil
}

/*
Delete removes keys from the namespace.

Parameters:
  - context: context.Context
  - namespace: string
  - keys: ...string

Returns:
  - error: Execution errors
*/
func (repository *RedisLocalStore) Delete(context context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, redisKey(namespace, key))
	}

	if err := repository.client.Del(context, fullKeys...).Err(); err != nil {
		return fmt.Errorf("redis_local_state_delete_failed: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (repository *RedisLocalStore) Ping(context context.Context) error {
	return repository.client.Ping(context).Err()
}

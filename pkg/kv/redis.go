package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// updateRetries bounds the optimistic retry loop before giving up with
// ErrConflict.
const updateRetries = 16

// RedisStore implements Store on a Redis connection. Update uses
// WATCH/MULTI so a concurrent write to the same key aborts the
// transaction instead of being silently overwritten.
type RedisStore struct {
	client *redis.Client
	// watch runs fn under WATCH on the given keys; swapped out in tests
	// to drive the retry loop without a server.
	watch func(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, watch: client.Watch}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: failed to get %q: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: failed to set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fn func(current string, found bool) (string, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = "", false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // key changed underneath us, retry with fresh value
		}
		if err != nil {
			return fmt.Errorf("kv: failed to update %q: %w", key, err)
		}
		return nil
	}
	return ErrConflict
}

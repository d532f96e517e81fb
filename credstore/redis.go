package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the general key-value backend. Entries carry no TTL: the
// record's lifetime is governed by explicit logout and by re-validation on
// load, not by store expiry.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a RedisBackend namespacing entries under prefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "wrs"
	}
	return &RedisBackend{redis: client, prefix: prefix}
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + ":" + k
}

// Get retrieves a single entry.
//
//	Performance: 1 Redis GET.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	val, err := b.redis.Get(ctx, b.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return val, nil
}

// Set writes a single entry.
func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.redis.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Delete removes entries in one round trip. Missing keys are not an error.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = b.key(k)
	}
	if err := b.redis.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scribeflow/scribeflow/internal/core"
)

// RedisCacheRepo implements core.CacheRepository backed by Redis. It is the
// durable tier of the progress tracker: records written here survive worker
// restarts and are visible to every process polling the same Redis.
type RedisCacheRepo struct {
	client *redis.Client
}

var _ core.CacheRepository = (*RedisCacheRepo)(nil)

// NewRedisCacheRepo creates a cache repository backed by the given client.
func NewRedisCacheRepo(client *redis.Client) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

// Set stores a value with the given TTL. A zero TTL stores without expiry.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Get retrieves a value. An absent or expired key returns (nil, nil).
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

// Delete removes a key, reporting whether it existed.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Health pings the Redis connection.
func (r *RedisCacheRepo) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health: %w", err)
	}
	return nil
}

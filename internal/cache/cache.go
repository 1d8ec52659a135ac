// Package cache holds the best-effort redis layer: job snapshots for the poll
// endpoint and counters for rate limiting. Callers treat every operation as
// advisory; postgres stays the source of truth.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. Implementations must be safe for concurrent
// use.
type Cache interface {
	SetJob(ctx context.Context, jobID string, snapshot []byte, ttl time.Duration) error
	GetJob(ctx context.Context, jobID string) ([]byte, bool, error)
	DeleteJob(ctx context.Context, jobID string) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements Cache using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already-connected redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) SetJob(ctx context.Context, jobID string, snapshot []byte, ttl time.Duration) error {
	return c.client.Set(ctx, JobKey(jobID), snapshot, ttl).Err()
}

func (c *RedisCache) GetJob(ctx context.Context, jobID string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, JobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) DeleteJob(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, JobKey(jobID)).Err()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

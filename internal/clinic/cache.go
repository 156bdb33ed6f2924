package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheKey = "clinic:catalog:snapshot"

// Cache stores the last good snapshot so other instances and restarts can skip
// the remote round trip.
type Cache interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Invalidate(ctx context.Context) error
}

// RedisCache keeps the snapshot as a single JSON value with a TTL.
type RedisCache struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

// NewRedisCache creates a snapshot cache. A zero ttl stores without expiry.
func NewRedisCache(redisClient *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: redisClient, key: defaultCacheKey, ttl: ttl}
}

// Get returns ErrCacheMiss when no snapshot is stored.
func (c *RedisCache) Get(ctx context.Context) (*Snapshot, error) {
	data, err := c.redis.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Set saves the snapshot.
func (c *RedisCache) Set(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("clinic: marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("clinic: set snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.redis.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("clinic: delete snapshot: %w", err)
	}
	return nil
}

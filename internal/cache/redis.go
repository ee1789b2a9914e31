// Package cache keeps loaded distribution sets in Redis so repeated
// requests for a region skip the backing store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

const keyPrefix = "hhsynth:dist"

// redisClient is the part of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisProvider is a read-through cache in front of another Provider. Cache
// failures are logged and never fail a Load.
type RedisProvider struct {
	client redisClient
	next   distribution.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient connects to Redis at addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisProvider(client redisClient, next distribution.Provider, ttl time.Duration, logger *slog.Logger) *RedisProvider {
	return &RedisProvider{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With("component", "distribution_cache"),
	}
}

func Key(region, period string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, strings.ToUpper(region), period)
}

func (c *RedisProvider) Load(ctx context.Context, region, period string) (distribution.Set, error) {
	key := Key(region, period)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap distribution.Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return snap.Set(), nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	set, err := c.next.Load(ctx, region, period)
	if err != nil {
		return nil, err
	}
	// Empty sets are not cached so a later import shows up immediately.
	if len(set) == 0 {
		return set, nil
	}

	encoded, err := json.Marshal(distribution.SnapshotOf(strings.ToUpper(region), period, set))
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return set, nil
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return set, nil
}

// Invalidate drops the cached set for region and period.
func (c *RedisProvider) Invalidate(ctx context.Context, region, period string) error {
	if err := c.client.Del(ctx, Key(region, period)).Err(); err != nil {
		return fmt.Errorf("invalidate %s/%s: %w", region, period, err)
	}
	return nil
}

// ListRegions passes through to the wrapped provider when it is a Catalog.
func (c *RedisProvider) ListRegions(ctx context.Context) ([]distribution.RegionPeriod, error) {
	catalog, ok := c.next.(distribution.Catalog)
	if !ok {
		return nil, nil
	}
	return catalog.ListRegions(ctx)
}

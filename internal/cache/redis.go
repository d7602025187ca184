// Package cache provides the Redis read cache fronting discovery queries.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_cache_misses_total",
		Help: "Total number of cache misses",
	})

	cacheErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_cache_errors_total",
		Help: "Total number of cache errors",
	})
)

// Config holds Redis cache configuration.
type Config struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache caches discovery read results with a short TTL. The mirror
// invalidates entries on every relevant engine event, so the TTL is only a
// backstop.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{client: client, prefix: cfg.Prefix, ttl: ttl}, nil
}

// Get unmarshals the cached value for key into dest, reporting a miss.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		cacheMisses.Inc()
		return false, nil
	}
	if err != nil {
		cacheErrors.Inc()
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		cacheErrors.Inc()
		return false, err
	}
	cacheHits.Inc()
	return true, nil
}

// Set marshals value under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		cacheErrors.Inc()
		return err
	}
	return nil
}

// Delete removes keys from the cache.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		cacheErrors.Inc()
	}
}

// InvalidateListing drops the per-listing cache entry.
func (c *RedisCache) InvalidateListing(ctx context.Context, id uint64) {
	c.Delete(ctx, ListingKey(id))
}

// InvalidateActive drops every cached active-listing page.
func (c *RedisCache) InvalidateActive(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.key("active:*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			cacheErrors.Inc()
		}
	}
}

// InvalidateReputation drops the cached reputation for provider.
func (c *RedisCache) InvalidateReputation(ctx context.Context, provider string) {
	c.Delete(ctx, ReputationKey(provider))
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.prefix + ":" + k
}

// ListingKey is the cache key for a single listing.
func ListingKey(id uint64) string {
	return fmt.Sprintf("listing:%d", id)
}

// ActivePageKey is the cache key for one active-listing page.
func ActivePageKey(offset, limit int) string {
	return fmt.Sprintf("active:%d:%d", offset, limit)
}

// ReputationKey is the cache key for a provider's reputation.
func ReputationKey(provider string) string {
	return "reputation:" + provider
}

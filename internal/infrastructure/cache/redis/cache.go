package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	"github.com/turtacn/dtiscope/pkg/errors"
)

type redisCache struct {
	client     *Client
	prefix     string
	defaultTTL time.Duration
}

// CacheOption configures NewCache.
type CacheOption func(*redisCache)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithDefaultTTL is used when Set receives a zero ttl.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// NewCache returns a cache.Cache stored in Redis.
func NewCache(client *Client, opts ...CacheOption) cache.Cache {
	c := &redisCache{client: client, prefix: "dtiscope:", defaultTTL: time.Hour}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string { return c.prefix + key }

// jitterTTL spreads expiry by ±10% so entries written together do not all
// expire together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	return ttl + time.Duration(float64(ttl)*0.1*(rand.Float64()*2-1))
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	if c.client.isClosed() {
		return "", ErrClientClosed
	}
	v, err := c.client.rdb.Get(ctx, c.fullKey(key)).Result()
	if err == redis.Nil {
		return "", cache.ErrCacheMiss
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache").WithDetail(key)
	}
	return v, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.rdb.Set(ctx, c.fullKey(key), value, jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write cache").WithDetail(key)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	return c.client.rdb.Del(ctx, c.fullKey(key)).Err()
}

func (c *redisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx) }

func (c *redisCache) Tier() string { return "redis" }

//Personal.AI order the ending

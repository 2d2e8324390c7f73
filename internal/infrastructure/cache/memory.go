package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache is a process-local LRU with a single expiry for all entries.
type memoryCache struct {
	lru *expirable.LRU[string, string]
}

// NewMemory returns an in-process LRU cache holding at most size entries,
// each expiring ttl after insertion.  The ttl argument of Set is ignored.
func NewMemory(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 1024
	}
	return &memoryCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	return "", ErrCacheMiss
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) Tier() string { return "memory" }

// nopCache never stores anything.
type nopCache struct{}

// NewNop returns a Cache that always misses.
func NewNop() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string) (string, error)                { return "", ErrCacheMiss }
func (nopCache) Set(context.Context, string, string, time.Duration) error   { return nil }
func (nopCache) Delete(context.Context, string) error                        { return nil }
func (nopCache) Ping(context.Context) error                                  { return nil }
func (nopCache) Tier() string                                                { return "none" }

//Personal.AI order the ending

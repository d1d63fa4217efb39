package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/pkg/breaker"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Key not found is not an error
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// ResultCache stores pricing results with the client's default TTL.
// It satisfies the dispatcher's cache interface.
type ResultCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *breaker.Breaker
}

// NewResultCache creates a pricing result cache under prefix
func NewResultCache(client *Client, prefix string) *ResultCache {
	return &ResultCache{cache: NewCache(client, prefix), ttl: client.TTL()}
}

// WithBreaker routes every Redis round trip through b.
// While b is open, lookups fail fast with breaker.ErrOpen.
func (r *ResultCache) WithBreaker(b *breaker.Breaker) *ResultCache {
	r.breaker = b
	return r
}

// Get returns the cached result for key
func (r *ResultCache) Get(ctx context.Context, key string) (*contracts.PricingResult, bool, error) {
	var result contracts.PricingResult
	found, err := breaker.Execute(r.breaker, func() (bool, error) {
		return r.cache.Get(ctx, key, &result)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &result, true, nil
}

// Set stores result under key
func (r *ResultCache) Set(ctx context.Context, key string, result *contracts.PricingResult) error {
	_, err := breaker.Execute(r.breaker, func() (struct{}, error) {
		return struct{}{}, r.cache.Set(ctx, key, result, r.ttl)
	})
	return err
}

// Invalidate drops the cached result for key
func (r *ResultCache) Invalidate(ctx context.Context, key string) error {
	return r.cache.Delete(ctx, key)
}

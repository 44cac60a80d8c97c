package cms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/momentworks/consultbook/pkg/logging"
)

// DefaultCacheTTL matches the content revalidation window.
const DefaultCacheTTL = 60 * time.Second

// Cache stores raw API responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		panic("cms: redis client required")
	}
	return &RedisCache{client: client, prefix: "cms:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cms: cache get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cms: cache set: %w", err)
	}
	return nil
}

// CachedClient serves repeated reads from a Cache. Cache failures fall back
// to the API; only successful responses are stored.
type CachedClient struct {
	next   fetcher
	cache  Cache
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedClient(next fetcher, cache Cache, ttl time.Duration, logger *logging.Logger) *CachedClient {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedClient) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	key := endpoint
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("cms cache read failed", "error", err, "key", key)
		case ok:
			return data, nil
		}
	}

	data, err := c.next.Fetch(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("cms cache write failed", "error", err, "key", key)
		}
	}
	return data, nil
}

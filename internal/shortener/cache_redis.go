package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

const DefaultCacheKeyPrefix = "url:"

// redisCmdable is the subset of *redis.Client the cache needs.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisCache struct {
	client    redisCmdable
	keyPrefix string
}

// RedisCacheConfig holds configuration for the Redis cache.
type RedisCacheConfig struct {
	KeyPrefix string // default "url:"
}

// cachedLink is the JSON value stored under each key.
type cachedLink struct {
	TargetURL string     `json:"targetUrl"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// NewRedisCache creates a Cache backed by Redis.
func NewRedisCache(client redisCmdable, config *RedisCacheConfig) Cache {
	if config == nil {
		config = &RedisCacheConfig{}
	}
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultCacheKeyPrefix
	}
	return &redisCache{client: client, keyPrefix: prefix}
}

func (c *redisCache) key(code string) string {
	return c.keyPrefix + code
}

func cacheUnavailable(op string, err error) error {
	return errx.E(op, errx.Unavailable, fmt.Errorf("%w: %w", ErrCacheUnavailable, err))
}

func (c *redisCache) Get(ctx context.Context, code string) (CacheEntry, bool, error) {
	const op = "shortener.cache.Get"

	raw, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, cacheUnavailable(op, err)
	}

	var v cachedLink
	if err := json.Unmarshal(raw, &v); err != nil {
		return CacheEntry{}, false, cacheUnavailable(op, fmt.Errorf("decode cached link: %w", err))
	}
	if v.TargetURL == "" {
		return CacheEntry{}, false, cacheUnavailable(op, errors.New("cached link has no target url"))
	}

	return CacheEntry{TargetURL: v.TargetURL, ExpiresAt: v.ExpiresAt}, true, nil
}

func (c *redisCache) Put(ctx context.Context, code string, entry CacheEntry, ttl time.Duration) error {
	const op = "shortener.cache.Put"

	// A zero expiration would make the key permanent in Redis.
	if ttl <= 0 {
		return errx.E(op, errx.Invalid, fmt.Errorf("cache ttl must be positive, got %s", ttl))
	}

	raw, err := json.Marshal(cachedLink{TargetURL: entry.TargetURL, ExpiresAt: entry.ExpiresAt})
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	if err := c.client.Set(ctx, c.key(code), raw, ttl).Err(); err != nil {
		return cacheUnavailable(op, err)
	}
	return nil
}

func (c *redisCache) Evict(ctx context.Context, code string) error {
	const op = "shortener.cache.Evict"

	if err := c.client.Del(ctx, c.key(code)).Err(); err != nil {
		return cacheUnavailable(op, err)
	}
	return nil
}

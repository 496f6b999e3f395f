package shortener

import (
	"context"
	"time"
)

// Cache is the resolution cache: a TTL-bounded accelerator in front of the
// Repository. It is never authoritative.
//
// Get reports a miss with found == false and a nil error. Put overwrites
// unconditionally. Backend failures are errx.Unavailable wrapping
// ErrCacheUnavailable; callers treat them as a miss.
type Cache interface {
	Get(ctx context.Context, code string) (entry CacheEntry, found bool, err error)
	Put(ctx context.Context, code string, entry CacheEntry, ttl time.Duration) error
	Evict(ctx context.Context, code string) error
}

// nopCache always misses. It backs a service configured without a cache.
type nopCache struct{}

func (nopCache) Get(context.Context, string) (CacheEntry, bool, error) {
	return CacheEntry{}, false, nil
}

func (nopCache) Put(context.Context, string, CacheEntry, time.Duration) error { return nil }

func (nopCache) Evict(context.Context, string) error { return nil }

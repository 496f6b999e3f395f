package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Link is the durable record mapping a short code to its target URL.
type Link struct {
	ID        uuid.UUID
	Code      string
	TargetURL string
	Clicks    int64
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// IsExpired reports whether the link must no longer be served at now.
// A link expiring exactly at now is still live.
func (l Link) IsExpired(now time.Time) bool {
	return isExpired(l.ExpiresAt, now)
}

// CacheEntry returns the redirect-relevant projection of the link.
func (l Link) CacheEntry() CacheEntry {
	return CacheEntry{
		TargetURL: l.TargetURL,
		ExpiresAt: l.ExpiresAt,
	}
}

// CacheEntry is what the resolution cache holds for a code. Clicks are never cached.
type CacheEntry struct {
	TargetURL string
	ExpiresAt *time.Time
}

func (e CacheEntry) IsExpired(now time.Time) bool {
	return isExpired(e.ExpiresAt, now)
}

func isExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}

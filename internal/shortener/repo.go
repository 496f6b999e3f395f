package shortener

import "context"

// Repository is the durable, authoritative link store.
// It owns code uniqueness and the click counter.
//
// Lookups return an error of kind errx.NotFound when nothing matches.
// Insert returns errx.Conflict (wrapping ErrDuplicateCode) when the code is taken,
// even if a concurrent writer claimed it after the caller's own existence check.
// IncrementClicks is a single atomic increment in the store.
// Every other failure is errx.Unavailable wrapping ErrStoreUnavailable.
type Repository interface {
	FindByTarget(ctx context.Context, targetURL string) (Link, error)
	FindByCode(ctx context.Context, code string) (Link, error)
	Insert(ctx context.Context, link Link) (Link, error)
	IncrementClicks(ctx context.Context, code string) error
}

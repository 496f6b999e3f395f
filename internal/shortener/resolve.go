package shortener

import (
	"context"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/errx"
)

// Resolve returns the redirect target for code and counts the click.
//
//   - cache hit, live: click recorded by the click recorder, target returned
//   - cache hit, expired: entry evicted, ErrExpired; the store is not consulted
//   - cache miss: store lookup; expired links are not cached, live links get a
//     synchronous click increment and a cache refresh
//
// Failures are errx.NotFound (ErrNotFound), errx.Expired (ErrExpired) or
// errx.Unavailable (ErrStoreUnavailable). Cache failures never surface.
func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	// Nothing outside the code alphabet can exist in the store.
	if !codegen.IsValid(code) {
		return "", errx.E(op, errx.NotFound, ErrNotFound)
	}

	now := s.now()

	if entry, ok := s.cacheGet(ctx, code); ok {
		if entry.IsExpired(now) {
			s.cacheEvict(ctx, code)
			return "", errx.E(op, errx.Expired, ErrExpired)
		}
		s.clicks.Record(ctx, code)
		return entry.TargetURL, nil
	}

	link, err := s.findByCode(ctx, code)
	if err != nil {
		return "", errx.Wrap(op, err)
	}

	if link.IsExpired(now) {
		return "", errx.E(op, errx.Expired, ErrExpired)
	}

	if err := s.incrementClicks(ctx, code); err != nil {
		return "", errx.Wrap(op, err)
	}

	s.cachePut(ctx, link)

	return link.TargetURL, nil
}

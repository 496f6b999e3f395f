package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

var errCodeSpaceExhausted = errors.New("could not generate unique code after retries")

// Create validates a new mapping, persists it and warms the cache.
//
// Validation failures return before any write. Without a custom code, an existing
// link for the same target is returned unchanged (Created == false). A custom code
// bypasses that deduplication.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (CreateLinkResult, error) {
	const op = "shortener.service.Create"

	if err := validateURL(req.TargetURL); err != nil {
		return CreateLinkResult{}, errx.E(op, errx.Invalid, err)
	}

	if req.CustomCode != "" {
		if err := validateCustomCode(req.CustomCode); err != nil {
			return CreateLinkResult{}, errx.E(op, errx.Invalid, err)
		}

		// Fast path only; Insert's unique constraint is the real arbiter.
		_, err := s.findByCode(ctx, req.CustomCode)
		switch {
		case err == nil:
			return CreateLinkResult{}, errx.E(op, errx.Conflict,
				fmt.Errorf("%w: %q", ErrDuplicateCode, req.CustomCode))
		case !errx.Is(err, errx.NotFound):
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	}

	expiresAt, err := parseExpiration(req.ExpiresAt, s.now())
	if err != nil {
		return CreateLinkResult{}, errx.E(op, errx.Invalid, err)
	}

	if req.CustomCode == "" {
		existing, err := s.findByTarget(ctx, req.TargetURL)
		switch {
		case err == nil:
			return CreateLinkResult{
				Link:    existing,
				Created: false,
				Message: MessageExisting,
			}, nil
		case !errx.Is(err, errx.NotFound):
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	}

	link := Link{
		TargetURL: req.TargetURL,
		ExpiresAt: expiresAt,
	}

	var created Link
	if req.CustomCode != "" {
		link.Code = req.CustomCode
		created, err = s.insert(ctx, link)
		if err != nil {
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	} else {
		created, err = s.insertGenerated(ctx, link)
		if err != nil {
			return CreateLinkResult{}, errx.Wrap(op, err)
		}
	}

	s.cachePut(ctx, created)

	return CreateLinkResult{
		Link:    created,
		Created: true,
		Message: MessageCreated,
	}, nil
}

// insertGenerated retries with a fresh code whenever the store reports a collision.
func (s *service) insertGenerated(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.service.insertGenerated"

	for attempt := 1; attempt <= s.codeMaxRetries; attempt++ {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}

		link.Code = code
		created, err := s.insert(ctx, link)
		if err == nil {
			return created, nil
		}
		if !errx.Is(err, errx.Conflict) {
			return Link{}, errx.Wrap(op, err)
		}

		s.logger.InfoContext(ctx, "generated code collided, retrying",
			"code", code,
			"attempt", attempt,
		)
	}

	return Link{}, errx.E(op, errx.Unavailable,
		fmt.Errorf("%w (%d attempts)", errCodeSpaceExhausted, s.codeMaxRetries))
}

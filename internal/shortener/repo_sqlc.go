package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/shortlink/internal/db/sqlc"
	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/idgen"
)

// querier is the subset of *db.Queries the repository needs.
type querier interface {
	CreateLink(ctx context.Context, arg db.CreateLinkParams) (db.Link, error)
	GetLinkByCode(ctx context.Context, code string) (db.Link, error)
	GetLinkByTargetURL(ctx context.Context, targetUrl string) (db.Link, error)
	IncrementClicks(ctx context.Context, code string) (int64, error)
}

type repo struct {
	q   querier
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository creates a PostgreSQL-backed Repository.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// UUID v7 keeps inserts roughly ordered in the primary key index.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		q:   q,
		ids: config.IDGenerator,
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func toDomainLink(x db.Link) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:        x.ID,
		Code:      x.Code,
		TargetURL: x.TargetUrl,
		Clicks:    x.Clicks,
		CreatedAt: createdAt,
		ExpiresAt: timePtr(x.ExpiresAt),
	}, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, fmt.Errorf("%w: %w", ErrNotFound, err))

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", ErrDuplicateCode, err))

	default:
		return errx.E(op, errx.Unavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
}

func (r *repo) FindByTarget(ctx context.Context, targetURL string) (Link, error) {
	const op = "shortener.repo.FindByTarget"

	row, err := r.q.GetLinkByTargetURL(ctx, targetURL)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return r.toDomain(op, row)
}

func (r *repo) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "shortener.repo.FindByCode"

	row, err := r.q.GetLinkByCode(ctx, code)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return r.toDomain(op, row)
}

func (r *repo) Insert(ctx context.Context, link Link) (Link, error) {
	const op = "shortener.repo.Insert"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}
		link.ID = id
	}

	row, err := r.q.CreateLink(ctx, db.CreateLinkParams{
		ID:        link.ID,
		Code:      link.Code,
		TargetUrl: link.TargetURL,
		ExpiresAt: toTimestamptz(link.ExpiresAt),
	})
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return r.toDomain(op, row)
}

func (r *repo) IncrementClicks(ctx context.Context, code string) error {
	const op = "shortener.repo.IncrementClicks"

	n, err := r.q.IncrementClicks(ctx, code)
	if err != nil {
		return mapRepoError(op, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, ErrNotFound)
	}
	return nil
}

func (r *repo) toDomain(op string, row db.Link) (Link, error) {
	link, err := toDomainLink(row)
	if err != nil {
		return Link{}, errx.E(op, errx.Internal, err)
	}
	return link, nil
}

package shortener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/shortlink/internal/db/sqlc"
	"github.com/sundayezeilo/shortlink/internal/errx"
)

/***************
 * Mocks / Stubs
 ***************/

// mockQueries implements the querier interface for testing.
type mockQueries struct {
	createLinkFunc         func(ctx context.Context, params db.CreateLinkParams) (db.Link, error)
	getLinkByCodeFunc      func(ctx context.Context, code string) (db.Link, error)
	getLinkByTargetURLFunc func(ctx context.Context, targetURL string) (db.Link, error)
	incrementClicksFunc    func(ctx context.Context, code string) (int64, error)
}

func (m *mockQueries) CreateLink(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
	if m.createLinkFunc != nil {
		return m.createLinkFunc(ctx, params)
	}
	return db.Link{}, nil
}

func (m *mockQueries) GetLinkByCode(ctx context.Context, code string) (db.Link, error) {
	if m.getLinkByCodeFunc != nil {
		return m.getLinkByCodeFunc(ctx, code)
	}
	return db.Link{}, pgx.ErrNoRows
}

func (m *mockQueries) GetLinkByTargetURL(ctx context.Context, targetURL string) (db.Link, error) {
	if m.getLinkByTargetURLFunc != nil {
		return m.getLinkByTargetURLFunc(ctx, targetURL)
	}
	return db.Link{}, pgx.ErrNoRows
}

func (m *mockQueries) IncrementClicks(ctx context.Context, code string) (int64, error) {
	if m.incrementClicksFunc != nil {
		return m.incrementClicksFunc(ctx, code)
	}
	return 1, nil
}

// stubIDGen lets tests control generated IDs deterministically.
type stubIDGen struct {
	id    uuid.UUID
	err   error
	calls int
}

func (g *stubIDGen) Generate() (uuid.UUID, error) {
	g.calls++
	return g.id, g.err
}

/***************
 * Helpers
 ***************/

func makeValidTimestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func makeInvalidTimestamp() pgtype.Timestamptz {
	return pgtype.Timestamptz{Valid: false}
}

func makeTestDBLink(now time.Time) db.Link {
	return db.Link{
		ID:        uuid.New(),
		Code:      "abc1234",
		TargetUrl: "https://example.com",
		Clicks:    0,
		CreatedAt: makeValidTimestamp(now),
		ExpiresAt: makeInvalidTimestamp(),
	}
}

func codeConflictError() error {
	return &pgconn.PgError{
		Code:           pgUniqueViolation,
		ConstraintName: linksCodeConstraint,
		Message:        "duplicate key value violates unique constraint",
	}
}

/***************
 * Unit tests: helpers
 ***************/

func TestMustTime(t *testing.T) {
	t.Run("returns time when timestamp is valid", func(t *testing.T) {
		now := time.Now()

		got, err := mustTime(makeValidTimestamp(now), "created_at")
		if err != nil {
			t.Fatalf("mustTime() unexpected error: %v", err)
		}
		if !got.Equal(now) {
			t.Errorf("mustTime() = %v, want %v", got, now)
		}
	})

	t.Run("returns error when timestamp is invalid", func(t *testing.T) {
		_, err := mustTime(makeInvalidTimestamp(), "created_at")
		if err == nil {
			t.Fatal("mustTime() expected error, got nil")
		}
		want := "created_at unexpectedly NULL"
		if err.Error() != want {
			t.Errorf("mustTime() error = %q, want %q", err.Error(), want)
		}
	})
}

func TestTimestampConversions(t *testing.T) {
	t.Run("timePtr returns nil for NULL", func(t *testing.T) {
		if got := timePtr(makeInvalidTimestamp()); got != nil {
			t.Errorf("timePtr() = %v, want nil", got)
		}
	})

	t.Run("timePtr copies a valid timestamp", func(t *testing.T) {
		now := time.Now()
		got := timePtr(makeValidTimestamp(now))
		if got == nil || !got.Equal(now) {
			t.Errorf("timePtr() = %v, want %v", got, now)
		}
	})

	t.Run("toTimestamptz maps nil to NULL", func(t *testing.T) {
		if got := toTimestamptz(nil); got.Valid {
			t.Errorf("toTimestamptz(nil).Valid = true, want false")
		}
	})

	t.Run("toTimestamptz keeps the instant", func(t *testing.T) {
		at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		got := toTimestamptz(&at)
		if !got.Valid || !got.Time.Equal(at) {
			t.Errorf("toTimestamptz() = %+v, want valid %v", got, at)
		}
	})
}

func TestToDomainLink(t *testing.T) {
	t.Run("converts a row with expiration", func(t *testing.T) {
		now := time.Now()
		expires := now.Add(time.Hour)
		row := makeTestDBLink(now)
		row.Clicks = 5
		row.ExpiresAt = makeValidTimestamp(expires)

		got, err := toDomainLink(row)
		if err != nil {
			t.Fatalf("toDomainLink() unexpected error: %v", err)
		}

		if got.ID != row.ID {
			t.Errorf("ID = %v, want %v", got.ID, row.ID)
		}
		if got.Code != row.Code {
			t.Errorf("Code = %q, want %q", got.Code, row.Code)
		}
		if got.TargetURL != row.TargetUrl {
			t.Errorf("TargetURL = %q, want %q", got.TargetURL, row.TargetUrl)
		}
		if got.Clicks != 5 {
			t.Errorf("Clicks = %d, want 5", got.Clicks)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
		}
	})

	t.Run("maps NULL expires_at to nil", func(t *testing.T) {
		got, err := toDomainLink(makeTestDBLink(time.Now()))
		if err != nil {
			t.Fatalf("toDomainLink() unexpected error: %v", err)
		}
		if got.ExpiresAt != nil {
			t.Errorf("ExpiresAt = %v, want nil", got.ExpiresAt)
		}
	})

	t.Run("returns error when CreatedAt is NULL", func(t *testing.T) {
		row := makeTestDBLink(time.Now())
		row.CreatedAt = makeInvalidTimestamp()

		if _, err := toDomainLink(row); err == nil {
			t.Fatal("toDomainLink() expected error for NULL created_at, got nil")
		}
	})
}

func TestMapRepoError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind errx.Kind
		wantIs   error
	}{
		{
			name:     "no rows is NotFound",
			err:      pgx.ErrNoRows,
			wantKind: errx.NotFound,
			wantIs:   ErrNotFound,
		},
		{
			name:     "code unique violation is Conflict",
			err:      codeConflictError(),
			wantKind: errx.Conflict,
			wantIs:   ErrDuplicateCode,
		},
		{
			name:     "unique violation on another constraint is Unavailable",
			err:      &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "links_pkey"},
			wantKind: errx.Unavailable,
			wantIs:   ErrStoreUnavailable,
		},
		{
			name:     "check violation is Unavailable",
			err:      &pgconn.PgError{Code: "23514", ConstraintName: "links_code_format"},
			wantKind: errx.Unavailable,
			wantIs:   ErrStoreUnavailable,
		},
		{
			name:     "deadline is Unavailable",
			err:      context.DeadlineExceeded,
			wantKind: errx.Unavailable,
			wantIs:   context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapRepoError("op", tt.err)

			if errx.KindOf(got) != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", errx.KindOf(got), tt.wantKind)
			}
			if !errors.Is(got, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", got, tt.wantIs)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("cause %v not preserved in %v", tt.err, got)
			}
		})
	}
}

/***************
 * Unit tests: repository
 ***************/

func TestRepoInsert(t *testing.T) {
	t.Run("generates ID when link.ID is zero", func(t *testing.T) {
		now := time.Now()
		wantID := uuid.Must(uuid.NewV7())
		gen := &stubIDGen{id: wantID}
		expires := now.Add(24 * time.Hour)

		var gotParams db.CreateLinkParams
		q := &mockQueries{
			createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
				gotParams = params
				return db.Link{
					ID:        params.ID,
					Code:      params.Code,
					TargetUrl: params.TargetUrl,
					CreatedAt: makeValidTimestamp(now),
					ExpiresAt: params.ExpiresAt,
				}, nil
			},
		}

		r := NewRepository(q, &RepositoryConfig{IDGenerator: gen})
		got, err := r.Insert(context.Background(), Link{
			Code:      "abc1234",
			TargetURL: "https://example.com",
			ExpiresAt: &expires,
		})
		if err != nil {
			t.Fatalf("Insert() unexpected error: %v", err)
		}

		if gen.calls != 1 {
			t.Errorf("generator calls = %d, want 1", gen.calls)
		}
		if gotParams.ID != wantID {
			t.Errorf("params.ID = %v, want %v", gotParams.ID, wantID)
		}
		if !gotParams.ExpiresAt.Valid || !gotParams.ExpiresAt.Time.Equal(expires) {
			t.Errorf("params.ExpiresAt = %+v, want %v", gotParams.ExpiresAt, expires)
		}
		if got.ID != wantID || got.Code != "abc1234" || got.Clicks != 0 {
			t.Errorf("Insert() = %+v", got)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
		}
	})

	t.Run("respects pre-set ID", func(t *testing.T) {
		presetID := uuid.New()
		gen := &stubIDGen{id: uuid.New()}

		q := &mockQueries{
			createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
				if params.ID != presetID {
					t.Errorf("params.ID = %v, want %v", params.ID, presetID)
				}
				row := makeTestDBLink(time.Now())
				row.ID = params.ID
				return row, nil
			},
		}

		r := NewRepository(q, &RepositoryConfig{IDGenerator: gen})
		if _, err := r.Insert(context.Background(), Link{ID: presetID, Code: "abc1234", TargetURL: "https://example.com"}); err != nil {
			t.Fatalf("Insert() unexpected error: %v", err)
		}
		if gen.calls != 0 {
			t.Errorf("generator calls = %d, want 0", gen.calls)
		}
	})

	t.Run("returns Conflict for duplicate code", func(t *testing.T) {
		q := &mockQueries{
			createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
				return db.Link{}, codeConflictError()
			},
		}

		r := NewRepository(q, &RepositoryConfig{IDGenerator: &stubIDGen{id: uuid.New()}})
		_, err := r.Insert(context.Background(), Link{Code: "taken", TargetURL: "https://example.com"})

		if !errx.Is(err, errx.Conflict) {
			t.Errorf("kind = %v, want Conflict", errx.KindOf(err))
		}
		if !errors.Is(err, ErrDuplicateCode) {
			t.Errorf("error %v does not wrap ErrDuplicateCode", err)
		}
	})

	t.Run("returns Internal when ID generation fails", func(t *testing.T) {
		called := false
		q := &mockQueries{
			createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
				called = true
				return db.Link{}, nil
			},
		}

		r := NewRepository(q, &RepositoryConfig{IDGenerator: &stubIDGen{err: errors.New("entropy exhausted")}})
		_, err := r.Insert(context.Background(), Link{Code: "abc1234", TargetURL: "https://example.com"})

		if !errx.Is(err, errx.Internal) {
			t.Errorf("kind = %v, want Internal", errx.KindOf(err))
		}
		if called {
			t.Error("CreateLink should not be called when ID generation fails")
		}
	})

	t.Run("returns Internal when row cannot be converted", func(t *testing.T) {
		q := &mockQueries{
			createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
				row := makeTestDBLink(time.Now())
				row.CreatedAt = makeInvalidTimestamp()
				return row, nil
			},
		}

		r := NewRepository(q, &RepositoryConfig{IDGenerator: &stubIDGen{id: uuid.New()}})
		_, err := r.Insert(context.Background(), Link{Code: "abc1234", TargetURL: "https://example.com"})
		if !errx.Is(err, errx.Internal) {
			t.Errorf("kind = %v, want Internal", errx.KindOf(err))
		}
	})
}

func TestRepoFindByCode(t *testing.T) {
	t.Run("retrieves link", func(t *testing.T) {
		now := time.Now()
		q := &mockQueries{
			getLinkByCodeFunc: func(ctx context.Context, code string) (db.Link, error) {
				row := makeTestDBLink(now)
				row.Code = code
				row.Clicks = 3
				return row, nil
			},
		}

		got, err := NewRepository(q, nil).FindByCode(context.Background(), "abc1234")
		if err != nil {
			t.Fatalf("FindByCode() unexpected error: %v", err)
		}
		if got.Code != "abc1234" || got.Clicks != 3 {
			t.Errorf("FindByCode() = %+v", got)
		}
	})

	t.Run("returns NotFound for unknown code", func(t *testing.T) {
		_, err := NewRepository(&mockQueries{}, nil).FindByCode(context.Background(), "nope")
		if !errx.Is(err, errx.NotFound) {
			t.Errorf("kind = %v, want NotFound", errx.KindOf(err))
		}
		if errx.OpOf(err) != "shortener.repo.FindByCode" {
			t.Errorf("op = %q, want shortener.repo.FindByCode", errx.OpOf(err))
		}
	})

	t.Run("returns Unavailable on driver failure", func(t *testing.T) {
		q := &mockQueries{
			getLinkByCodeFunc: func(ctx context.Context, code string) (db.Link, error) {
				return db.Link{}, errors.New("connection refused")
			},
		}
		_, err := NewRepository(q, nil).FindByCode(context.Background(), "abc1234")
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("error %v does not wrap ErrStoreUnavailable", err)
		}
	})
}

func TestRepoFindByTarget(t *testing.T) {
	t.Run("retrieves the existing link for a target", func(t *testing.T) {
		q := &mockQueries{
			getLinkByTargetURLFunc: func(ctx context.Context, targetURL string) (db.Link, error) {
				if targetURL != "https://example.com" {
					t.Errorf("targetURL = %q", targetURL)
				}
				return makeTestDBLink(time.Now()), nil
			},
		}

		got, err := NewRepository(q, nil).FindByTarget(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("FindByTarget() unexpected error: %v", err)
		}
		if got.Code != "abc1234" {
			t.Errorf("Code = %q, want abc1234", got.Code)
		}
	})

	t.Run("returns NotFound when target is new", func(t *testing.T) {
		_, err := NewRepository(&mockQueries{}, nil).FindByTarget(context.Background(), "https://new.example")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error %v does not wrap ErrNotFound", err)
		}
	})
}

func TestRepoIncrementClicks(t *testing.T) {
	t.Run("increments existing code", func(t *testing.T) {
		var gotCode string
		q := &mockQueries{
			incrementClicksFunc: func(ctx context.Context, code string) (int64, error) {
				gotCode = code
				return 1, nil
			},
		}

		if err := NewRepository(q, nil).IncrementClicks(context.Background(), "abc1234"); err != nil {
			t.Fatalf("IncrementClicks() unexpected error: %v", err)
		}
		if gotCode != "abc1234" {
			t.Errorf("code = %q, want abc1234", gotCode)
		}
	})

	t.Run("returns NotFound when no row was updated", func(t *testing.T) {
		q := &mockQueries{
			incrementClicksFunc: func(ctx context.Context, code string) (int64, error) {
				return 0, nil
			},
		}

		err := NewRepository(q, nil).IncrementClicks(context.Background(), "missing")
		if !errx.Is(err, errx.NotFound) {
			t.Errorf("kind = %v, want NotFound", errx.KindOf(err))
		}
	})

	t.Run("returns Unavailable on driver failure", func(t *testing.T) {
		q := &mockQueries{
			incrementClicksFunc: func(ctx context.Context, code string) (int64, error) {
				return 0, context.DeadlineExceeded
			},
		}

		err := NewRepository(q, nil).IncrementClicks(context.Background(), "abc1234")
		if !errx.Is(err, errx.Unavailable) {
			t.Errorf("kind = %v, want Unavailable", errx.KindOf(err))
		}
	})
}

func TestNewRepository_DefaultsToUUIDv7(t *testing.T) {
	var gotID uuid.UUID
	q := &mockQueries{
		createLinkFunc: func(ctx context.Context, params db.CreateLinkParams) (db.Link, error) {
			gotID = params.ID
			row := makeTestDBLink(time.Now())
			row.ID = params.ID
			return row, nil
		},
	}

	if _, err := NewRepository(q, nil).Insert(context.Background(), Link{Code: "abc1234", TargetURL: "https://example.com"}); err != nil {
		t.Fatalf("Insert() unexpected error: %v", err)
	}
	if gotID.Version() != 7 {
		t.Errorf("generated ID version = %d, want 7", gotID.Version())
	}
}

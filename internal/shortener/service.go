package shortener

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/errx"
)

const (
	DefaultCodeLength     = 7
	MaxURLLength          = 2048
	DefaultCodeMaxRetries = 3
	DefaultCacheTTL       = time.Hour
	DefaultCacheTimeout   = 250 * time.Millisecond
	DefaultStoreTimeout   = 3 * time.Second
)

const (
	MessageCreated  = "URL shortened successfully"
	MessageExisting = "URL already shortened"
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	TargetURL  string
	CustomCode string // Optional: if empty, a code is generated and the target is deduplicated
	ExpiresAt  string // Optional: RFC 3339, datetime-local or date; must be in the future
}

// CreateLinkResult is the outcome of a successful Create.
type CreateLinkResult struct {
	Link    Link
	Created bool // false when an existing link for the target was returned
	Message string
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (CreateLinkResult, error)
	Resolve(ctx context.Context, code string) (string, error)
	Inspect(ctx context.Context, code string) (Link, error)
	// Close waits for detached click increments to finish.
	Close(ctx context.Context) error
}

// service implements the Service interface.
type service struct {
	repo           Repository
	cache          Cache
	codeGenerator  codegen.Generator
	codeLength     int
	codeMaxRetries int
	cacheTTL       time.Duration
	cacheTimeout   time.Duration
	storeTimeout   time.Duration
	clicks         *clickRecorder
	logger         *slog.Logger
	now            func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Cache          Cache // nil disables caching
	CodeGenerator  codegen.Generator
	CodeLength     int
	CodeMaxRetries int // attempts when generating a unique code (default: 3)
	CacheTTL       time.Duration
	CacheTimeout   time.Duration
	StoreTimeout   time.Duration
	ClickMode      ClickMode
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	cache := config.Cache
	if cache == nil {
		cache = nopCache{}
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = codegen.NewBase62()
	}

	codeLength := config.CodeLength
	if codeLength <= 0 || codeLength > codegen.MaxCodeLength {
		codeLength = DefaultCodeLength
	}

	retries := config.CodeMaxRetries
	if retries <= 0 {
		retries = DefaultCodeMaxRetries
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	cacheTimeout := config.CacheTimeout
	if cacheTimeout <= 0 {
		cacheTimeout = DefaultCacheTimeout
	}

	storeTimeout := config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}

	mode := config.ClickMode
	if mode != ClickModeAwait {
		mode = ClickModeDetach
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		repo:           repo,
		cache:          cache,
		codeGenerator:  codeGen,
		codeLength:     codeLength,
		codeMaxRetries: retries,
		cacheTTL:       cacheTTL,
		cacheTimeout:   cacheTimeout,
		storeTimeout:   storeTimeout,
		clicks:         newClickRecorder(repo, mode, storeTimeout, logger),
		logger:         logger,
		now:            now,
	}
}

// Inspect returns the stored link, including its click count, straight from the store.
// Expired links stay inspectable.
func (s *service) Inspect(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Inspect"

	if !codegen.IsValid(code) {
		return Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}

	link, err := s.findByCode(ctx, code)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

func (s *service) Close(ctx context.Context) error {
	return s.clicks.Drain(ctx)
}

/***************
 * Store access (bounded)
 ***************/

func (s *service) findByCode(ctx context.Context, code string) (Link, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.FindByCode(ctx, code)
}

func (s *service) findByTarget(ctx context.Context, targetURL string) (Link, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.FindByTarget(ctx, targetURL)
}

func (s *service) insert(ctx context.Context, link Link) (Link, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.Insert(ctx, link)
}

func (s *service) incrementClicks(ctx context.Context, code string) error {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.IncrementClicks(ctx, code)
}

/***************
 * Cache access (bounded, best-effort)
 ***************/

// cacheGet treats every cache failure, timeouts included, as a miss.
func (s *service) cacheGet(ctx context.Context, code string) (CacheEntry, bool) {
	cctx, cancel := withTimeout(ctx, s.cacheTimeout)
	defer cancel()

	entry, found, err := s.cache.Get(cctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed, falling back to store",
			"code", code,
			"error", err.Error(),
		)
		return CacheEntry{}, false
	}
	return entry, found
}

func (s *service) cachePut(ctx context.Context, link Link) {
	cctx, cancel := withTimeout(ctx, s.cacheTimeout)
	defer cancel()

	if err := s.cache.Put(cctx, link.Code, link.CacheEntry(), s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			"code", link.Code,
			"error", err.Error(),
		)
	}
}

func (s *service) cacheEvict(ctx context.Context, code string) {
	cctx, cancel := withTimeout(ctx, s.cacheTimeout)
	defer cancel()

	if err := s.cache.Evict(cctx, code); err != nil {
		s.logger.WarnContext(ctx, "cache evict failed",
			"code", code,
			"error", err.Error(),
		)
	}
}

/***************
 * Validation
 ***************/

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("%w: url too long (max %d characters)", ErrInvalidURL, MaxURLLength)
	}
	if !utf8.ValidString(rawURL) {
		return fmt.Errorf("%w: url is not valid UTF-8", ErrInvalidURL)
	}
	if strings.TrimSpace(rawURL) != rawURL {
		return fmt.Errorf("%w: url cannot have surrounding whitespace", ErrInvalidURL)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url format", ErrInvalidURL)
	}
	if !parsedURL.IsAbs() {
		return fmt.Errorf("%w: url must be absolute (include a scheme)", ErrInvalidURL)
	}
	if parsedURL.Opaque == "" && parsedURL.Host == "" {
		return fmt.Errorf("%w: url must include host", ErrInvalidURL)
	}
	return nil
}

func validateCustomCode(code string) error {
	if err := codegen.ValidateCustom(code); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return nil
}

// expirationLayouts are tried in order; zone-less layouts are read as UTC.
var expirationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseExpiration returns nil for an empty value. Otherwise the value must
// parse and lie strictly after now.
func parseExpiration(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range expirationLayouts {
		t, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse %q as a timestamp", ErrInvalidExpiration, raw)
	}
	if !t.After(now) {
		return nil, fmt.Errorf("%w: expiration must be in the future", ErrInvalidExpiration)
	}

	t = t.UTC()
	return &t, nil
}

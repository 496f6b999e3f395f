package shortener

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/httpx"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	OriginalURL string `json:"originalUrl"`
	CustomCode  string `json:"customCode,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// CreateLinkResponse represents the JSON response for a created or existing link.
type CreateLinkResponse struct {
	ShortURL    string `json:"shortUrl"`
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	Message     string `json:"message"`
}

// AnalyticsResponse represents the JSON response for link inspection.
type AnalyticsResponse struct {
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://short.ly")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// ShortURL formats the public short URL for code.
func (h *Handler) ShortURL(code string) string {
	return h.baseURL + "/" + code
}

// CreateLink handles POST requests to create a new short link.
// It answers 201 for a new link and 200 when an existing link is returned.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := validateCreateRequest(req); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"error", err.Error(),
			"custom_code", req.CustomCode,
		)
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	result, err := h.service.Create(ctx, CreateLinkRequest{
		TargetURL:  req.OriginalURL,
		CustomCode: req.CustomCode,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.handleCreateError(ctx, logger, w, err)
		return
	}

	resp := CreateLinkResponse{
		ShortURL:    h.ShortURL(result.Link.Code),
		ShortCode:   result.Link.Code,
		OriginalURL: result.Link.TargetURL,
		Message:     result.Message,
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	logger.InfoContext(ctx, "create link handled",
		"code", result.Link.Code,
		"created", result.Created,
		"custom_code", req.CustomCode != "",
		"expires", result.Link.ExpiresAt != nil,
	)

	httpx.WriteJSON(w, status, resp)
}

// InspectLink handles GET requests for a link's stored details and click count.
func (h *Handler) InspectLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	code := r.PathValue("code")

	link, err := h.service.Inspect(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, logger, w, err, code)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AnalyticsResponse{
		OriginalURL: link.TargetURL,
		ShortCode:   link.Code,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	})
}

// ResolveLink handles GET requests to resolve a code and redirect to the target URL.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	code := r.PathValue("code")

	targetURL, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.handleLookupError(ctx, logger, w, err, code)
		return
	}

	logger.DebugContext(ctx, "code resolved",
		"code", code,
		"target_url", targetURL,
		"referer", r.Referer(),
	)

	http.Redirect(w, r, targetURL, http.StatusFound)
}

// handleCreateError handles errors from the Create service method.
func (h *Handler) handleCreateError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Conflict:
		logger.WarnContext(ctx, "code conflict", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "duplicate_code",
			"This code is already taken",
			map[string]string{
				"hint": "Try a different custom code or let us generate one for you",
			})

	case errx.Invalid:
		logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, createErrorCode(err), err.Error(), nil)

	case errx.Unavailable:
		logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.WriteErrorKind(w, err, "Unable to create short link at this time. Please try again.")

	default:
		logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteErrorKind(w, err, "Unable to create short link at this time. Please try again.")
	}
}

// handleLookupError handles errors from Resolve and Inspect.
func (h *Handler) handleLookupError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"code", code,
	}

	switch kind {
	case errx.NotFound:
		logger.InfoContext(ctx, "code not found", logAttrs...)
		httpx.WriteErrorKind(w, err, "short link doesn't exist")

	case errx.Expired:
		logger.InfoContext(ctx, "code expired", logAttrs...)
		httpx.WriteErrorKind(w, err, "short link has expired")

	case errx.Unavailable:
		logger.ErrorContext(ctx, "link store unavailable", logAttrs...)
		httpx.WriteErrorKind(w, err, "Unable to resolve this link at this time")

	default:
		logger.ErrorContext(ctx, "unexpected error resolving link", logAttrs...)
		httpx.WriteErrorKind(w, err, "Unable to resolve this link at this time")
	}
}

// createErrorCode narrows an Invalid create error to the field that failed.
func createErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrInvalidExpiration):
		return "invalid_expiration"
	default:
		return "invalid_input"
	}
}

// validateCreateRequest validates the HTTPCreateLinkRequest.
func validateCreateRequest(req HTTPCreateLinkRequest) error {
	if req.OriginalURL == "" {
		return errors.New("originalUrl is required")
	}
	return nil
}

package shortener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// ClickMode selects how a cache-hit resolution records its click.
type ClickMode string

const (
	// ClickModeDetach increments in a background goroutine; the redirect never waits.
	ClickModeDetach ClickMode = "detach"
	// ClickModeAwait increments before the redirect is returned.
	ClickModeAwait ClickMode = "await"
)

// ParseClickMode parses a configured click mode. Empty means ClickModeDetach.
func ParseClickMode(s string) (ClickMode, error) {
	switch ClickMode(s) {
	case "", ClickModeDetach:
		return ClickModeDetach, nil
	case ClickModeAwait:
		return ClickModeAwait, nil
	default:
		return "", fmt.Errorf("invalid click mode %q (must be one of: detach, await)", s)
	}
}

// clickRecorder dispatches click increments for cache hits. Failures are
// logged and swallowed; they never reach the caller.
type clickRecorder struct {
	repo    Repository
	mode    ClickMode
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	draining bool
	inflight sync.WaitGroup
}

func newClickRecorder(repo Repository, mode ClickMode, timeout time.Duration, logger *slog.Logger) *clickRecorder {
	return &clickRecorder{
		repo:    repo,
		mode:    mode,
		timeout: timeout,
		logger:  logger,
	}
}

// Record counts one click for code according to the configured mode.
func (c *clickRecorder) Record(ctx context.Context, code string) {
	if c.mode == ClickModeAwait {
		c.increment(ctx, code)
		return
	}

	c.mu.RLock()
	if c.draining {
		c.mu.RUnlock()
		// Shutting down: count inline rather than lose the click.
		c.increment(ctx, code)
		return
	}
	c.inflight.Add(1)
	c.mu.RUnlock()

	// The request context ends with the redirect; the increment must outlive it.
	bg := context.WithoutCancel(ctx)
	go func() {
		defer c.inflight.Done()
		c.increment(bg, code)
	}()
}

func (c *clickRecorder) increment(ctx context.Context, code string) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.repo.IncrementClicks(ctx, code); err != nil {
		c.logger.WarnContext(ctx, "click increment failed",
			"code", code,
			"mode", string(c.mode),
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
		)
	}
}

// Drain stops detaching new increments and waits for in-flight ones.
func (c *clickRecorder) Drain(ctx context.Context) error {
	c.mu.Lock()
	c.draining = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for click increments: %w", ctx.Err())
	}
}

// withTimeout bounds ctx by d. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

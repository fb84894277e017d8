package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// Fetcher loads pages through a Renderer with retries.
// It satisfies crawler.Fetcher and is safe for concurrent use when the
// Renderer is.
type Fetcher struct {
	renderer   Renderer
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxRetries sets how many retries follow a failed first attempt.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoff sets the pause before retry number attempt (1-based).
func WithBackoff(fn func(attempt int) time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if fn != nil {
			f.backoff = fn
		}
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// LinearBackoff waits 2 seconds per attempt already made.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(2*attempt) * time.Second
}

// NewFetcher creates a Fetcher over renderer.
func NewFetcher(renderer Renderer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		renderer:   renderer,
		maxRetries: model.DefaultMaxRetries,
		backoff:    LinearBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch renders rawURL, retrying up to maxRetries times.
// The result reports failure instead of returning an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) model.PageFetchResult {
	result := model.PageFetchResult{URL: rawURL}

	for attempt := 1; attempt <= f.maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		result.Attempts = attempt
		html, err := f.renderer.Render(ctx, rawURL)
		if err == nil {
			result.HTML = html
			result.OK = true
			result.Err = nil
			return result
		}
		result.Err = err

		f.logger.Debug("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"error", err,
		)

		if attempt > f.maxRetries || errors.Is(err, ErrEmptyURL) {
			break
		}
		if err := sleep(ctx, f.backoff(attempt)); err != nil {
			result.Err = err
			return result
		}
	}

	f.logger.Debug("giving up on page", "url", rawURL, "attempts", result.Attempts, "error", result.Err)
	return result
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

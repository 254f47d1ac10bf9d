package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/user/pricewatch-service/internal/repository"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 5 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Options tunes a Fetcher.
type Options struct {
	UserAgent    string
	Attempts     uint
	RetryDelay   time.Duration
	MaxBodyBytes int64
}

// Fetcher performs static GET requests with browser-like headers.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *zap.Logger
}

// NewFetcher creates a Fetcher around client.
func NewFetcher(client *http.Client, opts Options, logger *zap.Logger) *Fetcher {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{client: client, opts: opts, logger: logger}
}

// FetchStatic returns the body of a successful GET. Transport errors, 5xx
// and 429 are retried; other failures are returned wrapped in
// repository.ErrFetchFailed.
func (f *Fetcher) FetchStatic(ctx context.Context, url string) (string, error) {
	var body string

	err := retry.Do(
		func() error {
			var err error
			body, err = f.get(ctx, url)
			return err
		},
		retry.Attempts(f.opts.Attempts),
		retry.Delay(f.opts.RetryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying static fetch", zap.String("url", url), zap.Uint("attempt", n+1), zap.Error(err))
		}),
		retry.RetryIf(func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Retryable()
			}
			return ctx.Err() == nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", repository.ErrFetchFailed, err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	setBrowserHeaders(req, f.opts.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("failed to close response body", zap.Error(closeErr))
		}
	}()

	f.logger.Debug("static fetch completed",
		zap.String("url", url),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// setBrowserHeaders sets Chrome-like headers. Accept-Encoding is left to
// net/http so compressed bodies are decoded transparently.
func setBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Ch-Ua", `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Cache-Control", "max-age=0")
}

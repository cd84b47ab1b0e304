// Package fetch retrieves raw feed bytes over HTTP for Feedwire.
//
// The fetcher enforces a fixed time budget, a hard response-size cap, and a
// bounded number of redirect hops. It does not retry; retry policy belongs
// to callers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// MaxFeedSize is the hard cap on response bodies. Oversized transfers
	// are aborted mid-flight, not buffered.
	MaxFeedSize = 5_000_000 // 5 MB

	// DefaultTimeout bounds the whole request, connect through body read.
	DefaultTimeout = 30 * time.Second

	// MaxRedirects is the redirect hop budget before giving up.
	MaxRedirects = 5

	userAgent = "Feedwire/1.0 (+https://github.com/abelbrown/feedwire)"
)

// ErrTooManyRedirects is returned when a fetch exceeds MaxRedirects hops.
var ErrTooManyRedirects = errors.New("too many redirects")

// SizeError indicates the response body exceeded MaxFeedSize.
type SizeError struct {
	Bytes int64 // bytes read before aborting
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("feed too large: %d bytes read, cap is %d", e.Bytes, MaxFeedSize)
}

// StatusError indicates a non-2xx HTTP response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, e.Status)
}

// Fetcher retrieves raw feed content.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter // optional: nil disables rate limiting
}

// NewFetcher creates a Fetcher with the given HTTP timeout.
// A timeout <= 0 uses DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
	}
}

// WithLimiter installs a shared rate limiter waited on before each request.
// Returns the fetcher for chaining.
func (f *Fetcher) WithLimiter(l *rate.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// Fetch retrieves the raw bytes at url.
//
// The function respects context cancellation and will return early if the
// context is cancelled. Non-2xx responses yield a *StatusError, oversized
// bodies a *SizeError, and redirect loops ErrTooManyRedirects.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set a user agent to be a good citizen
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// The client wraps CheckRedirect failures in *url.Error; surface
		// the redirect sentinel directly so callers can match on it.
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, ErrTooManyRedirects
		}
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// Read at most one byte past the cap; seeing it means the body is too
	// big and closing the response aborts the rest of the transfer.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	if int64(len(body)) > MaxFeedSize {
		return nil, &SizeError{Bytes: int64(len(body))}
	}

	return body, nil
}

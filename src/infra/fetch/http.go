package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/features/metrics"
	"github.com/contre95/m3ushelf/src/music"
	gobreaker "github.com/sony/gobreaker/v2"
)

const acceptHeader = "audio/x-mpegurl, application/vnd.apple.mpegurl, audio/mpegurl, text/plain;q=0.9, */*;q=0.5"

// HTTPFetcher downloads remote playlists. Each host gets its own circuit breaker.
type HTTPFetcher struct {
	client         *http.Client
	timeout        time.Duration
	maxBytes       int64
	failures       uint32
	breakerTimeout time.Duration
	breakers       sync.Map // host -> *gobreaker.CircuitBreaker[string]
}

// NewHTTPFetcher creates a fetcher from the fetch configuration.
func NewHTTPFetcher(cfg config.Fetch) *HTTPFetcher {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	return &HTTPFetcher{
		client:         &http.Client{},
		timeout:        cfg.Timeout,
		maxBytes:       cfg.MaxBytes,
		failures:       failures,
		breakerTimeout: cfg.BreakerTimeout,
	}
}

// Fetch returns the whole body of rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: unsupported playlist url %q", music.ErrValidation, rawURL)
	}

	body, err := f.breaker(u.Host).Execute(func() (string, error) {
		return f.get(ctx, u.String())
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordFetchFailure("breaker_open")
		return "", fmt.Errorf("%w: %s is unavailable: %w", music.ErrUpstreamFetch, u.Host, err)
	}
	return body, err
}

func (f *HTTPFetcher) get(ctx context.Context, target string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", music.ErrValidation, err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", "m3ushelf")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordFetchFailure("transport")
		return "", fmt.Errorf("%w: %w", music.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordFetchFailure("status")
		return "", fmt.Errorf("%w: %s answered %s", music.ErrUpstreamFetch, req.URL.Host, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.RecordFetchFailure("transport")
		return "", fmt.Errorf("%w: reading body: %w", music.ErrUpstreamFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		metrics.RecordFetchFailure("too_large")
		return "", fmt.Errorf("%w: remote playlist exceeds %d bytes", music.ErrTooLarge, f.maxBytes)
	}

	slog.Debug("Fetched remote playlist", "url", target, "bytes", len(data), "duration", time.Since(start).String())
	return string(data), nil
}

func (f *HTTPFetcher) breaker(host string) *gobreaker.CircuitBreaker[string] {
	if cb, ok := f.breakers.Load(host); ok {
		return cb.(*gobreaker.CircuitBreaker[string])
	}
	threshold := f.failures
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     f.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Oversized bodies and callers that gave up do not count against the host.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, music.ErrTooLarge) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Fetch circuit breaker state changed", "host", name, "from", from.String(), "to", to.String())
		},
	})
	actual, _ := f.breakers.LoadOrStore(host, cb)
	return actual.(*gobreaker.CircuitBreaker[string])
}

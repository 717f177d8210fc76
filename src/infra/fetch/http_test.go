package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Fetch {
	return config.Fetch{
		Timeout:         time.Second,
		MaxBytes:        64,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}
}

func TestHTTPFetcher_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "audio/x-mpegurl")
		w.Write([]byte("#EXTM3U\n#EXTINF:-1,One\nhttp://a\n"))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), srv.URL+"/list.m3u")
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n#EXTINF:-1,One\nhttp://a\n", body)
}

func TestHTTPFetcher_RejectsUnsupportedURLs(t *testing.T) {
	fetcher := NewHTTPFetcher(testConfig())
	for _, raw := range []string{"ftp://example.com/a.m3u", "not a url", "file:///etc/passwd", "http://"} {
		_, err := fetcher.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, music.ErrValidation, raw)
	}
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, music.ErrUpstreamFetch)
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("#EXTINF:1\n", 10)))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, music.ErrTooLarge)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, music.ErrUpstreamFetch)
}

func TestHTTPFetcher_BreakerOpensPerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(testConfig())
	for range 2 {
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, music.ErrUpstreamFetch)
	}
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, music.ErrUpstreamFetch)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the host")
}

func TestHTTPFetcher_TooLargeDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(testConfig())
	for range 3 {
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, music.ErrTooLarge)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPFetcher_CancelledCallerDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTINF:1\nx\n"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := fetcher.Fetch(ctx, srv.URL)
		assert.ErrorIs(t, err, context.Canceled)
	}

	body, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "#EXTINF:1\nx\n", body)
}

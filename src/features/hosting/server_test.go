package hosting

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/features/playlists"
	"github.com/contre95/m3ushelf/src/infra/database"
	"github.com/contre95/m3ushelf/src/infra/fetch"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "admin-token-0123456789"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	cfg.Get().Database.Path = filepath.Join(dir, "playlists.db")
	if mutate != nil {
		mutate(cfg.Get())
	}

	repo, err := database.NewSqlitePlaylists(cfg.Get().Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	service := playlists.NewService(repo, fetch.NewHTTPFetcher(cfg.Get().Fetch), cfg)
	return NewServer(cfg, service)
}

func send(t *testing.T, s *Server, req *http.Request) (int, string) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := send(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, body = send(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_APIRequiresToken(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Auth = config.Auth{Enabled: true, Tokens: []config.APIToken{{User: "admin", Token: adminToken}}}
	})

	status, _ := send(t, s, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
	req.Header.Set("X-API-Token", adminToken)
	status, body := send(t, s, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"total":0`)

	req = httptest.NewRequest(http.MethodGet, "/api/config?fmt=json", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
	status, body = send(t, s, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, body, adminToken)
}

func TestServer_StoresUploadEndToEnd(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/playlists",
		strings.NewReader(`{"name":"e2e","content":"#EXTM3U\n#EXTINF:-1,A\nhttp://a\n"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	status, body := send(t, s, req)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Contains(t, body, `"entry_count":1`)
	assert.Contains(t, body, `"created_by":"anonymous"`)
}

// largeUpload builds a multipart body whose file part holds entries playlist entries.
func largeUpload(t *testing.T, entries int) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("name", "big upload"))
	part, err := writer.CreateFormFile("file", "big.m3u")
	require.NoError(t, err)
	fmt.Fprint(part, "#EXTM3U\n")
	for i := range entries {
		fmt.Fprintf(part, "#EXTINF:-1,Track %04d\nhttp://example.com/%04d.mp3\n", i, i)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestServer_StreamsLargeMultipartUpload(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Upload.MaxJSONBytes = 1024
		c.Upload.RetentionBytes = 1024
	})

	body, contentType := largeUpload(t, 3000)
	size := body.Len()
	require.Greater(t, size, 128*1024)

	req := httptest.NewRequest(http.MethodPost, "/api/playlists", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	status, raw := send(t, s, req)
	require.Equal(t, fiber.StatusCreated, status, raw)

	var created struct {
		Playlist map[string]any `json:"playlist"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &created))
	assert.Equal(t, "big upload", created.Playlist["name"])
	assert.Equal(t, "big.m3u", created.Playlist["filename"])
	assert.EqualValues(t, 3000, created.Playlist["entry_count"])
	assert.Less(t, created.Playlist["size"], float64(size))
	assert.NotContains(t, created.Playlist, "content")

	status, raw = send(t, s, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, raw, `"total":1`)
	assert.Contains(t, raw, `"has_content":false`)
}

func TestServer_RejectsOversizedMultipartUpload(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Upload.MaxJSONBytes = 1024
		c.Upload.MaxBytes = 64 * 1024
	})

	body, contentType := largeUpload(t, 3000)
	req := httptest.NewRequest(http.MethodPost, "/api/playlists", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	status, raw := send(t, s, req)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status, raw)

	status, raw = send(t, s, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, raw, `"total":0`)
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 2
	})

	for range 2 {
		status, _ := send(t, s, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
		require.Equal(t, fiber.StatusOK, status)
	}
	status, _ := send(t, s, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	status, _ = send(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, status)
}

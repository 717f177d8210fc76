package playlists

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/contre95/m3ushelf/src/features/auth"
	"github.com/contre95/m3ushelf/src/features/metrics"
	"github.com/contre95/m3ushelf/src/music"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxFieldBytes   = 1024
	mpegURLType     = "audio/x-mpegurl"
)

// Handler handles HTTP requests for playlists
type Handler struct {
	service *Service
}

// NewHandler creates a new playlists handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// GetPlaylists returns a page of playlist summaries
func (h *Handler) GetPlaylists(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > maxPageSize || offset < 0 {
		return h.renderError(c, fmt.Errorf("%w: limit must be between 1 and %d and offset cannot be negative", music.ErrValidation, maxPageSize))
	}

	result, err := h.service.ListPlaylists(c.UserContext(), limit, offset)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(result)
}

// GetPlaylist returns a single playlist with its content
func (h *Handler) GetPlaylist(c *fiber.Ctx) error {
	playlist, err := h.service.GetPlaylist(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"playlist": playlist,
	})
}

// CreatePlaylist stores a new playlist. Multipart bodies are streamed through
// the entry counter, anything else is decoded as a JSON CreateInput.
func (h *Handler) CreatePlaylist(c *fiber.Ctx) error {
	mediaType, params, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	if err == nil && mediaType == fiber.MIMEMultipartForm {
		return h.uploadMultipart(c, params["boundary"])
	}

	var in CreateInput
	if err := decodeJSON(c, h.service.configManager.Get().Upload.MaxJSONBytes, &in); err != nil {
		metrics.RecordIngestionFailure(metrics.SourceJSON)
		return h.renderError(c, err)
	}

	playlist, err := h.service.CreatePlaylist(c.UserContext(), in, auth.FromCtx(c).User)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"playlist": playlist,
	})
}

// uploadMultipart walks the parts of a multipart body. The "file" part is
// counted while it streams in; "name" may come before or after it.
func (h *Handler) uploadMultipart(c *fiber.Ctx, boundary string) error {
	if boundary == "" {
		return h.renderError(c, fmt.Errorf("%w: multipart boundary is missing", music.ErrValidation))
	}

	reader := multipart.NewReader(requestBody(c), boundary)
	var in UploadedInput
	counted := false
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordIngestionFailure(metrics.SourceUpload)
			return h.renderError(c, fmt.Errorf("%w: %w", music.ErrTransport, err))
		}

		switch part.FormName() {
		case "name":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil {
				metrics.RecordIngestionFailure(metrics.SourceUpload)
				return h.renderError(c, fmt.Errorf("%w: %w", music.ErrTransport, err))
			}
			if len(value) > maxFieldBytes {
				metrics.RecordIngestionFailure(metrics.SourceUpload)
				return h.renderError(c, fmt.Errorf("%w: name field is too long", music.ErrValidation))
			}
			in.Name = string(value)
		case "file":
			if counted {
				metrics.RecordIngestionFailure(metrics.SourceUpload)
				return h.renderError(c, fmt.Errorf("%w: only one file can be uploaded", music.ErrValidation))
			}
			in.Filename = part.FileName()
			in.Ingest, err = h.service.ReadUpload(c.UserContext(), part)
			if err != nil {
				slog.Error("Failed to read uploaded playlist", "filename", in.Filename, "error", err)
				metrics.RecordIngestionFailure(metrics.SourceUpload)
				return h.renderError(c, err)
			}
			counted = true
		}
		part.Close()
	}

	if !counted {
		metrics.RecordIngestionFailure(metrics.SourceUpload)
		return h.renderError(c, fmt.Errorf("%w: multipart body has no file part", music.ErrValidation))
	}

	playlist, err := h.service.SaveUpload(c.UserContext(), in, auth.FromCtx(c).User)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"playlist": playlist,
	})
}

// FetchPlaylist downloads a playlist from a URL and stores it
func (h *Handler) FetchPlaylist(c *fiber.Ctx) error {
	var in FetchInput
	if err := decodeJSON(c, h.service.configManager.Get().Upload.MaxJSONBytes, &in); err != nil {
		return h.renderError(c, err)
	}

	playlist, err := h.service.FetchPlaylist(c.UserContext(), in, auth.FromCtx(c).User)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"playlist": playlist,
	})
}

// UpdatePlaylist overwrites the fields present in the body
func (h *Handler) UpdatePlaylist(c *fiber.Ctx) error {
	var in UpdateInput
	if err := decodeJSON(c, h.service.configManager.Get().Upload.MaxJSONBytes, &in); err != nil {
		return h.renderError(c, err)
	}

	playlist, err := h.service.UpdatePlaylist(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"playlist": playlist,
	})
}

// DeletePlaylist deletes a playlist
func (h *Handler) DeletePlaylist(c *fiber.Ctx) error {
	if err := h.service.DeletePlaylist(c.UserContext(), c.Params("id")); err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// GetPlaylistContent serves the stored playlist text as a download
func (h *Handler) GetPlaylistContent(c *fiber.Ctx) error {
	content, filename, err := h.service.PlaylistContent(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}

	c.Set(fiber.HeaderContentType, mpegURLType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.SendString(content)
}

// renderError writes the JSON error body for err. Internal failures are not
// echoed back to the client.
func (h *Handler) renderError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("Playlist request failed", "path", c.Path(), "error", err)
		msg = "internal server error"
	} else {
		slog.Debug("Playlist request rejected", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, music.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, music.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, music.ErrValidation), errors.Is(err, music.ErrTransport):
		return fiber.StatusBadRequest
	case errors.Is(err, music.ErrUpstreamFetch):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// decodeJSON reads at most limit bytes of the body into v.
func decodeJSON(c *fiber.Ctx, limit int64, v any) error {
	if ct := c.Get(fiber.HeaderContentType); ct != "" && !strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		return fmt.Errorf("%w: unsupported content type %q", music.ErrValidation, ct)
	}
	body, err := io.ReadAll(io.LimitReader(requestBody(c), limit+1))
	if err != nil {
		return fmt.Errorf("%w: %w", music.ErrTransport, err)
	}
	if int64(len(body)) > limit {
		return fmt.Errorf("%w: JSON body exceeds %d bytes", music.ErrTooLarge, limit)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", music.ErrValidation, err)
	}
	return nil
}

// requestBody returns the streamed request body when the server streams
// bodies, and the buffered body otherwise.
func requestBody(c *fiber.Ctx) io.Reader {
	if stream := c.Context().RequestBodyStream(); stream != nil {
		return stream
	}
	return bytes.NewReader(c.Body())
}

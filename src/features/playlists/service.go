package playlists

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/features/metrics"
	"github.com/contre95/m3ushelf/src/music"
	"github.com/go-playground/validator/v10"
)

// Fetcher downloads a remote playlist as a single blob.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CreateInput is the JSON body of a single-blob upload.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Filename string `json:"filename" validate:"max=255"`
	Content  string `json:"content" validate:"required"`
}

// UploadInput describes a streamed upload.
type UploadInput struct {
	Name     string
	Filename string
	Body     io.Reader
}

// UploadedInput describes an upload whose body has already been counted.
type UploadedInput struct {
	Name     string
	Filename string
	Ingest   music.Ingest
}

// FetchInput is the JSON body of a fetch-by-URL request.
type FetchInput struct {
	Name string `json:"name" validate:"max=200"`
	URL  string `json:"url" validate:"required,url,max=2048"`
}

// UpdateInput is the JSON body of an update. Absent fields are left untouched.
type UpdateInput struct {
	Name      *string `json:"name" validate:"omitempty,max=200"`
	Content   *string `json:"content"`
	SourceURL *string `json:"source_url" validate:"omitempty,url,max=2048"`
}

// ListResult is one page of playlists.
type ListResult struct {
	Playlists []music.PlaylistSummary `json:"playlists"`
	Total     int                     `json:"total"`
	Limit     int                     `json:"limit"`
	Offset    int                     `json:"offset"`
}

// Service is the domain service for the playlists feature.
type Service struct {
	playlistRepo  music.PlaylistRepository
	fetcher       Fetcher
	configManager *config.Manager
	validate      *validator.Validate
	now           func() time.Time
}

// NewService creates a new playlists service.
func NewService(playlistRepo music.PlaylistRepository, fetcher Fetcher, cfgManager *config.Manager) *Service {
	return &Service{
		playlistRepo:  playlistRepo,
		fetcher:       fetcher,
		configManager: cfgManager,
		validate:      validator.New(),
		now:           time.Now,
	}
}

// ListPlaylists returns a page of playlist summaries.
func (s *Service) ListPlaylists(ctx context.Context, limit, offset int) (*ListResult, error) {
	slog.Debug("ListPlaylists service called", "limit", limit, "offset", offset)

	playlists, err := s.playlistRepo.List(ctx, limit, offset)
	if err != nil {
		slog.Error("ListPlaylists failed", "error", err)
		return nil, err
	}
	total, err := s.playlistRepo.Count(ctx)
	if err != nil {
		slog.Error("ListPlaylists count failed", "error", err)
		return nil, err
	}

	slog.Debug("ListPlaylists completed", "count", len(playlists), "total", total)
	return &ListResult{Playlists: playlists, Total: total, Limit: limit, Offset: offset}, nil
}

// GetPlaylist gets a playlist by ID.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*music.Playlist, error) {
	slog.Debug("GetPlaylist service called", "id", id)

	playlist, err := s.playlistRepo.GetByID(ctx, id)
	if err != nil {
		slog.Debug("GetPlaylist failed", "id", id, "error", err)
		return nil, err
	}
	return playlist, nil
}

// ReadUpload streams body through an entry counter. Bodies larger than the
// upload cap fail with ErrTooLarge and read failures with ErrTransport, so a
// truncated stream is never taken for a complete file.
func (s *Service) ReadUpload(ctx context.Context, body io.Reader) (music.Ingest, error) {
	upload := s.configManager.Get().Upload
	counter := music.NewEntryCounter(upload.RetentionBytes)

	_, err := io.Copy(counter, io.LimitReader(ctxReader{ctx: ctx, r: body}, upload.MaxBytes+1))
	if err != nil {
		return music.Ingest{}, fmt.Errorf("%w: %w", music.ErrTransport, err)
	}
	if counter.Size() > upload.MaxBytes {
		return music.Ingest{}, fmt.Errorf("%w: upload exceeds %d bytes", music.ErrTooLarge, upload.MaxBytes)
	}
	return counter.Finish(), nil
}

// UploadPlaylist streams an upload and stores the resulting playlist.
func (s *Service) UploadPlaylist(ctx context.Context, in UploadInput, user string) (*music.Playlist, error) {
	return s.upload(ctx, in, user, metrics.SourceUpload)
}

// SaveUpload stores an upload already counted by ReadUpload.
func (s *Service) SaveUpload(ctx context.Context, in UploadedInput, user string) (*music.Playlist, error) {
	return s.saveUpload(ctx, in, user, metrics.SourceUpload)
}

func (s *Service) upload(ctx context.Context, in UploadInput, user, source string) (*music.Playlist, error) {
	slog.Debug("UploadPlaylist service called", "name", in.Name, "filename", in.Filename, "source", source)

	ingest, err := s.ReadUpload(ctx, in.Body)
	if err != nil {
		slog.Error("Reading upload failed", "filename", in.Filename, "source", source, "error", err)
		metrics.RecordIngestionFailure(source)
		return nil, err
	}
	return s.saveUpload(ctx, UploadedInput{Name: in.Name, Filename: in.Filename, Ingest: ingest}, user, source)
}

// saveUpload names and stores a counted upload. The name falls back to the file name.
func (s *Service) saveUpload(ctx context.Context, in UploadedInput, user, source string) (*music.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = nameFromFilename(in.Filename)
	}
	playlist := s.newPlaylist(name, baseFilename(in.Filename), "", user)
	playlist.Apply(in.Ingest)
	return s.save(ctx, playlist, source)
}

// CreatePlaylist stores a playlist whose content was supplied whole.
func (s *Service) CreatePlaylist(ctx context.Context, in CreateInput, user string) (*music.Playlist, error) {
	slog.Debug("CreatePlaylist service called", "name", in.Name)

	if err := s.validateInput(in); err != nil {
		metrics.RecordIngestionFailure(metrics.SourceJSON)
		return nil, err
	}
	upload := s.configManager.Get().Upload
	if int64(len(in.Content)) > upload.MaxJSONBytes {
		metrics.RecordIngestionFailure(metrics.SourceJSON)
		return nil, fmt.Errorf("%w: content exceeds %d bytes", music.ErrTooLarge, upload.MaxJSONBytes)
	}

	playlist := s.newPlaylist(in.Name, in.Filename, "", user)
	playlist.Apply(music.CountEntries(in.Content, upload.RetentionBytes))
	return s.save(ctx, playlist, metrics.SourceJSON)
}

// FetchPlaylist downloads a remote playlist and stores it.
func (s *Service) FetchPlaylist(ctx context.Context, in FetchInput, user string) (*music.Playlist, error) {
	slog.Debug("FetchPlaylist service called", "name", in.Name, "url", in.URL)

	if err := s.validateInput(in); err != nil {
		metrics.RecordIngestionFailure(metrics.SourceURL)
		return nil, err
	}

	text, err := s.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		slog.Error("FetchPlaylist: fetch failed", "url", in.URL, "error", err)
		metrics.RecordIngestionFailure(metrics.SourceURL)
		return nil, err
	}

	name, filename := namesFromURL(in.URL)
	if strings.TrimSpace(in.Name) != "" {
		name = in.Name
	}
	playlist := s.newPlaylist(name, filename, in.URL, user)
	playlist.Apply(music.CountEntries(text, s.configManager.Get().Upload.RetentionBytes))
	return s.save(ctx, playlist, metrics.SourceURL)
}

// UpdatePlaylist overwrites the given fields. New content recomputes the entry count.
func (s *Service) UpdatePlaylist(ctx context.Context, id string, in UpdateInput) (*music.Playlist, error) {
	slog.Debug("UpdatePlaylist service called", "id", id)

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	patch := music.PlaylistPatch{SourceURL: in.SourceURL, UpdatedAt: s.now()}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := music.ValidatePlaylistName(name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if in.Content != nil {
		upload := s.configManager.Get().Upload
		if int64(len(*in.Content)) > upload.MaxJSONBytes {
			metrics.RecordIngestionFailure(metrics.SourceUpdate)
			return nil, fmt.Errorf("%w: content exceeds %d bytes", music.ErrTooLarge, upload.MaxJSONBytes)
		}
		ingest := music.CountEntries(*in.Content, upload.RetentionBytes)
		patch.Ingest = &ingest
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", music.ErrValidation)
	}

	playlist, err := s.playlistRepo.Update(ctx, id, patch)
	if err != nil {
		slog.Error("UpdatePlaylist failed", "id", id, "error", err)
		if patch.Ingest != nil {
			metrics.RecordIngestionFailure(metrics.SourceUpdate)
		}
		return nil, err
	}
	if patch.Ingest != nil {
		metrics.RecordIngestion(metrics.SourceUpdate, patch.Ingest.Size, patch.Ingest.EntryCount, patch.Ingest.Content != nil)
	}

	slog.Info("Playlist updated", "id", id, "entries", playlist.EntryCount)
	return playlist, nil
}

// DeletePlaylist deletes a playlist.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	slog.Debug("DeletePlaylist service called", "id", id)

	if err := s.playlistRepo.Delete(ctx, id); err != nil {
		slog.Error("DeletePlaylist failed", "id", id, "error", err)
		return err
	}

	slog.Info("Playlist deleted", "id", id)
	return nil
}

// PlaylistContent returns the stored text of a playlist and a file name to
// serve it under. Playlists stored without content are reported as not found.
func (s *Service) PlaylistContent(ctx context.Context, id string) (string, string, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	if playlist.Content == nil {
		return "", "", fmt.Errorf("%w: playlist %s has no stored content", music.ErrNotFound, id)
	}
	return *playlist.Content, DownloadFilename(playlist), nil
}

func (s *Service) newPlaylist(name, filename, sourceURL, user string) *music.Playlist {
	now := s.now()
	return &music.Playlist{
		ID:        music.GeneratePlaylistID(),
		Name:      strings.TrimSpace(name),
		Filename:  filename,
		SourceURL: sourceURL,
		CreatedAt: now,
		CreatedBy: user,
		UpdatedAt: now,
	}
}

// save validates and persists a fully counted playlist in one write.
func (s *Service) save(ctx context.Context, playlist *music.Playlist, source string) (*music.Playlist, error) {
	if err := playlist.Validate(); err != nil {
		slog.Error("Playlist validation failed", "error", err, "source", source)
		metrics.RecordIngestionFailure(source)
		return nil, err
	}

	if err := s.playlistRepo.Create(ctx, playlist); err != nil {
		slog.Error("Storing playlist failed", "name", playlist.Name, "error", err)
		metrics.RecordIngestionFailure(source)
		return nil, err
	}

	metrics.RecordIngestion(source, playlist.Size, playlist.EntryCount, playlist.Content != nil)
	slog.Info("Playlist stored", "id", playlist.ID, "name", playlist.Name, "entries", playlist.EntryCount,
		"bytes", playlist.Size, "content_stored", playlist.Content != nil, "source", source, "user", playlist.CreatedBy)
	return playlist, nil
}

func (s *Service) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", music.ErrValidation, err)
	}
	return nil
}

// baseFilename drops any client-side directories from an uploaded file name.
func baseFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// nameFromFilename strips directories and the playlist extension.
func nameFromFilename(filename string) string {
	base := baseFilename(filename)
	ext := path.Ext(base)
	switch strings.ToLower(ext) {
	case ".m3u", ".m3u8":
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimSpace(base)
}

// namesFromURL derives a display name and an origin file name from a URL.
func namesFromURL(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return u.Hostname(), ""
	}
	return nameFromFilename(base), base
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

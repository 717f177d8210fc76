package music

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Playlist is a stored M3U playlist record.
type Playlist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Content    *string   `json:"content,omitempty"`
	EntryCount int       `json:"entry_count"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlaylistSummary is a Playlist without its content, used for listings.
type PlaylistSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	HasContent bool      `json:"has_content"`
	EntryCount int       `json:"entry_count"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary drops the content of the playlist.
func (p *Playlist) Summary() PlaylistSummary {
	return PlaylistSummary{
		ID:         p.ID,
		Name:       p.Name,
		Filename:   p.Filename,
		SourceURL:  p.SourceURL,
		HasContent: p.Content != nil,
		EntryCount: p.EntryCount,
		Size:       p.Size,
		CreatedAt:  p.CreatedAt,
		CreatedBy:  p.CreatedBy,
		UpdatedAt:  p.UpdatedAt,
	}
}

// Apply copies the result of an ingestion into the playlist.
func (p *Playlist) Apply(in Ingest) {
	p.EntryCount = in.EntryCount
	p.Content = in.Content
	p.Size = in.Size
}

// Validate validates the playlist fields.
func (p *Playlist) Validate() error {
	if err := ValidatePlaylistName(p.Name); err != nil {
		return err
	}
	if len(p.Filename) > 255 {
		return fmt.Errorf("%w: filename cannot exceed 255 characters, got %d", ErrValidation, len(p.Filename))
	}
	if len(p.SourceURL) > 2048 {
		return fmt.Errorf("%w: source url cannot exceed 2048 characters, got %d", ErrValidation, len(p.SourceURL))
	}
	if p.EntryCount < 0 {
		return fmt.Errorf("%w: entry count cannot be negative, got %d", ErrValidation, p.EntryCount)
	}
	return nil
}

// ValidatePlaylistName checks a display name.
func ValidatePlaylistName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: playlist name cannot be empty", ErrValidation)
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: playlist name cannot exceed 200 characters, got %d", ErrValidation, len(name))
	}
	return nil
}

// Pretty returns a formatted string representation of the playlist for logging/debugging.
func (p *Playlist) Pretty() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-15s : %s\n", "ID", p.ID))
	builder.WriteString(fmt.Sprintf("%-15s : %s\n", "Name", p.Name))
	if p.Filename != "" {
		builder.WriteString(fmt.Sprintf("%-15s : %s\n", "Filename", p.Filename))
	}
	if p.SourceURL != "" {
		builder.WriteString(fmt.Sprintf("%-15s : %s\n", "Source URL", p.SourceURL))
	}
	builder.WriteString(fmt.Sprintf("%-15s : %d\n", "Entries", p.EntryCount))
	builder.WriteString(fmt.Sprintf("%-15s : %d bytes (content stored: %t)\n", "Size", p.Size, p.Content != nil))
	builder.WriteString(fmt.Sprintf("%-15s : %s by %s\n", "Created", p.CreatedAt.Format("2006-01-02 15:04:05-07:00"), p.CreatedBy))
	return builder.String()
}

// PlaylistPatch carries the fields of a partial update. Nil fields are left untouched.
type PlaylistPatch struct {
	Name      *string
	SourceURL *string
	// Ingest replaces content, entry count and size together.
	Ingest    *Ingest
	UpdatedAt time.Time
}

// Empty reports whether the patch changes nothing.
func (p PlaylistPatch) Empty() bool {
	return p.Name == nil && p.SourceURL == nil && p.Ingest == nil
}

// PlaylistRepository defines the interface for playlist data access operations.
// GetByID, Update and Delete return ErrNotFound for unknown ids.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *Playlist) error
	GetByID(ctx context.Context, id string) (*Playlist, error)
	List(ctx context.Context, limit, offset int) ([]PlaylistSummary, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, patch PlaylistPatch) (*Playlist, error)
	Delete(ctx context.Context, id string) error
}

// GeneratePlaylistID creates a UUID for a playlist.
func GeneratePlaylistID() string {
	return uuid.New().String()
}

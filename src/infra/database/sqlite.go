package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/m3ushelf/src/music"
	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = time.RFC3339Nano

// SqlitePlaylists is a SQLite implementation of music.PlaylistRepository.
type SqlitePlaylists struct {
	db *sql.DB
}

// NewSqlitePlaylists opens (or creates) the database at path.
func NewSqlitePlaylists(path string) (*SqlitePlaylists, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SqlitePlaylists{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			filename TEXT,
			source_url TEXT,
			content TEXT,
			entry_count INTEGER NOT NULL DEFAULT 0,
			size INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			created_by TEXT,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_playlists_created_at ON playlists(created_at);
	`)
	return err
}

// Close closes the underlying database.
func (d *SqlitePlaylists) Close() error {
	return d.db.Close()
}

// Create inserts a playlist in a single statement.
func (d *SqlitePlaylists) Create(ctx context.Context, playlist *music.Playlist) error {
	if err := playlist.Validate(); err != nil {
		slog.Error("Create: validation failed", "error", err, "playlistID", playlist.ID)
		return err
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO playlists (id, name, filename, source_url, content, entry_count, size, created_at, created_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, playlist.ID, playlist.Name, playlist.Filename, playlist.SourceURL, nullableContent(playlist.Content),
		playlist.EntryCount, playlist.Size, playlist.CreatedAt.UTC().Format(timeLayout), playlist.CreatedBy,
		playlist.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("%w: insert playlist %s: %w", music.ErrPersistence, playlist.ID, err)
	}
	return nil
}

// GetByID gets a playlist with its content.
func (d *SqlitePlaylists) GetByID(ctx context.Context, id string) (*music.Playlist, error) {
	return getByID(ctx, d.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getByID(ctx context.Context, q queryRower, id string) (*music.Playlist, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, filename, source_url, content, entry_count, size, created_at, created_by, updated_at
		FROM playlists
		WHERE id = ?
	`, id)

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", music.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get playlist %s: %w", music.ErrPersistence, id, err)
	}
	return playlist, nil
}

// List returns playlist summaries newest first. Content is not loaded.
func (d *SqlitePlaylists) List(ctx context.Context, limit, offset int) ([]music.PlaylistSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, filename, source_url, content IS NOT NULL, entry_count, size, created_at, created_by, updated_at
		FROM playlists
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list playlists: %w", music.ErrPersistence, err)
	}
	defer rows.Close()

	summaries := []music.PlaylistSummary{}
	for rows.Next() {
		var s music.PlaylistSummary
		var filename, sourceURL, createdBy sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &filename, &sourceURL, &s.HasContent, &s.EntryCount, &s.Size,
			&createdAt, &createdBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan playlist: %w", music.ErrPersistence, err)
		}
		s.Filename = filename.String
		s.SourceURL = sourceURL.String
		s.CreatedBy = createdBy.String
		s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list playlists: %w", music.ErrPersistence, err)
	}
	return summaries, nil
}

// Count returns the number of stored playlists.
func (d *SqlitePlaylists) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count playlists: %w", music.ErrPersistence, err)
	}
	return count, nil
}

// Update overwrites the fields set in patch and returns the stored playlist.
func (d *SqlitePlaylists) Update(ctx context.Context, id string, patch music.PlaylistPatch) (*music.Playlist, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	sets := []string{"updated_at = ?"}
	args := []any{updatedAt.UTC().Format(timeLayout)}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.SourceURL != nil {
		sets = append(sets, "source_url = ?")
		args = append(args, *patch.SourceURL)
	}
	if patch.Ingest != nil {
		sets = append(sets, "content = ?", "entry_count = ?", "size = ?")
		args = append(args, nullableContent(patch.Ingest.Content), patch.Ingest.EntryCount, patch.Ingest.Size)
	}
	args = append(args, id)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin update: %w", music.ErrPersistence, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE playlists SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: update playlist %s: %w", music.ErrPersistence, id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("%w: update playlist %s: %w", music.ErrPersistence, id, err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: %s", music.ErrNotFound, id)
	}

	playlist, err := getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit update %s: %w", music.ErrPersistence, id, err)
	}
	return playlist, nil
}

// Delete removes a playlist.
func (d *SqlitePlaylists) Delete(ctx context.Context, id string) error {
	slog.Debug("Delete called", "playlistID", id)

	res, err := d.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete playlist %s: %w", music.ErrPersistence, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete playlist %s: %w", music.ErrPersistence, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", music.ErrNotFound, id)
	}
	return nil
}

func scanPlaylist(row *sql.Row) (*music.Playlist, error) {
	playlist := &music.Playlist{}
	var filename, sourceURL, content, createdBy sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&playlist.ID, &playlist.Name, &filename, &sourceURL, &content,
		&playlist.EntryCount, &playlist.Size, &createdAt, &createdBy, &updatedAt); err != nil {
		return nil, err
	}

	playlist.Filename = filename.String
	playlist.SourceURL = sourceURL.String
	playlist.CreatedBy = createdBy.String
	if content.Valid {
		playlist.Content = &content.String
	}
	playlist.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	playlist.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return playlist, nil
}

func nullableContent(content *string) sql.NullString {
	if content == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *content, Valid: true}
}

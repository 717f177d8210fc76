package playlists

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/contre95/m3ushelf/src/features/metrics"
	"github.com/contre95/m3ushelf/src/infra/watcher"
	"github.com/contre95/m3ushelf/src/music"
)

// WatchUser is recorded as the creator of playlists imported from the watch folder.
const WatchUser = "watcher"

// ImportFile streams a playlist file from disk into a new record.
func (s *Service) ImportFile(ctx context.Context, path string) (*music.Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.RecordIngestionFailure(metrics.SourceWatch)
		return nil, fmt.Errorf("%w: open %s: %w", music.ErrTransport, path, err)
	}
	defer f.Close()

	return s.upload(ctx, UploadInput{Filename: filepath.Base(path), Body: f}, WatchUser, metrics.SourceWatch)
}

// ConsumeWatchEvents imports every newly created file reported on events
// until ctx is done or events is closed. Writes to a file that was already
// imported are ignored so a record is never duplicated.
func (s *Service) ConsumeWatchEvents(ctx context.Context, events <-chan watcher.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.EventType != watcher.FileCreated {
				slog.Debug("Ignoring change to watched playlist", "path", event.Path, "event", event.EventType)
				continue
			}
			playlist, err := s.ImportFile(ctx, event.Path)
			if err != nil {
				slog.Error("Failed to import watched playlist", "path", event.Path, "error", err)
				continue
			}
			slog.Info("Imported watched playlist", "path", event.Path, "id", playlist.ID, "entries", playlist.EntryCount)
		}
	}
}

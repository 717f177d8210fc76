package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/m3ushelf/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SqlitePlaylists {
	t.Helper()
	store, err := NewSqlitePlaylists(filepath.Join(t.TempDir(), "playlists.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newPlaylist(name string, content *string, createdAt time.Time) *music.Playlist {
	return &music.Playlist{
		ID:         music.GeneratePlaylistID(),
		Name:       name,
		Filename:   name + ".m3u",
		Content:    content,
		EntryCount: 2,
		Size:       42,
		CreatedAt:  createdAt,
		CreatedBy:  "alice",
		UpdatedAt:  createdAt,
	}
}

func TestSqlitePlaylists_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := "#EXTM3U\n#EXTINF:-1,One\nhttp://a\n"
	created := newPlaylist("news", &content, time.Now())

	require.NoError(t, store.Create(ctx, created))

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Filename, got.Filename)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, 2, got.EntryCount)
	assert.Equal(t, int64(42), got.Size)
	require.NotNil(t, got.Content)
	assert.Equal(t, content, *got.Content)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSqlitePlaylists_AbsentContentStaysAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := newPlaylist("big", nil, time.Now())
	require.NoError(t, store.Create(ctx, created))

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Content)

	empty := ""
	withEmpty := newPlaylist("empty", &empty, time.Now())
	require.NoError(t, store.Create(ctx, withEmpty))
	got, err = store.GetByID(ctx, withEmpty.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Content)
	assert.Equal(t, "", *got.Content)
}

func TestSqlitePlaylists_CreateRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	err := store.Create(context.Background(), newPlaylist("  ", nil, time.Now()))
	assert.ErrorIs(t, err, music.ErrValidation)
}

func TestSqlitePlaylists_GetUnknown(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, music.ErrNotFound)
}

func TestSqlitePlaylists_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	content := "#EXTINF:1\n"
	for i, name := range []string{"first", "second", "third"} {
		var c *string
		if i != 1 {
			c = &content
		}
		require.NoError(t, store.Create(ctx, newPlaylist(name, c, base.Add(time.Duration(i)*time.Minute))))
	}

	summaries, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "third", summaries[0].Name)
	assert.True(t, summaries[0].HasContent)
	assert.Equal(t, "second", summaries[1].Name)
	assert.False(t, summaries[1].HasContent)

	summaries, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "first", summaries[0].Name)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSqlitePlaylists_UpdatePartialFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := "#EXTINF:1\n#EXTINF:2\n"
	created := newPlaylist("before", &content, time.Now().Add(-time.Minute))
	require.NoError(t, store.Create(ctx, created))

	name := "after"
	updated, err := store.Update(ctx, created.ID, music.PlaylistPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	require.NotNil(t, updated.Content)
	assert.Equal(t, content, *updated.Content)
	assert.Equal(t, 2, updated.EntryCount)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	url := "http://example.com/list.m3u"
	updated, err = store.Update(ctx, created.ID, music.PlaylistPatch{
		SourceURL: &url,
		Ingest:    &music.Ingest{EntryCount: 7, Content: nil, Size: 4096},
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, url, updated.SourceURL)
	assert.Nil(t, updated.Content)
	assert.Equal(t, 7, updated.EntryCount)
	assert.Equal(t, int64(4096), updated.Size)
}

func TestSqlitePlaylists_UpdateUnknown(t *testing.T) {
	store := newTestStore(t)
	name := "x"
	_, err := store.Update(context.Background(), "missing", music.PlaylistPatch{Name: &name})
	assert.ErrorIs(t, err, music.ErrNotFound)
}

func TestSqlitePlaylists_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := newPlaylist("gone", nil, time.Now())
	require.NoError(t, store.Create(ctx, created))

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err := store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, music.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, created.ID), music.ErrNotFound)
}

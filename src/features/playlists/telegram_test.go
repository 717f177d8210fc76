package playlists

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramHandler_Reply(t *testing.T) {
	svc, _, _ := newTestService(1<<20, 1<<20, 1<<20)
	h := NewTelegramHandler(svc)
	ctx := context.Background()

	text, err := h.Reply(ctx, "playlists", "")
	require.NoError(t, err)
	assert.Contains(t, text, "No playlists")

	created, err := svc.CreatePlaylist(ctx, CreateInput{Name: "Roadtrip", Content: threeEntries}, "bob")
	require.NoError(t, err)

	text, err = h.Reply(ctx, "playlists", "")
	require.NoError(t, err)
	assert.Contains(t, text, "Roadtrip")
	assert.Contains(t, text, created.ID)

	text, err = h.Reply(ctx, "playlist", " "+created.ID+" ")
	require.NoError(t, err)
	assert.Contains(t, text, "Entries")
	assert.Contains(t, text, "• One")
	assert.Contains(t, text, "• Three")

	text, err = h.Reply(ctx, "playlist", "missing")
	require.NoError(t, err)
	assert.Contains(t, text, "not found")

	text, err = h.Reply(ctx, "playlist", "")
	require.NoError(t, err)
	assert.Contains(t, text, "Usage")
}

func TestTelegramHandler_ReplyEscapesMarkdown(t *testing.T) {
	svc, _, _ := newTestService(1<<20, 1<<20, 1<<20)
	h := NewTelegramHandler(svc)
	ctx := context.Background()

	created, err := svc.CreatePlaylist(ctx, CreateInput{Name: "my_list *live*", Content: "#EXTM3U\n#EXTINF:-1,BBC_One\nhttp://a\n#EXTINF:-1\nhttp://b/[x]\n"}, "bob")
	require.NoError(t, err)

	text, err := h.Reply(ctx, "playlists", "")
	require.NoError(t, err)
	assert.Contains(t, text, "• my\\_list \\*live\\*: `2` entries")

	text, err = h.Reply(ctx, "playlist", created.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "🎶 *my\\_list \\*live\\**")
	assert.Contains(t, text, "• BBC\\_One")
	assert.Contains(t, text, "• http://b/\\[x]")

	text, err = h.Reply(ctx, "playlist", "no_such_id")
	require.NoError(t, err)
	assert.Contains(t, text, "no\\_such\\_id")
}

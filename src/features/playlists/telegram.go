package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contre95/m3ushelf/src/infra/telegram"
	"github.com/contre95/m3ushelf/src/music"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramPageSize = 10
	previewEntries   = 5
)

// TelegramHandler handles Telegram commands for the playlists feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the playlists feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes playlist-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	text, err := h.Reply(context.Background(), command, args)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, sendErr := bot.Send(msg); sendErr != nil {
		return sendErr
	}
	return err
}

// Reply builds the answer to a command.
func (h *TelegramHandler) Reply(ctx context.Context, command string, args string) (string, error) {
	switch command {
	case "playlists":
		return h.listReply(ctx)
	case "playlist":
		return h.showReply(ctx, strings.TrimSpace(args))
	default:
		return "❌ Unknown playlists command. Use /playlists or /playlist <id>", nil
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"playlists": "List the latest playlists",
		"playlist":  "Show one playlist (/playlist <id>)",
	}
}

func (h *TelegramHandler) listReply(ctx context.Context) (string, error) {
	result, err := h.service.ListPlaylists(ctx, telegramPageSize, 0)
	if err != nil {
		return "❌ Failed to list playlists", err
	}
	if len(result.Playlists) == 0 {
		return "📭 No playlists stored yet", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Playlists* (%d of %d)\n\n", len(result.Playlists), result.Total)
	for _, p := range result.Playlists {
		fmt.Fprintf(&b, "• %s: `%d` entries\n  `%s`\n", telegram.EscapeMarkdown(p.Name), p.EntryCount, p.ID)
	}
	return b.String(), nil
}

func (h *TelegramHandler) showReply(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "❌ Usage: /playlist <id>", nil
	}
	playlist, err := h.service.GetPlaylist(ctx, id)
	if errors.Is(err, music.ErrNotFound) {
		return fmt.Sprintf("❌ Playlist %s not found", telegram.EscapeMarkdown(id)), nil
	}
	if err != nil {
		return "❌ Failed to load playlist", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎶 *%s*\n\n```\n%s```", telegram.EscapeMarkdown(playlist.Name), strings.ReplaceAll(playlist.Pretty(), "`", "'"))
	if playlist.Content == nil {
		return b.String(), nil
	}
	entries, err := music.PreviewEntries(*playlist.Content, previewEntries)
	if err != nil {
		return b.String(), nil
	}
	if len(entries) > 0 {
		b.WriteString("\n*First entries*\n")
	}
	for _, e := range entries {
		label := e.Title
		if label == "" {
			label = e.Location
		}
		fmt.Fprintf(&b, "• %s\n", telegram.EscapeMarkdown(label))
	}
	return b.String(), nil
}

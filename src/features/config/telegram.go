package config

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler answers the /config command.
type TelegramHandler struct {
	configManager *Manager
}

// NewTelegramHandler creates a new Telegram handler for the config feature
func NewTelegramHandler(configManager *Manager) *TelegramHandler {
	return &TelegramHandler{configManager: configManager}
}

// HandleCommand processes config-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	if command != "config" {
		_, err := bot.Send(tgbotapi.NewMessage(chatID, "❌ Unknown config command. Use /config [yaml|json]"))
		return err
	}

	format := strings.ToLower(strings.TrimSpace(args))
	var body string
	switch format {
	case "json":
		body = h.configManager.GetJSON()
	default:
		format = "yaml"
		body = h.configManager.GetYAML()
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚙️ *Configuration (%s)*\n\n```%s\n%s\n```", format, format, body))
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"config": "Show configuration (/config json for JSON)",
	}
}

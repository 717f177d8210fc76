package telegram

import "strings"

var markdownReplacer = strings.NewReplacer(
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
)

// EscapeMarkdown escapes the characters that legacy Telegram Markdown treats
// as entity delimiters.
func EscapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

// Package telegram adapts the session controller to the Telegram Bot API.
package telegram

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/yono-dev/craftmind/internal/config"
)

// Sender delivers controller output to Telegram chats. For private bots
// the chat ID equals the user ID.
type Sender struct {
	bot *bot.Bot
}

func NewSender(b *bot.Bot) *Sender {
	return &Sender{bot: b}
}

// Send implements the controller's Presenter port. Long texts are split
// into Telegram-sized parts; delivery errors are logged, not propagated,
// since the session state already moved on.
func (s *Sender) Send(userID int64, text string) {
	ctx := context.Background()
	for _, part := range SplitMessage(text, config.MaxMessageLen) {
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: userID,
			Text:   part,
		})
		if err != nil {
			slog.Error("failed to send message", "user_id", userID, "error", err)
			return
		}
	}
}

// SplitMessage splits text into chunks of at most maxLen runes, preferring
// to break on a newline in the second half of a chunk.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		splitAt := maxLen

		chunk := string(runes[:maxLen])
		if lastNewline := strings.LastIndex(chunk, "\n"); lastNewline >= 0 {
			prefix := utf8.RuneCountInString(chunk[:lastNewline])
			if prefix > maxLen/2 {
				splitAt = prefix + 1
			}
		}

		parts = append(parts, strings.TrimRight(string(runes[:splitAt]), "\n"))
		text = string(runes[splitAt:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover keeps a panicking update handler from taking the bot down. The
// session loop runs in its own goroutine and is unaffected; the update is
// dropped and logged.
func Recover() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					var userID int64
					if update.Message != nil && update.Message.From != nil {
						userID = update.Message.From.ID
					}
					slog.Error("update handler panicked",
						"user_id", userID,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			next(ctx, b, update)
		}
	}
}

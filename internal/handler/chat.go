package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

func (c *Controller) generateChat(sess *domain.Session, message string) {
	userID := sess.UserID
	model := sess.Model
	sess.Busy = true

	c.history.Append(userID, domain.RoleUser, message)
	contents := c.history.Get(userID)

	switch model {
	case config.ModelPro:
		c.presenter.Send(userID, "Thinking deeply...")
	case config.ModelFlashThinking:
		c.presenter.Send(userID, "Thinking...")
	default:
		c.presenter.Send(userID, "Replying...")
	}

	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.TextRequestTimeout)
		defer cancel()
		reply, err := c.generator.GenerateText(ctx, contents, model, c.cfg.ChatSystemPrompt)

		c.post(func() {
			sess, ok := c.session(userID)
			if ok {
				sess.Busy = false
			}
			if !ok || sess.Mode != domain.ModeChat {
				return
			}
			if err != nil {
				slog.Error("chat generation failed", "user_id", userID, "model", model, "error", err)
				c.presenter.Send(userID, "Sorry, I did not catch that. Could you try saying it another way?")
				return
			}

			// Model switches clear the history; only extend it when the
			// reply belongs to the conversation it started from.
			if sess.Model == model {
				c.history.Append(userID, domain.RoleModel, reply)
			}
			clean := stripMarkdown(reply)
			c.presenter.Send(userID, clean)
			c.auditAsync(userID, "chat", model, message, clean)
		})
	})
}

func (c *Controller) generateSearch(sess *domain.Session, query string) {
	userID := sess.UserID
	model := sess.Model
	sess.Busy = true

	contents := []domain.Content{
		domain.TextContent(domain.RoleUser, "Search the web for the following and summarize the results concisely: "+query),
	}
	c.presenter.Send(userID, "Searching the web...")

	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.SearchRequestTimeout)
		defer cancel()
		result, err := c.generator.GenerateTextWithSearch(ctx, contents, model, c.cfg.SearchSystemPrompt)

		c.post(func() {
			sess, ok := c.session(userID)
			if ok {
				sess.Busy = false
			}
			if !ok || sess.Mode != domain.ModeSearch {
				return
			}
			if err != nil {
				slog.Error("web search failed", "user_id", userID, "model", model, "error", err)
				c.presenter.Send(userID, "Could not get search results. Try different keywords.")
				c.auditAsync(userID, "search", model, query, "search failed")
				return
			}

			clean := stripMarkdown(result.Text)
			var b strings.Builder
			b.WriteString("Search results:\n")
			b.WriteString(clean)
			if len(result.Sources) > 0 {
				b.WriteString("\n\nSources:\n")
				for _, source := range result.Sources {
					b.WriteString("- ")
					b.WriteString(source)
					b.WriteString("\n")
				}
			}
			c.presenter.Send(userID, strings.TrimRight(b.String(), "\n"))
			c.auditAsync(userID, "search", model, query, clean)
		})
	})
}

// auditAsync mirrors one finished interaction to the webhook off the loop.
func (c *Controller) auditAsync(userID int64, mode, model, input, response string) {
	if !c.audit.Enabled() {
		return
	}
	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.WebhookTimeout*3)
		defer cancel()
		c.audit.Record(ctx, userID, mode, model, input, response)
	})
}

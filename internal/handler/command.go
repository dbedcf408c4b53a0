package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
	"github.com/yono-dev/craftmind/internal/mcsyntax"
)

func (c *Controller) generateCommand(sess *domain.Session, request string) {
	userID := sess.UserID
	model := sess.Model
	sess.Busy = true

	contents := []domain.Content{domain.TextContent(domain.RoleUser, request)}
	c.presenter.Send(userID, "Generating command...")

	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.TextRequestTimeout)
		defer cancel()
		reply, err := c.generator.GenerateText(ctx, contents, model, c.cfg.CommandSystemPrompt)

		c.post(func() {
			sess, ok := c.session(userID)
			if ok {
				sess.Busy = false
			}
			if !ok || sess.Mode != domain.ModeCommand {
				return
			}
			if err != nil {
				slog.Error("command generation failed", "user_id", userID, "model", model, "error", err)
				c.presenter.Send(userID, "Could not generate a command. Try rephrasing your request.")
				return
			}

			commands, explanation := parseCommandReply(reply)
			if len(commands) == 0 {
				c.presenter.Send(userID, "Could not parse a command from the reply:\n"+stripMarkdown(reply))
				return
			}

			var b strings.Builder
			b.WriteString("Generated command")
			if len(commands) > 1 {
				b.WriteString("s")
			}
			b.WriteString(":\n")
			for i, cmd := range commands {
				if len(commands) > 1 {
					fmt.Fprintf(&b, "%d. %s\n", i+1, cmd)
				} else {
					b.WriteString(cmd)
					b.WriteString("\n")
				}
			}
			if explanation != "" {
				b.WriteString("\n")
				b.WriteString(explanation)
			}
			c.presenter.Send(userID, strings.TrimRight(b.String(), "\n"))

			logged := strings.Join(commands, "\n")
			if explanation != "" {
				logged += "\n" + explanation
			}
			c.auditAsync(userID, "command", model, request, logged)
		})
	})
}

// parseCommandReply extracts COMMAND: lines (each run through the syntax
// normalizer) and the EXPLAIN: line. When the model ignored the format, the
// first line starting with "/" is taken as the command and the rest as the
// explanation.
func parseCommandReply(reply string) ([]string, string) {
	clean := stripMarkdown(reply)
	var commands []string
	var explanation string

	for _, line := range strings.Split(clean, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "COMMAND:"); ok {
			commands = append(commands, strings.TrimSpace(after))
		} else if after, ok := strings.CutPrefix(trimmed, "EXPLAIN:"); ok {
			explanation = strings.TrimSpace(after)
		}
	}

	if len(commands) == 0 {
		for _, line := range strings.Split(clean, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "/") {
				commands = append(commands, trimmed)
				break
			}
		}
		if explanation == "" && len(commands) > 0 {
			explanation = strings.TrimSpace(strings.Replace(clean, commands[0], "", 1))
		}
	}

	for i, cmd := range commands {
		commands[i] = mcsyntax.Normalize(cmd)
	}
	return commands, explanation
}

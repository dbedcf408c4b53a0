package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

// showLibrary handles "library", "library <page>", "library view <n>" and
// "library reuse <n>". Records are addressed by their 1-based position,
// oldest first, matching the numbers the listing shows.
func (c *Controller) showLibrary(sess *domain.Session, args string) {
	fields := strings.Fields(args)

	if len(fields) == 2 {
		index, err := strconv.Atoi(fields[1])
		if err == nil {
			switch fields[0] {
			case "view":
				c.showLibraryRecord(sess, index)
				return
			case "reuse", "i2i":
				c.reuseLibraryRecord(sess, index)
				return
			}
		}
	}

	page := 1
	if len(fields) == 1 {
		page = parsePage(fields[0])
	}
	c.presenter.Send(sess.UserID, c.libraryPageText(sess.UserID, page))
}

func (c *Controller) libraryPageText(userID int64, page int) string {
	records := c.library.List(userID)
	total := len(records)
	if total == 0 {
		return "Your library is empty.\nImages you generate in image mode are saved here automatically."
	}

	totalPages := (total + config.LibraryPageSize - 1) / config.LibraryPageSize
	if page > totalPages {
		page = totalPages
	}

	// Newest first: page 1 starts at the end of the slice.
	start := total - 1 - (page-1)*config.LibraryPageSize
	end := start - config.LibraryPageSize + 1
	if end < 0 {
		end = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Image library (%d images) - page %d/%d\n", total, page, totalPages)
	for i := start; i >= end; i-- {
		rec := records[i]
		prompt := rec.Prompt
		if len(prompt) > 40 {
			prompt = prompt[:40] + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n   %s | %s | %s | %s\n",
			i+1, prompt, imageModelDisplayName(rec.Model), rec.AspectRatio, rec.Resolution,
			relativeTime(rec.CreatedAt))
	}
	b.WriteString("\"library view <n>\" shows an image, \"library reuse <n>\" feeds it back in.")
	if totalPages > 1 {
		fmt.Fprintf(&b, "\n\"library <page>\" switches pages.")
	}
	return b.String()
}

func (c *Controller) showLibraryRecord(sess *domain.Session, index int) {
	rec, ok := c.library.Get(sess.UserID, index)
	if !ok {
		c.presenter.Send(sess.UserID, "No image at that position.")
		return
	}
	c.presenter.Send(sess.UserID, fmt.Sprintf(
		"Image %d:\n  prompt: %s\n  %s | %s | %s | %s\n  %s",
		index, rec.Prompt,
		imageModelDisplayName(rec.Model), rec.AspectRatio, rec.Resolution, relativeTime(rec.CreatedAt),
		rec.ImageURL))
}

// reuseLibraryRecord switches to image mode primed for an image-to-image
// run on the stored image.
func (c *Controller) reuseLibraryRecord(sess *domain.Session, index int) {
	rec, ok := c.library.Get(sess.UserID, index)
	if !ok {
		c.presenter.Send(sess.UserID, "No image at that position.")
		return
	}
	sess.Mode = domain.ModeImage
	c.presenter.Send(sess.UserID, fmt.Sprintf(
		"Image-to-image on: %s\nSend the URL followed by what to change:\n%s <your prompt>",
		rec.Prompt, rec.ImageURL))
}

// showRemoteHistory renders a page of the user's audit trail fetched from
// the webhook.
func (c *Controller) showRemoteHistory(sess *domain.Session, args string) {
	userID := sess.UserID
	if !c.audit.Enabled() {
		c.presenter.Send(userID, "History is not available: no audit webhook is configured.")
		return
	}
	page := parsePage(strings.TrimSpace(args))

	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.WebhookTimeout*3)
		defer cancel()
		entries, err := c.audit.FetchHistory(ctx, userID, page)

		c.post(func() {
			if _, ok := c.session(userID); !ok {
				return
			}
			if err != nil {
				slog.Warn("history fetch failed", "user_id", userID, "error", err)
				c.presenter.Send(userID, "Could not fetch your history. Try again later.")
				return
			}
			if len(entries) == 0 {
				c.presenter.Send(userID, "No history entries on this page.")
				return
			}

			var b strings.Builder
			fmt.Fprintf(&b, "History - page %d\n", page)
			for _, e := range entries {
				input := e.UserInput
				if len(input) > 60 {
					input = input[:60] + "..."
				}
				fmt.Fprintf(&b, "[%s] %s (%s)\n  %s\n", e.Timestamp, e.Mode, e.Model, input)
			}
			b.WriteString("\"history <page>\" switches pages.")
			c.presenter.Send(userID, b.String())
		})
	})
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

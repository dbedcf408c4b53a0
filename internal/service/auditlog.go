package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yono-dev/craftmind/internal/config"
)

// AuditLogger mirrors completed interactions to an external webhook and
// reads them back for the remote history view. The webhook is optional;
// with no URL configured every method is a no-op.
type AuditLogger struct {
	webhookURL string
	client     *http.Client
}

// AuditEntry is one interaction as the webhook stores it.
type AuditEntry struct {
	Timestamp string `json:"timestamp"`
	Mode      string `json:"mode"`
	Model     string `json:"model"`
	UserInput string `json:"userInput"`
	Response  string `json:"aiResponse"`
}

type auditPayload struct {
	UserID    int64  `json:"userId"`
	Mode      string `json:"mode"`
	Model     string `json:"model"`
	UserInput string `json:"userInput"`
	Response  string `json:"aiResponse"`
}

func NewAuditLogger(webhookURL string) *AuditLogger {
	return &AuditLogger{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: config.WebhookTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (l *AuditLogger) Enabled() bool { return l.webhookURL != "" }

// Record sends one interaction to the webhook. Failures are logged and
// swallowed; audit delivery never affects the user-facing flow.
func (l *AuditLogger) Record(ctx context.Context, userID int64, mode, model, input, response string) {
	if !l.Enabled() {
		return
	}
	if len(response) > config.MaxAuditResponseLen {
		response = response[:config.MaxAuditResponseLen]
	}

	body, err := json.Marshal(auditPayload{
		UserID:    userID,
		Mode:      mode,
		Model:     model,
		UserInput: input,
		Response:  response,
	})
	if err != nil {
		slog.Error("failed to encode audit payload", "error", err)
		return
	}

	resp, err := l.post(ctx, l.webhookURL, body)
	if err != nil {
		slog.Warn("audit webhook delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()

	// The webhook host answers with a redirect to the actual ingest
	// endpoint; follow it once, re-POSTing the same body.
	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			slog.Warn("audit webhook redirect without location")
			return
		}
		target, err := resolveLocation(l.webhookURL, location)
		if err != nil {
			slog.Warn("audit webhook redirect invalid", "error", err)
			return
		}
		resp, err = l.post(ctx, target, body)
		if err != nil {
			slog.Warn("audit webhook delivery failed", "error", err)
			return
		}
		defer resp.Body.Close()
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("audit webhook rejected entry", "status", resp.StatusCode)
	}
}

// FetchHistory reads a page of the user's audit trail back from the
// webhook.
func (l *AuditLogger) FetchHistory(ctx context.Context, userID int64, page int) ([]AuditEntry, error) {
	historyURL := fmt.Sprintf("%s?action=history&userId=%d&page=%d", l.webhookURL, userID, page)

	resp, err := l.get(ctx, historyURL)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			return nil, fmt.Errorf("redirect without location")
		}
		target, err := resolveLocation(historyURL, location)
		if err != nil {
			return nil, err
		}
		resp, err = l.get(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("history request: %w", err)
		}
		defer resp.Body.Close()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result struct {
		Status  string       `json:"status"`
		Entries []AuditEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("history request failed: status %s", strconv.Quote(result.Status))
	}
	return result.Entries, nil
}

func (l *AuditLogger) post(ctx context.Context, target string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return l.client.Do(req)
}

func (l *AuditLogger) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return l.client.Do(req)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agency-hub/backend/internal/events"
	"go.uber.org/zap"
)

// WebhookClient forwards notifications to a chat webhook (Slack-compatible
// "text" payload).
type WebhookClient struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

func NewWebhookClient(url string, log *zap.Logger) *WebhookClient {
	return &WebhookClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// FormatNotification renders a notify event as one chat message.
func FormatNotification(e events.Event) string {
	title, _ := e.Payload["title"].(string)
	body, _ := e.Payload["body"].(string)
	level, _ := e.Payload["level"].(string)

	prefix := ""
	switch level {
	case LevelWarning:
		prefix = "[warning] "
	case LevelUrgent:
		prefix = "[urgent] "
	}

	switch {
	case title == "" && body == "":
		return fmt.Sprintf("%sEvent: %s", prefix, e.Type)
	case title == "":
		return prefix + body
	case body == "":
		return prefix + "*" + title + "*"
	}
	return fmt.Sprintf("%s*%s*\n%s", prefix, title, body)
}

func (c *WebhookClient) Send(ctx context.Context, e events.Event) error {
	if c.url == "" {
		return fmt.Errorf("notify webhook url is not set")
	}

	body, err := json.Marshal(map[string]any{
		"text":  FormatNotification(e),
		"type":  e.Type,
		"level": e.Payload["level"],
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured means the gateway URL or token is missing.
	ErrNotConfigured = errors.New("agent gateway not configured")
	// ErrUnavailable wraps every transport, timeout and non-2xx failure.
	ErrUnavailable = errors.New("agent gateway unavailable")
)

// StatusError is a non-2xx gateway response. It unwraps to ErrUnavailable.
// Body is kept for logs only and never returned to API callers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Client talks to the OpenAI-compatible chat-completion gateway.
type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, token, model string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

// Complete sends one chat-completion request on behalf of agentID and returns
// the assistant message of the first choice. No retries.
func (c *Client) Complete(ctx context.Context, agentID string, messages []Message, tools []Tool) (*Message, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Tools: tools})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-openclaw-agent-id", agentID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("gateway request failed", zap.String("agent", agentID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
		c.log.Warn("gateway returned error", zap.String("agent", agentID), zap.Int("status", resp.StatusCode))
		return nil, serr
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrUnavailable)
	}

	msg := out.Choices[0].Message
	if msg.Role == "" {
		msg.Role = "assistant"
	}
	c.log.Debug("gateway completion",
		zap.String("agent", agentID),
		zap.Int("tool_calls", len(msg.ToolCalls)),
		zap.Duration("latency", time.Since(start)),
	)
	return &msg, nil
}

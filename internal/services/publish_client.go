package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/models"
	"go.uber.org/zap"
)

// PublishClient posts images to the social platform in two phases: create a
// media container, then publish it.
type PublishClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewPublishClient(baseURL string, timeout time.Duration, log *zap.Logger) *PublishClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PublishClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// PlatformError is an error object returned by the publish API.
type PlatformError struct {
	Status  int
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("publish api returned %d", e.Status)
	}
	return fmt.Sprintf("publish api returned %d: %s (code %d)", e.Status, e.Message, e.Code)
}

type idResponse struct {
	ID    string         `json:"id"`
	Error *PlatformError `json:"error"`
}

// Publish returns the external post id.
func (c *PublishClient) Publish(ctx context.Context, cred models.PlatformCredential, imageURL, caption string) (string, error) {
	if c.baseURL == "" {
		return "", ErrPublishNotConfigured
	}
	if cred.AccountID == "" || cred.AccessToken == "" {
		return "", ErrNoCredentials
	}

	creationID, err := c.post(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, url.PathEscape(cred.AccountID)), url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {cred.AccessToken},
	})
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}

	postID, err := c.post(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, url.PathEscape(cred.AccountID)), url.Values{
		"creation_id":  {creationID},
		"access_token": {cred.AccessToken},
	})
	if err != nil {
		return "", fmt.Errorf("publish media container %s: %w", creationID, err)
	}

	c.log.Info("media published",
		zap.String("account_id", cred.AccountID),
		zap.String("creation_id", creationID),
		zap.String("external_post_id", postID),
	)
	return postID, nil
}

func (c *PublishClient) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish service unavailable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}

	var out idResponse
	if jerr := json.Unmarshal(body, &out); jerr != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode publish response: %w", jerr)
	}
	if out.Error != nil {
		out.Error.Status = resp.StatusCode
		return "", out.Error
	}
	if resp.StatusCode != http.StatusOK {
		return "", &PlatformError{Status: resp.StatusCode, Message: truncateText(string(body), 300)}
	}
	if out.ID == "" {
		return "", fmt.Errorf("publish api returned no id")
	}
	return out.ID, nil
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ObjectStorage uploads files to an S3-style bucket over plain HTTP:
// PUT {baseURL}/object/{bucket}/{key}, readable at {publicURL}/{bucket}/{key}.
type ObjectStorage struct {
	baseURL    string
	publicURL  string
	bucket     string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewObjectStorage(baseURL, publicURL, bucket, token string, log *zap.Logger) *ObjectStorage {
	return &ObjectStorage{
		baseURL:   strings.TrimRight(baseURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		bucket:    bucket,
		token:     token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

func (s *ObjectStorage) Configured() bool {
	return s.baseURL != "" && s.bucket != ""
}

// Put stores data under key, overwriting any existing object, and returns
// the public URL.
func (s *ObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("object storage: %w", ErrImagesNotConfigured)
	}
	key = strings.TrimLeft(key, "/")

	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("storage returned %d: %s", resp.StatusCode, string(b))
	}

	s.log.Debug("object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}

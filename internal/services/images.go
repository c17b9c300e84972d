package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageBackend turns a prompt into image bytes.
type ImageBackend interface {
	GenerateImage(ctx context.Context, prompt string) (data []byte, mimeType string, err error)
}

type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageService picks the backend by campaign image model and uploads the
// result to object storage.
type ImageService struct {
	backends map[string]ImageBackend
	uploader Uploader
	log      *zap.Logger
}

func NewImageService(backends map[string]ImageBackend, uploader Uploader, log *zap.Logger) *ImageService {
	return &ImageService{backends: backends, uploader: uploader, log: log}
}

func (s *ImageService) Generate(ctx context.Context, model, prompt string, style *string) (string, error) {
	backend, ok := s.backends[model]
	if !ok || backend == nil {
		return "", fmt.Errorf("%w: no backend for image model %q", ErrImagesNotConfigured, model)
	}

	full := strings.TrimSpace(prompt)
	if style != nil && strings.TrimSpace(*style) != "" {
		full += "\n\nVisual style: " + strings.TrimSpace(*style)
	}

	data, mimeType, err := backend.GenerateImage(ctx, full)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("posts/%s%s", uuid.NewString(), extensionFor(mimeType))
	return s.uploader.Put(ctx, key, data, mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// OpenAIImages calls an images/generations endpoint that answers with
// base64 JSON.
type OpenAIImages struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIImages(url, apiKey string) *OpenAIImages {
	return &OpenAIImages{
		url:    url,
		apiKey: apiKey,
		model:  "gpt-image-1",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (o *OpenAIImages) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if o.apiKey == "" {
		return nil, "", fmt.Errorf("openai images: %w", ErrImagesNotConfigured)
	}

	body, _ := json.Marshal(map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("openai images returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, "", fmt.Errorf("openai images: empty response")
	}

	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("openai images: decode: %w", err)
	}
	return data, "image/png", nil
}

// GeminiImages calls generateContent and takes the first inline image part.
type GeminiImages struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiImages(baseURL, apiKey string) *GeminiImages {
	return &GeminiImages{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   "gemini-2.5-flash-image",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (g *GeminiImages) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if g.apiKey == "" {
		return nil, "", fmt.Errorf("gemini images: %w", ErrImagesNotConfigured)
	}

	body, _ := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	})
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", err
	}

	for _, c := range out.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("gemini: decode: %w", err)
			}
			mimeType := part.InlineData.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return data, mimeType, nil
		}
	}
	return nil, "", fmt.Errorf("gemini: response has no image")
}

// DefaultImageBackends wires both supported models.
func DefaultImageBackends(openaiURL, openaiKey, geminiURL, geminiKey string) map[string]ImageBackend {
	return map[string]ImageBackend{
		models.ImageModelOpenAI: NewOpenAIImages(openaiURL, openaiKey),
		models.ImageModelGemini: NewGeminiImages(geminiURL, geminiKey),
	}
}

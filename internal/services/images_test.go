package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G'}

func TestOpenAIImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "coffee" {
			t.Errorf("prompt = %v", body["prompt"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	}))
	defer srv.Close()

	data, mime, err := NewOpenAIImages(srv.URL, "sk").GenerateImage(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(data) != string(pngBytes) || mime != "image/png" {
		t.Errorf("got %q %s", data, mime)
	}
}

func TestGeminiImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"Here is your image"},
			{"inlineData":{"mimeType":"image/jpeg","data":"` + base64.StdEncoding.EncodeToString(pngBytes) + `"}}
		]}}]}`))
	}))
	defer srv.Close()

	data, mime, err := NewGeminiImages(srv.URL, "g").GenerateImage(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(data) != string(pngBytes) || mime != "image/jpeg" {
		t.Errorf("got %q %s", data, mime)
	}
}

func TestGeminiImagesNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I cannot draw that"}]}}]}`))
	}))
	defer srv.Close()

	if _, _, err := NewGeminiImages(srv.URL, "g").GenerateImage(context.Background(), "x"); err == nil {
		t.Error("expected error for text-only response")
	}
}

func TestImageBackendsRequireKeys(t *testing.T) {
	if _, _, err := NewOpenAIImages("http://x", "").GenerateImage(context.Background(), "p"); !errors.Is(err, ErrImagesNotConfigured) {
		t.Errorf("openai: expected ErrImagesNotConfigured, got %v", err)
	}
	if _, _, err := NewGeminiImages("http://x", "").GenerateImage(context.Background(), "p"); !errors.Is(err, ErrImagesNotConfigured) {
		t.Errorf("gemini: expected ErrImagesNotConfigured, got %v", err)
	}
}

type stubBackend struct{ prompt string }

func (b *stubBackend) GenerateImage(_ context.Context, prompt string) ([]byte, string, error) {
	b.prompt = prompt
	return pngBytes, "image/webp", nil
}

func TestImageServiceUploads(t *testing.T) {
	var putPath, putType string
	var putBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		putPath, putType = r.URL.Path, r.Header.Get("Content-Type")
		putBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	storage := NewObjectStorage(srv.URL, "https://cdn.example", "post-images", "tok", zap.NewNop())
	backend := &stubBackend{}
	svc := NewImageService(map[string]ImageBackend{"gemini": backend}, storage, zap.NewNop())

	style := "flat pastel"
	url, err := svc.Generate(context.Background(), "gemini", "coffee", &style)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(putPath, "/object/post-images/posts/") || !strings.HasSuffix(putPath, ".webp") {
		t.Errorf("PUT path = %s", putPath)
	}
	if putType != "image/webp" || string(putBody) != string(pngBytes) {
		t.Errorf("uploaded %s %q", putType, putBody)
	}
	if !strings.HasPrefix(url, "https://cdn.example/post-images/posts/") {
		t.Errorf("public url = %s", url)
	}
	if !strings.Contains(backend.prompt, "Visual style: flat pastel") {
		t.Errorf("style not applied: %q", backend.prompt)
	}

	if _, err := svc.Generate(context.Background(), "openai", "coffee", nil); !errors.Is(err, ErrImagesNotConfigured) {
		t.Errorf("unknown backend: expected ErrImagesNotConfigured, got %v", err)
	}
}

func TestObjectStorageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewObjectStorage(srv.URL, "", "b", "", zap.NewNop()).Put(context.Background(), "k", nil, "image/png"); err == nil {
		t.Error("expected error on 403")
	}
	if _, err := NewObjectStorage("", "", "b", "", zap.NewNop()).Put(context.Background(), "k", nil, "image/png"); !errors.Is(err, ErrImagesNotConfigured) {
		t.Errorf("expected ErrImagesNotConfigured, got %v", err)
	}
}

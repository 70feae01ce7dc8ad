package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func geminiOK(text string) map[string]any {
	return map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 3, "totalTokenCount": 15},
	}
}

func mustGemini(t *testing.T, url string) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(RuntimeConfig{APIKey: "test-key", BaseURL: url, HTTPTimeout: 2 * time.Second, RetryMax: 3, BaseDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return c
}

func TestGeminiGenerate(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiOK("Call Priya first."))
	}))
	defer srv.Close()

	c := mustGemini(t, srv.URL)
	req := GenerateRequest{
		Model:       DefaultGeminiModel,
		Messages:    []Message{{Role: RoleSystem, Content: "You are a sales coach."}, {Role: RoleUser, Content: "priorities?"}},
		MaxTokens:   256,
		Temperature: 0.7,
	}
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "Call Priya first." {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected a request id")
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Fatalf("expected system message to be sent as systemInstruction, got %v", body)
	}
	if contents, _ := body["contents"].([]any); len(contents) != 1 {
		t.Fatalf("expected exactly one content turn, got %v", body["contents"])
	}
}

func TestGeminiRetriesServerError(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 503, "message": "overloaded", "status": "UNAVAILABLE"}})
			return
		}
		_ = json.NewEncoder(w).Encode(geminiOK("ok"))
	}))
	defer srv.Close()

	resp, err := mustGemini(t, srv.URL).Generate(context.Background(), UserPrompt(DefaultGeminiModel, "hi", 0, 0))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}

func TestGeminiModelNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "models/gemini-9 is not found", "status": "NOT_FOUND"}})
	}))
	defer srv.Close()

	_, err := mustGemini(t, srv.URL).Generate(context.Background(), UserPrompt("gemini-9", "hi", 0, 0))
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
}

func TestGeminiStream(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Follow up ", "with Acme"} {
			b, _ := json.Marshal(geminiOK(part))
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
	}))
	defer srv.Close()

	var out string
	err := mustGemini(t, srv.URL).GenerateStream(context.Background(), UserPrompt(DefaultGeminiModel, "hi", 0, 0), func(d string) { out += d })
	if err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if out != "Follow up with Acme" {
		t.Fatalf("unexpected stream output %q", out)
	}
}

func TestGeminiRequiresKeyAndMessages(t *testing.T) {
	if _, err := NewGeminiClient(RuntimeConfig{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, _, err := geminiRequest(GenerateRequest{Messages: []Message{{Role: RoleSystem, Content: "only system"}}}); err == nil {
		t.Fatalf("expected error for request without user turns")
	}
}

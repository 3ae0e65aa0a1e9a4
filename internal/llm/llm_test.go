package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tubewatch/internal/config"
)

func testSettings(host, endpoint string) config.LLM {
	return config.LLM{
		Host:        host,
		Endpoint:    endpoint,
		Model:       "test-model",
		APIKey:      "secret",
		Temperature: 0.2,
		MaxTokens:   256,
		Timeout:     5,
	}
}

func TestNewRequiresHostAndKey(t *testing.T) {
	if _, err := New(config.LLM{APIKey: "secret"}); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := New(config.LLM{Host: "https://openrouter.ai"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestBackendSelection(t *testing.T) {
	tests := []struct {
		host string
		want backend
	}{
		{"https://api.anthropic.com", anthropicBackend{}},
		{"https://generativelanguage.googleapis.com", geminiBackend{}},
		{"https://openrouter.ai", openAIBackend{}},
		{"http://localhost:11434", openAIBackend{}},
	}
	for _, tc := range tests {
		client, err := New(testSettings(tc.host, "/v1/x"))
		if err != nil {
			t.Fatalf("New(%s): %v", tc.host, err)
		}
		if client.backend != tc.want {
			t.Fatalf("host %s selected %T, want %T", tc.host, client.backend, tc.want)
		}
	}
}

func TestSummarizeOpenAI(t *testing.T) {
	var captured chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  a summary  "}},
			},
		})
	}))
	defer srv.Close()

	client, err := New(testSettings(srv.URL, "/api/v1/chat/completions"))
	if err != nil {
		t.Fatal(err)
	}
	summary, err := client.Summarize(context.Background(), "be brief", "transcript text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "a summary" {
		t.Fatalf("summary = %q", summary)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization header = %q", auth)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "transcript text" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if captured.Model != "test-model" || captured.MaxTokens != 256 {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestSummarizeAnthropicShape(t *testing.T) {
	var captured anthropicRequest
	var apiKey, version string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		version = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "claude says"}},
		})
	}))
	defer srv.Close()

	// Force the anthropic backend but point it at the test server.
	client, err := New(testSettings("https://api.anthropic.com", "/v1/messages"))
	if err != nil {
		t.Fatal(err)
	}
	client.cfg.Host = srv.URL
	client.cfg.Endpoint = ""

	summary, err := client.Summarize(context.Background(), "be brief", "transcript")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "claude says" {
		t.Fatalf("summary = %q", summary)
	}
	if apiKey != "secret" || version != anthropicVersion {
		t.Fatalf("headers: key=%q version=%q", apiKey, version)
	}
	if captured.System != "be brief" {
		t.Fatalf("system field = %q", captured.System)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
}

func TestSummarizeGeminiShape(t *testing.T) {
	var captured geminiRequest
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "gemini says"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := New(testSettings("https://generativelanguage.googleapis.com", "/v1beta/models/gemini-pro:generateContent"))
	if err != nil {
		t.Fatal(err)
	}
	client.cfg.Host = srv.URL
	client.cfg.Endpoint = ""

	summary, err := client.Summarize(context.Background(), "be brief", "transcript")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "gemini says" {
		t.Fatalf("summary = %q", summary)
	}
	if key != "secret" {
		t.Fatalf("query key = %q", key)
	}
	text := captured.Contents[0].Parts[0].Text
	if !strings.HasPrefix(text, "be brief\n\n") {
		t.Fatalf("system not prepended: %q", text)
	}
}

func TestSummarizeTruncatesLongPrompts(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotLen = len(req.Messages[1].Content)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	client, err := New(testSettings(srv.URL, ""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Summarize(context.Background(), "sys", strings.Repeat("x", maxPromptChars+500)); err != nil {
		t.Fatal(err)
	}
	if gotLen != maxPromptChars {
		t.Fatalf("prompt length = %d, want %d", gotLen, maxPromptChars)
	}
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}},
		{"empty completion", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": "   "}},
				},
			})
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client, err := New(testSettings(srv.URL, ""), WithRetryAttempts(1))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := client.Summarize(context.Background(), "sys", "prompt"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSummarizeRetriesRateLimit(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "eventually"}},
			},
		})
	}))
	defer srv.Close()

	var slept []time.Duration
	client, err := New(testSettings(srv.URL, ""), WithSleeper(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	summary, err := client.Summarize(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "eventually" {
		t.Fatalf("summary = %q", summary)
	}
	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("sleeps = %v, want [1s]", slept)
	}
}

func TestSummarizeDoesNotRetryClientErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := New(testSettings(srv.URL, ""), WithSleeper(func(ctx context.Context, d time.Duration) error {
		t.Fatal("sleeper called for a non-retryable error")
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Summarize(context.Background(), "sys", "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1", requests)
	}
}

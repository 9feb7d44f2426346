package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatPayload(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"finish_reason": "stop",
				"message":       map[string]any{"content": content},
			},
		},
	}
}

func TestClientCompleteOpenAIFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "loreline" {
			t.Errorf("unexpected title header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo-model" || req.MaxTokens != 6000 {
			t.Errorf("unexpected request %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "user text" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(chatPayload(`[{"segment_id":"E1.C1.S1"}]`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "loreline"})
	content, err := client.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != `[{"segment_id":"E1.C1.S1"}]` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestClientCompleteAnthropicFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("unexpected x-api-key %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("unexpected anthropic-version %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("bearer header should not be sent")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "sys" || len(req.Messages) != 1 || req.MaxTokens != 100 {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []any{
				map[string]any{"type": "text", "text": "[]"},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	client := NewClient(Config{Format: FormatAnthropic, APIKey: "secret", BaseURL: server.URL, Model: "m", MaxTokens: 100})
	content, err := client.Complete(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "[]" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestClientDefaultsBaseURLByFormat(t *testing.T) {
	if got := NewClient(Config{}).cfg.BaseURL; got != defaultOpenAIURL {
		t.Fatalf("openai default = %q", got)
	}
	if got := NewClient(Config{Format: "Anthropic"}).cfg.BaseURL; got != defaultAnthropicURL {
		t.Fatalf("anthropic default = %q", got)
	}
}

func TestClientRetriesAnyNon2xxWithFixedDelay(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatPayload("ok"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != defaultRetryDelay {
		t.Fatalf("expected one sleep of %s, got %v", defaultRetryDelay, slept)
	}
}

func TestClientRetryAfterOverridesDelayWithCap(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "600")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_ = json.NewEncoder(w).Encode(chatPayload("ok"))
		}
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithRetryDelay(time.Second, 10*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(slept) != 2 || slept[0] != 3*time.Second || slept[1] != 10*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"no key"}}`))
	}))
	defer server.Close()

	client := NewClient(
		Config{BaseURL: server.URL, Model: "demo"},
		WithRetries(2),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestClientRetriesEmptyContent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		content := ""
		if n >= 2 {
			content = "[]"
		}
		_ = json.NewEncoder(w).Encode(chatPayload(content))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	content, err := client.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "[]" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("content=%q calls=%d", content, calls)
	}
}

func TestClientCancellationAbortsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(
		Config{BaseURL: server.URL},
		WithRetries(5),
		WithSleeper(func(time.Duration) { cancel() }),
	)
	_, err := client.Complete(ctx, "s", "u")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestClientRequiresUserPrompt(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Complete(context.Background(), "s", "  "); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
}

func TestClientHealthCheck(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 16 {
			t.Errorf("health check should request a tiny completion, got %d", req.MaxTokens)
		}
		_ = json.NewEncoder(w).Encode(chatPayload("OK"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestClientHealthCheckFailureDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"", 0, false},
		{"5", 5 * time.Second, true},
		{"-1", 0, false},
		{"soon", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseRetryAfter(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseRetryAfter(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/promptmotion/manimatic/internal/domain"
	"go.uber.org/zap"
)

const longAnswer = "from manim import *\n\nclass CustomAnimation(Scene):\n    def construct(self):\n        self.wait(2)\n"

func newServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL,
		Logger:  zap.NewNop(),
	})
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": longAnswer}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
		})
	})

	resp, err := client.Complete(context.Background(), &domain.CompletionRequest{
		System:      "you write animation code",
		Prompt:      "a bouncing ball",
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != longAnswer {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 34 {
		t.Fatalf("unexpected usage: %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("system message not sent first: %+v", gotReq.Messages)
	}
}

func TestCompleteAPIError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit"},
		})
	})

	_, err := client.Complete(context.Background(), &domain.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestCompleteRejectsShortResponse(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "nope"}, "finish_reason": "stop"},
			},
		})
	})

	_, err := client.Complete(context.Background(), &domain.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "truncated") {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := client.Complete(context.Background(), &domain.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("expected no-choices error, got %v", err)
	}
}

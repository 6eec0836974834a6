package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kingrea/cosmic-fill/internal/config"
)

func TestHTTPClientChatSendsProtocol(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "deepseek-chat" || body.MaxTokens != 1000 || body.Temperature != 0.7 {
			t.Errorf("unexpected request %+v", body)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  内容概述：\n1. 登录  "}},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(config.LLMConfig{
		BaseURL:     server.URL + "/v1/chat/completions",
		APIKey:      "secret",
		Model:       "deepseek-chat",
		Temperature: 0.7,
	}, nil)
	resp, err := client.Chat(context.Background(), Prompt("工作项内容", 1000))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "内容概述：\n1. 登录" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
}

func TestHTTPClientFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"created is not success": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
		},
		"missing choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		},
		"garbage body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range cases {
		name, handler := name, handler
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(handler)
			defer server.Close()
			client := NewHTTPClient(config.LLMConfig{BaseURL: server.URL}, nil)
			_, err := client.Chat(context.Background(), Prompt("hi", 10))
			if !errors.Is(err, ErrService) {
				t.Fatalf("expected ErrService, got %v", err)
			}
		})
	}
}

func TestHTTPClientHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(config.LLMConfig{BaseURL: server.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Chat(ctx, Prompt("slow", 10))
	if !errors.Is(err, ErrService) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected service timeout, got %v", err)
	}
}

func TestHTTPClientRejectsEmptyRequest(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(config.LLMConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := client.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatalf("expected error for request without messages")
	}
}

// Package llm is the client for the chat-completions generation service.
// Every call is a single blocking request; nothing is retried.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/config"
)

// ErrService marks any failed generation call: transport errors, non-200
// statuses, undecodable bodies and responses without choices.
var ErrService = errors.New("llm: generation service failure")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type ChatResponse struct {
	Content      string
	FinishReason string
}

// Client sends one chat request and returns the first choice.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Prompt builds a single-user-message request.
func Prompt(content string, maxTokens int) ChatRequest {
	return ChatRequest{
		Messages:  []Message{{Role: "user", Content: content}},
		MaxTokens: maxTokens,
	}
}

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	http        *http.Client
	logger      *zap.Logger
}

// NewHTTPClient builds a client from the LLM config section. Deadlines come
// from the caller's context.
func NewHTTPClient(cfg config.LLMConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		endpoint:    strings.TrimSpace(cfg.BaseURL),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		logger:      logger,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c == nil {
		return ChatResponse{}, fmt.Errorf("llm client is nil")
	}
	if len(req.Messages) == 0 {
		return ChatResponse{}, fmt.Errorf("llm chat requires at least one message")
	}
	if c.endpoint == "" {
		return ChatResponse{}, fmt.Errorf("%w: endpoint is not configured", ErrService)
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.http.Do(request)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: request failed: %w", ErrService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ChatResponse{}, fmt.Errorf("%w: status %s: %s", ErrService, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ChatResponse{}, fmt.Errorf("%w: decode response: %w", ErrService, err)
	}
	if len(decoded.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("%w: response missing choices", ErrService)
	}
	c.logger.Debug("generation call finished",
		zap.String("model", req.Model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Duration("elapsed", time.Since(started)),
	)
	return ChatResponse{
		Content:      strings.TrimSpace(decoded.Choices[0].Message.Content),
		FinishReason: strings.TrimSpace(decoded.Choices[0].FinishReason),
	}, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/adpilot/internal/config"
	"github.com/adpilot/pkg/logger"
	"github.com/adpilot/pkg/ratelimit"
)

// chatMessage is a single message in the chat-completions format
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// OpenAIProvider talks to any OpenAI-compatible chat-completions
// endpoint. The base URL is configurable so local inference servers
// work too.
type OpenAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible API
func NewOpenAIProvider(cfg config.OpenAIConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
		log:         log.WithComponent("ai.openai"),
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Available() bool {
	return p.apiKey != ""
}

// Complete sends a chat completion request and returns the first choice
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if !p.Available() {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeAuth, Err: errors.New("no API key configured")}
	}

	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeRateLimit, Err: err}
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.log.Debug().
		Str("model", p.model).
		Str("base_url", p.baseURL).
		Msg("Sending chat completion request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &ProviderError{Provider: p.Name(), Code: ErrCodeTimeout, Err: err}
		}
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeAuth, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeRateLimit, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if chat.Error != nil {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: errors.New(chat.Error.Message)}
	}
	if len(chat.Choices) == 0 {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: errors.New("empty choices in response")}
	}

	return chat.Choices[0].Message.Content, nil
}

package ai

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/adpilot/internal/config"
	"github.com/adpilot/pkg/logger"
	"github.com/adpilot/pkg/ratelimit"
)

// AnthropicProvider generates text through the Claude API
type AnthropicProvider struct {
	client      anthropic.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewAnthropicProvider creates a Claude-backed provider
func NewAnthropicProvider(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicProvider{
		client:      client,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		rateLimiter: limiter,
		log:         log.WithComponent("ai.anthropic"),
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Available() bool {
	return p.apiKey != ""
}

// Complete sends a message to Claude and returns the response text
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if !p.Available() {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeAuth, Err: errors.New("no API key configured")}
	}

	// Wait for rate limiter
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", &ProviderError{Provider: p.Name(), Code: ErrCodeRateLimit, Err: err}
	}

	p.log.Debug().
		Str("model", p.model).
		Int("max_tokens", p.maxTokens).
		Msg("Sending request to Claude")

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userMessage),
				},
			},
		},
	})

	if err != nil {
		p.log.Error().Err(err).Msg("Claude API error")
		return "", p.classify(err)
	}

	// Extract text from response
	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	p.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return response, nil
}

func (p *AnthropicProvider) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: p.Name(), Code: ErrCodeTimeout, Err: err}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return &ProviderError{Provider: p.Name(), Code: ErrCodeAuth, Err: err}
		case 429:
			return &ProviderError{Provider: p.Name(), Code: ErrCodeRateLimit, Err: err}
		}
	}
	return &ProviderError{Provider: p.Name(), Code: ErrCodeProvider, Err: err}
}

package ai

import (
	"context"
	"fmt"
)

// ErrorCode classifies upstream provider failures for the API layer
type ErrorCode string

const (
	ErrCodeAuth      ErrorCode = "AUTH_ERROR"
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	ErrCodeTimeout   ErrorCode = "TIMEOUT"
	ErrCodeProvider  ErrorCode = "PROVIDER_ERROR"
)

// ProviderError wraps an upstream LLM failure with a typed code
type ProviderError struct {
	Provider string
	Code     ErrorCode
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider is a single LLM backend. Complete sends one prompt and
// returns the raw text response; a single attempt, no retry.
type Provider interface {
	Name() string
	Available() bool
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ProviderInfo describes a provider for the discovery endpoint
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
}

package ai

import (
	"context"
	"fmt"
	"strings"
)

// KeywordRequest describes the keyword ideas to generate
type KeywordRequest struct {
	BusinessDescription string   `json:"business_description"`
	SeedKeywords        []string `json:"seed_keywords"`
	CountPerMatchType   int      `json:"count_per_match_type"`
	Provider            string   `json:"provider"`
}

// KeywordResult holds keyword ideas split by match type plus negative
// suggestions
type KeywordResult struct {
	Broad    []string `json:"broad"`
	Phrase   []string `json:"phrase"`
	Exact    []string `json:"exact"`
	Negative []string `json:"negative"`
	Provider string   `json:"provider"`
}

// GenerateKeywords builds the keyword prompt, sends it to the selected
// provider and parses the bucketed response
func (s *Service) GenerateKeywords(ctx context.Context, req KeywordRequest) (*KeywordResult, error) {
	if strings.TrimSpace(req.BusinessDescription) == "" {
		return nil, fmt.Errorf("business_description is required")
	}
	if req.CountPerMatchType <= 0 {
		req.CountPerMatchType = 10
	}

	provider, err := s.Provider(req.Provider)
	if err != nil {
		return nil, err
	}

	userPrompt := fmt.Sprintf(KeywordUserPrompt,
		req.BusinessDescription,
		strings.Join(req.SeedKeywords, ", "),
		req.CountPerMatchType,
	)

	s.log.Info().
		Str("provider", provider.Name()).
		Int("count_per_match_type", req.CountPerMatchType).
		Msg("Generating keywords")

	response, err := provider.Complete(ctx, KeywordSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating keywords: %w", err)
	}

	parsed, err := ParseKeywords(response)
	if err != nil {
		return nil, fmt.Errorf("parsing keyword response: %w", err)
	}

	return &KeywordResult{
		Broad:    parsed.Broad,
		Phrase:   parsed.Phrase,
		Exact:    parsed.Exact,
		Negative: parsed.Negative,
		Provider: provider.Name(),
	}, nil
}

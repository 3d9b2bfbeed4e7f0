package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/adpilot/internal/models"
)

// RSA asset pool limits
const (
	MaxHeadlines    = 15
	MaxDescriptions = 4
)

// CopyRequest describes the ad copy to generate
type CopyRequest struct {
	BusinessDescription string   `json:"business_description"`
	Keywords            []string `json:"keywords"`
	Tone                string   `json:"tone"`
	UniqueSellingPoints []string `json:"unique_selling_points"`
	HeadlineCount       int      `json:"headline_count"`
	DescriptionCount    int      `json:"description_count"`
	Provider            string   `json:"provider"`
}

// CopyResult is the parsed generation output
type CopyResult struct {
	Headlines    []models.Headline `json:"headlines"`
	Descriptions []string          `json:"descriptions"`
	Warnings     []string          `json:"warnings,omitempty"`
	Provider     string            `json:"provider"`
}

func (r *CopyRequest) normalize() {
	if r.HeadlineCount <= 0 || r.HeadlineCount > MaxHeadlines {
		r.HeadlineCount = MaxHeadlines
	}
	if r.DescriptionCount <= 0 || r.DescriptionCount > MaxDescriptions {
		r.DescriptionCount = MaxDescriptions
	}
	if r.Tone == "" {
		r.Tone = "professional"
	}
}

// GenerateAdCopy builds the copy prompt, sends it to the selected
// provider and parses the response. A provider failure surfaces as a
// single typed error, no retry.
func (s *Service) GenerateAdCopy(ctx context.Context, req CopyRequest) (*CopyResult, error) {
	if strings.TrimSpace(req.BusinessDescription) == "" {
		return nil, fmt.Errorf("business_description is required")
	}
	req.normalize()

	provider, err := s.Provider(req.Provider)
	if err != nil {
		return nil, err
	}

	userPrompt := fmt.Sprintf(AdCopyUserPrompt,
		req.BusinessDescription,
		strings.Join(req.Keywords, ", "),
		req.Tone,
		strings.Join(req.UniqueSellingPoints, "; "),
		req.HeadlineCount,
		req.DescriptionCount,
	)

	s.log.Info().
		Str("provider", provider.Name()).
		Int("headlines", req.HeadlineCount).
		Int("descriptions", req.DescriptionCount).
		Msg("Generating ad copy")

	response, err := provider.Complete(ctx, AdCopySystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generating ad copy: %w", err)
	}

	parsed, err := ParseAdCopy(response)
	if err != nil {
		return nil, fmt.Errorf("parsing ad copy response: %w", err)
	}

	s.log.Info().
		Int("headlines", len(parsed.Headlines)).
		Int("descriptions", len(parsed.Descriptions)).
		Int("warnings", len(parsed.Warnings)).
		Msg("Ad copy generated")

	return &CopyResult{
		Headlines:    parsed.Headlines,
		Descriptions: parsed.Descriptions,
		Warnings:     parsed.Warnings,
		Provider:     provider.Name(),
	}, nil
}

// RefreshAdCopy regenerates copy for an existing ad, feeding the
// current assets into the prompt so the provider keeps the theme
func (s *Service) RefreshAdCopy(ctx context.Context, businessDescription string, ad *models.Ad, providerName string) (*CopyResult, error) {
	provider, err := s.Provider(providerName)
	if err != nil {
		return nil, err
	}

	currentHeadlines := make([]string, 0, len(ad.Headlines))
	for _, h := range ad.Headlines {
		currentHeadlines = append(currentHeadlines, h.Text)
	}

	userPrompt := fmt.Sprintf(AdCopyRefreshUserPrompt,
		businessDescription,
		strings.Join(currentHeadlines, " | "),
		strings.Join(ad.Descriptions, " | "),
		MaxHeadlines,
		MaxDescriptions,
	)

	response, err := provider.Complete(ctx, AdCopySystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("refreshing ad copy: %w", err)
	}

	parsed, err := ParseAdCopy(response)
	if err != nil {
		return nil, fmt.Errorf("parsing refreshed copy: %w", err)
	}

	return &CopyResult{
		Headlines:    parsed.Headlines,
		Descriptions: parsed.Descriptions,
		Warnings:     parsed.Warnings,
		Provider:     provider.Name(),
	}, nil
}

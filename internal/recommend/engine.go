package recommend

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

// Engine inspects stored campaign structure and performance rows and
// emits typed recommendations
type Engine struct {
	repo storage.Repository
	log  *logger.Logger
}

// NewEngine creates a recommendation engine
func NewEngine(repo storage.Repository, log *logger.Logger) *Engine {
	return &Engine{
		repo: repo,
		log:  log.WithComponent("recommend"),
	}
}

// Options selects which analyzers run and over which campaigns
type Options struct {
	StructureHygiene   bool   `json:"structure_hygiene"`
	AssetOptimization  bool   `json:"asset_optimization"`
	QueryMining        bool   `json:"query_mining"`
	BudgetOptimization bool   `json:"budget_optimization"`
	CampaignIDs        []uint `json:"campaign_ids"`
	MinImpressions     int    `json:"min_impressions"`
}

// DefaultOptions enables every analyzer over all active campaigns
func DefaultOptions() Options {
	return Options{
		StructureHygiene:   true,
		AssetOptimization:  true,
		QueryMining:        true,
		BudgetOptimization: true,
		MinImpressions:     100,
	}
}

// RunResult summarizes one generation run
type RunResult struct {
	CampaignsAnalyzed int                      `json:"campaigns_analyzed"`
	StructureFindings int                      `json:"structure_findings"`
	AssetFindings     int                      `json:"asset_findings"`
	QueryFindings     int                      `json:"query_findings"`
	BudgetFindings    int                      `json:"budget_findings"`
	Created           int                      `json:"created"`
	DuplicatesSkipped int                      `json:"duplicates_skipped"`
	Recommendations   []*models.Recommendation `json:"recommendations"`
	Errors            []error                  `json:"-"`
	Duration          time.Duration            `json:"duration"`
}

// Generate runs the enabled analyzers over the candidate campaigns and
// persists the produced recommendations in one transaction. A candidate
// whose fingerprint matches an existing pending recommendation is
// skipped, so repeated runs do not stack duplicates; applied or
// dismissed recommendations do not block re-emission.
func (e *Engine) Generate(ctx context.Context, opts Options) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{}

	if opts.MinImpressions <= 0 {
		opts.MinImpressions = 100
	}

	campaigns, err := e.resolveCampaigns(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("resolving campaigns: %w", err)
	}
	result.CampaignsAnalyzed = len(campaigns)

	e.log.Info().
		Int("campaigns", len(campaigns)).
		Bool("hygiene", opts.StructureHygiene).
		Bool("assets", opts.AssetOptimization).
		Bool("query_mining", opts.QueryMining).
		Bool("budget", opts.BudgetOptimization).
		Msg("Starting recommendation run")

	// Analyzers run in a fixed order per campaign
	var candidates []*models.Recommendation
	for _, campaign := range campaigns {
		if opts.StructureHygiene {
			recs, err := e.analyzeStructure(ctx, campaign)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("structure hygiene for campaign %d: %w", campaign.ID, err))
			} else {
				result.StructureFindings += len(recs)
				candidates = append(candidates, recs...)
			}
		}
		if opts.AssetOptimization {
			recs, err := e.analyzeAssets(ctx, campaign, opts.MinImpressions)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("asset optimization for campaign %d: %w", campaign.ID, err))
			} else {
				result.AssetFindings += len(recs)
				candidates = append(candidates, recs...)
			}
		}
		if opts.QueryMining {
			recs, err := e.analyzeSearchTerms(ctx, campaign, opts.MinImpressions)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("query mining for campaign %d: %w", campaign.ID, err))
			} else {
				result.QueryFindings += len(recs)
				candidates = append(candidates, recs...)
			}
		}
		if opts.BudgetOptimization {
			recs, err := e.analyzeBudget(ctx, campaign)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("budget pacing for campaign %d: %w", campaign.ID, err))
			} else {
				result.BudgetFindings += len(recs)
				candidates = append(candidates, recs...)
			}
		}
	}

	fresh, skipped, err := e.dedupe(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("deduplicating recommendations: %w", err)
	}
	result.DuplicatesSkipped = skipped

	if err := e.repo.CreateRecommendations(ctx, fresh); err != nil {
		return nil, fmt.Errorf("persisting recommendations: %w", err)
	}
	result.Created = len(fresh)
	result.Recommendations = fresh
	result.Duration = time.Since(startTime)

	e.log.Info().
		Int("created", result.Created).
		Int("duplicates_skipped", result.DuplicatesSkipped).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Recommendation run completed")

	return result, nil
}

// resolveCampaigns returns the explicit campaign set, or all active
// campaigns when none was named
func (e *Engine) resolveCampaigns(ctx context.Context, opts Options) ([]*models.Campaign, error) {
	filter := storage.CampaignFilter{}
	if len(opts.CampaignIDs) > 0 {
		filter.IDs = opts.CampaignIDs
	} else {
		active := models.CampaignStatusActive
		filter.Status = &active
	}
	return e.repo.ListCampaigns(ctx, filter)
}

// dedupe drops candidates whose fingerprint already exists in the
// pending set or earlier in the same batch
func (e *Engine) dedupe(ctx context.Context, candidates []*models.Recommendation) ([]*models.Recommendation, int, error) {
	pending, err := e.repo.ListPendingFingerprints(ctx)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[string]bool, len(pending))
	for _, fp := range pending {
		seen[fp] = true
	}

	var fresh []*models.Recommendation
	skipped := 0
	for _, rec := range candidates {
		if rec.Fingerprint != "" && seen[rec.Fingerprint] {
			skipped++
			continue
		}
		seen[rec.Fingerprint] = true
		fresh = append(fresh, rec)
	}
	return fresh, skipped, nil
}

// ListForCampaign returns recommendations for one campaign, optionally
// filtered by status
func (e *Engine) ListForCampaign(ctx context.Context, campaignID uint, status *models.RecommendationStatus) ([]*models.Recommendation, error) {
	filter := storage.DefaultRecommendationFilter()
	filter.CampaignID = &campaignID
	filter.Status = status
	return e.repo.ListRecommendations(ctx, filter)
}

// Dismiss marks a recommendation dismissed without applying it
func (e *Engine) Dismiss(ctx context.Context, id uint) (*models.Recommendation, error) {
	rec, err := e.repo.GetRecommendationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Status = models.RecommendationStatusDismissed
	if err := e.repo.UpdateRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	e.log.Info().Uint("recommendation_id", id).Msg("Recommendation dismissed")
	return rec, nil
}

// fingerprint derives the dedup key for a recommendation from its type
// and the natural identity of the finding
func fingerprint(recType models.RecommendationType, parts ...string) string {
	data := string(recType) + ":" + strings.Join(parts, ":")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:16])
}

func uintPtr(v uint) *uint {
	return &v
}

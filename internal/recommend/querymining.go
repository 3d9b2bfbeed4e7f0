package recommend

import (
	"context"
	"fmt"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// Query mining thresholds. Deliberately fixed, no statistical testing.
const (
	negativeMinImpressions = 100
	negativeMaxCTR         = 0.01
	negativeCostEscalation = 50.0
	negativeMaxConvRate    = 0.01

	positiveMinImpressions = 50
	positiveMinCTR         = 0.05
	positiveMinConvRate    = 0.02
)

// analyzeSearchTerms mines active search terms above the impression
// threshold for negative and positive keyword candidates
func (e *Engine) analyzeSearchTerms(ctx context.Context, campaign *models.Campaign, minImpressions int) ([]*models.Recommendation, error) {
	active := models.SearchTermStatusActive
	terms, err := e.repo.ListSearchTerms(ctx, storage.SearchTermFilter{
		CampaignID:     &campaign.ID,
		Status:         &active,
		MinImpressions: &minImpressions,
	})
	if err != nil {
		return nil, err
	}

	// Ad groups are loaded lazily; most terms cluster in a few groups
	groupCache := make(map[uint]*models.AdGroup)
	adGroup := func(id uint) (*models.AdGroup, error) {
		if g, ok := groupCache[id]; ok {
			return g, nil
		}
		g, err := e.repo.GetAdGroupByID(ctx, id)
		if err != nil {
			return nil, err
		}
		groupCache[id] = g
		return g, nil
	}

	var recs []*models.Recommendation
	for _, term := range terms {
		ctr := term.CTR()
		convRate := term.ConversionRate()

		wastedImpressions := term.Impressions > negativeMinImpressions && ctr < negativeMaxCTR
		wastedSpend := term.Cost > negativeCostEscalation && convRate < negativeMaxConvRate

		if wastedImpressions || wastedSpend {
			priority := models.PriorityHigh
			impact := fmt.Sprintf("Blocks ~%d wasted impressions per period.", term.Impressions)
			if wastedSpend {
				priority = models.PriorityCritical
				impact = fmt.Sprintf("Stops ~$%.2f per period spent without conversions.", term.Cost)
			}
			recs = append(recs, &models.Recommendation{
				CampaignID:  uintPtr(term.CampaignID),
				AdGroupID:   uintPtr(term.AdGroupID),
				Type:        models.RecommendationSearchTermNegative,
				Priority:    priority,
				Title:       fmt.Sprintf("Add negative keyword: %q", term.Term),
				Description: fmt.Sprintf("Search term %q has %d impressions, %.2f%% CTR and %.2f%% conversion rate. It attracts traffic that does not convert.", term.Term, term.Impressions, ctr*100, convRate*100),
				Impact:      impact,
				ActionRequired: models.JSON{
					"action":         "add_negative_keyword",
					"keyword":        term.Term,
					"match_type":     string(models.MatchTypeExact),
					"level":          string(models.NegativeLevelAdGroup),
					"ad_group_id":    float64(term.AdGroupID),
					"search_term_id": float64(term.ID),
				},
				AutoApplyEligible: true,
				Fingerprint:       fingerprint(models.RecommendationSearchTermNegative, fmt.Sprint(term.AdGroupID), term.Term),
			})
			continue
		}

		if term.Impressions > positiveMinImpressions && ctr > positiveMinCTR && convRate > positiveMinConvRate {
			group, err := adGroup(term.AdGroupID)
			if err != nil {
				return nil, err
			}
			if group.Keywords.Contains(term.Term) {
				continue
			}
			recs = append(recs, &models.Recommendation{
				CampaignID:  uintPtr(term.CampaignID),
				AdGroupID:   uintPtr(term.AdGroupID),
				Type:        models.RecommendationSearchTermPositive,
				Priority:    models.PriorityHigh,
				Title:       fmt.Sprintf("Add keyword: %q", term.Term),
				Description: fmt.Sprintf("Search term %q converts well (%0.2f%% CTR, %0.2f%% conversion rate) but is not yet a keyword. Adding it gives you bid control.", term.Term, ctr*100, convRate*100),
				Impact:      "Direct bidding on a proven converter usually lowers CPA.",
				ActionRequired: models.JSON{
					"action":         "add_keyword",
					"keyword":        term.Term,
					"ad_group_id":    float64(term.AdGroupID),
					"search_term_id": float64(term.ID),
				},
				AutoApplyEligible: true,
				Fingerprint:       fingerprint(models.RecommendationSearchTermPositive, fmt.Sprint(term.AdGroupID), term.Term),
			})
		}
	}

	return recs, nil
}

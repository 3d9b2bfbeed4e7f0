package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// Budget pacing thresholds over the trailing snapshot window
const (
	pacingWindow        = 14
	underspendFraction  = 0.6
	underspendMaxLostIS = 0.05
	increaseMinLostIS   = 0.15
	increaseMinConvRate = 0.02
	increaseFactor      = 1.25

	ctrRecentWindow = 3
	ctrBaseWindow   = 4
	ctrDropFraction = 0.8
)

// analyzeBudget looks at the last 14 campaign snapshots for
// underspending, budget-capped campaigns that convert, and CTR decay
func (e *Engine) analyzeBudget(ctx context.Context, campaign *models.Campaign) ([]*models.Recommendation, error) {
	entityType := models.EntityTypeCampaign
	snaps, err := e.repo.ListPerformanceSnapshots(ctx, storage.PerformanceFilter{
		EntityType: &entityType,
		EntityID:   &campaign.ID,
		Limit:      pacingWindow,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var totalCost, totalLostIS float64
	var totalClicks, totalConversions int
	for _, snap := range snaps {
		totalCost += snap.Cost
		totalLostIS += snap.SearchLostISBudget
		totalClicks += snap.Clicks
		totalConversions += snap.Conversions
	}
	avgSpend := totalCost / float64(len(snaps))
	avgLostIS := totalLostIS / float64(len(snaps))
	convRate := 0.0
	if totalClicks > 0 {
		convRate = float64(totalConversions) / float64(totalClicks)
	}

	var recs []*models.Recommendation

	if avgSpend < underspendFraction*campaign.Budget && avgLostIS < underspendMaxLostIS {
		recs = append(recs, &models.Recommendation{
			CampaignID:  uintPtr(campaign.ID),
			Type:        models.RecommendationBudgetPacing,
			Priority:    models.PriorityLow,
			Title:       fmt.Sprintf("Campaign %q is underspending", campaign.Name),
			Description: fmt.Sprintf("Average daily spend is $%.2f against a $%.2f budget with almost no impression share lost to budget. The budget is not the constraint here.", avgSpend, campaign.Budget),
			Impact:      "Freed budget could fund constrained campaigns.",
			ActionRequired: models.JSON{
				"action":      "review_budget",
				"campaign_id": float64(campaign.ID),
				"avg_spend":   round2(avgSpend),
			},
			Fingerprint: fingerprint(models.RecommendationBudgetPacing, fmt.Sprint(campaign.ID)),
		})
	}

	if avgLostIS > increaseMinLostIS && convRate > increaseMinConvRate {
		newBudget := round2(campaign.Budget * increaseFactor)
		recs = append(recs, &models.Recommendation{
			CampaignID:  uintPtr(campaign.ID),
			Type:        models.RecommendationBudgetIncrease,
			Priority:    models.PriorityHigh,
			Title:       fmt.Sprintf("Raise budget for %q by 25%%", campaign.Name),
			Description: fmt.Sprintf("The campaign loses %.0f%% of impression share to budget while converting at %.2f%%. A budget of $%.2f would capture more of that demand.", avgLostIS*100, convRate*100, newBudget),
			Impact:      "Converting demand is currently being turned away.",
			ActionRequired: models.JSON{
				"action":      "adjust_budget",
				"campaign_id": float64(campaign.ID),
				"new_budget":  newBudget,
			},
			Fingerprint: fingerprint(models.RecommendationBudgetIncrease, fmt.Sprint(campaign.ID)),
		})
	}

	// Snapshots are ordered newest first: [0,3) recent, [3,7) baseline
	if len(snaps) >= ctrRecentWindow+ctrBaseWindow {
		recent := avgCTR(snaps[:ctrRecentWindow])
		baseline := avgCTR(snaps[ctrRecentWindow : ctrRecentWindow+ctrBaseWindow])
		if baseline > 0 && recent < baseline*ctrDropFraction {
			recs = append(recs, &models.Recommendation{
				CampaignID:  uintPtr(campaign.ID),
				Type:        models.RecommendationAdCopyRefresh,
				Priority:    models.PriorityMedium,
				Title:       fmt.Sprintf("CTR is decaying on %q", campaign.Name),
				Description: fmt.Sprintf("CTR over the last %d snapshots (%.2f%%) dropped more than 20%% below the preceding %d-snapshot average (%.2f%%). Ad fatigue is the usual cause.", ctrRecentWindow, recent*100, ctrBaseWindow, baseline*100),
				Impact:      "Decaying CTR lowers quality score and raises CPC.",
				ActionRequired: models.JSON{
					"action":      "regenerate_ad_copy",
					"campaign_id": float64(campaign.ID),
				},
				Fingerprint: fingerprint(models.RecommendationAdCopyRefresh, "decay", fmt.Sprint(campaign.ID)),
			})
		}
	}

	return recs, nil
}

func avgCTR(snaps []*models.PerformanceSnapshot) float64 {
	if len(snaps) == 0 {
		return 0
	}
	var sum float64
	for _, snap := range snaps {
		sum += snap.CTR
	}
	return sum / float64(len(snaps))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

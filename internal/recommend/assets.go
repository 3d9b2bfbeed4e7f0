package recommend

import (
	"context"
	"fmt"

	"github.com/adpilot/internal/models"
)

// Google's per-asset performance labels
const (
	assetLabelLow  = "Low"
	assetLabelBest = "Best"
)

// Pinning more assets than this defeats RSA combination testing
const maxPinnedAssets = 2

// analyzeAssets reads the externally populated per-asset performance
// labels and flags low performers, over-pinning, and best performers
// worth a generated variant
func (e *Engine) analyzeAssets(ctx context.Context, campaign *models.Campaign, minImpressions int) ([]*models.Recommendation, error) {
	groups, err := e.repo.ListAdGroups(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	var recs []*models.Recommendation
	for _, group := range groups {
		ads, err := e.repo.ListAds(ctx, group.ID)
		if err != nil {
			return nil, err
		}

		for _, ad := range ads {
			assets, err := e.repo.ListAssetPerformanceByAd(ctx, ad.ID)
			if err != nil {
				return nil, err
			}
			if len(assets) == 0 {
				continue
			}

			pinned := 0
			for _, asset := range assets {
				if asset.PinnedPosition != nil {
					pinned++
				}

				switch {
				case asset.PerformanceLabel == assetLabelLow && asset.Impressions >= minImpressions:
					recs = append(recs, &models.Recommendation{
						CampaignID:  uintPtr(campaign.ID),
						AdGroupID:   uintPtr(group.ID),
						AdID:        uintPtr(ad.ID),
						Type:        models.RecommendationRemoveLowAsset,
						Priority:    models.PriorityHigh,
						Title:       fmt.Sprintf("Remove low-performing %s", asset.AssetType),
						Description: fmt.Sprintf("The %s %q is rated Low after %d impressions. Replacing it frees a slot for a stronger variant.", asset.AssetType, asset.AssetText, asset.Impressions),
						Impact:      "Low-rated assets drag down the whole ad's serving share.",
						ActionRequired: models.JSON{
							"action":     "remove_asset",
							"ad_id":      float64(ad.ID),
							"asset_text": asset.AssetText,
							"asset_type": string(asset.AssetType),
						},
						AutoApplyEligible: true,
						Fingerprint:       fingerprint(models.RecommendationRemoveLowAsset, fmt.Sprint(ad.ID), string(asset.AssetType), asset.AssetText),
					})
				case asset.PerformanceLabel == assetLabelBest:
					recs = append(recs, &models.Recommendation{
						CampaignID:  uintPtr(campaign.ID),
						AdGroupID:   uintPtr(group.ID),
						AdID:        uintPtr(ad.ID),
						Type:        models.RecommendationAddAssetVariant,
						Priority:    models.PriorityLow,
						Title:       fmt.Sprintf("Build on best %s", asset.AssetType),
						Description: fmt.Sprintf("The %s %q is rated Best. Generating close variants of proven copy usually outperforms starting from scratch.", asset.AssetType, asset.AssetText),
						Impact:      "More variants of winning copy raise expected CTR.",
						ActionRequired: models.JSON{
							"action":     "generate_variant",
							"ad_id":      float64(ad.ID),
							"asset_text": asset.AssetText,
							"asset_type": string(asset.AssetType),
						},
						AutoApplyEligible: true,
						Fingerprint:       fingerprint(models.RecommendationAddAssetVariant, fmt.Sprint(ad.ID), string(asset.AssetType), asset.AssetText),
					})
				}
			}

			if pinned > maxPinnedAssets {
				recs = append(recs, &models.Recommendation{
					CampaignID:  uintPtr(campaign.ID),
					AdGroupID:   uintPtr(group.ID),
					AdID:        uintPtr(ad.ID),
					Type:        models.RecommendationUnpinnedAsset,
					Priority:    models.PriorityMedium,
					Title:       fmt.Sprintf("Ad %d has %d pinned assets", ad.ID, pinned),
					Description: "Pinning assets to fixed positions stops Google from testing combinations. Keep at most two pins.",
					Impact:      "Over-pinning reduces the combinations tested and caps ad strength.",
					ActionRequired: models.JSON{
						"action": "review_pins",
						"ad_id":  float64(ad.ID),
					},
					Fingerprint: fingerprint(models.RecommendationUnpinnedAsset, fmt.Sprint(ad.ID)),
				})
			}
		}
	}

	return recs, nil
}

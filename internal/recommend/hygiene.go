package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/adpilot/internal/models"
)

// analyzeStructure flags structural problems: ad groups with no
// keywords or no ads, thin ads, the same keyword targeted from several
// ad groups, and campaigns with no negative keywords at all
func (e *Engine) analyzeStructure(ctx context.Context, campaign *models.Campaign) ([]*models.Recommendation, error) {
	groups, err := e.repo.ListAdGroups(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	var recs []*models.Recommendation

	// keyword text -> ad group names targeting it
	keywordGroups := make(map[string][]string)

	for _, group := range groups {
		ads, err := e.repo.ListAds(ctx, group.ID)
		if err != nil {
			return nil, err
		}

		if len(group.Keywords) == 0 || len(ads) == 0 {
			missing := "keywords"
			if len(group.Keywords) > 0 {
				missing = "ads"
			}
			recs = append(recs, &models.Recommendation{
				CampaignID:  uintPtr(campaign.ID),
				AdGroupID:   uintPtr(group.ID),
				Type:        models.RecommendationOrphanedAdGroup,
				Priority:    models.PriorityHigh,
				Title:       fmt.Sprintf("Ad group %q has no %s", group.Name, missing),
				Description: fmt.Sprintf("Ad group %q cannot serve: it has %d keywords and %d ads. Add the missing pieces or pause the ad group.", group.Name, len(group.Keywords), len(ads)),
				Impact:      "Wasted structure; the ad group never enters an auction.",
				ActionRequired: models.JSON{
					"action":      "review_ad_group",
					"ad_group_id": float64(group.ID),
				},
				Fingerprint: fingerprint(models.RecommendationOrphanedAdGroup, fmt.Sprint(campaign.ID), fmt.Sprint(group.ID)),
			})
		}

		for _, ad := range ads {
			if len(ad.Headlines) < 3 || len(ad.Descriptions) < 2 {
				recs = append(recs, &models.Recommendation{
					CampaignID:  uintPtr(campaign.ID),
					AdGroupID:   uintPtr(group.ID),
					AdID:        uintPtr(ad.ID),
					Type:        models.RecommendationAdCopyRefresh,
					Priority:    models.PriorityMedium,
					Title:       fmt.Sprintf("Ad %d is under-filled", ad.ID),
					Description: fmt.Sprintf("The ad has %d headlines and %d descriptions; responsive search ads need at least 3 and 2 to serve well.", len(ad.Headlines), len(ad.Descriptions)),
					Impact:      "Fewer asset combinations lowers ad strength and CTR.",
					ActionRequired: models.JSON{
						"action": "regenerate_ad_copy",
						"ad_id":  float64(ad.ID),
					},
					Fingerprint: fingerprint(models.RecommendationAdCopyRefresh, "thin", fmt.Sprint(ad.ID)),
				})
			}
		}

		// Dedupe within the group so an internal duplicate does not
		// count as cross-group overlap
		groupKeywords := make(map[string]bool)
		for _, kw := range group.Keywords {
			normalized := strings.ToLower(strings.TrimSpace(kw.Text))
			if normalized == "" || groupKeywords[normalized] {
				continue
			}
			groupKeywords[normalized] = true
			keywordGroups[normalized] = append(keywordGroups[normalized], group.Name)
		}
	}

	for keyword, groupNames := range keywordGroups {
		if len(groupNames) < 2 {
			continue
		}
		recs = append(recs, &models.Recommendation{
			CampaignID:  uintPtr(campaign.ID),
			Type:        models.RecommendationOverlappingKeywords,
			Priority:    models.PriorityMedium,
			Title:       fmt.Sprintf("Keyword %q targeted by %d ad groups", keyword, len(groupNames)),
			Description: fmt.Sprintf("The keyword %q appears in ad groups %s. Overlapping keywords compete against each other in the same auction.", keyword, strings.Join(groupNames, ", ")),
			Impact:      "Internal competition inflates CPC and muddies per-ad-group reporting.",
			ActionRequired: models.JSON{
				"action":  "review_keyword_overlap",
				"keyword": keyword,
			},
			Fingerprint: fingerprint(models.RecommendationOverlappingKeywords, fmt.Sprint(campaign.ID), keyword),
		})
	}

	negatives, err := e.repo.ListNegativeKeywords(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if len(negatives) == 0 {
		recs = append(recs, &models.Recommendation{
			CampaignID:  uintPtr(campaign.ID),
			Type:        models.RecommendationMissingNegatives,
			Priority:    models.PriorityMedium,
			Title:       fmt.Sprintf("Campaign %q has no negative keywords", campaign.Name),
			Description: "No negative keywords are set on this campaign. Even a small starter list cuts spend on irrelevant queries.",
			Impact:      "Ads serve on unrelated searches, wasting budget.",
			ActionRequired: models.JSON{
				"action":      "review_negatives",
				"campaign_id": float64(campaign.ID),
			},
			Fingerprint: fingerprint(models.RecommendationMissingNegatives, fmt.Sprint(campaign.ID)),
		})
	}

	return recs, nil
}

package recommend

import (
	"context"
	"strings"
	"testing"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

func seedRecommendation(t *testing.T, repo storage.Repository, rec *models.Recommendation) *models.Recommendation {
	t.Helper()
	if err := repo.CreateRecommendations(context.Background(), []*models.Recommendation{rec}); err != nil {
		t.Fatalf("create recommendation: %v", err)
	}
	return rec
}

func TestApplyAddNegativeKeyword(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "running shoes")
	term := &models.SearchTerm{
		CampaignID:  campaign.ID,
		AdGroupID:   group.ID,
		Term:        "free shoe repair",
		Impressions: 200,
		Clicks:      1,
	}
	if err := repo.CreateSearchTerm(ctx, term); err != nil {
		t.Fatalf("create search term: %v", err)
	}

	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		AdGroupID:  &group.ID,
		Type:       models.RecommendationSearchTermNegative,
		Title:      "Add negative keyword",
		ActionRequired: models.JSON{
			"action":         "add_negative_keyword",
			"keyword":        "free shoe repair",
			"match_type":     "exact",
			"level":          "ad_group",
			"ad_group_id":    float64(group.ID),
			"search_term_id": float64(term.ID),
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("apply failed: %s", outcome.Message)
	}
	if len(outcome.Changes) != 2 {
		t.Errorf("changes = %v, want negative insert and term update", outcome.Changes)
	}

	negatives, err := repo.ListNegativeKeywords(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("list negatives: %v", err)
	}
	if len(negatives) != 1 {
		t.Fatalf("negatives = %d, want 1", len(negatives))
	}
	negative := negatives[0]
	if negative.KeywordText != "free shoe repair" {
		t.Errorf("keyword = %q", negative.KeywordText)
	}
	if negative.MatchType != models.MatchTypeExact {
		t.Errorf("match type = %s, want exact", negative.MatchType)
	}
	if negative.Level != models.NegativeLevelAdGroup {
		t.Errorf("level = %s, want ad_group", negative.Level)
	}
	if negative.AdGroupID == nil || *negative.AdGroupID != group.ID {
		t.Errorf("ad group id = %v, want %d", negative.AdGroupID, group.ID)
	}
	if negative.Source != models.KeywordSourceAutomated {
		t.Errorf("source = %s, want automated", negative.Source)
	}

	gotTerm, err := repo.GetSearchTermByID(ctx, term.ID)
	if err != nil {
		t.Fatalf("get search term: %v", err)
	}
	if gotTerm.Status != models.SearchTermStatusAddedAsNegative {
		t.Errorf("term status = %s, want added_as_negative", gotTerm.Status)
	}

	gotRec, err := repo.GetRecommendationByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recommendation: %v", err)
	}
	if gotRec.Status != models.RecommendationStatusApplied {
		t.Errorf("recommendation status = %s, want applied", gotRec.Status)
	}
	if gotRec.AppliedAt == nil {
		t.Error("applied_at not set")
	}
}

func TestApplyAddKeyword(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "running shoes")
	term := &models.SearchTerm{
		CampaignID:  campaign.ID,
		AdGroupID:   group.ID,
		Term:        "trail running shoes",
		Impressions: 80,
		Clicks:      6,
		Conversions: 2,
	}
	if err := repo.CreateSearchTerm(ctx, term); err != nil {
		t.Fatalf("create search term: %v", err)
	}

	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		AdGroupID:  &group.ID,
		Type:       models.RecommendationSearchTermPositive,
		Title:      "Add keyword",
		ActionRequired: models.JSON{
			"action":         "add_keyword",
			"keyword":        "trail running shoes",
			"ad_group_id":    float64(group.ID),
			"search_term_id": float64(term.ID),
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("apply failed: %s", outcome.Message)
	}

	gotGroup, err := repo.GetAdGroupByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get ad group: %v", err)
	}
	if len(gotGroup.Keywords) != 2 {
		t.Fatalf("keywords = %d, want 2", len(gotGroup.Keywords))
	}
	if !gotGroup.Keywords.Contains("trail running shoes") {
		t.Error("keyword list missing the applied term")
	}

	gotTerm, err := repo.GetSearchTermByID(ctx, term.ID)
	if err != nil {
		t.Fatalf("get search term: %v", err)
	}
	if gotTerm.Status != models.SearchTermStatusAddedAsPositive {
		t.Errorf("term status = %s, want added_as_positive", gotTerm.Status)
	}
}

func TestApplyAddKeywordAlreadyPresent(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "Trail Running Shoes")

	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		AdGroupID:  &group.ID,
		Type:       models.RecommendationSearchTermPositive,
		Title:      "Add keyword",
		ActionRequired: models.JSON{
			"action":      "add_keyword",
			"keyword":     "trail running shoes",
			"ad_group_id": float64(group.ID),
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("apply failed: %s", outcome.Message)
	}

	gotGroup, err := repo.GetAdGroupByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get ad group: %v", err)
	}
	if len(gotGroup.Keywords) != 1 {
		t.Errorf("keywords = %d, want 1 (no duplicate appended)", len(gotGroup.Keywords))
	}
}

func TestApplyNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	outcome, err := engine.Apply(context.Background(), 424242)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if outcome.Success {
		t.Error("apply of missing recommendation reported success")
	}
	if !strings.Contains(outcome.Message, "not found") {
		t.Errorf("message = %q, want a not-found explanation", outcome.Message)
	}
}

func TestApplyRequiresEligibility(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationBudgetIncrease,
		Title:      "Raise budget",
		ActionRequired: models.JSON{
			"action":     "adjust_budget",
			"new_budget": 125.0,
		},
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if outcome.Success {
		t.Error("ineligible recommendation was applied")
	}

	got, err := repo.GetRecommendationByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recommendation: %v", err)
	}
	if got.Status != models.RecommendationStatusPending {
		t.Errorf("status = %s, want pending untouched", got.Status)
	}
}

func TestApplyAlreadyApplied(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes")
	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationSearchTermPositive,
		Title:      "Add keyword",
		ActionRequired: models.JSON{
			"action":      "add_keyword",
			"keyword":     "trail running shoes",
			"ad_group_id": float64(group.ID),
		},
		AutoApplyEligible: true,
	})

	first, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !first.Success {
		t.Fatalf("first apply failed: %s", first.Message)
	}

	second, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.Success {
		t.Error("second apply of the same recommendation reported success")
	}

	gotGroup, err := repo.GetAdGroupByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get ad group: %v", err)
	}
	if len(gotGroup.Keywords) != 1 {
		t.Errorf("keywords = %d, want 1 (apply must not repeat)", len(gotGroup.Keywords))
	}
}

func TestApplyUnsupportedAction(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationAddAssetVariant,
		Title:      "Build on best headline",
		ActionRequired: models.JSON{
			"action":     "generate_variant",
			"asset_text": "Run Faster Today",
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if outcome.Success {
		t.Error("unsupported action reported success")
	}
	if !strings.Contains(outcome.Message, "unsupported action") {
		t.Errorf("message = %q, want unsupported action explanation", outcome.Message)
	}

	got, err := repo.GetRecommendationByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recommendation: %v", err)
	}
	if got.Status != models.RecommendationStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestApplyRollsBackOnMissingSearchTerm(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "running shoes")

	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		AdGroupID:  &group.ID,
		Type:       models.RecommendationSearchTermNegative,
		Title:      "Add negative keyword",
		ActionRequired: models.JSON{
			"action":         "add_negative_keyword",
			"keyword":        "free shoe repair",
			"level":          "ad_group",
			"ad_group_id":    float64(group.ID),
			"search_term_id": float64(9999),
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if outcome.Success {
		t.Error("apply with missing search term reported success")
	}

	// The negative insert from the same transaction must be gone
	negatives, err := repo.ListNegativeKeywords(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("list negatives: %v", err)
	}
	if len(negatives) != 0 {
		t.Errorf("negatives = %d, want 0 after rollback", len(negatives))
	}

	got, err := repo.GetRecommendationByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recommendation: %v", err)
	}
	if got.Status != models.RecommendationStatusPending {
		t.Errorf("status = %s, want pending after rollback", got.Status)
	}
}

func TestApplyRemoveAssetPlaceholder(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	rec := seedRecommendation(t, repo, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationRemoveLowAsset,
		Title:      "Remove low-performing headline",
		ActionRequired: models.JSON{
			"action":     "remove_asset",
			"asset_text": "Buy Things Here",
		},
		AutoApplyEligible: true,
	})

	outcome, err := engine.Apply(ctx, rec.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("apply failed: %s", outcome.Message)
	}

	got, err := repo.GetRecommendationByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recommendation: %v", err)
	}
	if got.Status != models.RecommendationStatusApplied {
		t.Errorf("status = %s, want applied", got.Status)
	}
}

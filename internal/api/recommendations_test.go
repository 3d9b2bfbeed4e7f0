package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/recommend"
)

func (ts *testServer) seedRecommendation(t *testing.T, rec *models.Recommendation) *models.Recommendation {
	t.Helper()
	if rec.Status == "" {
		rec.Status = models.RecommendationStatusPending
	}
	if err := ts.repo.CreateRecommendations(context.Background(), []*models.Recommendation{rec}); err != nil {
		t.Fatalf("Failed to seed recommendation: %v", err)
	}
	return rec
}

func TestGenerateRecommendations(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)
	ts.seedAdGroup(t, campaign.ID, "Empty Group")

	rec := ts.do(t, "POST", "/api/v1/recommendations/generate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result recommend.RunResult
	unmarshalData(t, decodeEnvelope(t, rec), &result)
	if result.CampaignsAnalyzed != 1 {
		t.Errorf("CampaignsAnalyzed = %d, want 1", result.CampaignsAnalyzed)
	}
	if result.Created == 0 {
		t.Fatal("Created = 0, want findings for the empty ad group")
	}
	if result.StructureFindings == 0 {
		t.Error("StructureFindings = 0, want at least 1")
	}

	// The same findings on a second run are deduplicated away.
	rec = ts.do(t, "POST", "/api/v1/recommendations/generate", nil)
	unmarshalData(t, decodeEnvelope(t, rec), &result)
	if result.Created != 0 {
		t.Errorf("Created on rerun = %d, want 0", result.Created)
	}
	if result.DuplicatesSkipped == 0 {
		t.Error("DuplicatesSkipped = 0, want skips on rerun")
	}
}

func TestGenerateRecommendationsCampaignFilter(t *testing.T) {
	ts := newTestServer(t)
	paused := ts.seedCampaign(t, "Paused", 10, models.CampaignStatusPaused)
	ts.seedAdGroup(t, paused.ID, "Empty Group")

	// Naming the campaign bypasses the active-only default, and a body
	// with no analyzer flags still runs all of them.
	rec := ts.do(t, "POST", "/api/v1/recommendations/generate", map[string]interface{}{
		"campaign_ids": []uint{paused.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result recommend.RunResult
	unmarshalData(t, decodeEnvelope(t, rec), &result)
	if result.CampaignsAnalyzed != 1 {
		t.Errorf("CampaignsAnalyzed = %d, want the named paused campaign", result.CampaignsAnalyzed)
	}
	if result.Created == 0 {
		t.Error("Created = 0, want findings")
	}
}

func TestListRecommendationsStatusFilter(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)

	ts.seedRecommendation(t, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationOrphanedAdGroup,
		Title:      "Pending finding",
	})
	ts.seedRecommendation(t, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationAdCopyRefresh,
		Title:      "Dismissed finding",
		Status:     models.RecommendationStatusDismissed,
	})

	rec := ts.do(t, "GET", "/api/v1/campaigns/"+itoa(campaign.ID)+"/recommendations?status=pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed []*models.Recommendation
	unmarshalData(t, decodeEnvelope(t, rec), &listed)
	if len(listed) != 1 {
		t.Fatalf("Recommendations = %d, want 1", len(listed))
	}
	if listed[0].Title != "Pending finding" {
		t.Errorf("Title = %q, want the pending one", listed[0].Title)
	}

	rec = ts.do(t, "GET", "/api/v1/campaigns/"+itoa(campaign.ID)+"/recommendations?status=maybe", nil)
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

func TestApplyRecommendation(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)

	seeded := ts.seedRecommendation(t, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationSearchTermNegative,
		Title:      "Block wasted query",
		ActionRequired: models.JSON{
			"action":     "add_negative_keyword",
			"keyword":    "free shoes",
			"match_type": "exact",
		},
		AutoApplyEligible: true,
	})

	rec := ts.do(t, "POST", "/api/v1/recommendations/"+itoa(seeded.ID)+"/apply", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("Expected success=true, got error %+v", env.Error)
	}

	var outcome recommend.ApplyOutcome
	unmarshalData(t, env, &outcome)
	if !outcome.Success || len(outcome.Changes) == 0 {
		t.Fatalf("Outcome = %+v, want success with changes", outcome)
	}

	negatives, err := ts.repo.ListNegativeKeywords(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("Failed to list negatives: %v", err)
	}
	if len(negatives) != 1 || negatives[0].KeywordText != "free shoes" {
		t.Fatalf("Negatives = %+v, want the applied keyword", negatives)
	}
	if negatives[0].Source != models.KeywordSourceAutomated {
		t.Errorf("Source = %q, want automated", negatives[0].Source)
	}

	applied, err := ts.repo.GetRecommendationByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Failed to load recommendation: %v", err)
	}
	if applied.Status != models.RecommendationStatusApplied {
		t.Errorf("Status = %q, want applied", applied.Status)
	}
	if applied.AppliedAt == nil {
		t.Error("AppliedAt not set")
	}
}

func TestApplyRecommendationRequiresReview(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)

	seeded := ts.seedRecommendation(t, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationBudgetIncrease,
		Title:      "Raise budget",
		ActionRequired: models.JSON{
			"action": "increase_budget",
		},
	})

	rec := ts.do(t, "POST", "/api/v1/recommendations/"+itoa(seeded.ID)+"/apply", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("Expected success=false for a manual-review recommendation")
	}
	if env.Error == nil || env.Error.Code != codeApplyFailed {
		t.Fatalf("Error = %+v, want code %s", env.Error, codeApplyFailed)
	}
	if !strings.Contains(env.Error.Message, "manual review") {
		t.Errorf("Message = %q, want manual review reason", env.Error.Message)
	}
}

func TestApplyRecommendationNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/recommendations/999/apply", nil)
	requireError(t, rec, http.StatusNotFound, codeNotFound)
}

func TestDismissRecommendation(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)

	seeded := ts.seedRecommendation(t, &models.Recommendation{
		CampaignID: &campaign.ID,
		Type:       models.RecommendationMissingNegatives,
		Title:      "Add starter negatives",
	})

	rec := ts.do(t, "POST", "/api/v1/recommendations/"+itoa(seeded.ID)+"/dismiss", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var dismissed models.Recommendation
	unmarshalData(t, decodeEnvelope(t, rec), &dismissed)
	if dismissed.Status != models.RecommendationStatusDismissed {
		t.Errorf("Status = %q, want dismissed", dismissed.Status)
	}

	stored, err := ts.repo.GetRecommendationByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("Failed to load recommendation: %v", err)
	}
	if stored.Status != models.RecommendationStatusDismissed {
		t.Errorf("Stored status = %q, want dismissed", stored.Status)
	}
}

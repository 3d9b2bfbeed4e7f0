package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

func TestCreateCampaign(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/campaigns", map[string]interface{}{
		"name":   "Brand Search",
		"budget": 50.0,
		"status": "active",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatal("Expected success=true")
	}
	var campaign models.Campaign
	unmarshalData(t, env, &campaign)
	if campaign.ID == 0 {
		t.Error("Campaign has no id")
	}
	if campaign.Name != "Brand Search" {
		t.Errorf("Name = %q, want %q", campaign.Name, "Brand Search")
	}

	stored, err := ts.repo.GetCampaignByID(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Failed to load campaign: %v", err)
	}
	if stored.Status != models.CampaignStatusActive {
		t.Errorf("Status = %q, want active", stored.Status)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/campaigns", map[string]interface{}{
		"budget": -5.0,
		"status": "running",
	})
	env := requireError(t, rec, http.StatusBadRequest, codeValidation)

	details, ok := env.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("Details = %T, want field map", env.Error.Details)
	}
	for _, field := range []string{"name", "budget", "status"} {
		if _, found := details[field]; !found {
			t.Errorf("Details missing field %q", field)
		}
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/v1/campaigns/999", nil)
	requireError(t, rec, http.StatusNotFound, codeNotFound)
}

func TestListCampaignsStatusFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.seedCampaign(t, "Active One", 10, models.CampaignStatusActive)
	ts.seedCampaign(t, "Paused One", 10, models.CampaignStatusPaused)

	rec := ts.do(t, "GET", "/api/v1/campaigns?status=active", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	env := decodeEnvelope(t, rec)

	var campaigns []*models.Campaign
	unmarshalData(t, env, &campaigns)
	if len(campaigns) != 1 {
		t.Fatalf("Campaigns = %d, want 1", len(campaigns))
	}
	if campaigns[0].Name != "Active One" {
		t.Errorf("Name = %q, want %q", campaigns[0].Name, "Active One")
	}
	if env.Meta == nil || env.Meta.Count != 1 {
		t.Errorf("Meta = %+v, want count 1", env.Meta)
	}

	rec = ts.do(t, "GET", "/api/v1/campaigns?status=running", nil)
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

func TestUpdateCampaign(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Brand", 20, models.CampaignStatusActive)

	rec := ts.do(t, "PUT", "/api/v1/campaigns/"+itoa(campaign.ID), map[string]interface{}{
		"budget": 99.5,
		"status": "paused",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	stored, err := ts.repo.GetCampaignByID(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Failed to load campaign: %v", err)
	}
	if stored.Budget != 99.5 {
		t.Errorf("Budget = %v, want 99.5", stored.Budget)
	}
	if stored.Status != models.CampaignStatusPaused {
		t.Errorf("Status = %q, want paused", stored.Status)
	}
	if stored.Name != "Brand" {
		t.Errorf("Name = %q, want unchanged %q", stored.Name, "Brand")
	}
}

func TestDeleteCampaignCascades(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Doomed", 10, models.CampaignStatusActive)
	group := ts.seedAdGroup(t, campaign.ID, "Group", "running shoes")
	ad := ts.seedAd(t, group.ID)

	rec := ts.do(t, "DELETE", "/api/v1/campaigns/"+itoa(campaign.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	ctx := context.Background()
	if _, err := ts.repo.GetCampaignByID(ctx, campaign.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Campaign error = %v, want ErrNotFound", err)
	}
	if _, err := ts.repo.GetAdGroupByID(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Ad group error = %v, want ErrNotFound", err)
	}
	if _, err := ts.repo.GetAdByID(ctx, ad.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Ad error = %v, want ErrNotFound", err)
	}
}

func TestDuplicateCampaign(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	campaign := ts.seedCampaign(t, "Shoes", 50, models.CampaignStatusActive)
	group := ts.seedAdGroup(t, campaign.ID, "Running", "running shoes", "trail shoes")
	ts.seedAd(t, group.ID)
	negative := &models.NegativeKeyword{
		CampaignID:  campaign.ID,
		KeywordText: "free",
		MatchType:   models.MatchTypeBroad,
		Level:       models.NegativeLevelCampaign,
		Source:      models.KeywordSourceManual,
	}
	if err := ts.repo.CreateNegativeKeyword(ctx, negative); err != nil {
		t.Fatalf("Failed to seed negative: %v", err)
	}

	rec := ts.do(t, "POST", "/api/v1/campaigns/"+itoa(campaign.ID)+"/duplicate", map[string]interface{}{
		"name": "Shoes Clone",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var result duplicateResult
	unmarshalData(t, env, &result)
	if result.Campaign == nil || result.Campaign.ID == campaign.ID {
		t.Fatalf("Duplicate = %+v, want fresh campaign", result.Campaign)
	}
	if result.AdGroups != 1 || result.Ads != 1 || result.Negatives != 1 {
		t.Errorf("Copied %d/%d/%d groups/ads/negatives, want 1/1/1",
			result.AdGroups, result.Ads, result.Negatives)
	}

	dup, err := ts.repo.GetCampaignByID(ctx, result.Campaign.ID)
	if err != nil {
		t.Fatalf("Failed to load duplicate: %v", err)
	}
	if dup.Name != "Shoes Clone" {
		t.Errorf("Name = %q, want %q", dup.Name, "Shoes Clone")
	}
	if dup.Status != models.CampaignStatusDraft {
		t.Errorf("Status = %q, want draft", dup.Status)
	}

	groups, err := ts.repo.ListAdGroups(ctx, dup.ID)
	if err != nil {
		t.Fatalf("Failed to list groups: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Keywords) != 2 {
		t.Fatalf("Duplicate groups = %+v, want 1 group with 2 keywords", groups)
	}
}

func TestBulkCampaignStatus(t *testing.T) {
	ts := newTestServer(t)
	first := ts.seedCampaign(t, "First", 10, models.CampaignStatusActive)
	second := ts.seedCampaign(t, "Second", 10, models.CampaignStatusActive)

	rec := ts.do(t, "PUT", "/api/v1/campaigns/bulk/status", map[string]interface{}{
		"ids":    []uint{first.ID, second.ID},
		"status": "paused",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	for _, id := range []uint{first.ID, second.ID} {
		stored, err := ts.repo.GetCampaignByID(context.Background(), id)
		if err != nil {
			t.Fatalf("Failed to load campaign %d: %v", id, err)
		}
		if stored.Status != models.CampaignStatusPaused {
			t.Errorf("Campaign %d status = %q, want paused", id, stored.Status)
		}
	}

	rec = ts.do(t, "PUT", "/api/v1/campaigns/bulk/status", map[string]interface{}{
		"ids": []uint{}, "status": "paused",
	})
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

func TestCreateNegativeLevels(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)
	group := ts.seedAdGroup(t, campaign.ID, "Running")

	rec := ts.do(t, "POST", "/api/v1/campaigns/"+itoa(campaign.ID)+"/negatives", map[string]interface{}{
		"keyword_text": "free",
		"match_type":   "exact",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var negative models.NegativeKeyword
	unmarshalData(t, decodeEnvelope(t, rec), &negative)
	if negative.Level != models.NegativeLevelCampaign {
		t.Errorf("Level = %q, want campaign", negative.Level)
	}
	if negative.MatchType != models.MatchTypeExact {
		t.Errorf("MatchType = %q, want exact", negative.MatchType)
	}

	rec = ts.do(t, "POST", "/api/v1/campaigns/"+itoa(campaign.ID)+"/negatives", map[string]interface{}{
		"keyword_text": "cheap",
		"ad_group_id":  group.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusCreated)
	}
	unmarshalData(t, decodeEnvelope(t, rec), &negative)
	if negative.Level != models.NegativeLevelAdGroup {
		t.Errorf("Level = %q, want ad_group", negative.Level)
	}

	rec = ts.do(t, "POST", "/api/v1/campaigns/"+itoa(campaign.ID)+"/negatives", map[string]interface{}{
		"keyword_text": "spam",
		"match_type":   "semi-broad",
	})
	requireError(t, rec, http.StatusBadRequest, codeValidation)

	listRec := ts.do(t, "GET", "/api/v1/campaigns/"+itoa(campaign.ID)+"/negatives", nil)
	env := decodeEnvelope(t, listRec)
	if env.Meta == nil || env.Meta.Count != 2 {
		t.Errorf("Meta = %+v, want count 2", env.Meta)
	}
}

func TestDeleteNegative(t *testing.T) {
	ts := newTestServer(t)
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)

	negative := &models.NegativeKeyword{CampaignID: campaign.ID, KeywordText: "free"}
	if err := ts.repo.CreateNegativeKeyword(context.Background(), negative); err != nil {
		t.Fatalf("Failed to seed negative: %v", err)
	}

	rec := ts.do(t, "DELETE", "/api/v1/negatives/"+itoa(negative.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	remaining, err := ts.repo.ListNegativeKeywords(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Failed to list negatives: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Negatives = %d, want 0", len(remaining))
	}
}

func TestListSearchTerms(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	campaign := ts.seedCampaign(t, "Shoes", 10, models.CampaignStatusActive)
	group := ts.seedAdGroup(t, campaign.ID, "Running", "running shoes")

	terms := []*models.SearchTerm{
		{CampaignID: campaign.ID, AdGroupID: group.ID, Term: "running shoes sale", Impressions: 500, Clicks: 25},
		{CampaignID: campaign.ID, AdGroupID: group.ID, Term: "free shoes", Impressions: 40, Clicks: 1},
	}
	for _, term := range terms {
		if err := ts.repo.CreateSearchTerm(ctx, term); err != nil {
			t.Fatalf("Failed to seed search term: %v", err)
		}
	}

	rec := ts.do(t, "GET", "/api/v1/campaigns/"+itoa(campaign.ID)+"/searchterms?min_impressions=100", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed []*models.SearchTerm
	unmarshalData(t, decodeEnvelope(t, rec), &listed)
	if len(listed) != 1 {
		t.Fatalf("Terms = %d, want 1", len(listed))
	}
	if listed[0].Term != "running shoes sale" {
		t.Errorf("Term = %q, want %q", listed[0].Term, "running shoes sale")
	}

	rec = ts.do(t, "GET", "/api/v1/campaigns/"+itoa(campaign.ID)+"/searchterms?status=bogus", nil)
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

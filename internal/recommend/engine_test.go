package recommend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/internal/storage/sqlite"
	"github.com/adpilot/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, storage.Repository) {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	log := logger.New(logger.Config{Level: "disabled"})
	return NewEngine(repo, log), repo
}

func seedActiveCampaign(t *testing.T, repo storage.Repository, name string, budget float64) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{Name: name, Budget: budget, Status: models.CampaignStatusActive}
	if err := repo.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return campaign
}

func seedAdGroup(t *testing.T, repo storage.Repository, campaignID uint, name string, keywords ...string) *models.AdGroup {
	t.Helper()
	group := &models.AdGroup{CampaignID: campaignID, Name: name}
	for _, kw := range keywords {
		group.Keywords = append(group.Keywords, models.Keyword{Text: kw})
	}
	if err := repo.CreateAdGroup(context.Background(), group); err != nil {
		t.Fatalf("create ad group: %v", err)
	}
	return group
}

func seedFullAd(t *testing.T, repo storage.Repository, adGroupID uint) *models.Ad {
	t.Helper()
	ad := &models.Ad{
		AdGroupID: adGroupID,
		Headlines: models.HeadlineList{
			{Text: "Run Faster Today", Category: models.HeadlineCategoryKeyword},
			{Text: "Free Shipping", Category: models.HeadlineCategoryValue},
			{Text: "Shop Now", Category: models.HeadlineCategoryCTA},
		},
		Descriptions: models.StringSlice{
			"Premium running shoes for every distance.",
			"Order today and get free returns for 30 days.",
		},
		FinalURL: "https://example.com/shoes",
	}
	if err := repo.CreateAd(context.Background(), ad); err != nil {
		t.Fatalf("create ad: %v", err)
	}
	return ad
}

func findByType(recs []*models.Recommendation, recType models.RecommendationType) []*models.Recommendation {
	var out []*models.Recommendation
	for _, rec := range recs {
		if rec.Type == recType {
			out = append(out, rec)
		}
	}
	return out
}

func TestGenerateOrphanedAdGroup(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Brand", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Empty Group")

	result, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected analyzer errors: %v", result.Errors)
	}
	if result.CampaignsAnalyzed != 1 {
		t.Fatalf("campaigns analyzed = %d, want 1", result.CampaignsAnalyzed)
	}

	orphans := findByType(result.Recommendations, models.RecommendationOrphanedAdGroup)
	if len(orphans) != 1 {
		t.Fatalf("orphaned_ad_group recs = %d, want 1", len(orphans))
	}
	orphan := orphans[0]
	if orphan.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want high", orphan.Priority)
	}
	if orphan.AdGroupID == nil || *orphan.AdGroupID != group.ID {
		t.Errorf("ad group id = %v, want %d", orphan.AdGroupID, group.ID)
	}
	if orphan.AutoApplyEligible {
		t.Error("structural findings must not be auto-apply eligible")
	}

	// A campaign with no negatives also gets flagged in the same pass
	if got := findByType(result.Recommendations, models.RecommendationMissingNegatives); len(got) != 1 {
		t.Errorf("missing_negatives recs = %d, want 1", len(got))
	}
	if result.StructureFindings != 2 {
		t.Errorf("structure findings = %d, want 2", result.StructureFindings)
	}
}

func TestGenerateThinAdFlagged(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Brand", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "running shoes")
	thin := &models.Ad{
		AdGroupID:    group.ID,
		Headlines:    models.HeadlineList{{Text: "Only One", Category: models.HeadlineCategoryGeneral}},
		Descriptions: models.StringSlice{"Just one description."},
		FinalURL:     "https://example.com",
	}
	if err := repo.CreateAd(ctx, thin); err != nil {
		t.Fatalf("create ad: %v", err)
	}

	result, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	refresh := findByType(result.Recommendations, models.RecommendationAdCopyRefresh)
	if len(refresh) != 1 {
		t.Fatalf("ad_copy_refresh recs = %d, want 1", len(refresh))
	}
	if refresh[0].AdID == nil || *refresh[0].AdID != thin.ID {
		t.Errorf("ad id = %v, want %d", refresh[0].AdID, thin.ID)
	}
	if got := refresh[0].ActionRequired.String("action"); got != "regenerate_ad_copy" {
		t.Errorf("action = %q, want regenerate_ad_copy", got)
	}
}

func TestGenerateOverlappingKeywords(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Brand", 50)
	groupA := seedAdGroup(t, repo, campaign.ID, "Group A", "Running Shoes", "trail shoes")
	groupB := seedAdGroup(t, repo, campaign.ID, "Group B", "  running shoes ")
	seedFullAd(t, repo, groupA.ID)
	seedFullAd(t, repo, groupB.ID)

	result, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	overlaps := findByType(result.Recommendations, models.RecommendationOverlappingKeywords)
	if len(overlaps) != 1 {
		t.Fatalf("overlapping_keywords recs = %d, want 1", len(overlaps))
	}
	if !strings.Contains(overlaps[0].Title, "running shoes") {
		t.Errorf("title %q does not name the overlapping keyword", overlaps[0].Title)
	}
}

func TestGenerateSearchTermNegative(t *testing.T) {
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
		Cost:        10,
		Conversions: 0,
	}
	if err := repo.CreateSearchTerm(ctx, term); err != nil {
		t.Fatalf("create search term: %v", err)
	}

	result, err := engine.Generate(ctx, Options{QueryMining: true, MinImpressions: 100})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	negatives := findByType(result.Recommendations, models.RecommendationSearchTermNegative)
	if len(negatives) != 1 {
		t.Fatalf("search_term_negative recs = %d, want 1", len(negatives))
	}
	rec := negatives[0]
	if !rec.AutoApplyEligible {
		t.Error("search_term_negative must be auto-apply eligible")
	}
	if rec.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want high", rec.Priority)
	}
	if got := rec.ActionRequired.String("action"); got != "add_negative_keyword" {
		t.Errorf("action = %q, want add_negative_keyword", got)
	}
	if got := rec.ActionRequired.String("keyword"); got != "free shoe repair" {
		t.Errorf("action keyword = %q, want the search term text", got)
	}
}

func TestGenerateSearchTermNegativeCostEscalation(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "running shoes")

	// Healthy CTR but real money spent with nothing to show for it
	term := &models.SearchTerm{
		CampaignID:  campaign.ID,
		AdGroupID:   group.ID,
		Term:        "shoe museum tickets",
		Impressions: 150,
		Clicks:      10,
		Cost:        60,
		Conversions: 0,
	}
	if err := repo.CreateSearchTerm(ctx, term); err != nil {
		t.Fatalf("create search term: %v", err)
	}

	result, err := engine.Generate(ctx, Options{QueryMining: true, MinImpressions: 100})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	negatives := findByType(result.Recommendations, models.RecommendationSearchTermNegative)
	if len(negatives) != 1 {
		t.Fatalf("search_term_negative recs = %d, want 1", len(negatives))
	}
	if negatives[0].Priority != models.PriorityCritical {
		t.Errorf("priority = %s, want critical for wasted spend", negatives[0].Priority)
	}
}

func TestGenerateSearchTermPositive(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Search", 50)
	group := seedAdGroup(t, repo, campaign.ID, "Shoes", "Running Shoes")

	converting := &models.SearchTerm{
		CampaignID:  campaign.ID,
		AdGroupID:   group.ID,
		Term:        "trail running shoes",
		Impressions: 80,
		Clicks:      6,
		Cost:        5,
		Conversions: 2,
	}
	// Same numbers, but the term is already a keyword in its ad group
	existing := &models.SearchTerm{
		CampaignID:  campaign.ID,
		AdGroupID:   group.ID,
		Term:        "running shoes",
		Impressions: 80,
		Clicks:      6,
		Cost:        5,
		Conversions: 2,
	}
	for _, term := range []*models.SearchTerm{converting, existing} {
		if err := repo.CreateSearchTerm(ctx, term); err != nil {
			t.Fatalf("create search term: %v", err)
		}
	}

	result, err := engine.Generate(ctx, Options{QueryMining: true, MinImpressions: 50})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	positives := findByType(result.Recommendations, models.RecommendationSearchTermPositive)
	if len(positives) != 1 {
		t.Fatalf("search_term_positive recs = %d, want 1", len(positives))
	}
	rec := positives[0]
	if !rec.AutoApplyEligible {
		t.Error("search_term_positive must be auto-apply eligible")
	}
	if got := rec.ActionRequired.String("keyword"); got != "trail running shoes" {
		t.Errorf("action keyword = %q, want %q", got, "trail running shoes")
	}
}

func TestGenerateBudgetIncrease(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Capped", 100)
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		snap := &models.PerformanceSnapshot{
			EntityType:         models.EntityTypeCampaign,
			EntityID:           campaign.ID,
			Date:               base.AddDate(0, 0, i),
			Impressions:        1000,
			Clicks:             100,
			Cost:               90,
			Conversions:        5,
			SearchLostISBudget: 0.2,
		}
		if err := repo.SavePerformanceSnapshot(ctx, snap); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}

	result, err := engine.Generate(ctx, Options{BudgetOptimization: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.BudgetFindings != 1 {
		t.Fatalf("budget findings = %d, want 1", result.BudgetFindings)
	}

	increases := findByType(result.Recommendations, models.RecommendationBudgetIncrease)
	if len(increases) != 1 {
		t.Fatalf("budget_increase recs = %d, want 1", len(increases))
	}
	rec := increases[0]
	if rec.AutoApplyEligible {
		t.Error("budget changes must not be auto-apply eligible")
	}
	if got := rec.ActionRequired.Float("new_budget"); got != 125 {
		t.Errorf("new_budget = %v, want 125 (25%% above 100)", got)
	}
}

func TestGenerateBudgetPacing(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Sleepy", 100)
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		snap := &models.PerformanceSnapshot{
			EntityType:         models.EntityTypeCampaign,
			EntityID:           campaign.ID,
			Date:               base.AddDate(0, 0, i),
			Impressions:        200,
			Clicks:             10,
			Cost:               30,
			SearchLostISBudget: 0.01,
		}
		if err := repo.SavePerformanceSnapshot(ctx, snap); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}

	result, err := engine.Generate(ctx, Options{BudgetOptimization: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	pacing := findByType(result.Recommendations, models.RecommendationBudgetPacing)
	if len(pacing) != 1 {
		t.Fatalf("budget_pacing recs = %d, want 1", len(pacing))
	}
	if pacing[0].Priority != models.PriorityLow {
		t.Errorf("priority = %s, want low", pacing[0].Priority)
	}
	if pacing[0].AutoApplyEligible {
		t.Error("budget_pacing must not be auto-apply eligible")
	}
}

func TestGenerateCTRDecay(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Fatigued", 100)
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		ctr := 0.04
		if i >= 4 { // the newest three snapshots
			ctr = 0.02
		}
		snap := &models.PerformanceSnapshot{
			EntityType:         models.EntityTypeCampaign,
			EntityID:           campaign.ID,
			Date:               base.AddDate(0, 0, i),
			Impressions:        1000,
			Clicks:             int(1000 * ctr),
			Cost:               70,
			CTR:                ctr,
			SearchLostISBudget: 0.08,
		}
		if err := repo.SavePerformanceSnapshot(ctx, snap); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}

	result, err := engine.Generate(ctx, Options{BudgetOptimization: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	refresh := findByType(result.Recommendations, models.RecommendationAdCopyRefresh)
	if len(refresh) != 1 {
		t.Fatalf("ad_copy_refresh recs = %d, want 1", len(refresh))
	}
	if refresh[0].CampaignID == nil || *refresh[0].CampaignID != campaign.ID {
		t.Errorf("campaign id = %v, want %d", refresh[0].CampaignID, campaign.ID)
	}
}

func TestGenerateSkipsPendingDuplicates(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Brand", 50)
	seedAdGroup(t, repo, campaign.ID, "Empty Group")

	first, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("first run created = %d, want 2", first.Created)
	}

	second, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("second run created = %d, want 0", second.Created)
	}
	if second.DuplicatesSkipped != 2 {
		t.Errorf("second run duplicates skipped = %d, want 2", second.DuplicatesSkipped)
	}

	// Dismissing clears the way for the same finding to come back
	orphans := findByType(first.Recommendations, models.RecommendationOrphanedAdGroup)
	if len(orphans) != 1 {
		t.Fatalf("orphaned_ad_group recs = %d, want 1", len(orphans))
	}
	if _, err := engine.Dismiss(ctx, orphans[0].ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	third, err := engine.Generate(ctx, Options{StructureHygiene: true})
	if err != nil {
		t.Fatalf("third generate: %v", err)
	}
	if third.Created != 1 {
		t.Errorf("third run created = %d, want 1", third.Created)
	}
	if third.DuplicatesSkipped != 1 {
		t.Errorf("third run duplicates skipped = %d, want 1", third.DuplicatesSkipped)
	}
	if got := findByType(third.Recommendations, models.RecommendationOrphanedAdGroup); len(got) != 1 {
		t.Errorf("re-created recs = %v, want the orphaned_ad_group finding", typeNames(third.Recommendations))
	}
}

func typeNames(recs []*models.Recommendation) []string {
	var names []string
	for _, rec := range recs {
		names = append(names, string(rec.Type))
	}
	return names
}

func TestListForCampaignFiltersStatus(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	campaign := seedActiveCampaign(t, repo, "Brand", 50)
	seedAdGroup(t, repo, campaign.ID, "Empty Group")

	if _, err := engine.Generate(ctx, Options{StructureHygiene: true}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	all, err := engine.ListForCampaign(ctx, campaign.ID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("recommendations = %d, want 2", len(all))
	}

	if _, err := engine.Dismiss(ctx, all[0].ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	pending := models.RecommendationStatusPending
	got, err := engine.ListForCampaign(ctx, campaign.ID, &pending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("pending recommendations = %d, want 1", len(got))
	}
}

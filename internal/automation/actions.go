package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/recommend"
	"github.com/adpilot/internal/storage"
)

// actionResult accumulates what one action run did
type actionResult struct {
	affected int
	changes  []string
	errors   []string
}

func (r actionResult) outcome() models.ExecutionStatus {
	switch {
	case len(r.errors) == 0:
		return models.ExecutionStatusCompleted
	case r.affected > 0 || len(r.changes) > 0:
		return models.ExecutionStatusPartial
	default:
		return models.ExecutionStatusFailed
	}
}

func (r *actionResult) fail(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (o *Orchestrator) dispatch(ctx context.Context, rule *models.AutomationRule) actionResult {
	switch rule.ActionType {
	case models.ActionGenerateRecommendations:
		return o.generateRecommendations(ctx, rule.ActionConfig)
	case models.ActionApplyRecommendations:
		return o.applyRecommendations(ctx, rule.ActionConfig)
	case models.ActionAddNegativeKeywords:
		return o.addNegativeKeywords(ctx, rule.ActionConfig)
	case models.ActionPauseLowPerformers:
		return o.pauseLowPerformers(ctx, rule.ActionConfig)
	case models.ActionEnableHighPerformers:
		return o.enableHighPerformers(ctx, rule.ActionConfig)
	case models.ActionSyncPerformanceData:
		return o.syncPerformanceData(ctx, rule.ActionConfig)
	case models.ActionRefreshAdCopy:
		return o.refreshAdCopy(ctx, rule.ActionConfig)
	case models.ActionAdjustBudgets:
		return o.adjustBudgets(ctx, rule.ActionConfig)
	case models.ActionDedupeKeywords:
		return o.dedupeKeywords(ctx)
	case models.ActionExportEditorCSV:
		return o.exportEditorCSV(ctx)
	case models.ActionCleanupStaleRecommendations:
		return o.cleanupStaleRecommendations(ctx, rule.ActionConfig)
	default:
		var out actionResult
		out.fail("unknown action type %q", rule.ActionType)
		return out
	}
}

func (o *Orchestrator) generateRecommendations(ctx context.Context, cfg models.JSON) actionResult {
	opts := recommend.DefaultOptions()
	if analyzers := cfg.Strings("analyzers"); len(analyzers) > 0 {
		opts.StructureHygiene = false
		opts.AssetOptimization = false
		opts.QueryMining = false
		opts.BudgetOptimization = false
		for _, name := range analyzers {
			switch name {
			case "structure_hygiene":
				opts.StructureHygiene = true
			case "asset_optimization":
				opts.AssetOptimization = true
			case "query_mining":
				opts.QueryMining = true
			case "budget_optimization":
				opts.BudgetOptimization = true
			}
		}
	}
	if ids := cfg.Uints("campaign_ids"); len(ids) > 0 {
		opts.CampaignIDs = ids
	}
	if min := int(cfg.Float("min_impressions")); min > 0 {
		opts.MinImpressions = min
	} else if o.cfg.MinImpressions > 0 {
		opts.MinImpressions = o.cfg.MinImpressions
	}

	result, err := o.engine.Generate(ctx, opts)
	if err != nil {
		var out actionResult
		out.fail("generating recommendations: %v", err)
		return out
	}

	out := actionResult{affected: result.Created}
	out.changes = append(out.changes, fmt.Sprintf("created %d recommendations, skipped %d pending duplicates", result.Created, result.DuplicatesSkipped))
	for _, analyzerErr := range result.Errors {
		out.fail("%v", analyzerErr)
	}
	return out
}

func (o *Orchestrator) applyRecommendations(ctx context.Context, cfg models.JSON) actionResult {
	limit := int(cfg.Float("limit"))
	if limit <= 0 {
		limit = 50
	}

	pending := models.RecommendationStatusPending
	eligible := true
	recs, err := o.repo.ListRecommendations(ctx, storage.RecommendationFilter{
		Status:            &pending,
		AutoApplyEligible: &eligible,
		Limit:             limit,
	})
	if err != nil {
		var out actionResult
		out.fail("listing recommendations: %v", err)
		return out
	}

	var out actionResult
	for _, rec := range recs {
		outcome, err := o.engine.Apply(ctx, rec.ID)
		if err != nil {
			out.fail("recommendation %d: %v", rec.ID, err)
			continue
		}
		if !outcome.Success {
			out.fail("%s", outcome.Message)
			continue
		}
		out.affected++
		out.changes = append(out.changes, outcome.Changes...)
	}
	return out
}

func (o *Orchestrator) addNegativeKeywords(ctx context.Context, cfg models.JSON) actionResult {
	keywords := cfg.Strings("keywords")
	if len(keywords) == 0 {
		keywords = o.cfg.DefaultNegatives
	}
	if len(keywords) == 0 {
		var out actionResult
		out.fail("no negative keywords configured")
		return out
	}
	matchType := models.MatchTypeBroad
	if mt := cfg.String("match_type"); mt != "" {
		matchType = models.MatchType(mt)
	}

	active := models.CampaignStatusActive
	campaigns, err := o.repo.ListCampaigns(ctx, storage.CampaignFilter{Status: &active})
	if err != nil {
		var out actionResult
		out.fail("listing campaigns: %v", err)
		return out
	}

	var out actionResult
	for _, campaign := range campaigns {
		existing, err := o.repo.ListNegativeKeywords(ctx, campaign.ID)
		if err != nil {
			out.fail("campaign %d: %v", campaign.ID, err)
			continue
		}
		seen := make(map[string]bool, len(existing))
		for _, negative := range existing {
			seen[strings.ToLower(strings.TrimSpace(negative.KeywordText))] = true
		}

		added := 0
		for _, keyword := range keywords {
			normalized := strings.ToLower(strings.TrimSpace(keyword))
			if normalized == "" || seen[normalized] {
				continue
			}
			negative := &models.NegativeKeyword{
				CampaignID:  campaign.ID,
				KeywordText: keyword,
				MatchType:   matchType,
				Level:       models.NegativeLevelCampaign,
				Source:      models.KeywordSourceAutomated,
			}
			if err := o.repo.CreateNegativeKeyword(ctx, negative); err != nil {
				out.fail("campaign %d keyword %q: %v", campaign.ID, keyword, err)
				continue
			}
			seen[normalized] = true
			added++
		}
		if added > 0 {
			out.affected += added
			out.changes = append(out.changes, fmt.Sprintf("campaign %q: added %d negative keywords", campaign.Name, added))
		}
	}
	return out
}

func (o *Orchestrator) pauseLowPerformers(ctx context.Context, cfg models.JSON) actionResult {
	minImpressions := int(cfg.Float("min_impressions"))
	if minImpressions <= 0 {
		minImpressions = o.cfg.MinImpressions
	}
	if minImpressions <= 0 {
		minImpressions = 100
	}
	maxCTR := cfg.Float("max_ctr")
	if maxCTR <= 0 {
		maxCTR = o.cfg.LowPerformerCTR
	}
	if maxCTR <= 0 {
		maxCTR = 0.01
	}

	var out actionResult
	var toPause []uint
	err := o.forEachAd(ctx, func(_ *models.Campaign, _ *models.AdGroup, ad *models.Ad) error {
		if ad.Status != models.AdStatusActive {
			return nil
		}
		impressions, clicks, err := o.adTotals(ctx, ad.ID)
		if err != nil {
			return err
		}
		if impressions < minImpressions {
			return nil
		}
		ctr := float64(clicks) / float64(impressions)
		if ctr < maxCTR {
			toPause = append(toPause, ad.ID)
			out.changes = append(out.changes, fmt.Sprintf("paused ad %d (%.2f%% CTR over %d impressions)", ad.ID, ctr*100, impressions))
		}
		return nil
	})
	if err != nil {
		out.fail("scanning ads: %v", err)
		return out
	}
	if len(toPause) == 0 {
		return out
	}
	if err := o.repo.BulkUpdateAdStatus(ctx, toPause, models.AdStatusPaused); err != nil {
		out.changes = nil
		out.fail("pausing ads: %v", err)
		return out
	}
	out.affected = len(toPause)
	return out
}

func (o *Orchestrator) enableHighPerformers(ctx context.Context, cfg models.JSON) actionResult {
	minImpressions := int(cfg.Float("min_impressions"))
	if minImpressions <= 0 {
		minImpressions = o.cfg.MinImpressions
	}
	if minImpressions <= 0 {
		minImpressions = 100
	}
	minCTR := cfg.Float("min_ctr")
	if minCTR <= 0 {
		minCTR = 0.03
	}

	var out actionResult
	var toEnable []uint
	err := o.forEachAd(ctx, func(_ *models.Campaign, _ *models.AdGroup, ad *models.Ad) error {
		if ad.Status != models.AdStatusPaused {
			return nil
		}
		impressions, clicks, err := o.adTotals(ctx, ad.ID)
		if err != nil {
			return err
		}
		if impressions < minImpressions {
			return nil
		}
		ctr := float64(clicks) / float64(impressions)
		if ctr >= minCTR {
			toEnable = append(toEnable, ad.ID)
			out.changes = append(out.changes, fmt.Sprintf("re-enabled ad %d (%.2f%% CTR over %d impressions)", ad.ID, ctr*100, impressions))
		}
		return nil
	})
	if err != nil {
		out.fail("scanning ads: %v", err)
		return out
	}
	if len(toEnable) == 0 {
		return out
	}
	if err := o.repo.BulkUpdateAdStatus(ctx, toEnable, models.AdStatusActive); err != nil {
		out.changes = nil
		out.fail("enabling ads: %v", err)
		return out
	}
	out.affected = len(toEnable)
	return out
}

func (o *Orchestrator) syncPerformanceData(ctx context.Context, cfg models.JSON) actionResult {
	if o.sheets == nil {
		var out actionResult
		out.fail("sheet sync is not configured")
		return out
	}

	var out actionResult
	sheet := cfg.String("sheet")
	if sheet == "" || sheet == "performance" {
		rows, err := o.sheets.PullPerformance(ctx)
		if err != nil {
			out.fail("performance pull: %v", err)
		} else {
			out.affected += rows
			out.changes = append(out.changes, fmt.Sprintf("pulled %d performance rows", rows))
		}
	}
	if sheet == "" || sheet == "search_terms" {
		rows, err := o.sheets.PullSearchTerms(ctx)
		if err != nil {
			out.fail("search terms pull: %v", err)
		} else {
			out.affected += rows
			out.changes = append(out.changes, fmt.Sprintf("pulled %d search term rows", rows))
		}
	}
	return out
}

func (o *Orchestrator) refreshAdCopy(ctx context.Context, cfg models.JSON) actionResult {
	business := cfg.String("business_description")
	if business == "" {
		var out actionResult
		out.fail("action config needs business_description")
		return out
	}
	limit := int(cfg.Float("limit"))
	if limit <= 0 {
		limit = 5
	}
	provider := cfg.String("provider")

	var out actionResult
	err := o.forEachAd(ctx, func(_ *models.Campaign, _ *models.AdGroup, ad *models.Ad) error {
		if out.affected >= limit {
			return nil
		}
		if len(ad.Headlines) >= 3 && len(ad.Descriptions) >= 2 {
			return nil
		}
		result, err := o.ai.RefreshAdCopy(ctx, business, ad, provider)
		if err != nil {
			// A provider failure skips this ad; the sweep continues
			out.fail("ad %d: %v", ad.ID, err)
			return nil
		}
		if !mergeAssets(ad, result) {
			return nil
		}
		if err := o.repo.UpdateAd(ctx, ad); err != nil {
			out.fail("ad %d: %v", ad.ID, err)
			return nil
		}
		out.affected++
		out.changes = append(out.changes, fmt.Sprintf("refreshed ad %d to %d headlines, %d descriptions", ad.ID, len(ad.Headlines), len(ad.Descriptions)))
		return nil
	})
	if err != nil {
		out.fail("scanning ads: %v", err)
	}
	return out
}

// mergeAssets folds generated copy into the ad, skipping assets already
// present and respecting the RSA pool caps
func mergeAssets(ad *models.Ad, generated *ai.CopyResult) bool {
	changed := false

	haveHeadlines := make(map[string]bool, len(ad.Headlines))
	for _, h := range ad.Headlines {
		haveHeadlines[strings.ToLower(strings.TrimSpace(h.Text))] = true
	}
	for _, h := range generated.Headlines {
		if len(ad.Headlines) >= ai.MaxHeadlines {
			break
		}
		key := strings.ToLower(strings.TrimSpace(h.Text))
		if key == "" || haveHeadlines[key] {
			continue
		}
		ad.Headlines = append(ad.Headlines, h)
		haveHeadlines[key] = true
		changed = true
	}

	haveDescriptions := make(map[string]bool, len(ad.Descriptions))
	for _, d := range ad.Descriptions {
		haveDescriptions[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, d := range generated.Descriptions {
		if len(ad.Descriptions) >= ai.MaxDescriptions {
			break
		}
		key := strings.ToLower(strings.TrimSpace(d))
		if key == "" || haveDescriptions[key] {
			continue
		}
		ad.Descriptions = append(ad.Descriptions, d)
		haveDescriptions[key] = true
		changed = true
	}

	return changed
}

func (o *Orchestrator) adjustBudgets(ctx context.Context, cfg models.JSON) actionResult {
	maxBudget := cfg.Float("max_budget")

	pending := models.RecommendationStatusPending
	recType := models.RecommendationBudgetIncrease
	recs, err := o.repo.ListRecommendations(ctx, storage.RecommendationFilter{
		Status: &pending,
		Type:   &recType,
	})
	if err != nil {
		var out actionResult
		out.fail("listing budget recommendations: %v", err)
		return out
	}

	var out actionResult
	for _, rec := range recs {
		newBudget := rec.ActionRequired.Float("new_budget")
		if newBudget <= 0 || rec.CampaignID == nil {
			out.fail("recommendation %d has no usable budget action", rec.ID)
			continue
		}
		if maxBudget > 0 && newBudget > maxBudget {
			newBudget = maxBudget
		}

		var name string
		var oldBudget float64
		err := o.repo.Transaction(ctx, func(tx storage.Repository) error {
			campaign, err := tx.GetCampaignByID(ctx, *rec.CampaignID)
			if err != nil {
				return err
			}
			name = campaign.Name
			oldBudget = campaign.Budget
			campaign.Budget = newBudget
			if err := tx.UpdateCampaign(ctx, campaign); err != nil {
				return err
			}
			now := time.Now()
			rec.Status = models.RecommendationStatusApplied
			rec.AppliedAt = &now
			return tx.UpdateRecommendation(ctx, rec)
		})
		if err != nil {
			out.fail("recommendation %d: %v", rec.ID, err)
			continue
		}
		out.affected++
		out.changes = append(out.changes, fmt.Sprintf("campaign %q budget %.2f -> %.2f", name, oldBudget, newBudget))
	}
	return out
}

func (o *Orchestrator) dedupeKeywords(ctx context.Context) actionResult {
	active := models.CampaignStatusActive
	campaigns, err := o.repo.ListCampaigns(ctx, storage.CampaignFilter{Status: &active})
	if err != nil {
		var out actionResult
		out.fail("listing campaigns: %v", err)
		return out
	}

	var out actionResult
	for _, campaign := range campaigns {
		groups, err := o.repo.ListAdGroups(ctx, campaign.ID)
		if err != nil {
			out.fail("campaign %d: %v", campaign.ID, err)
			continue
		}
		for _, group := range groups {
			seen := make(map[string]bool, len(group.Keywords))
			kept := group.Keywords[:0:0]
			dropped := 0
			for _, keyword := range group.Keywords {
				normalized := strings.ToLower(strings.TrimSpace(keyword.Text))
				if normalized == "" || seen[normalized] {
					dropped++
					continue
				}
				seen[normalized] = true
				kept = append(kept, keyword)
			}
			if dropped == 0 {
				continue
			}
			group.Keywords = kept
			if err := o.repo.UpdateAdGroup(ctx, group); err != nil {
				out.fail("ad group %d: %v", group.ID, err)
				continue
			}
			out.affected++
			out.changes = append(out.changes, fmt.Sprintf("ad group %q: removed %d duplicate keywords", group.Name, dropped))
		}
	}
	return out
}

func (o *Orchestrator) exportEditorCSV(ctx context.Context) actionResult {
	if o.exporter == nil {
		var out actionResult
		out.fail("editor export is not configured")
		return out
	}
	path, rows, err := o.exporter.ExportFile(ctx)
	if err != nil {
		var out actionResult
		out.fail("exporting: %v", err)
		return out
	}
	return actionResult{
		affected: rows,
		changes:  []string{fmt.Sprintf("wrote %d rows to %s", rows, path)},
	}
}

func (o *Orchestrator) cleanupStaleRecommendations(ctx context.Context, cfg models.JSON) actionResult {
	days := int(cfg.Float("days"))
	if days <= 0 {
		days = o.cfg.StaleAfterDays
	}
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	pending := models.RecommendationStatusPending
	recs, err := o.repo.ListRecommendations(ctx, storage.RecommendationFilter{Status: &pending})
	if err != nil {
		var out actionResult
		out.fail("listing recommendations: %v", err)
		return out
	}

	var out actionResult
	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		rec.Status = models.RecommendationStatusDismissed
		if err := o.repo.UpdateRecommendation(ctx, rec); err != nil {
			out.fail("recommendation %d: %v", rec.ID, err)
			continue
		}
		out.affected++
	}
	if out.affected > 0 {
		out.changes = append(out.changes, fmt.Sprintf("dismissed %d recommendations older than %d days", out.affected, days))
	}
	return out
}

// forEachAd walks every ad of every active campaign
func (o *Orchestrator) forEachAd(ctx context.Context, fn func(*models.Campaign, *models.AdGroup, *models.Ad) error) error {
	active := models.CampaignStatusActive
	campaigns, err := o.repo.ListCampaigns(ctx, storage.CampaignFilter{Status: &active})
	if err != nil {
		return err
	}
	for _, campaign := range campaigns {
		groups, err := o.repo.ListAdGroups(ctx, campaign.ID)
		if err != nil {
			return err
		}
		for _, group := range groups {
			ads, err := o.repo.ListAds(ctx, group.ID)
			if err != nil {
				return err
			}
			for _, ad := range ads {
				if err := fn(campaign, group, ad); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// adTotals sums the recent snapshot window for one ad
func (o *Orchestrator) adTotals(ctx context.Context, adID uint) (int, int, error) {
	entityType := models.EntityTypeAd
	snaps, err := o.repo.ListPerformanceSnapshots(ctx, storage.PerformanceFilter{
		EntityType: &entityType,
		EntityID:   &adID,
		Limit:      14,
	})
	if err != nil {
		return 0, 0, err
	}
	impressions, clicks := 0, 0
	for _, snap := range snaps {
		impressions += snap.Impressions
		clicks += snap.Clicks
	}
	return impressions, clicks, nil
}

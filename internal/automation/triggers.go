package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// SweepResult summarizes one scheduler pass
type SweepResult struct {
	Due       int `json:"due"`
	Triggered int `json:"triggered"`
	Executed  int `json:"executed"`
	Failed    int `json:"failed"`
}

// RunDue executes every enabled scheduled rule whose next_run_at has
// passed, then every threshold rule whose condition currently holds.
// Rule failures are counted, not propagated, so one broken rule cannot
// starve the rest of the sweep.
func (o *Orchestrator) RunDue(ctx context.Context, now time.Time) (*SweepResult, error) {
	result := &SweepResult{}

	due, err := o.repo.GetDueRules(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("loading due rules: %w", err)
	}
	result.Due = len(due)
	for _, rule := range due {
		if _, err := o.Execute(ctx, rule.ID, models.RunTypeScheduled); err != nil {
			result.Failed++
			o.log.Error().Err(err).Uint("rule_id", rule.ID).Msg("Scheduled execution failed")
			continue
		}
		result.Executed++
	}

	triggered, err := o.dueThresholdRules(ctx, now)
	if err != nil {
		return result, fmt.Errorf("evaluating threshold rules: %w", err)
	}
	result.Triggered = len(triggered)
	for _, rule := range triggered {
		if _, err := o.Execute(ctx, rule.ID, models.RunTypeTriggered); err != nil {
			result.Failed++
			o.log.Error().Err(err).Uint("rule_id", rule.ID).Msg("Triggered execution failed")
			continue
		}
		result.Executed++
	}

	if result.Due > 0 || result.Triggered > 0 {
		o.log.Info().
			Int("due", result.Due).
			Int("triggered", result.Triggered).
			Int("executed", result.Executed).
			Int("failed", result.Failed).
			Msg("Automation sweep completed")
	}
	return result, nil
}

// dueThresholdRules returns the enabled threshold rules whose metric
// condition holds and whose cooldown has elapsed
func (o *Orchestrator) dueThresholdRules(ctx context.Context, now time.Time) ([]*models.AutomationRule, error) {
	enabled := true
	rules, err := o.repo.ListAutomationRules(ctx, storage.RuleFilter{Enabled: &enabled})
	if err != nil {
		return nil, err
	}

	var fire []*models.AutomationRule
	for _, rule := range rules {
		if rule.TriggerType != models.TriggerPerformanceThreshold && rule.TriggerType != models.TriggerBudgetThreshold {
			continue
		}
		if !cooldownElapsed(rule, now) {
			continue
		}
		breached, err := o.thresholdBreached(ctx, rule)
		if err != nil {
			o.log.Warn().Err(err).Uint("rule_id", rule.ID).Msg("Cannot evaluate trigger condition")
			continue
		}
		if breached {
			fire = append(fire, rule)
		}
	}
	return fire, nil
}

// cooldownElapsed keeps a threshold rule from firing on every sweep
// while its condition stays breached
func cooldownElapsed(rule *models.AutomationRule, now time.Time) bool {
	if rule.LastRunAt == nil {
		return true
	}
	hours := rule.TriggerConfig.Float("cooldown_hours")
	if hours <= 0 {
		hours = 24
	}
	return now.Sub(*rule.LastRunAt) >= time.Duration(hours*float64(time.Hour))
}

// thresholdBreached compares the campaign's latest snapshot metric
// against the configured bound
func (o *Orchestrator) thresholdBreached(ctx context.Context, rule *models.AutomationRule) (bool, error) {
	campaignID := uint(rule.TriggerConfig.Float("campaign_id"))
	if campaignID == 0 {
		return false, fmt.Errorf("trigger config needs campaign_id")
	}
	metric := rule.TriggerConfig.String("metric")
	operator := rule.TriggerConfig.String("operator")
	value := rule.TriggerConfig.Float("value")

	entityType := models.EntityTypeCampaign
	snaps, err := o.repo.ListPerformanceSnapshots(ctx, storage.PerformanceFilter{
		EntityType: &entityType,
		EntityID:   &campaignID,
		Limit:      1,
	})
	if err != nil {
		return false, err
	}
	if len(snaps) == 0 {
		return false, nil
	}
	snap := snaps[0]

	var observed float64
	switch metric {
	case "ctr":
		observed = snap.CTR
	case "cpa":
		observed = snap.CPA
	case "cost":
		observed = snap.Cost
	case "conversions":
		observed = float64(snap.Conversions)
	case "budget_utilization":
		campaign, err := o.repo.GetCampaignByID(ctx, campaignID)
		if err != nil {
			return false, err
		}
		if campaign.Budget <= 0 {
			return false, nil
		}
		observed = snap.Cost / campaign.Budget
	default:
		return false, fmt.Errorf("unknown metric %q", metric)
	}

	switch operator {
	case "lt":
		return observed < value, nil
	case "gt":
		return observed > value, nil
	default:
		return false, fmt.Errorf("unknown operator %q", operator)
	}
}

package automation

import (
	"context"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
)

// Stats aggregates rule and execution counts for the dashboard
type Stats struct {
	TotalRules          int                         `json:"total_rules"`
	EnabledRules        int                         `json:"enabled_rules"`
	RulesByAction       map[string]int              `json:"rules_by_action"`
	TotalExecutions     int64                       `json:"total_executions"`
	CompletedExecutions int64                       `json:"completed_executions"`
	PartialExecutions   int64                       `json:"partial_executions"`
	FailedExecutions    int64                       `json:"failed_executions"`
	SuccessRate         float64                     `json:"success_rate"`
	LastExecution       *models.AutomationExecution `json:"last_execution,omitempty"`
}

// Stats computes the aggregate automation figures
func (o *Orchestrator) Stats(ctx context.Context) (*Stats, error) {
	rules, err := o.repo.ListAutomationRules(ctx, storage.RuleFilter{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalRules:    len(rules),
		RulesByAction: make(map[string]int),
	}
	for _, rule := range rules {
		if rule.Enabled {
			stats.EnabledRules++
		}
		stats.RulesByAction[string(rule.ActionType)]++
	}

	total, err := o.repo.CountExecutions(ctx, storage.ExecutionFilter{})
	if err != nil {
		return nil, err
	}
	stats.TotalExecutions = total

	for status, dst := range map[models.ExecutionStatus]*int64{
		models.ExecutionStatusCompleted: &stats.CompletedExecutions,
		models.ExecutionStatusPartial:   &stats.PartialExecutions,
		models.ExecutionStatusFailed:    &stats.FailedExecutions,
	} {
		count, err := o.repo.CountExecutions(ctx, storage.ExecutionFilter{Status: &status})
		if err != nil {
			return nil, err
		}
		*dst = count
	}

	if total > 0 {
		stats.SuccessRate = float64(stats.CompletedExecutions) / float64(total)
	}

	last, err := o.repo.ListExecutions(ctx, storage.ExecutionFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(last) > 0 {
		stats.LastExecution = last[0]
	}
	return stats, nil
}

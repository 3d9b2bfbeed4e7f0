package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/recommend"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

// ErrRuleDisabled is returned when a disabled rule is executed
var ErrRuleDisabled = errors.New("automation rule is disabled")

// Exporter writes the full account structure to an Editor CSV file and
// reports where it landed
type Exporter interface {
	ExportFile(ctx context.Context) (path string, rows int, err error)
}

// SheetSyncer pulls externally populated performance and search term
// rows into local storage
type SheetSyncer interface {
	PullPerformance(ctx context.Context) (int, error)
	PullSearchTerms(ctx context.Context) (int, error)
}

// Orchestrator loads automation rules, dispatches their actions and
// records one execution row per run. Execution is synchronous and
// single-attempt: no retry, no partial-completion resumption.
type Orchestrator struct {
	repo     storage.Repository
	engine   *recommend.Engine
	ai       *ai.Service
	exporter Exporter
	sheets   SheetSyncer
	cfg      config.AutomationConfig
	log      *logger.Logger
}

// NewOrchestrator creates an orchestrator. The exporter and sheet
// syncer may be nil; their actions then fail with a recorded error.
func NewOrchestrator(
	repo storage.Repository,
	engine *recommend.Engine,
	aiService *ai.Service,
	exporter Exporter,
	sheets SheetSyncer,
	cfg config.AutomationConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		engine:   engine,
		ai:       aiService,
		exporter: exporter,
		sheets:   sheets,
		cfg:      cfg,
		log:      log.WithComponent("automation"),
	}
}

// Execute runs one rule now and returns its execution record. The
// execution row is written before the action starts, so a crash
// mid-action still leaves a "started" row behind.
func (o *Orchestrator) Execute(ctx context.Context, ruleID uint, runType models.RunType) (*models.AutomationExecution, error) {
	rule, err := o.repo.GetAutomationRuleByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading rule %d: %w", ruleID, err)
	}
	if !rule.Enabled {
		return nil, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Name, ErrRuleDisabled)
	}

	exec := &models.AutomationExecution{
		RuleID:      rule.ID,
		ExecutionID: uuid.NewString(),
		RunType:     runType,
		Status:      models.ExecutionStatusStarted,
	}
	if err := o.repo.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("recording execution: %w", err)
	}

	log := o.log.WithRuleID(rule.ID)
	log.Info().
		Str("execution_id", exec.ExecutionID).
		Str("action", string(rule.ActionType)).
		Str("run_type", string(runType)).
		Msg("Executing automation rule")

	started := time.Now()
	result := o.dispatch(ctx, rule)
	now := time.Now()

	exec.EntitiesAffected = result.affected
	exec.ChangesMade = result.changes
	exec.Errors = result.errors
	exec.Status = result.outcome()
	exec.CompletedAt = &now
	exec.DurationMS = now.Sub(started).Milliseconds()

	if err := o.repo.UpdateExecution(ctx, exec); err != nil {
		log.Error().Err(err).Str("execution_id", exec.ExecutionID).Msg("Failed to update execution record")
	}

	rule.RunCount++
	rule.LastRunAt = &now
	if rule.TriggerType == models.TriggerScheduled {
		next, err := NextRun(rule, now)
		if err != nil {
			log.Warn().Err(err).Msg("Cannot compute next run time")
			rule.NextRunAt = nil
		} else {
			rule.NextRunAt = next
		}
	}
	if err := o.repo.UpdateAutomationRule(ctx, rule); err != nil {
		log.Error().Err(err).Msg("Failed to update rule counters")
	}

	log.Info().
		Str("execution_id", exec.ExecutionID).
		Str("status", string(exec.Status)).
		Int("entities_affected", exec.EntitiesAffected).
		Int("errors", len(exec.Errors)).
		Int64("duration_ms", exec.DurationMS).
		Msg("Automation rule executed")

	return exec, nil
}

// History lists execution rows, newest first, optionally scoped to one
// rule
func (o *Orchestrator) History(ctx context.Context, ruleID *uint, limit, offset int) ([]*models.AutomationExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	return o.repo.ListExecutions(ctx, storage.ExecutionFilter{
		RuleID: ruleID,
		Limit:  limit,
		Offset: offset,
	})
}

// NextRun computes when a scheduled rule fires next from the cron
// expression in its trigger_config
func NextRun(rule *models.AutomationRule, from time.Time) (*time.Time, error) {
	expr := rule.TriggerConfig.String("cron")
	if expr == "" {
		return nil, fmt.Errorf("rule %d has no cron expression", rule.ID)
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing cron %q: %w", expr, err)
	}
	next := schedule.Next(from)
	return &next, nil
}

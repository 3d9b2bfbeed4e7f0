package models

import (
	"time"
)

// TriggerType says what causes an automation rule to run
type TriggerType string

const (
	TriggerScheduled            TriggerType = "scheduled"
	TriggerPerformanceThreshold TriggerType = "performance_threshold"
	TriggerBudgetThreshold      TriggerType = "budget_threshold"
	TriggerImportCompletion     TriggerType = "import_completion"
	TriggerManual               TriggerType = "manual"
)

// AutomationAction is the closed set of operations a rule can dispatch
type AutomationAction string

const (
	ActionGenerateRecommendations      AutomationAction = "generate_recommendations"
	ActionApplyRecommendations         AutomationAction = "apply_recommendations"
	ActionAddNegativeKeywords          AutomationAction = "add_negative_keywords"
	ActionPauseLowPerformers           AutomationAction = "pause_low_performers"
	ActionEnableHighPerformers         AutomationAction = "enable_high_performers"
	ActionSyncPerformanceData          AutomationAction = "sync_performance_data"
	ActionRefreshAdCopy                AutomationAction = "refresh_ad_copy"
	ActionAdjustBudgets                AutomationAction = "adjust_budgets"
	ActionDedupeKeywords               AutomationAction = "dedupe_keywords"
	ActionExportEditorCSV              AutomationAction = "export_editor_csv"
	ActionCleanupStaleRecommendations  AutomationAction = "cleanup_stale_recommendations"
)

// AutomationRule is a named trigger + action pair with its config
type AutomationRule struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"not null" json:"name"`
	TriggerType   TriggerType      `gorm:"index;not null" json:"trigger_type"`
	TriggerConfig JSON             `gorm:"type:json" json:"trigger_config"`
	ActionType    AutomationAction `gorm:"index;not null" json:"action_type"`
	ActionConfig  JSON             `gorm:"type:json" json:"action_config"`
	Enabled       bool             `gorm:"default:true" json:"enabled"`
	RunCount      int              `gorm:"default:0" json:"run_count"`
	LastRunAt     *time.Time       `json:"last_run_at"`
	NextRunAt     *time.Time       `gorm:"index" json:"next_run_at"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExecutionStatus represents the outcome of one rule run
type ExecutionStatus string

const (
	ExecutionStatusStarted   ExecutionStatus = "started"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPartial   ExecutionStatus = "partial"
)

// RunType records what initiated an execution
type RunType string

const (
	RunTypeScheduled RunType = "scheduled"
	RunTypeManual    RunType = "manual"
	RunTypeTriggered RunType = "triggered"
)

// AutomationExecution is one append-only history row per rule run
type AutomationExecution struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	RuleID           uint            `gorm:"index;not null" json:"rule_id"`
	ExecutionID      string          `gorm:"uniqueIndex;not null" json:"execution_id"`
	RunType          RunType         `gorm:"default:'manual'" json:"run_type"`
	Status           ExecutionStatus `gorm:"index;default:'started'" json:"status"`
	EntitiesAffected int             `gorm:"default:0" json:"entities_affected"`
	ChangesMade      StringSlice     `gorm:"type:json" json:"changes_made"`
	Errors           StringSlice     `gorm:"type:json" json:"errors"`
	StartedAt        time.Time       `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
	DurationMS       int64           `gorm:"default:0" json:"duration_ms"`
}

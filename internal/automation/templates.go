package automation

import (
	"github.com/adpilot/internal/models"
)

// Template is a prebuilt rule a user can install as-is and then tune
type Template struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Rule        models.AutomationRule `json:"rule"`
}

// Templates returns the built-in rule presets. Threshold templates
// ship without a campaign_id; installing one requires filling it in.
func Templates() []Template {
	return []Template{
		{
			Key:         "nightly-recommendations",
			Name:        "Nightly recommendation sweep",
			Description: "Runs every analyzer over all active campaigns each night.",
			Rule: models.AutomationRule{
				Name:          "Nightly recommendation sweep",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "0 2 * * *"},
				ActionType:    models.ActionGenerateRecommendations,
				Enabled:       true,
			},
		},
		{
			Key:         "auto-apply-safe-fixes",
			Name:        "Auto-apply safe fixes",
			Description: "Applies up to 50 pending auto-apply-eligible recommendations after the nightly sweep.",
			Rule: models.AutomationRule{
				Name:          "Auto-apply safe fixes",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "30 2 * * *"},
				ActionType:    models.ActionApplyRecommendations,
				ActionConfig:  models.JSON{"limit": 50},
				Enabled:       true,
			},
		},
		{
			Key:         "starter-negatives",
			Name:        "Weekly starter negatives",
			Description: "Adds the configured default negative keyword list to every active campaign on Monday mornings.",
			Rule: models.AutomationRule{
				Name:          "Weekly starter negatives",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "0 3 * * 1"},
				ActionType:    models.ActionAddNegativeKeywords,
				ActionConfig:  models.JSON{"match_type": "broad"},
				Enabled:       true,
			},
		},
		{
			Key:         "pause-money-pits",
			Name:        "Pause money pits",
			Description: "Pauses active ads whose CTR stays under 0.5% once a campaign's CTR drops below 1%. Set campaign_id before enabling.",
			Rule: models.AutomationRule{
				Name:        "Pause money pits",
				TriggerType: models.TriggerPerformanceThreshold,
				TriggerConfig: models.JSON{
					"metric":         "ctr",
					"operator":       "lt",
					"value":          0.01,
					"cooldown_hours": 24,
				},
				ActionType:   models.ActionPauseLowPerformers,
				ActionConfig: models.JSON{"max_ctr": 0.005},
				Enabled:      false,
			},
		},
		{
			Key:         "budget-guard",
			Name:        "Budget guard",
			Description: "Raises budgets from pending budget recommendations when a campaign burns over 95% of budget. Set campaign_id and max_budget before enabling.",
			Rule: models.AutomationRule{
				Name:        "Budget guard",
				TriggerType: models.TriggerBudgetThreshold,
				TriggerConfig: models.JSON{
					"metric":         "budget_utilization",
					"operator":       "gt",
					"value":          0.95,
					"cooldown_hours": 24,
				},
				ActionType: models.ActionAdjustBudgets,
				Enabled:    false,
			},
		},
		{
			Key:         "morning-sheet-sync",
			Name:        "Morning sheet sync",
			Description: "Pulls fresh performance and search term rows from the connected spreadsheet before the workday.",
			Rule: models.AutomationRule{
				Name:          "Morning sheet sync",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "0 6 * * *"},
				ActionType:    models.ActionSyncPerformanceData,
				Enabled:       true,
			},
		},
		{
			Key:         "friday-editor-export",
			Name:        "Friday Editor export",
			Description: "Writes a Google Ads Editor CSV of the whole account every Friday afternoon.",
			Rule: models.AutomationRule{
				Name:          "Friday Editor export",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "0 16 * * 5"},
				ActionType:    models.ActionExportEditorCSV,
				Enabled:       true,
			},
		},
		{
			Key:         "stale-cleanup",
			Name:        "Stale recommendation cleanup",
			Description: "Dismisses pending recommendations that sat unreviewed for 30 days.",
			Rule: models.AutomationRule{
				Name:          "Stale recommendation cleanup",
				TriggerType:   models.TriggerScheduled,
				TriggerConfig: models.JSON{"cron": "0 5 * * 0"},
				ActionType:    models.ActionCleanupStaleRecommendations,
				ActionConfig:  models.JSON{"days": 30},
				Enabled:       true,
			},
		},
	}
}

// TemplateByKey looks up one template
func TemplateByKey(key string) (*Template, bool) {
	for _, template := range Templates() {
		if template.Key == key {
			return &template, true
		}
	}
	return nil, false
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), j)
}

// String returns the string stored under key, or "" if absent
func (j JSON) String(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the number stored under key, or 0 if absent.
// JSON numbers always decode as float64.
func (j JSON) Float(key string) float64 {
	if v, ok := j[key].(float64); ok {
		return v
	}
	return 0
}

// Strings returns the string list stored under key. Values freshly
// built in Go hold []string; after a database round trip the same list
// comes back as []interface{}. Both shapes are accepted.
func (j JSON) Strings(key string) []string {
	switch raw := j[key].(type) {
	case []string:
		return raw
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Uints returns the positive-integer list stored under key, accepting
// the same two shapes as Strings
func (j JSON) Uints(key string) []uint {
	switch raw := j[key].(type) {
	case []uint:
		return raw
	case []interface{}:
		out := make([]uint, 0, len(raw))
		for _, v := range raw {
			if f, ok := v.(float64); ok && f > 0 {
				out = append(out, uint(f))
			}
		}
		return out
	}
	return nil
}

// RecommendationType is the closed set of suggestion kinds the engine
// and automation actions can emit
type RecommendationType string

const (
	RecommendationOrphanedAdGroup     RecommendationType = "orphaned_ad_group"
	RecommendationAdCopyRefresh       RecommendationType = "ad_copy_refresh"
	RecommendationOverlappingKeywords RecommendationType = "overlapping_keywords"
	RecommendationMissingNegatives    RecommendationType = "missing_negatives"
	RecommendationRemoveLowAsset      RecommendationType = "remove_low_asset"
	RecommendationUnpinnedAsset       RecommendationType = "unpinned_asset"
	RecommendationAddAssetVariant     RecommendationType = "add_asset_variant"
	RecommendationSearchTermNegative  RecommendationType = "search_term_negative"
	RecommendationSearchTermPositive  RecommendationType = "search_term_positive"
	RecommendationBudgetPacing        RecommendationType = "budget_pacing"
	RecommendationBudgetIncrease      RecommendationType = "budget_increase"
	RecommendationBudgetDecrease      RecommendationType = "budget_decrease"
	RecommendationKeywordExpansion    RecommendationType = "keyword_expansion"
	RecommendationPauseLowPerformer   RecommendationType = "pause_low_performer"
	RecommendationBidAdjustment       RecommendationType = "bid_adjustment"
	RecommendationRaiseBudgetCap      RecommendationType = "raise_budget_cap"
)

// Priority ranks how urgently a recommendation should be acted on
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// RecommendationStatus represents the lifecycle of a recommendation
type RecommendationStatus string

const (
	RecommendationStatusPending   RecommendationStatus = "pending"
	RecommendationStatusApplied   RecommendationStatus = "applied"
	RecommendationStatusDismissed RecommendationStatus = "dismissed"
	RecommendationStatusScheduled RecommendationStatus = "scheduled"
)

// Recommendation is a typed suggestion produced by the engine. Created
// only by generation runs, mutated by apply/dismiss, never deleted
// automatically.
type Recommendation struct {
	ID                uint                 `gorm:"primaryKey" json:"id"`
	CampaignID        *uint                `gorm:"index" json:"campaign_id"`
	AdGroupID         *uint                `gorm:"index" json:"ad_group_id"`
	AdID              *uint                `gorm:"index" json:"ad_id"`
	Type              RecommendationType   `gorm:"index;not null" json:"type"`
	Priority          Priority             `gorm:"default:'medium'" json:"priority"`
	Title             string               `gorm:"not null" json:"title"`
	Description       string               `gorm:"type:text" json:"description"`
	Impact            string               `json:"impact"`
	ActionRequired    JSON                 `gorm:"type:json" json:"action_required"`
	AutoApplyEligible bool                 `gorm:"default:false" json:"auto_apply_eligible"`
	Status            RecommendationStatus `gorm:"index;default:'pending'" json:"status"`
	Fingerprint       string               `gorm:"index" json:"fingerprint"` // Dedup key within the pending set
	AppliedAt         *time.Time           `json:"applied_at"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanApply returns true if the recommendation is still pending and safe
// to apply without review
func (r *Recommendation) CanApply() bool {
	return r.Status == RecommendationStatusPending && r.AutoApplyEligible
}

package models

import (
	"time"
)

// EntityType identifies which entity a performance snapshot belongs to
type EntityType string

const (
	EntityTypeCampaign EntityType = "campaign"
	EntityTypeAdGroup  EntityType = "ad_group"
	EntityTypeAd       EntityType = "ad"
)

// PerformanceSnapshot is a time-bucketed metrics row populated by the
// external Google Ads Script sync. Read-only input to the engine.
type PerformanceSnapshot struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	EntityType         EntityType `gorm:"index;not null" json:"entity_type"`
	EntityID           uint       `gorm:"index;not null" json:"entity_id"`
	Date               time.Time  `gorm:"index" json:"date"`
	Impressions        int        `gorm:"default:0" json:"impressions"`
	Clicks             int        `gorm:"default:0" json:"clicks"`
	Cost               float64    `gorm:"default:0" json:"cost"`
	Conversions        int        `gorm:"default:0" json:"conversions"`
	CTR                float64    `gorm:"default:0" json:"ctr"`
	CPA                float64    `gorm:"default:0" json:"cpa"`
	SearchLostISBudget float64    `gorm:"default:0" json:"search_lost_is_budget"` // Fraction 0..1
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// ConversionRate returns conversions/clicks, 0 when there are no clicks
func (p *PerformanceSnapshot) ConversionRate() float64 {
	if p.Clicks == 0 {
		return 0
	}
	return float64(p.Conversions) / float64(p.Clicks)
}

// AssetType distinguishes RSA headline assets from description assets
type AssetType string

const (
	AssetTypeHeadline    AssetType = "headline"
	AssetTypeDescription AssetType = "description"
)

// AssetPerformance carries Google's per-asset performance label for an
// RSA, populated externally (Low, Learning, Good, Best)
type AssetPerformance struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AdID             uint      `gorm:"index;not null" json:"ad_id"`
	AssetText        string    `gorm:"not null" json:"asset_text"`
	AssetType        AssetType `gorm:"default:'headline'" json:"asset_type"`
	PerformanceLabel string    `gorm:"index" json:"performance_label"`
	PinnedPosition   *int      `json:"pinned_position"` // Nullable, 1-based RSA slot
	Impressions      int       `gorm:"default:0" json:"impressions"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

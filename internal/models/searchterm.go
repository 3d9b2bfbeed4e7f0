package models

import (
	"time"
)

// SearchTermStatus tracks what happened to a mined search term
type SearchTermStatus string

const (
	SearchTermStatusActive          SearchTermStatus = "active"
	SearchTermStatusAddedAsNegative SearchTermStatus = "added_as_negative"
	SearchTermStatusAddedAsPositive SearchTermStatus = "added_as_positive"
)

// SearchTerm is a query-level performance row populated by the external
// data sync. The engine mines these for negative and positive keyword
// candidates.
type SearchTerm struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CampaignID  uint             `gorm:"index;not null" json:"campaign_id"`
	AdGroupID   uint             `gorm:"index;not null" json:"ad_group_id"`
	Term        string           `gorm:"not null" json:"term"`
	Impressions int              `gorm:"default:0" json:"impressions"`
	Clicks      int              `gorm:"default:0" json:"clicks"`
	Cost        float64          `gorm:"default:0" json:"cost"`
	Conversions int              `gorm:"default:0" json:"conversions"`
	Status      SearchTermStatus `gorm:"default:'active'" json:"status"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// CTR returns clicks/impressions, 0 when there are no impressions
func (s *SearchTerm) CTR() float64 {
	if s.Impressions == 0 {
		return 0
	}
	return float64(s.Clicks) / float64(s.Impressions)
}

// ConversionRate returns conversions/clicks, 0 when there are no clicks
func (s *SearchTerm) ConversionRate() float64 {
	if s.Clicks == 0 {
		return 0
	}
	return float64(s.Conversions) / float64(s.Clicks)
}

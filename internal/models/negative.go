package models

import (
	"time"
)

// NegativeLevel says whether a negative keyword blocks a whole campaign
// or a single ad group
type NegativeLevel string

const (
	NegativeLevelCampaign NegativeLevel = "campaign"
	NegativeLevelAdGroup  NegativeLevel = "ad_group"
)

// KeywordSource records how a negative keyword entered the system
type KeywordSource string

const (
	KeywordSourceManual    KeywordSource = "manual"
	KeywordSourceAutomated KeywordSource = "automated"
)

// NegativeKeyword suppresses ad display for matching search queries
type NegativeKeyword struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CampaignID  uint          `gorm:"index;not null" json:"campaign_id"`
	AdGroupID   *uint         `gorm:"index" json:"ad_group_id"` // Nullable for campaign-level negatives
	KeywordText string        `gorm:"not null" json:"keyword_text"`
	MatchType   MatchType     `gorm:"default:'broad'" json:"match_type"`
	Level       NegativeLevel `gorm:"default:'campaign'" json:"level"`
	Source      KeywordSource `gorm:"default:'manual'" json:"source"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

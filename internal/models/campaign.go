package models

import (
	"time"
)

// CampaignStatus represents the current state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
	CampaignStatusDraft  CampaignStatus = "draft"
)

// Campaign represents a Google Ads campaign managed by this tool
type Campaign struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;index" json:"name"`
	Budget    float64        `gorm:"default:0" json:"budget"` // Daily budget, currency-minor-unit agnostic
	Status    CampaignStatus `gorm:"default:'draft'" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive returns true if the campaign is serving
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// AdGroupStatus represents the current state of an ad group
type AdGroupStatus string

const (
	AdGroupStatusActive AdGroupStatus = "active"
	AdGroupStatusPaused AdGroupStatus = "paused"
)

// MatchType represents a keyword matching strategy
type MatchType string

const (
	MatchTypeBroad  MatchType = "broad"
	MatchTypePhrase MatchType = "phrase"
	MatchTypeExact  MatchType = "exact"
)

// Keyword is a single targeting keyword embedded in an ad group
type Keyword struct {
	Text   string   `json:"text"`
	MaxCPC *float64 `json:"max_cpc,omitempty"` // Optional per-keyword bid
}

// KeywordList is a custom type for storing keyword arrays in JSON
type KeywordList []Keyword

func (k KeywordList) Value() (driver.Value, error) {
	return json.Marshal(k)
}

func (k *KeywordList) Scan(value interface{}) error {
	if value == nil {
		*k = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), k)
}

// Contains reports whether the list already holds text,
// compared case-insensitively after trimming.
func (k KeywordList) Contains(text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range k {
		if strings.ToLower(strings.TrimSpace(kw.Text)) == needle {
			return true
		}
	}
	return false
}

// AdGroup represents an ad group within a campaign
type AdGroup struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	CampaignID uint          `gorm:"index;not null" json:"campaign_id"`
	Name       string        `gorm:"not null" json:"name"`
	Keywords   KeywordList   `gorm:"type:json" json:"keywords"`
	Status     AdGroupStatus `gorm:"default:'active'" json:"status"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

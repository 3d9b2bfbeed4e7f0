package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AdStatus represents the current state of an ad
type AdStatus string

const (
	AdStatusActive AdStatus = "active"
	AdStatusPaused AdStatus = "paused"
)

// HeadlineCategory classifies a responsive search ad headline
type HeadlineCategory string

const (
	HeadlineCategoryKeyword HeadlineCategory = "KEYWORD"
	HeadlineCategoryValue   HeadlineCategory = "VALUE"
	HeadlineCategoryCTA     HeadlineCategory = "CTA"
	HeadlineCategoryGeneral HeadlineCategory = "GENERAL"
)

// Headline is a single RSA headline with its category tag
type Headline struct {
	Text     string           `json:"text"`
	Category HeadlineCategory `json:"category"`
}

// HeadlineList is a custom type for storing headline arrays in JSON
type HeadlineList []Headline

func (h HeadlineList) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *HeadlineList) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), h)
}

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}

// Ad represents a responsive search ad within an ad group.
// The >=3 headlines / >=2 descriptions rule is enforced at the API
// boundary, not here.
type Ad struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AdGroupID    uint         `gorm:"index;not null" json:"ad_group_id"`
	Headlines    HeadlineList `gorm:"type:json" json:"headlines"`
	Descriptions StringSlice  `gorm:"type:json" json:"descriptions"`
	FinalURL     string       `json:"final_url"`
	Status       AdStatus     `gorm:"default:'active'" json:"status"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

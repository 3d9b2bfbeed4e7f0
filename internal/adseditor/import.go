package adseditor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

// ImportResult summarizes what one import run created
type ImportResult struct {
	Rows      int      `json:"rows"`
	Campaigns int      `json:"campaigns_created"`
	AdGroups  int      `json:"ad_groups_created"`
	Ads       int      `json:"ads_created"`
	Keywords  int      `json:"keywords_added"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Importer rebuilds account structure from an Ads Editor sheet.
// Entities are matched by name against what is already stored, so
// re-importing an export is a no-op rather than a duplication.
type Importer struct {
	repo storage.Repository
	log  *logger.Logger
}

// NewImporter creates an Ads Editor CSV importer
func NewImporter(repo storage.Repository, log *logger.Logger) *Importer {
	return &Importer{
		repo: repo,
		log:  log.WithComponent("adseditor"),
	}
}

// columnMap holds the header positions found in an uploaded sheet.
// Only the campaign column is mandatory; everything else degrades to
// "not present" when the uploader trimmed columns away.
type columnMap struct {
	campaign       int
	campaignBudget int
	campaignStatus int
	adGroup        int
	adGroupStatus  int
	maxCPC         int
	keyword        int
	finalURL       int
	adStatus       int
	headlines      []int // In sheet order
	descriptions   []int
}

func mapColumns(header []string) (*columnMap, error) {
	cols := &columnMap{
		campaign:       -1,
		campaignBudget: -1,
		campaignStatus: -1,
		adGroup:        -1,
		adGroupStatus:  -1,
		maxCPC:         -1,
		keyword:        -1,
		finalURL:       -1,
		adStatus:       -1,
	}
	for i, name := range header {
		switch name := strings.ToLower(strings.TrimSpace(name)); {
		case name == "campaign":
			cols.campaign = i
		case name == "campaign daily budget" || name == "budget":
			cols.campaignBudget = i
		case name == "campaign status":
			cols.campaignStatus = i
		case name == "ad group":
			cols.adGroup = i
		case name == "ad group status":
			cols.adGroupStatus = i
		case name == "max cpc":
			cols.maxCPC = i
		case name == "keyword":
			cols.keyword = i
		case name == "final url":
			cols.finalURL = i
		case name == "ad status":
			cols.adStatus = i
		case strings.HasPrefix(name, "headline"):
			cols.headlines = append(cols.headlines, i)
		case strings.HasPrefix(name, "description"):
			cols.descriptions = append(cols.descriptions, i)
		}
	}
	if cols.campaign == -1 {
		return nil, errors.New("campaign column not found in CSV header")
	}
	return cols, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Import reads an Ads Editor sheet and creates whatever campaigns, ad
// groups, ads, and keywords are not already stored. Row-level problems
// are collected in the result; only an unreadable header is fatal.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	result := &ImportResult{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "﻿")

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	state, err := newImportState(ctx, im.repo)
	if err != nil {
		return nil, err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.Rows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.Rows, err))
			continue
		}
		im.importRow(ctx, state, cols, record, result)
	}

	for _, group := range state.dirtyGroups() {
		if err := im.repo.UpdateAdGroup(ctx, group); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("save keywords for ad group %q: %v", group.Name, err))
		}
	}

	im.log.Info().
		Int("rows", result.Rows).
		Int("campaigns", result.Campaigns).
		Int("ad_groups", result.AdGroups).
		Int("ads", result.Ads).
		Int("keywords", result.Keywords).
		Int("errors", len(result.Errors)).
		Msg("Ads Editor import finished")
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, state *importState, cols *columnMap, record []string, result *ImportResult) {
	campaignName := cell(record, cols.campaign)
	if campaignName == "" {
		result.Skipped++
		return
	}

	campaign, created, err := state.ensureCampaign(ctx, campaignName, func(c *models.Campaign) {
		if budget := cell(record, cols.campaignBudget); budget != "" {
			v, err := strconv.ParseFloat(budget, 64)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: bad budget %q", result.Rows, budget))
			} else {
				c.Budget = v
			}
		}
		c.Status = campaignStatusFromSheet(cell(record, cols.campaignStatus))
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: create campaign %q: %v", result.Rows, campaignName, err))
		return
	}
	if created {
		result.Campaigns++
	}

	groupName := cell(record, cols.adGroup)
	if groupName == "" {
		return
	}
	group, created, err := state.ensureGroup(ctx, campaign, groupName, adGroupStatusFromSheet(cell(record, cols.adGroupStatus)))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: create ad group %q: %v", result.Rows, groupName, err))
		return
	}
	if created {
		result.AdGroups++
	}

	if raw := cell(record, cols.keyword); raw != "" {
		text, _ := ParseKeywordCell(raw)
		if text != "" && !group.Keywords.Contains(text) {
			keyword := models.Keyword{Text: text}
			if cpc := cell(record, cols.maxCPC); cpc != "" {
				v, err := strconv.ParseFloat(cpc, 64)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("row %d: bad max cpc %q", result.Rows, cpc))
				} else {
					keyword.MaxCPC = &v
				}
			}
			group.Keywords = append(group.Keywords, keyword)
			state.markDirty(group)
			result.Keywords++
		}
	}

	ad := adFromRow(cols, record, group.ID)
	if ad == nil {
		return
	}
	created, err = state.ensureAd(ctx, group, ad)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: create ad: %v", result.Rows, err))
		return
	}
	if created {
		result.Ads++
	}
}

// adFromRow assembles an ad from the flattened columns. A row with no
// final URL and no headlines carries no ad.
func adFromRow(cols *columnMap, record []string, groupID uint) *models.Ad {
	ad := &models.Ad{
		AdGroupID: groupID,
		FinalURL:  cell(record, cols.finalURL),
		Status:    adStatusFromSheet(cell(record, cols.adStatus)),
	}
	for _, idx := range cols.headlines {
		if text := cell(record, idx); text != "" {
			ad.Headlines = append(ad.Headlines, models.Headline{
				Text:     text,
				Category: models.HeadlineCategoryGeneral,
			})
		}
	}
	for _, idx := range cols.descriptions {
		if text := cell(record, idx); text != "" {
			ad.Descriptions = append(ad.Descriptions, text)
		}
	}
	if ad.FinalURL == "" && len(ad.Headlines) == 0 {
		return nil
	}
	return ad
}

// ParseKeywordCell strips Ads Editor match-type decoration from a
// keyword cell: [text] means exact, "text" means phrase, bare text
// means broad.
func ParseKeywordCell(raw string) (string, models.MatchType) {
	text := strings.TrimSpace(raw)
	matchType := models.MatchTypeBroad
	switch {
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") && len(text) >= 2:
		matchType = models.MatchTypeExact
		text = strings.TrimSpace(text[1 : len(text)-1])
	case strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2:
		matchType = models.MatchTypePhrase
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text, matchType
}

func campaignStatusFromSheet(status string) models.CampaignStatus {
	switch strings.ToLower(status) {
	case "enabled", "active":
		return models.CampaignStatusActive
	case "paused":
		return models.CampaignStatusPaused
	default:
		// Let the storage default (draft) decide
		return ""
	}
}

func adGroupStatusFromSheet(status string) models.AdGroupStatus {
	if strings.EqualFold(status, "paused") {
		return models.AdGroupStatusPaused
	}
	if strings.EqualFold(status, "enabled") || strings.EqualFold(status, "active") {
		return models.AdGroupStatusActive
	}
	return ""
}

func adStatusFromSheet(status string) models.AdStatus {
	if strings.EqualFold(status, "paused") {
		return models.AdStatusPaused
	}
	if strings.EqualFold(status, "enabled") || strings.EqualFold(status, "active") {
		return models.AdStatusActive
	}
	return ""
}

// importState caches what is already stored so each row costs map
// lookups instead of queries. Ad groups touched by keyword rows are
// saved once at the end.
type importState struct {
	repo      storage.Repository
	campaigns map[string]*models.Campaign         // Lowercased name
	groups    map[uint]map[string]*models.AdGroup // Campaign ID, lowercased name
	adKeys    map[uint]map[string]bool            // Ad group ID, ad fingerprint
	dirty     map[uint]*models.AdGroup
}

func newImportState(ctx context.Context, repo storage.Repository) (*importState, error) {
	existing, err := repo.ListCampaigns(ctx, storage.CampaignFilter{})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	state := &importState{
		repo:      repo,
		campaigns: make(map[string]*models.Campaign, len(existing)),
		groups:    make(map[uint]map[string]*models.AdGroup),
		adKeys:    make(map[uint]map[string]bool),
		dirty:     make(map[uint]*models.AdGroup),
	}
	for _, campaign := range existing {
		state.campaigns[strings.ToLower(campaign.Name)] = campaign
	}
	return state, nil
}

func (s *importState) ensureCampaign(ctx context.Context, name string, fill func(*models.Campaign)) (*models.Campaign, bool, error) {
	key := strings.ToLower(name)
	if campaign, ok := s.campaigns[key]; ok {
		return campaign, false, nil
	}
	campaign := &models.Campaign{Name: name}
	fill(campaign)
	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, false, err
	}
	s.campaigns[key] = campaign
	return campaign, true, nil
}

func (s *importState) ensureGroup(ctx context.Context, campaign *models.Campaign, name string, status models.AdGroupStatus) (*models.AdGroup, bool, error) {
	byName, ok := s.groups[campaign.ID]
	if !ok {
		existing, err := s.repo.ListAdGroups(ctx, campaign.ID)
		if err != nil {
			return nil, false, fmt.Errorf("list ad groups: %w", err)
		}
		byName = make(map[string]*models.AdGroup, len(existing))
		for _, group := range existing {
			byName[strings.ToLower(group.Name)] = group
		}
		s.groups[campaign.ID] = byName
	}

	key := strings.ToLower(name)
	if group, ok := byName[key]; ok {
		return group, false, nil
	}
	group := &models.AdGroup{
		CampaignID: campaign.ID,
		Name:       name,
		Status:     status,
	}
	// The group may be saved again after keyword appends, so the status
	// must be concrete before the first write
	if group.Status == "" {
		group.Status = models.AdGroupStatusActive
	}
	if err := s.repo.CreateAdGroup(ctx, group); err != nil {
		return nil, false, err
	}
	byName[key] = group
	return group, true, nil
}

func (s *importState) ensureAd(ctx context.Context, group *models.AdGroup, ad *models.Ad) (bool, error) {
	keys, ok := s.adKeys[group.ID]
	if !ok {
		existing, err := s.repo.ListAds(ctx, group.ID)
		if err != nil {
			return false, fmt.Errorf("list ads: %w", err)
		}
		keys = make(map[string]bool, len(existing))
		for _, stored := range existing {
			keys[adFingerprint(stored)] = true
		}
		s.adKeys[group.ID] = keys
	}

	key := adFingerprint(ad)
	if keys[key] {
		return false, nil
	}
	if err := s.repo.CreateAd(ctx, ad); err != nil {
		return false, err
	}
	keys[key] = true
	return true, nil
}

func (s *importState) markDirty(group *models.AdGroup) {
	s.dirty[group.ID] = group
}

func (s *importState) dirtyGroups() []*models.AdGroup {
	groups := make([]*models.AdGroup, 0, len(s.dirty))
	for _, group := range s.dirty {
		groups = append(groups, group)
	}
	return groups
}

// adFingerprint identifies an ad by its visible content so repeated
// imports of the same sheet do not stack duplicates
func adFingerprint(ad *models.Ad) string {
	parts := make([]string, 0, len(ad.Headlines)+1)
	parts = append(parts, strings.ToLower(ad.FinalURL))
	for _, headline := range ad.Headlines {
		parts = append(parts, strings.ToLower(strings.TrimSpace(headline.Text)))
	}
	return strings.Join(parts, "|")
}

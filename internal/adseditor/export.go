// Package adseditor reads and writes the bulk-upload CSV format Google
// Ads Editor understands. Campaign, ad group, keyword, and responsive
// search ad fields are flattened into a fixed 31-column sheet, one row
// per (campaign, ad group, ad, keyword, match type) combination.
package adseditor

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

// Column capacities Google Ads Editor allots to RSA assets
const (
	MaxHeadlineColumns    = 15
	MaxDescriptionColumns = 4
)

// Column positions in the fixed header
const (
	colCampaign = iota
	colCampaignType
	colCampaignBudget
	colCampaignStatus
	colAdGroup
	colAdGroupStatus
	colMaxCPC
	colKeyword
	colCriterionType
	colAdType
	colFinalURL
	colHeadline1
)

const (
	colDescription1 = colHeadline1 + MaxHeadlineColumns
	colAdStatus     = colDescription1 + MaxDescriptionColumns
	columnCount     = colAdStatus + 1
)

const adTypeRSA = "Responsive search ad"

// Excel needs the BOM to pick UTF-8 over the platform codepage
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns is the fixed Ads Editor header row
var Columns = buildColumns()

func buildColumns() []string {
	cols := make([]string, columnCount)
	cols[colCampaign] = "Campaign"
	cols[colCampaignType] = "Campaign Type"
	cols[colCampaignBudget] = "Campaign Daily Budget"
	cols[colCampaignStatus] = "Campaign Status"
	cols[colAdGroup] = "Ad Group"
	cols[colAdGroupStatus] = "Ad Group Status"
	cols[colMaxCPC] = "Max CPC"
	cols[colKeyword] = "Keyword"
	cols[colCriterionType] = "Criterion Type"
	cols[colAdType] = "Ad Type"
	cols[colFinalURL] = "Final URL"
	for i := 0; i < MaxHeadlineColumns; i++ {
		cols[colHeadline1+i] = fmt.Sprintf("Headline %d", i+1)
	}
	for i := 0; i < MaxDescriptionColumns; i++ {
		cols[colDescription1+i] = fmt.Sprintf("Description %d", i+1)
	}
	cols[colAdStatus] = "Ad Status"
	return cols
}

// Options narrows an export. Zero value exports every campaign with the
// configured match types.
type Options struct {
	CampaignIDs []uint
	MatchTypes  []models.MatchType
}

// Exporter writes the account structure as an Ads Editor sheet
type Exporter struct {
	repo storage.Repository
	cfg  config.ExportConfig
	log  *logger.Logger
}

// NewExporter creates an Ads Editor CSV exporter
func NewExporter(repo storage.Repository, cfg config.ExportConfig, log *logger.Logger) *Exporter {
	return &Exporter{
		repo: repo,
		cfg:  cfg,
		log:  log.WithComponent("adseditor"),
	}
}

// Export writes the header and data rows to w and returns the number of
// data rows written. Each keyword is repeated once per requested match
// type, decorated the way Ads Editor expects: [text] for exact, "text"
// for phrase, bare text for broad.
func (e *Exporter) Export(ctx context.Context, w io.Writer, opts Options) (int, error) {
	matchTypes := opts.MatchTypes
	if len(matchTypes) == 0 {
		matchTypes = e.configuredMatchTypes()
	}

	campaigns, err := e.repo.ListCampaigns(ctx, storage.CampaignFilter{IDs: opts.CampaignIDs})
	if err != nil {
		return 0, fmt.Errorf("list campaigns: %w", err)
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return 0, fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for _, campaign := range campaigns {
		groups, err := e.repo.ListAdGroups(ctx, campaign.ID)
		if err != nil {
			return rows, fmt.Errorf("list ad groups for campaign %d: %w", campaign.ID, err)
		}
		for _, group := range groups {
			n, err := e.exportGroup(ctx, cw, campaign, group, matchTypes)
			if err != nil {
				return rows, err
			}
			rows += n
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

// ExportFile writes a timestamped export into the configured directory.
// It satisfies the automation layer's exporter contract.
func (e *Exporter) ExportFile(ctx context.Context) (string, int, error) {
	dir := e.cfg.Directory
	if dir == "" {
		dir = "exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("ads-editor-%s.csv", time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create export file: %w", err)
	}

	rows, err := e.Export(ctx, f, Options{})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}

	e.log.Info().
		Str("path", path).
		Int("rows", rows).
		Msg("Ads Editor export written")
	return path, rows, nil
}

func (e *Exporter) configuredMatchTypes() []models.MatchType {
	var types []models.MatchType
	for _, name := range e.cfg.MatchTypes {
		switch models.MatchType(name) {
		case models.MatchTypeBroad, models.MatchTypePhrase, models.MatchTypeExact:
			types = append(types, models.MatchType(name))
		}
	}
	if len(types) == 0 {
		types = []models.MatchType{models.MatchTypeBroad, models.MatchTypePhrase, models.MatchTypeExact}
	}
	return types
}

// exportGroup emits the cross product of the group's ads, keywords, and
// match types. Groups with no ads still export their keywords, groups
// with no keywords still export their ads, and an empty group exports
// one structural row so the group itself survives a round trip.
func (e *Exporter) exportGroup(ctx context.Context, cw *csv.Writer, campaign *models.Campaign, group *models.AdGroup, matchTypes []models.MatchType) (int, error) {
	ads, err := e.repo.ListAds(ctx, group.ID)
	if err != nil {
		return 0, fmt.Errorf("list ads for ad group %d: %w", group.ID, err)
	}

	base := make([]string, columnCount)
	base[colCampaign] = campaign.Name
	base[colCampaignType] = "Search"
	base[colCampaignBudget] = strconv.FormatFloat(campaign.Budget, 'f', 2, 64)
	base[colCampaignStatus] = editorStatus(campaign.Status == models.CampaignStatusActive)
	base[colAdGroup] = group.Name
	base[colAdGroupStatus] = editorStatus(group.Status == models.AdGroupStatusActive)

	rows := 0
	emit := func(row []string) error {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		rows++
		return nil
	}

	if len(ads) == 0 && len(group.Keywords) == 0 {
		return rows, emit(base)
	}

	if len(ads) == 0 {
		for _, keyword := range group.Keywords {
			for _, matchType := range matchTypes {
				if err := emit(keywordRow(base, keyword, matchType)); err != nil {
					return rows, err
				}
			}
		}
		return rows, nil
	}

	for _, ad := range ads {
		adBase := adRow(base, ad)
		if len(group.Keywords) == 0 {
			if err := emit(adBase); err != nil {
				return rows, err
			}
			continue
		}
		for _, keyword := range group.Keywords {
			for _, matchType := range matchTypes {
				if err := emit(keywordRow(adBase, keyword, matchType)); err != nil {
					return rows, err
				}
			}
		}
	}
	return rows, nil
}

func keywordRow(base []string, keyword models.Keyword, matchType models.MatchType) []string {
	row := make([]string, columnCount)
	copy(row, base)
	row[colKeyword] = DecorateKeyword(keyword.Text, matchType)
	row[colCriterionType] = criterionType(matchType)
	if keyword.MaxCPC != nil {
		row[colMaxCPC] = strconv.FormatFloat(*keyword.MaxCPC, 'f', 2, 64)
	}
	return row
}

func adRow(base []string, ad *models.Ad) []string {
	row := make([]string, columnCount)
	copy(row, base)
	row[colAdType] = adTypeRSA
	row[colFinalURL] = ad.FinalURL
	for i, headline := range ad.Headlines {
		if i >= MaxHeadlineColumns {
			break
		}
		row[colHeadline1+i] = headline.Text
	}
	for i, description := range ad.Descriptions {
		if i >= MaxDescriptionColumns {
			break
		}
		row[colDescription1+i] = description
	}
	row[colAdStatus] = editorStatus(ad.Status == models.AdStatusActive)
	return row
}

// DecorateKeyword formats keyword text the way Ads Editor encodes match
// types: [text] exact, "text" phrase, bare text broad.
func DecorateKeyword(text string, matchType models.MatchType) string {
	switch matchType {
	case models.MatchTypeExact:
		return "[" + text + "]"
	case models.MatchTypePhrase:
		return `"` + text + `"`
	default:
		return text
	}
}

func criterionType(matchType models.MatchType) string {
	switch matchType {
	case models.MatchTypeExact:
		return "Exact"
	case models.MatchTypePhrase:
		return "Phrase"
	default:
		return "Broad"
	}
}

// editorStatus maps our statuses onto Ads Editor's Enabled/Paused pair.
// Draft campaigns export as Paused so an upload never starts serving
// something the account owner considered unfinished.
func editorStatus(active bool) string {
	if active {
		return "Enabled"
	}
	return "Paused"
}

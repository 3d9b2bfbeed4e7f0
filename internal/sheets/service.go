// Package sheets pulls campaign performance and search-term data out of
// the Google Spreadsheet an external Ads Script populates. The script
// owns the write side; this side bootstraps headers and imports rows
// into local storage.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
	"github.com/adpilot/pkg/ratelimit"
)

// ErrNotConfigured means sheet sync is disabled or missing credentials
var ErrNotConfigured = errors.New("google sheets sync is not configured")

// PerformanceColumns is the layout the Ads Script writes to the
// performance tab
var PerformanceColumns = []string{
	"Date",
	"Entity Type",
	"Entity ID",
	"Impressions",
	"Clicks",
	"Cost",
	"Conversions",
	"CTR",
	"CPA",
	"Search Lost IS (Budget)",
}

// SearchTermColumns is the layout the Ads Script writes to the
// search-terms tab
var SearchTermColumns = []string{
	"Campaign ID",
	"Ad Group ID",
	"Search Term",
	"Impressions",
	"Clicks",
	"Cost",
	"Conversions",
}

// Service syncs spreadsheet rows into the repository
type Service struct {
	api              *sheets.Service
	repo             storage.Repository
	limiter          *ratelimit.MultiLimiter
	spreadsheetID    string
	performanceSheet string
	searchTermsSheet string
	log              *logger.Logger
}

// New creates a sync service using service-account credentials from the
// config. Use NewWithTokenSource when the user authenticated via OAuth.
func New(ctx context.Context, cfg config.SheetsConfig, repo storage.Repository, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}

	var api *sheets.Service
	var err error
	switch {
	case cfg.ServiceAccountJSON != "":
		api, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.CredentialsFile != "":
		api, err = sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("%w: set credentials_file or service_account_json", ErrNotConfigured)
	}
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return newService(api, cfg, repo, limiter, log)
}

// NewWithTokenSource creates a sync service backed by an OAuth token
// source, typically Manager.TokenSource after a login flow.
func NewWithTokenSource(ctx context.Context, cfg config.SheetsConfig, ts oauth2.TokenSource, repo storage.Repository, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}
	api, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newService(api, cfg, repo, limiter, log)
}

func newService(api *sheets.Service, cfg config.SheetsConfig, repo storage.Repository, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Service, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: spreadsheet_id is required", ErrNotConfigured)
	}

	performanceSheet := cfg.PerformanceSheet
	if performanceSheet == "" {
		performanceSheet = "Performance"
	}
	searchTermsSheet := cfg.SearchTermsSheet
	if searchTermsSheet == "" {
		searchTermsSheet = "SearchTerms"
	}

	return &Service{
		api:              api,
		repo:             repo,
		limiter:          limiter,
		spreadsheetID:    cfg.SpreadsheetID,
		performanceSheet: performanceSheet,
		searchTermsSheet: searchTermsSheet,
		log:              log.WithComponent("sheets"),
	}, nil
}

// EnsureSpreadsheet creates both tabs with their header rows if they do
// not exist yet, so the Ads Script has a fixed layout to write into
func (s *Service) EnsureSpreadsheet(ctx context.Context) error {
	if err := s.ensureSheetExists(ctx, s.performanceSheet, PerformanceColumns); err != nil {
		return fmt.Errorf("prepare %s sheet: %w", s.performanceSheet, err)
	}
	if err := s.ensureSheetExists(ctx, s.searchTermsSheet, SearchTermColumns); err != nil {
		return fmt.Errorf("prepare %s sheet: %w", s.searchTermsSheet, err)
	}
	s.log.Info().Str("spreadsheet_id", s.spreadsheetID).Msg("Spreadsheet ready")
	return nil
}

// PullPerformance reads the performance tab and upserts one snapshot per
// row, keyed on entity and date. Malformed rows are logged and skipped,
// not fatal.
func (s *Service) PullPerformance(ctx context.Context) (int, error) {
	rows, err := s.readRows(ctx, s.performanceSheet, columnLetter(len(PerformanceColumns)))
	if err != nil {
		return 0, err
	}

	saved := 0
	for i, row := range rows {
		snap, err := rowToSnapshot(row)
		if err != nil {
			s.log.Warn().Err(err).Int("row", i+2).Msg("Skipping performance row")
			continue
		}
		if err := s.repo.SavePerformanceSnapshot(ctx, snap); err != nil {
			return saved, fmt.Errorf("save snapshot for %s %d: %w", snap.EntityType, snap.EntityID, err)
		}
		saved++
	}

	s.log.Info().Int("rows", saved).Msg("Performance data pulled")
	return saved, nil
}

// PullSearchTerms reads the search-terms tab and inserts terms not yet
// stored for their ad group. Known terms keep their stats and status so
// a term already acted on is not resurrected.
func (s *Service) PullSearchTerms(ctx context.Context) (int, error) {
	rows, err := s.readRows(ctx, s.searchTermsSheet, columnLetter(len(SearchTermColumns)))
	if err != nil {
		return 0, err
	}

	seen := make(map[uint]map[string]bool) // Ad group ID -> lowercased terms
	inserted := 0
	for i, row := range rows {
		term, err := rowToSearchTerm(row)
		if err != nil {
			s.log.Warn().Err(err).Int("row", i+2).Msg("Skipping search term row")
			continue
		}

		known, ok := seen[term.AdGroupID]
		if !ok {
			existing, err := s.repo.ListSearchTerms(ctx, storage.SearchTermFilter{AdGroupID: &term.AdGroupID})
			if err != nil {
				return inserted, fmt.Errorf("list search terms for ad group %d: %w", term.AdGroupID, err)
			}
			known = make(map[string]bool, len(existing))
			for _, st := range existing {
				known[strings.ToLower(strings.TrimSpace(st.Term))] = true
			}
			seen[term.AdGroupID] = known
		}

		key := strings.ToLower(strings.TrimSpace(term.Term))
		if known[key] {
			continue
		}
		if err := s.repo.CreateSearchTerm(ctx, term); err != nil {
			return inserted, fmt.Errorf("create search term %q: %w", term.Term, err)
		}
		known[key] = true
		inserted++
	}

	s.log.Info().Int("rows", inserted).Msg("Search terms pulled")
	return inserted, nil
}

// readRows fetches everything below the header row of one tab
func (s *Service) readRows(ctx context.Context, sheetName, lastColumn string) ([][]interface{}, error) {
	if err := s.limiter.Wait(ctx, ratelimit.LimiterSheets); err != nil {
		return nil, err
	}
	readRange := fmt.Sprintf("%s!A2:%s", sheetName, lastColumn)
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetName, err)
	}
	return resp.Values, nil
}

// ensureSheetExists creates the tab and writes headers when missing
func (s *Service) ensureSheetExists(ctx context.Context, sheetName string, headers []string) error {
	if err := s.limiter.Wait(ctx, ratelimit.LimiterSheets); err != nil {
		return err
	}
	spreadsheet, err := s.api.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	sheetExists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{
					AddSheet: &sheets.AddSheetRequest{
						Properties: &sheets.SheetProperties{
							Title: sheetName,
						},
					},
				},
			},
		}
		if _, err := s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
	}

	readRange := fmt.Sprintf("%s!A1:%s1", sheetName, columnLetter(len(headers)))
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	if len(resp.Values) == 0 {
		headerRow := make([]interface{}, len(headers))
		for i, h := range headers {
			headerRow[i] = h
		}
		valueRange := &sheets.ValueRange{Values: [][]interface{}{headerRow}}
		_, err := s.api.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!A1", sheetName), valueRange).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
		s.log.Info().Str("sheet", sheetName).Msg("Headers initialized")
	}
	return nil
}

func rowToSnapshot(row []interface{}) (*models.PerformanceSnapshot, error) {
	date, err := parseDate(row, 0)
	if err != nil {
		return nil, err
	}
	entityType := models.EntityType(strings.ToLower(parseString(row, 1)))
	switch entityType {
	case models.EntityTypeCampaign, models.EntityTypeAdGroup, models.EntityTypeAd:
	default:
		return nil, fmt.Errorf("unknown entity type %q", parseString(row, 1))
	}
	entityID := parseUint(row, 2)
	if entityID == 0 {
		return nil, errors.New("missing entity id")
	}

	return &models.PerformanceSnapshot{
		EntityType:         entityType,
		EntityID:           entityID,
		Date:               date,
		Impressions:        parseInt(row, 3),
		Clicks:             parseInt(row, 4),
		Cost:               parseFloat(row, 5),
		Conversions:        parseInt(row, 6),
		CTR:                parseFloat(row, 7),
		CPA:                parseFloat(row, 8),
		SearchLostISBudget: parseFloat(row, 9),
	}, nil
}

func rowToSearchTerm(row []interface{}) (*models.SearchTerm, error) {
	campaignID := parseUint(row, 0)
	adGroupID := parseUint(row, 1)
	term := strings.TrimSpace(parseString(row, 2))
	if campaignID == 0 || adGroupID == 0 {
		return nil, errors.New("missing campaign or ad group id")
	}
	if term == "" {
		return nil, errors.New("empty search term")
	}

	return &models.SearchTerm{
		CampaignID:  campaignID,
		AdGroupID:   adGroupID,
		Term:        term,
		Impressions: parseInt(row, 3),
		Clicks:      parseInt(row, 4),
		Cost:        parseFloat(row, 5),
		Conversions: parseInt(row, 6),
	}, nil
}

func columnLetter(n int) string {
	result := ""
	for n > 0 {
		n--
		result = string(rune('A'+n%26)) + result
		n /= 26
	}
	return result
}

func parseString(row []interface{}, idx int) string {
	if idx < len(row) {
		return fmt.Sprintf("%v", row[idx])
	}
	return ""
}

func parseUint(row []interface{}, idx int) uint {
	if idx < len(row) {
		val, _ := strconv.ParseUint(strings.TrimSpace(fmt.Sprintf("%v", row[idx])), 10, 64)
		return uint(val)
	}
	return 0
}

func parseInt(row []interface{}, idx int) int {
	if idx < len(row) {
		val, _ := strconv.Atoi(strings.TrimSpace(fmt.Sprintf("%v", row[idx])))
		return val
	}
	return 0
}

func parseFloat(row []interface{}, idx int) float64 {
	if idx < len(row) {
		val, _ := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", row[idx])), 64)
		return val
	}
	return 0
}

// parseDate accepts the date-only cells Ads Scripts write and full
// RFC3339 stamps
func parseDate(row []interface{}, idx int) (time.Time, error) {
	raw := strings.TrimSpace(parseString(row, idx))
	if raw == "" {
		return time.Time{}, errors.New("missing date")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

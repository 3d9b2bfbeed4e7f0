package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/adpilot/internal/adseditor"
	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/metrics"
	"github.com/adpilot/internal/models"
	"github.com/adpilot/internal/recommend"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/internal/storage/sqlite"
	"github.com/adpilot/pkg/logger"
)

const sampleCopyResponse = `HEADLINES:
1. [KEYWORD] Trail Running Shoes
2. [VALUE] Free 30 Day Returns
3. [CTA] Shop The Sale Now
4. [GENERAL] Built For Every Run

DESCRIPTIONS:
1. Engineered cushioning for long runs with a fit that stays locked in.
2. Order today and get free shipping plus easy 30 day returns.
`

const sampleKeywordResponse = `BROAD MATCH:
1. running shoes
2. trail runners

PHRASE MATCH:
1. buy running shoes

EXACT MATCH:
1. best trail running shoes

NEGATIVE:
1. free
2. cheap
`

type fakeProvider struct {
	response string
	err      error
}

func (p *fakeProvider) Name() string    { return "fake" }
func (p *fakeProvider) Available() bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type fakeSyncer struct {
	performanceRows int
	searchTermRows  int
	err             error
}

func (f *fakeSyncer) PullPerformance(ctx context.Context) (int, error) {
	return f.performanceRows, f.err
}

func (f *fakeSyncer) PullSearchTerms(ctx context.Context) (int, error) {
	return f.searchTermRows, f.err
}

type testServer struct {
	server   *Server
	repo     storage.Repository
	provider *fakeProvider
	syncer   *fakeSyncer
	deps     Deps
	cfg      config.ServerConfig
	log      *logger.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	log := logger.New(logger.Config{Level: "disabled"})
	engine := recommend.NewEngine(repo, log)
	provider := &fakeProvider{response: sampleCopyResponse}
	aiService := ai.NewService("fake", log, provider)
	exporter := adseditor.NewExporter(repo, config.ExportConfig{Directory: t.TempDir()}, log)
	importer := adseditor.NewImporter(repo, log)
	syncer := &fakeSyncer{performanceRows: 10, searchTermRows: 4}
	orch := automation.NewOrchestrator(repo, engine, aiService, exporter, syncer, config.AutomationConfig{
		MinImpressions:  100,
		LowPerformerCTR: 0.01,
		StaleAfterDays:  30,
	}, log)

	deps := Deps{
		Repo:         repo,
		Engine:       engine,
		Orchestrator: orch,
		AI:           aiService,
		Exporter:     exporter,
		Importer:     importer,
		Sheets:       syncer,
		Metrics:      metrics.New(),
	}
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080}

	return &testServer{
		server:   NewServer(deps, cfg, log),
		repo:     repo,
		provider: provider,
		syncer:   syncer,
		deps:     deps,
		cfg:      cfg,
		log:      log,
	}
}

// do sends a JSON request through the router
func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors Response with raw data for per-test decoding
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorBody      `json:"error"`
	Meta      *Meta           `json:"meta"`
	Timestamp time.Time       `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Timestamp.IsZero() {
		t.Error("Envelope has no timestamp")
	}
	return env
}

func unmarshalData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

// requireError asserts an error envelope with the given status and code
func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Error("Expected success=false")
	}
	if env.Error == nil {
		t.Fatal("Expected error body")
	}
	if env.Error.Code != code {
		t.Errorf("Error code = %q, want %q", env.Error.Code, code)
	}
	return env
}

func (ts *testServer) seedCampaign(t *testing.T, name string, budget float64, status models.CampaignStatus) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{Name: name, Budget: budget, Status: status}
	if err := ts.repo.CreateCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("Failed to seed campaign: %v", err)
	}
	return campaign
}

func (ts *testServer) seedAdGroup(t *testing.T, campaignID uint, name string, keywords ...string) *models.AdGroup {
	t.Helper()
	group := &models.AdGroup{CampaignID: campaignID, Name: name, Status: models.AdGroupStatusActive}
	for _, kw := range keywords {
		group.Keywords = append(group.Keywords, models.Keyword{Text: kw})
	}
	if err := ts.repo.CreateAdGroup(context.Background(), group); err != nil {
		t.Fatalf("Failed to seed ad group: %v", err)
	}
	return group
}

func (ts *testServer) seedAd(t *testing.T, adGroupID uint) *models.Ad {
	t.Helper()
	ad := &models.Ad{
		AdGroupID: adGroupID,
		Headlines: models.HeadlineList{
			{Text: "Trail Running Shoes", Category: models.HeadlineCategoryKeyword},
			{Text: "Free 30 Day Returns", Category: models.HeadlineCategoryValue},
			{Text: "Shop The Sale Now", Category: models.HeadlineCategoryCTA},
		},
		Descriptions: models.StringSlice{
			"Engineered cushioning for long runs.",
			"Order today with free shipping.",
		},
		FinalURL: "https://example.com/shoes",
		Status:   models.AdStatusActive,
	}
	if err := ts.repo.CreateAd(context.Background(), ad); err != nil {
		t.Fatalf("Failed to seed ad: %v", err)
	}
	return ad
}

// itoa keeps URL construction in the tests readable.
func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "ok" {
		t.Errorf("Database = %q, want %q", resp.Database, "ok")
	}
	if resp.Version == "" {
		t.Error("Version is empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// One counted request so the exposition carries at least one series
	ts.do(t, "GET", "/health", nil)

	rec := ts.do(t, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "adpilot_http_requests_total") {
		t.Error("Exposition does not contain adpilot_http_requests_total")
	}
}

func TestInvalidIDParam(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/v1/campaigns/abc", nil)
	requireError(t, rec, http.StatusBadRequest, codeValidation)
}

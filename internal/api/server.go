package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adpilot/internal/adseditor"
	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/metrics"
	"github.com/adpilot/internal/recommend"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/pkg/logger"
)

const version = "0.4.0"

// Deps bundles the services the route handlers call into. Sheets and
// Metrics may be nil; their endpoints then answer 503 and 404.
type Deps struct {
	Repo         storage.Repository
	Engine       *recommend.Engine
	Orchestrator *automation.Orchestrator
	AI           *ai.Service
	Exporter     *adseditor.Exporter
	Importer     *adseditor.Importer
	Sheets       automation.SheetSyncer
	Metrics      *metrics.Metrics
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	repo       storage.Repository
	engine     *recommend.Engine
	orch       *automation.Orchestrator
	ai         *ai.Service
	exporter   *adseditor.Exporter
	importer   *adseditor.Importer
	sheets     automation.SheetSyncer
	metrics    *metrics.Metrics
	cfg        config.ServerConfig
	log        *logger.Logger
	startTime  time.Time
}

// NewServer creates an API server with all routes registered
func NewServer(deps Deps, cfg config.ServerConfig, log *logger.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		repo:      deps.Repo,
		engine:    deps.Engine,
		orch:      deps.Orchestrator,
		ai:        deps.AI,
		exporter:  deps.Exporter,
		importer:  deps.Importer,
		sheets:    deps.Sheets,
		metrics:   deps.Metrics,
		cfg:       cfg,
		log:       log.WithComponent("api"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware(s.metrics))

	// Ops endpoints, no envelope
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Campaigns
		r.Get("/campaigns", s.handleListCampaigns)
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Put("/campaigns/bulk/status", s.handleBulkCampaignStatus)
		r.Get("/campaigns/{id}", s.handleGetCampaign)
		r.Put("/campaigns/{id}", s.handleUpdateCampaign)
		r.Delete("/campaigns/{id}", s.handleDeleteCampaign)
		r.Post("/campaigns/{id}/duplicate", s.handleDuplicateCampaign)
		r.Get("/campaigns/{id}/adgroups", s.handleListAdGroups)
		r.Post("/campaigns/{id}/adgroups", s.handleCreateAdGroup)
		r.Get("/campaigns/{id}/negatives", s.handleListNegatives)
		r.Post("/campaigns/{id}/negatives", s.handleCreateNegative)
		r.Get("/campaigns/{id}/searchterms", s.handleListSearchTerms)
		r.Get("/campaigns/{id}/recommendations", s.handleListRecommendations)

		// Ad groups
		r.Get("/adgroups/{id}", s.handleGetAdGroup)
		r.Put("/adgroups/{id}", s.handleUpdateAdGroup)
		r.Delete("/adgroups/{id}", s.handleDeleteAdGroup)
		r.Post("/adgroups/{id}/duplicate", s.handleDuplicateAdGroup)
		r.Get("/adgroups/{id}/ads", s.handleListAds)
		r.Post("/adgroups/{id}/ads", s.handleCreateAd)

		// Ads
		r.Put("/ads/bulk/status", s.handleBulkAdStatus)
		r.Get("/ads/{id}", s.handleGetAd)
		r.Put("/ads/{id}", s.handleUpdateAd)
		r.Delete("/ads/{id}", s.handleDeleteAd)

		// Negative keywords
		r.Delete("/negatives/{id}", s.handleDeleteNegative)

		// Recommendations
		r.Post("/recommendations/generate", s.handleGenerateRecommendations)
		r.Post("/recommendations/{id}/apply", s.handleApplyRecommendation)
		r.Post("/recommendations/{id}/dismiss", s.handleDismissRecommendation)

		// Automation
		r.Get("/automation/rules", s.handleListRules)
		r.Post("/automation/rules", s.handleCreateRule)
		r.Get("/automation/rules/{id}", s.handleGetRule)
		r.Put("/automation/rules/{id}", s.handleUpdateRule)
		r.Delete("/automation/rules/{id}", s.handleDeleteRule)
		r.Post("/automation/rules/{id}/execute", s.handleExecuteRule)
		r.Get("/automation/rules/{id}/history", s.handleRuleHistory)
		r.Get("/automation/history", s.handleHistory)
		r.Get("/automation/stats", s.handleAutomationStats)
		r.Get("/automation/templates", s.handleTemplates)

		// AI generation
		r.Post("/ai/adcopy", s.handleGenerateAdCopy)
		r.Post("/ai/keywords", s.handleGenerateKeywords)
		r.Get("/ai/providers", s.handleListProviders)

		// Ads Editor transfer
		r.Get("/export/editor-csv", s.handleExportCSV)
		r.Post("/import/editor-csv", s.handleImportCSV)

		// Sheets sync
		r.Post("/sheets/sync", s.handleSheetsSync)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Int("bytes", ww.BytesWritten()).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", s.cfg.Addr()).Msg("Starting HTTP API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Version:  version,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Database: "ok",
	}
	if _, err := s.repo.ListCampaigns(r.Context(), storage.CampaignFilter{Limit: 1}); err != nil {
		resp.Status = "degraded"
		resp.Database = "error"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

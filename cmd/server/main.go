package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adpilot/internal/adseditor"
	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/api"
	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/metrics"
	"github.com/adpilot/internal/recommend"
	"github.com/adpilot/internal/sheets"
	"github.com/adpilot/internal/storage"
	"github.com/adpilot/internal/storage/sqlite"
	"github.com/adpilot/pkg/logger"
	"github.com/adpilot/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "adpilot-server",
		Short: "HTTP API server for AdPilot campaign management",
		Long: `Serves the AdPilot REST API: campaigns, recommendations, automation
rules, AI generation, Ads Editor transfer and sheet sync.`,
		RunE: runServer,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting AdPilot API server")

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Shared rate limiter across external APIs
	limiter := newLimiter(cfg.RateLimit)

	// Register every AI provider that has credentials
	var providers []ai.Provider
	if cfg.AI.Anthropic.APIKey != "" {
		providers = append(providers, ai.NewAnthropicProvider(cfg.AI.Anthropic, limiter, log))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		providers = append(providers, ai.NewOpenAIProvider(cfg.AI.OpenAI, limiter, log))
	}
	aiService := ai.NewService(cfg.AI.DefaultProvider, log, providers...)

	engine := recommend.NewEngine(repo, log)
	exporter := adseditor.NewExporter(repo, cfg.Export, log)
	importer := adseditor.NewImporter(repo, log)

	// Sheet sync is optional; without it the sync endpoint answers 503
	// and sync actions record an error
	syncer := newSheetSyncer(context.Background(), limiter)

	orchestrator := automation.NewOrchestrator(repo, engine, aiService, exporter, syncer, cfg.Automation, log)

	server := api.NewServer(api.Deps{
		Repo:         repo,
		Engine:       engine,
		Orchestrator: orchestrator,
		AI:           aiService,
		Exporter:     exporter,
		Importer:     importer,
		Sheets:       syncer,
		Metrics:      metrics.New(),
	}, cfg.Server, log)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// newLimiter builds the shared limiter from the configured per-minute
// budgets, keeping the default burst sizes
func newLimiter(rl config.RateLimitConfig) *ratelimit.MultiLimiter {
	m := ratelimit.NewMultiLimiter()
	m.AddLimiter(ratelimit.LimiterAnthropic, float64(rl.AnthropicRequestsPerMinute)/60, 2)
	m.AddLimiter(ratelimit.LimiterOpenAI, float64(rl.OpenAIRequestsPerMinute)/60, 3)
	m.AddLimiter(ratelimit.LimiterSheets, float64(rl.SheetsRequestsPerMinute)/60, 5)
	return m
}

// newSheetSyncer builds the sheet sync service when sync is enabled and
// credentials exist: service account first, then a stored OAuth token
// from the CLI login flow. Returns nil when neither is usable.
func newSheetSyncer(ctx context.Context, limiter *ratelimit.MultiLimiter) automation.SheetSyncer {
	if !cfg.Sheets.Enabled {
		return nil
	}

	if cfg.Sheets.ServiceAccountJSON != "" || cfg.Sheets.CredentialsFile != "" {
		svc, err := sheets.New(ctx, cfg.Sheets, repo, limiter, log)
		if err != nil {
			log.Warn().Err(err).Msg("Sheet sync unavailable")
			return nil
		}
		return svc
	}

	manager := sheets.NewManager(cfg.Sheets, repo, log)
	if !manager.Authenticated(ctx) {
		log.Warn().Msg("Sheet sync enabled but no credentials or stored token found, run the sheets login flow")
		return nil
	}
	svc, err := sheets.NewWithTokenSource(ctx, cfg.Sheets, manager.TokenSource(ctx), repo, limiter, log)
	if err != nil {
		log.Warn().Err(err).Msg("Sheet sync unavailable")
		return nil
	}
	return svc
}

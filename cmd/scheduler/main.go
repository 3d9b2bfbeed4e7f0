package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/adpilot/internal/adseditor"
	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/config"
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
		Use:   "adpilot-scheduler",
		Short: "Background scheduler for AdPilot automation rules",
		Long: `Runs the automation sweep on a fixed cadence, firing scheduled and
threshold-triggered rules. Run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting AdPilot Scheduler")

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server for the hosting platform
	go startHealthServer()

	// Shared rate limiter across external APIs
	limiter := ratelimit.NewDefaultLimiter()

	// AI providers, needed by the copy refresh action
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

	// Sheet sync is optional; sync actions record an error when it is
	// not configured
	var syncer automation.SheetSyncer
	if cfg.Sheets.Enabled {
		svc, err := newSheetsService(context.Background(), limiter)
		if err != nil {
			log.Warn().Err(err).Msg("Sheet sync unavailable")
		} else {
			syncer = svc
		}
	}

	orchestrator := automation.NewOrchestrator(repo, engine, aiService, exporter, syncer, cfg.Automation, log)

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	// Schedule the automation sweep. RunDue logs its own summary when
	// anything fired.
	_, err = c.AddFunc(cfg.Automation.SweepCron, func() {
		ctx := context.Background()

		result, err := orchestrator.RunDue(ctx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Automation sweep failed")
			return
		}

		log.Debug().
			Int("due", result.Due).
			Int("triggered", result.Triggered).
			Int("executed", result.Executed).
			Int("failed", result.Failed).
			Msg("Sweep pass finished")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule automation sweep: %w", err)
	}
	log.Info().Str("cron", cfg.Automation.SweepCron).Msg("Automation sweep scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	return nil
}

// newSheetsService builds the sync service from service-account
// credentials, falling back to a stored OAuth token from the CLI login
// flow
func newSheetsService(ctx context.Context, limiter *ratelimit.MultiLimiter) (*sheets.Service, error) {
	if cfg.Sheets.ServiceAccountJSON != "" || cfg.Sheets.CredentialsFile != "" {
		return sheets.New(ctx, cfg.Sheets, repo, limiter, log)
	}

	manager := sheets.NewManager(cfg.Sheets, repo, log)
	if !manager.Authenticated(ctx) {
		return nil, fmt.Errorf("no credentials or stored token found, run the sheets login flow")
	}
	return sheets.NewWithTokenSource(ctx, cfg.Sheets, manager.TokenSource(ctx), repo, limiter, log)
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks (used by Render)
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("AdPilot Scheduler"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}

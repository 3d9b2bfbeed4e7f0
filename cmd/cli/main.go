package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adpilot/internal/adseditor"
	"github.com/adpilot/internal/ai"
	"github.com/adpilot/internal/automation"
	"github.com/adpilot/internal/config"
	"github.com/adpilot/internal/models"
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
		Use:   "adpilot",
		Short: "Google Ads campaign management powered by AI",
		Long: `Manage search campaigns from the terminal: inspect structure, run the
recommendation engine, fire automation rules, generate ad copy with AI
and move data through Ads Editor CSVs and Google Sheets.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(campaignsCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(editorCmd())
	rootCmd.AddCommand(sheetsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
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

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// buildAIService registers every provider with credentials configured
func buildAIService(limiter *ratelimit.MultiLimiter) *ai.Service {
	var providers []ai.Provider
	if cfg.AI.Anthropic.APIKey != "" {
		providers = append(providers, ai.NewAnthropicProvider(cfg.AI.Anthropic, limiter, log))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		providers = append(providers, ai.NewOpenAIProvider(cfg.AI.OpenAI, limiter, log))
	}
	return ai.NewService(cfg.AI.DefaultProvider, log, providers...)
}

// newSheetsService builds the sync service from service-account
// credentials, falling back to a stored OAuth token
func newSheetsService(ctx context.Context, limiter *ratelimit.MultiLimiter) (*sheets.Service, error) {
	if !cfg.Sheets.Enabled {
		return nil, fmt.Errorf("sheet sync is disabled - set sheets.enabled=true and sheets.spreadsheet_id")
	}
	if cfg.Sheets.ServiceAccountJSON != "" || cfg.Sheets.CredentialsFile != "" {
		return sheets.New(ctx, cfg.Sheets, repo, limiter, log)
	}
	manager := sheets.NewManager(cfg.Sheets, repo, log)
	if !manager.Authenticated(ctx) {
		return nil, fmt.Errorf("not authenticated - run 'adpilot sheets login' first")
	}
	return sheets.NewWithTokenSource(ctx, cfg.Sheets, manager.TokenSource(ctx), repo, limiter, log)
}

// buildOrchestrator wires everything automation actions can touch.
// Sheet sync may be missing; those actions then record an error.
func buildOrchestrator(ctx context.Context) *automation.Orchestrator {
	limiter := ratelimit.NewDefaultLimiter()
	aiService := buildAIService(limiter)
	engine := recommend.NewEngine(repo, log)
	exporter := adseditor.NewExporter(repo, cfg.Export, log)

	var syncer automation.SheetSyncer
	if cfg.Sheets.Enabled {
		if svc, err := newSheetsService(ctx, limiter); err == nil {
			syncer = svc
		}
	}

	return automation.NewOrchestrator(repo, engine, aiService, exporter, syncer, cfg.Automation, log)
}

// ============ CAMPAIGN COMMANDS ============

func campaignsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List and inspect campaigns",
	}

	cmd.AddCommand(campaignsListCmd())
	cmd.AddCommand(campaignsShowCmd())
	return cmd
}

func campaignsListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultCampaignFilter()
			filter.Limit = limit

			if status != "" {
				s := models.CampaignStatus(status)
				filter.Status = &s
			}

			campaigns, err := repo.ListCampaigns(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Campaigns (%d) ===\n\n", len(campaigns))
			for _, c := range campaigns {
				fmt.Printf("[%d] %s\n", c.ID, c.Name)
				fmt.Printf("    Status: %s | Daily budget: %.2f\n", c.Status, c.Budget)
				fmt.Printf("    Created: %s\n", c.CreatedAt.Format(time.RFC1123))
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, paused, draft)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum campaigns to show")

	return cmd
}

func campaignsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [campaign-id]",
		Short: "Show a campaign with its ad groups and ads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			campaignID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid campaign ID: %w", err)
			}

			campaign, err := repo.GetCampaignByID(ctx, uint(campaignID))
			if err != nil {
				return err
			}

			groups, err := repo.ListAdGroups(ctx, campaign.ID)
			if err != nil {
				return err
			}
			negatives, err := repo.ListNegativeKeywords(ctx, campaign.ID)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Campaign [%d] %s ===\n", campaign.ID, campaign.Name)
			fmt.Printf("Status:       %s\n", campaign.Status)
			fmt.Printf("Daily budget: %.2f\n", campaign.Budget)
			fmt.Printf("Ad groups:    %d\n", len(groups))
			fmt.Printf("Negatives:    %d\n", len(negatives))

			for _, g := range groups {
				ads, err := repo.ListAds(ctx, g.ID)
				if err != nil {
					return err
				}

				fmt.Printf("\n[%d] %s (%s)\n", g.ID, g.Name, g.Status)
				fmt.Printf("    Keywords: %d | Ads: %d\n", len(g.Keywords), len(ads))
				for _, kw := range g.Keywords {
					if kw.MaxCPC != nil {
						fmt.Printf("      - %s (max CPC %.2f)\n", kw.Text, *kw.MaxCPC)
					} else {
						fmt.Printf("      - %s\n", kw.Text)
					}
				}
				for _, ad := range ads {
					headline := ""
					if len(ad.Headlines) > 0 {
						headline = ad.Headlines[0].Text
					}
					fmt.Printf("      Ad [%d] %s | %d headlines, %d descriptions (%s)\n",
						ad.ID, truncateStr(headline, 40), len(ad.Headlines), len(ad.Descriptions), ad.Status)
				}
			}
			fmt.Println()

			return nil
		},
	}

	return cmd
}

// ============ RECOMMEND COMMANDS ============

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate, review and apply recommendations",
	}

	cmd.AddCommand(recommendRunCmd())
	cmd.AddCommand(recommendListCmd())
	cmd.AddCommand(recommendApplyCmd())
	cmd.AddCommand(recommendDismissCmd())
	return cmd
}

func recommendRunCmd() *cobra.Command {
	var campaignID uint
	var minImpressions int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every analyzer and store the findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			engine := recommend.NewEngine(repo, log)

			opts := recommend.DefaultOptions()
			if campaignID > 0 {
				opts.CampaignIDs = []uint{campaignID}
			}
			if minImpressions > 0 {
				opts.MinImpressions = minImpressions
			}

			result, err := engine.Generate(ctx, opts)
			if err != nil {
				return err
			}

			// Print results
			fmt.Printf("\n=== Recommendation Run ===\n")
			fmt.Printf("Campaigns Analyzed: %d\n", result.CampaignsAnalyzed)
			fmt.Printf("Structure Findings: %d\n", result.StructureFindings)
			fmt.Printf("Asset Findings:     %d\n", result.AssetFindings)
			fmt.Printf("Query Findings:     %d\n", result.QueryFindings)
			fmt.Printf("Budget Findings:    %d\n", result.BudgetFindings)
			fmt.Printf("Created:            %d\n", result.Created)
			fmt.Printf("Duplicates Skipped: %d\n", result.DuplicatesSkipped)
			fmt.Printf("Duration:           %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&campaignID, "campaign", 0, "Analyze a single campaign instead of all active ones")
	cmd.Flags().IntVar(&minImpressions, "min-impressions", 0, "Minimum impressions before a search term is judged")

	return cmd
}

func recommendListCmd() *cobra.Command {
	var campaignID uint
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.RecommendationFilter{Limit: limit}
			if campaignID > 0 {
				id := campaignID
				filter.CampaignID = &id
			}
			if status != "" {
				s := models.RecommendationStatus(status)
				filter.Status = &s
			}

			recs, err := repo.ListRecommendations(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Recommendations (%d) ===\n\n", len(recs))
			for _, rec := range recs {
				fmt.Printf("[%d] %s | %s | %s\n", rec.ID, rec.Priority, rec.Type, rec.Title)
				fmt.Printf("    Status: %s | Auto-apply: %t\n", rec.Status, rec.AutoApplyEligible)
				if rec.Description != "" {
					fmt.Printf("    %s\n", truncateStr(rec.Description, 150))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&campaignID, "campaign", 0, "Filter by campaign ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, applied, dismissed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum recommendations to show")

	return cmd
}

func recommendApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [recommendation-id]",
		Short: "Apply a pending recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			recID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recommendation ID: %w", err)
			}

			engine := recommend.NewEngine(repo, log)

			outcome, err := engine.Apply(ctx, uint(recID))
			if err != nil {
				return err
			}

			if !outcome.Success {
				fmt.Printf("Not applied: %s\n", outcome.Message)
				return nil
			}

			fmt.Printf("Recommendation %d applied\n", recID)
			for _, change := range outcome.Changes {
				fmt.Printf("  - %s\n", change)
			}

			return nil
		},
	}

	return cmd
}

func recommendDismissCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dismiss [recommendation-id]",
		Short: "Dismiss a pending recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			recID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recommendation ID: %w", err)
			}

			engine := recommend.NewEngine(repo, log)

			if _, err := engine.Dismiss(ctx, uint(recID)); err != nil {
				return err
			}

			fmt.Printf("Recommendation %d dismissed\n", recID)
			return nil
		},
	}

	return cmd
}

// ============ AUTOMATION COMMANDS ============

func automationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Manage and run automation rules",
	}

	cmd.AddCommand(automationListCmd())
	cmd.AddCommand(automationRunCmd())
	cmd.AddCommand(automationSweepCmd())
	cmd.AddCommand(automationHistoryCmd())
	cmd.AddCommand(automationStatsCmd())
	cmd.AddCommand(automationTemplatesCmd())
	cmd.AddCommand(automationInstallCmd())
	return cmd
}

func automationListCmd() *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List automation rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.RuleFilter{}
			if enabledOnly {
				enabled := true
				filter.Enabled = &enabled
			}

			rules, err := repo.ListAutomationRules(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Automation Rules (%d) ===\n\n", len(rules))
			for _, rule := range rules {
				state := "enabled"
				if !rule.Enabled {
					state = "disabled"
				}

				fmt.Printf("[%d] %s (%s)\n", rule.ID, rule.Name, state)
				fmt.Printf("    Trigger: %s | Action: %s | Runs: %d\n", rule.TriggerType, rule.ActionType, rule.RunCount)
				if rule.LastRunAt != nil {
					fmt.Printf("    Last run: %s ago\n", formatDuration(time.Since(*rule.LastRunAt)))
				}
				if rule.NextRunAt != nil {
					fmt.Printf("    Next run: %s\n", rule.NextRunAt.Format(time.RFC1123))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled-only", false, "Show only enabled rules")

	return cmd
}

func automationRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [rule-id]",
		Short: "Execute one rule now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			ruleID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID: %w", err)
			}

			orchestrator := buildOrchestrator(ctx)

			exec, err := orchestrator.Execute(ctx, uint(ruleID), models.RunTypeManual)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Execution %s ===\n", exec.ExecutionID)
			fmt.Printf("Status:            %s\n", exec.Status)
			fmt.Printf("Entities Affected: %d\n", exec.EntitiesAffected)
			fmt.Printf("Duration:          %dms\n", exec.DurationMS)

			if len(exec.ChangesMade) > 0 {
				fmt.Printf("\nChanges:\n")
				for _, change := range exec.ChangesMade {
					fmt.Printf("  - %s\n", change)
				}
			}
			if len(exec.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range exec.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	return cmd
}

func automationSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run every due rule once, the way the scheduler would",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			orchestrator := buildOrchestrator(ctx)

			result, err := orchestrator.RunDue(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Automation Sweep ===\n")
			fmt.Printf("Due:       %d\n", result.Due)
			fmt.Printf("Triggered: %d\n", result.Triggered)
			fmt.Printf("Executed:  %d\n", result.Executed)
			fmt.Printf("Failed:    %d\n", result.Failed)

			return nil
		},
	}

	return cmd
}

func automationHistoryCmd() *cobra.Command {
	var ruleID uint
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show execution history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			orchestrator := buildOrchestrator(ctx)

			var scope *uint
			if ruleID > 0 {
				id := ruleID
				scope = &id
			}

			execs, err := orchestrator.History(ctx, scope, limit, 0)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Execution History (%d) ===\n\n", len(execs))
			for _, exec := range execs {
				fmt.Printf("[%d] rule %d | %s | %s\n", exec.ID, exec.RuleID, exec.RunType, exec.Status)
				fmt.Printf("    Started: %s | Duration: %dms | Affected: %d\n",
					exec.StartedAt.Format(time.RFC1123), exec.DurationMS, exec.EntitiesAffected)
				if len(exec.Errors) > 0 {
					for _, e := range exec.Errors {
						fmt.Printf("    Error: %s\n", e)
					}
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&ruleID, "rule", 0, "Show history for one rule only")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum executions to show")

	return cmd
}

func automationStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate automation figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			orchestrator := buildOrchestrator(ctx)

			stats, err := orchestrator.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Automation Stats ===\n")
			fmt.Printf("Rules:            %d (%d enabled)\n", stats.TotalRules, stats.EnabledRules)
			fmt.Printf("Total Executions: %d\n", stats.TotalExecutions)
			fmt.Printf("Completed:        %d\n", stats.CompletedExecutions)
			fmt.Printf("Partial:          %d\n", stats.PartialExecutions)
			fmt.Printf("Failed:           %d\n", stats.FailedExecutions)
			fmt.Printf("Success Rate:     %.0f%%\n", stats.SuccessRate*100)

			if len(stats.RulesByAction) > 0 {
				fmt.Printf("\nRules by action:\n")
				for action, count := range stats.RulesByAction {
					fmt.Printf("  %-32s %d\n", action, count)
				}
			}
			if stats.LastExecution != nil {
				fmt.Printf("\nLast execution: [%d] rule %d | %s | %s\n",
					stats.LastExecution.ID, stats.LastExecution.RuleID,
					stats.LastExecution.Status, stats.LastExecution.StartedAt.Format(time.RFC1123))
			}

			return nil
		},
	}

	return cmd
}

func automationTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the built-in rule templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := automation.Templates()

			fmt.Printf("\n=== Rule Templates (%d) ===\n\n", len(templates))
			for _, t := range templates {
				fmt.Printf("%s - %s\n", t.Key, t.Name)
				fmt.Printf("    %s\n", t.Description)
				fmt.Printf("    Trigger: %s | Action: %s\n", t.Rule.TriggerType, t.Rule.ActionType)
				fmt.Println()
			}

			fmt.Println("Install one with 'adpilot automation install <key>'")
			return nil
		},
	}

	return cmd
}

func automationInstallCmd() *cobra.Command {
	var name string
	var campaignID uint

	cmd := &cobra.Command{
		Use:   "install [template-key]",
		Short: "Create a rule from a built-in template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			template, ok := automation.TemplateByKey(args[0])
			if !ok {
				return fmt.Errorf("unknown template %q - run 'adpilot automation templates' to see the options", args[0])
			}

			rule := template.Rule
			if name != "" {
				rule.Name = name
			}
			if campaignID > 0 {
				if rule.TriggerConfig == nil {
					rule.TriggerConfig = models.JSON{}
				}
				rule.TriggerConfig["campaign_id"] = float64(campaignID)
			}

			if rule.TriggerType == models.TriggerScheduled {
				next, err := automation.NextRun(&rule, time.Now())
				if err != nil {
					return fmt.Errorf("template has a broken schedule: %w", err)
				}
				rule.NextRunAt = next
			}

			if err := repo.CreateAutomationRule(ctx, &rule); err != nil {
				return err
			}
			if !template.Rule.Enabled {
				// The insert drops a false enabled flag in favor of the
				// column default, so persist it with a second write
				rule.Enabled = false
				if err := repo.UpdateAutomationRule(ctx, &rule); err != nil {
					return err
				}
			}

			fmt.Printf("Installed rule [%d] %s\n", rule.ID, rule.Name)
			fmt.Printf("Trigger: %s | Action: %s | Enabled: %t\n", rule.TriggerType, rule.ActionType, rule.Enabled)
			if rule.NextRunAt != nil {
				fmt.Printf("Next run: %s\n", rule.NextRunAt.Format(time.RFC1123))
			}
			if !rule.Enabled {
				fmt.Println("\nThe rule is disabled. Review its trigger config, then enable it via the API.")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Override the template's rule name")
	cmd.Flags().UintVar(&campaignID, "campaign", 0, "Campaign ID for threshold templates")

	return cmd
}

// ============ GENERATE COMMANDS ============

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "AI-assisted ad copy and keyword generation",
	}

	cmd.AddCommand(generateAdCopyCmd())
	cmd.AddCommand(generateKeywordsCmd())
	cmd.AddCommand(generateProvidersCmd())
	return cmd
}

func generateAdCopyCmd() *cobra.Command {
	var business string
	var keywords string
	var tone string
	var usps string
	var headlines int
	var descriptions int
	var provider string

	cmd := &cobra.Command{
		Use:   "adcopy",
		Short: "Generate responsive search ad headlines and descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			service := buildAIService(limiter)

			result, err := service.GenerateAdCopy(ctx, ai.CopyRequest{
				BusinessDescription: business,
				Keywords:            splitList(keywords),
				Tone:                tone,
				UniqueSellingPoints: splitList(usps),
				HeadlineCount:       headlines,
				DescriptionCount:    descriptions,
				Provider:            provider,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generated Ad Copy (%s) ===\n\n", result.Provider)
			fmt.Printf("Headlines (%d):\n", len(result.Headlines))
			for i, h := range result.Headlines {
				fmt.Printf("  %2d. %-30s [%s]\n", i+1, h.Text, h.Category)
			}
			fmt.Printf("\nDescriptions (%d):\n", len(result.Descriptions))
			for i, d := range result.Descriptions {
				fmt.Printf("  %2d. %s\n", i+1, d)
			}
			if len(result.Warnings) > 0 {
				fmt.Printf("\nWarnings:\n")
				for _, w := range result.Warnings {
					fmt.Printf("  - %s\n", w)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "What the business sells and to whom")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Comma-separated target keywords")
	cmd.Flags().StringVar(&tone, "tone", "", "Tone of voice (default professional)")
	cmd.Flags().StringVar(&usps, "usp", "", "Comma-separated unique selling points")
	cmd.Flags().IntVar(&headlines, "headlines", 0, "Headlines to generate (default 15)")
	cmd.Flags().IntVar(&descriptions, "descriptions", 0, "Descriptions to generate (default 4)")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider (default from config)")
	cmd.MarkFlagRequired("business")

	return cmd
}

func generateKeywordsCmd() *cobra.Command {
	var business string
	var seeds string
	var count int
	var provider string

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Generate keyword ideas bucketed by match type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			service := buildAIService(limiter)

			result, err := service.GenerateKeywords(ctx, ai.KeywordRequest{
				BusinessDescription: business,
				SeedKeywords:        splitList(seeds),
				CountPerMatchType:   count,
				Provider:            provider,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generated Keywords (%s) ===\n", result.Provider)
			printKeywordBucket("Broad", result.Broad)
			printKeywordBucket("Phrase", result.Phrase)
			printKeywordBucket("Exact", result.Exact)
			printKeywordBucket("Negative", result.Negative)

			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "What the business sells and to whom")
	cmd.Flags().StringVar(&seeds, "seeds", "", "Comma-separated seed keywords")
	cmd.Flags().IntVar(&count, "count", 0, "Ideas per match type (default 10)")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider (default from config)")
	cmd.MarkFlagRequired("business")

	return cmd
}

func printKeywordBucket(label string, keywords []string) {
	fmt.Printf("\n%s (%d):\n", label, len(keywords))
	for _, kw := range keywords {
		fmt.Printf("  - %s\n", kw)
	}
}

func generateProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured AI providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			limiter := ratelimit.NewDefaultLimiter()
			service := buildAIService(limiter)

			providers := service.Providers()

			fmt.Printf("\n=== AI Providers (%d) ===\n\n", len(providers))
			for _, p := range providers {
				marker := " "
				if p.Default {
					marker = "*"
				}
				fmt.Printf("%s %s (available: %t)\n", marker, p.Name, p.Available)
			}
			if len(providers) == 0 {
				fmt.Println("No providers configured. Set an API key under ai.anthropic or ai.openai.")
			}

			return nil
		},
	}

	return cmd
}

// ============ EDITOR COMMANDS ============

func editorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Ads Editor CSV transfer",
	}

	cmd.AddCommand(editorExportCmd())
	cmd.AddCommand(editorImportCmd())
	return cmd
}

func editorExportCmd() *cobra.Command {
	var output string
	var campaigns string
	var matchTypes string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the account structure to an Ads Editor CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			exporter := adseditor.NewExporter(repo, cfg.Export, log)

			var opts adseditor.Options
			ids, err := parseUintList(campaigns)
			if err != nil {
				return err
			}
			opts.CampaignIDs = ids

			opts.MatchTypes, err = parseMatchTypes(matchTypes)
			if err != nil {
				return err
			}

			// Without an explicit destination or filter the export lands
			// in the configured directory with a timestamped name
			if output == "" && len(opts.CampaignIDs) == 0 && len(opts.MatchTypes) == 0 {
				path, rows, err := exporter.ExportFile(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Exported %d rows to %s\n", rows, path)
				return nil
			}

			if output == "" {
				output = fmt.Sprintf("ads-editor-%s.csv", time.Now().Format("20060102-150405"))
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}

			rows, err := exporter.Export(ctx, f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}

			fmt.Printf("Exported %d rows to %s\n", rows, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Destination file (default is the configured export directory)")
	cmd.Flags().StringVar(&campaigns, "campaigns", "", "Comma-separated campaign IDs to export")
	cmd.Flags().StringVar(&matchTypes, "match-types", "", "Comma-separated match types (broad, phrase, exact)")

	return cmd
}

func editorImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import campaigns from an Ads Editor CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			importer := adseditor.NewImporter(repo, log)

			result, err := importer.Import(ctx, f)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Import Results ===\n")
			fmt.Printf("Rows Read:         %d\n", result.Rows)
			fmt.Printf("Campaigns Created: %d\n", result.Campaigns)
			fmt.Printf("Ad Groups Created: %d\n", result.AdGroups)
			fmt.Printf("Ads Created:       %d\n", result.Ads)
			fmt.Printf("Keywords Added:    %d\n", result.Keywords)
			fmt.Printf("Skipped:           %d\n", result.Skipped)

			if len(result.Errors) > 0 {
				fmt.Printf("\nRow errors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	return cmd
}

// ============ SHEETS COMMANDS ============

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets performance sync",
	}

	cmd.AddCommand(sheetsLoginCmd())
	cmd.AddCommand(sheetsStatusCmd())
	cmd.AddCommand(sheetsInitCmd())
	cmd.AddCommand(sheetsSyncCmd())
	return cmd
}

func sheetsLoginCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start the Google OAuth login flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			manager := sheets.NewManager(cfg.Sheets, repo, log)

			fmt.Printf("Starting OAuth callback server on port %d...\n", port)
			authURL, err := manager.Login(ctx, port)
			if err != nil {
				return fmt.Errorf("OAuth failed: %w", err)
			}

			fmt.Printf("\nConsent URL:\n%s\n", authURL)
			fmt.Println("\nAuthentication successful!")

			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8089, "Port for OAuth callback server")
	return cmd
}

func sheetsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the stored Google token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			manager := sheets.NewManager(cfg.Sheets, repo, log)
			valid, expiresAt, err := manager.Status(ctx)

			if err != nil {
				fmt.Println("Status: Not authenticated")
				fmt.Println("Run 'adpilot sheets login' to authenticate")
				return nil
			}

			fmt.Printf("Status:     %s\n", map[bool]string{true: "Valid", false: "Expired"}[valid])
			fmt.Printf("Expires at: %s\n", expiresAt.Format(time.RFC1123))

			if !valid {
				fmt.Println("\nToken expired. Run 'adpilot sheets login' to re-authenticate")
			}

			return nil
		},
	}

	return cmd
}

func sheetsInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the spreadsheet tabs with their header rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			service, err := newSheetsService(ctx, limiter)
			if err != nil {
				return err
			}

			if err := service.EnsureSpreadsheet(ctx); err != nil {
				return fmt.Errorf("failed to initialize spreadsheet: %w", err)
			}

			fmt.Println("Spreadsheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Sheets.SpreadsheetID)
			fmt.Println("\nPerformance columns:")
			for i, col := range sheets.PerformanceColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}
			fmt.Println("\nSearch term columns:")
			for i, col := range sheets.SearchTermColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}

			return nil
		},
	}

	return cmd
}

func sheetsSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull performance and search term rows into local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			service, err := newSheetsService(ctx, limiter)
			if err != nil {
				return err
			}

			performanceRows, err := service.PullPerformance(ctx)
			if err != nil {
				return fmt.Errorf("performance pull failed: %w", err)
			}
			searchTermRows, err := service.PullSearchTerms(ctx)
			if err != nil {
				return fmt.Errorf("search term pull failed after %d performance rows: %w", performanceRows, err)
			}

			fmt.Printf("\n=== Sheet Sync ===\n")
			fmt.Printf("Performance rows: %d\n", performanceRows)
			fmt.Printf("Search term rows: %d\n", searchTermRows)

			return nil
		},
	}

	return cmd
}

// ============ HELPERS ============

// splitList turns a comma-separated flag value into trimmed items
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseUintList parses a comma-separated list of IDs
func parseUintList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range splitList(raw) {
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q", part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// parseMatchTypes parses a comma-separated list of match type names
func parseMatchTypes(raw string) ([]models.MatchType, error) {
	var types []models.MatchType
	for _, part := range splitList(raw) {
		mt := models.MatchType(strings.ToLower(part))
		switch mt {
		case models.MatchTypeBroad, models.MatchTypePhrase, models.MatchTypeExact:
			types = append(types, mt)
		default:
			return nil, fmt.Errorf("unknown match type %q", part)
		}
	}
	return types, nil
}

// Helper function to truncate strings
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Helper function to format duration nicely
func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AI         AIConfig         `mapstructure:"ai"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Automation AutomationConfig `mapstructure:"automation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Export     ExportConfig     `mapstructure:"export"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// AIConfig holds LLM provider settings
type AIConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"` // anthropic or openai
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// OpenAIConfig holds settings for OpenAI-compatible chat endpoints
type OpenAIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"` // Override for local/proxy endpoints
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SheetsConfig holds Google Sheets sync settings. Credentials resolve in
// order: service account JSON, credentials file, stored OAuth token.
type SheetsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	PerformanceSheet   string `mapstructure:"performance_sheet"`
	SearchTermsSheet   string `mapstructure:"search_terms_sheet"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
	OAuthClientID      string `mapstructure:"oauth_client_id"`
	OAuthClientSecret  string `mapstructure:"oauth_client_secret"`
	OAuthRedirectURI   string `mapstructure:"oauth_redirect_uri"`
}

// AutomationConfig holds automation engine settings
type AutomationConfig struct {
	SweepCron        string   `mapstructure:"sweep_cron"`      // How often the scheduler looks for due rules
	MinImpressions   int      `mapstructure:"min_impressions"` // Default analyzer threshold
	LowPerformerCTR  float64  `mapstructure:"low_performer_ctr"`
	StaleAfterDays   int      `mapstructure:"stale_after_days"`
	DefaultNegatives []string `mapstructure:"default_negatives"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
	OpenAIRequestsPerMinute    int `mapstructure:"openai_requests_per_minute"`
	SheetsRequestsPerMinute    int `mapstructure:"sheets_requests_per_minute"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// ExportConfig holds Ads Editor CSV export settings
type ExportConfig struct {
	MatchTypes []string `mapstructure:"match_types"`
	Directory  string   `mapstructure:"directory"` // Where automation exports are written
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".adpilot"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("ADPILOT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("server.host", "ADPILOT_SERVER_HOST")
	v.BindEnv("server.port", "ADPILOT_SERVER_PORT")
	v.BindEnv("database.driver", "ADPILOT_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "ADPILOT_DATABASE_DSN")
	v.BindEnv("ai.default_provider", "ADPILOT_AI_DEFAULT_PROVIDER")
	v.BindEnv("ai.anthropic.api_key", "ADPILOT_AI_ANTHROPIC_API_KEY")
	v.BindEnv("ai.anthropic.model", "ADPILOT_AI_ANTHROPIC_MODEL")
	v.BindEnv("ai.openai.api_key", "ADPILOT_AI_OPENAI_API_KEY")
	v.BindEnv("ai.openai.base_url", "ADPILOT_AI_OPENAI_BASE_URL")
	v.BindEnv("ai.openai.model", "ADPILOT_AI_OPENAI_MODEL")
	v.BindEnv("sheets.enabled", "ADPILOT_SHEETS_ENABLED")
	v.BindEnv("sheets.spreadsheet_id", "ADPILOT_SHEETS_SPREADSHEET_ID")
	v.BindEnv("sheets.credentials_file", "ADPILOT_SHEETS_CREDENTIALS_FILE")
	v.BindEnv("sheets.service_account_json", "ADPILOT_SHEETS_SERVICE_ACCOUNT_JSON")
	v.BindEnv("sheets.oauth_client_id", "ADPILOT_SHEETS_OAUTH_CLIENT_ID")
	v.BindEnv("sheets.oauth_client_secret", "ADPILOT_SHEETS_OAUTH_CLIENT_SECRET")
	v.BindEnv("logging.level", "ADPILOT_LOGGING_LEVEL")
	v.BindEnv("logging.format", "ADPILOT_LOGGING_FORMAT")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/adpilot.db")

	// AI defaults
	v.SetDefault("ai.default_provider", "anthropic")
	v.SetDefault("ai.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.anthropic.max_tokens", 4096)
	v.SetDefault("ai.anthropic.temperature", 0.7)
	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.max_tokens", 2048)
	v.SetDefault("ai.openai.timeout", "60s")

	// Sheets defaults
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.performance_sheet", "Performance")
	v.SetDefault("sheets.search_terms_sheet", "SearchTerms")
	v.SetDefault("sheets.oauth_redirect_uri", "http://localhost:8089/callback")

	// Automation defaults
	v.SetDefault("automation.sweep_cron", "* * * * *") // Every minute
	v.SetDefault("automation.min_impressions", 100)
	v.SetDefault("automation.low_performer_ctr", 0.005)
	v.SetDefault("automation.stale_after_days", 30)
	v.SetDefault("automation.default_negatives", []string{"free", "cheap", "jobs", "careers", "salary"})

	// Rate limit defaults
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.openai_requests_per_minute", 20)
	v.SetDefault("rate_limit.sheets_requests_per_minute", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Export defaults
	v.SetDefault("export.match_types", []string{"broad", "phrase", "exact"})
	v.SetDefault("export.directory", "./exports")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.AI.DefaultProvider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("ai.default_provider must be anthropic or openai")
	}
	return nil
}

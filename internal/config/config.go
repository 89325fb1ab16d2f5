package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Market        MarketConfig        `mapstructure:"market"`
	Detector      DetectorConfig      `mapstructure:"detector"`
	Investigation InvestigationConfig `mapstructure:"investigation"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	Tavily        TavilyConfig        `mapstructure:"tavily"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// MarketConfig holds market data polling configuration
type MarketConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Watchlist    []string      `mapstructure:"watchlist"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DetectorConfig holds anomaly detection thresholds
type DetectorConfig struct {
	PriceThreshold  float64 `mapstructure:"price_threshold"`  // minimum |percent change| to flag
	VolumeThreshold float64 `mapstructure:"volume_threshold"` // minimum volume ratio vs average
	MinScore        int     `mapstructure:"min_score"`
}

// InvestigationConfig holds investigation loop configuration
type InvestigationConfig struct {
	MaxRetries          int     `mapstructure:"max_retries"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxSteps            int     `mapstructure:"max_steps"`
	ResultsPerQuery     int     `mapstructure:"results_per_query"`
}

// GeminiConfig holds the LLM provider configuration
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TavilyConfig holds web search provider configuration
type TavilyConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	MaxResults        int           `mapstructure:"max_results"`
	RecencyDays       int           `mapstructure:"recency_days"`
	SearchDepth       string        `mapstructure:"search_depth"`
	IncludeDomains    []string      `mapstructure:"include_domains"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath            string `mapstructure:"db_path"`
	MaxInvestigations int    `mapstructure:"max_investigations"`
	ReportsDir        string `mapstructure:"reports_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("STOCKSLEUTH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Market defaults
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.poll_interval", "15m")
	v.SetDefault("market.lookback_days", 30)
	v.SetDefault("market.timeout", "30s")

	// Detector defaults
	v.SetDefault("detector.price_threshold", 10.0)
	v.SetDefault("detector.volume_threshold", 3.0)
	v.SetDefault("detector.min_score", 5)

	// Investigation defaults
	v.SetDefault("investigation.max_retries", 3)
	v.SetDefault("investigation.confidence_threshold", 0.7)
	v.SetDefault("investigation.max_steps", 50)
	v.SetDefault("investigation.results_per_query", 3)

	// Gemini defaults
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "60s")

	// Tavily defaults
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.max_results", 3)
	v.SetDefault("tavily.recency_days", 7)
	v.SetDefault("tavily.search_depth", "advanced")
	v.SetDefault("tavily.include_domains", []string{
		"sec.gov", "reuters.com", "bloomberg.com", "finance.yahoo.com",
		"seekingalpha.com", "marketwatch.com", "fool.com", "cnbc.com",
		"wsj.com", "ft.com",
	})
	v.SetDefault("tavily.timeout", "30s")
	v.SetDefault("tavily.max_retries", 3)
	v.SetDefault("tavily.requests_per_second", 1.0)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/stocksleuth.db")
	v.SetDefault("storage.max_investigations", 1000)
	v.SetDefault("storage.reports_dir", "./reports")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Market config
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	if len(c.Market.Watchlist) == 0 {
		return fmt.Errorf("market.watchlist must contain at least one ticker")
	}
	if c.Market.PollInterval < 1*time.Minute {
		return fmt.Errorf("market.poll_interval must be at least 1 minute")
	}
	if c.Market.LookbackDays < 15 {
		return fmt.Errorf("market.lookback_days must be at least 15")
	}

	// Validate Detector config
	if c.Detector.PriceThreshold <= 0 {
		return fmt.Errorf("detector.price_threshold must be positive")
	}
	if c.Detector.VolumeThreshold <= 1.0 {
		return fmt.Errorf("detector.volume_threshold must be greater than 1.0")
	}
	if c.Detector.MinScore < 1 {
		return fmt.Errorf("detector.min_score must be at least 1")
	}

	// Validate Investigation config
	if c.Investigation.MaxRetries < 1 {
		return fmt.Errorf("investigation.max_retries must be at least 1")
	}
	if c.Investigation.ConfidenceThreshold < 0.0 || c.Investigation.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("investigation.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Investigation.MaxSteps < 1 {
		return fmt.Errorf("investigation.max_steps must be at least 1")
	}
	if c.Investigation.ResultsPerQuery < 1 {
		return fmt.Errorf("investigation.results_per_query must be at least 1")
	}

	// Validate Gemini config
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini.model is required")
	}

	// Validate Tavily config
	if c.Tavily.APIKey == "" {
		return fmt.Errorf("tavily.api_key is required")
	}
	if c.Tavily.BaseURL == "" {
		return fmt.Errorf("tavily.base_url is required")
	}
	if c.Tavily.MaxResults < 1 || c.Tavily.MaxResults > 20 {
		return fmt.Errorf("tavily.max_results must be between 1 and 20")
	}
	if c.Tavily.SearchDepth != "basic" && c.Tavily.SearchDepth != "advanced" {
		return fmt.Errorf("tavily.search_depth must be one of: basic, advanced")
	}
	if c.Tavily.RequestsPerSecond <= 0 {
		return fmt.Errorf("tavily.requests_per_second must be positive")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxInvestigations < 1 {
		return fmt.Errorf("storage.max_investigations must be at least 1")
	}
	if c.Storage.ReportsDir == "" {
		return fmt.Errorf("storage.reports_dir is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

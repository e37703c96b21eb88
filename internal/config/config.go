// Package config provides configuration loading and management for warehouse-sentinel.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// Config represents the complete application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Costs      CostsConfig      `yaml:"costs"`
	Cache      CacheConfig      `yaml:"cache"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Server     ServerConfig     `yaml:"server"`
}

// DatabaseConfig holds connection settings for the telemetry mirror database.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Schema is the schema the account-usage mirror tables live in.
	Schema string `yaml:"schema"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ScheduleConfig defines when analysis jobs run.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`

	// Location is resolved from Timezone during Validate.
	Location *time.Location `yaml:"-"`
}

// AnalysisConfig defines the analysis window and forecast horizon.
type AnalysisConfig struct {
	LookbackDays        int `yaml:"lookback_days"`
	ForecastHorizonDays int `yaml:"forecast_horizon_days"`
}

// ThresholdsConfig carries the fixed alerting and advisory thresholds.
type ThresholdsConfig struct {
	// QueueSeconds is the average queue time above which a warehouse is
	// considered undersized.
	QueueSeconds float64 `yaml:"queue_seconds"`

	// ZWarning and ZCritical are the anomaly z-score severity boundaries.
	ZWarning  float64 `yaml:"z_warning"`
	ZCritical float64 `yaml:"z_critical"`

	// ConcentrationPercent is the cumulative-share target for the cost
	// attribution Pareto point.
	ConcentrationPercent float64 `yaml:"concentration_percent"`

	// LargeSizeCutoff is the smallest warehouse size label eligible for the
	// downsize recommendation.
	LargeSizeCutoff string `yaml:"large_size_cutoff"`
}

// SizeCutoff returns the parsed large-size cutoff.
func (t *ThresholdsConfig) SizeCutoff() (model.SizeClass, error) {
	return model.ParseSizeClass(t.LargeSizeCutoff)
}

// CostsConfig holds the unit prices the presentation layer uses to convert
// raw credits and bytes into currency. The engine itself is currency-agnostic.
type CostsConfig struct {
	CreditCost   float64 `yaml:"credit_cost"`
	StoragePerTB float64 `yaml:"storage_cost_per_tb"`
}

// CacheConfig controls the in-process result cache.
type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

// TTLParsed returns the parsed cache time-to-live.
func (c *CacheConfig) TTLParsed() (time.Duration, error) {
	return time.ParseDuration(c.TTL)
}

// NotifierConfig holds notification channel settings.
type NotifierConfig struct {
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url"`
	Retries    int    `yaml:"retries"`
	RetryDelay string `yaml:"retry_delay"`
}

// RetryDelayParsed returns the parsed retry delay duration.
func (n *NotifierConfig) RetryDelayParsed() (time.Duration, error) {
	return time.ParseDuration(n.RetryDelay)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int  `yaml:"port"`
	DeepCheck bool `yaml:"deep_check"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns in the input string.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) > 2 {
			defaultVal = parts[2]
		}

		if val, exists := os.LookupEnv(varName); exists {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for any unset configuration fields.
func applyDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Host == "" {
		cfg.Database.Host = "127.0.0.1"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "usage_readonly"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "telemetry"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Schema == "" {
		cfg.Database.Schema = "account_usage"
	}

	// Schedule defaults (6-field cron with seconds): every Monday at 9:00 AM
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 0 9 * * 1"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}

	// Analysis defaults
	if cfg.Analysis.LookbackDays == 0 {
		cfg.Analysis.LookbackDays = 30
	}
	if cfg.Analysis.ForecastHorizonDays == 0 {
		cfg.Analysis.ForecastHorizonDays = 30
	}

	// Threshold defaults
	if cfg.Thresholds.QueueSeconds == 0 {
		cfg.Thresholds.QueueSeconds = 5
	}
	if cfg.Thresholds.ZWarning == 0 {
		cfg.Thresholds.ZWarning = 2
	}
	if cfg.Thresholds.ZCritical == 0 {
		cfg.Thresholds.ZCritical = 3
	}
	if cfg.Thresholds.ConcentrationPercent == 0 {
		cfg.Thresholds.ConcentrationPercent = 80
	}
	if cfg.Thresholds.LargeSizeCutoff == "" {
		cfg.Thresholds.LargeSizeCutoff = "LARGE"
	}

	// Cost defaults
	if cfg.Costs.CreditCost == 0 {
		cfg.Costs.CreditCost = 2.5
	}
	if cfg.Costs.StoragePerTB == 0 {
		cfg.Costs.StoragePerTB = 23.0
	}

	// Cache defaults
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "1h"
	}

	// Notifier defaults
	if cfg.Notifier.Type == "" {
		cfg.Notifier.Type = "console"
	}
	if cfg.Notifier.Retries == 0 {
		cfg.Notifier.Retries = 3
	}
	if cfg.Notifier.RetryDelay == "" {
		cfg.Notifier.RetryDelay = "1s"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}

	if loc, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone is invalid: %v", err))
	} else {
		c.Schedule.Location = loc
	}

	if c.Analysis.LookbackDays < 1 {
		errs = append(errs, "analysis.lookback_days must be at least 1")
	}
	if c.Analysis.ForecastHorizonDays < 1 {
		errs = append(errs, "analysis.forecast_horizon_days must be at least 1")
	}

	if c.Thresholds.QueueSeconds < 0 {
		errs = append(errs, "thresholds.queue_seconds must not be negative")
	}
	if c.Thresholds.ZWarning <= 0 {
		errs = append(errs, "thresholds.z_warning must be positive")
	}
	if c.Thresholds.ZCritical < c.Thresholds.ZWarning {
		errs = append(errs, "thresholds.z_critical must be at least z_warning")
	}
	if c.Thresholds.ConcentrationPercent <= 0 || c.Thresholds.ConcentrationPercent > 100 {
		errs = append(errs, "thresholds.concentration_percent must be in (0, 100]")
	}
	if _, err := c.Thresholds.SizeCutoff(); err != nil {
		errs = append(errs, fmt.Sprintf("thresholds.large_size_cutoff is invalid: %v", err))
	}

	if c.Costs.CreditCost < 0 {
		errs = append(errs, "costs.credit_cost must not be negative")
	}
	if c.Costs.StoragePerTB < 0 {
		errs = append(errs, "costs.storage_cost_per_tb must not be negative")
	}

	if _, err := c.Cache.TTLParsed(); err != nil {
		errs = append(errs, fmt.Sprintf("cache.ttl is invalid: %v", err))
	}

	validNotifierTypes := map[string]bool{"webhook": true, "console": true}
	if !validNotifierTypes[c.Notifier.Type] {
		errs = append(errs, "notifier.type must be one of: webhook, console")
	}
	if c.Notifier.Type == "webhook" && c.Notifier.WebhookURL == "" {
		errs = append(errs, "notifier.webhook_url is required when type is 'webhook'")
	}
	if _, err := c.Notifier.RetryDelayParsed(); err != nil {
		errs = append(errs, fmt.Sprintf("notifier.retry_delay is invalid: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

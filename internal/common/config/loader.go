// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like REVIEWS_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from several locations so tests and tools can run
// from nested directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars expands ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig backfills secrets from the environment when the yaml
// left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Reviews.APIKey == "" {
		if val := os.Getenv("REVIEWS_API_KEY"); val != "" {
			cfg.APIs.Reviews.APIKey = val
		}
	}
	if cfg.APIs.Resolver.APIKey == "" {
		if val := os.Getenv("RESOLVER_API_KEY"); val != "" {
			cfg.APIs.Resolver.APIKey = val
		}
	}
	if cfg.APIs.Scorer.APIKey == "" {
		if val := os.Getenv("SCORER_API_KEY"); val != "" {
			cfg.APIs.Scorer.APIKey = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Camunda defaults
	if cfg.Camunda.ProcessID == "" {
		cfg.Camunda.ProcessID = "review-sentiment"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Server.MetricsAddress == "" {
		cfg.Server.MetricsAddress = ":9100"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Pipeline defaults match the workflow's activity options: 5m
	// start-to-close, 1s initial backoff capped at 30s, 3 attempts.
	if cfg.Pipeline.MaxReviewsDefault == 0 {
		cfg.Pipeline.MaxReviewsDefault = 100
	}
	if cfg.Pipeline.PageSize == 0 {
		cfg.Pipeline.PageSize = 20
	}
	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = 300000
	}
	if cfg.Pipeline.RetryInitial == 0 {
		cfg.Pipeline.RetryInitial = 1000
	}
	if cfg.Pipeline.RetryMax == 0 {
		cfg.Pipeline.RetryMax = 30000
	}
	if cfg.Pipeline.MaxAttempts == 0 {
		cfg.Pipeline.MaxAttempts = 3
	}
	if cfg.Pipeline.RunRetention == 0 {
		cfg.Pipeline.RunRetention = 60
	}

	// Scoring policy defaults
	if cfg.Scoring.MinTextLength == 0 {
		cfg.Scoring.MinTextLength = 10
	}
	if cfg.Scoring.StarWeight == 0 {
		cfg.Scoring.StarWeight = 0.7
	}
	if cfg.Scoring.TextWeight == 0 {
		cfg.Scoring.TextWeight = 0.3
	}
	if cfg.Scoring.ClampEnvelope == 0 {
		cfg.Scoring.ClampEnvelope = 30
	}
	if cfg.Scoring.NeutralFallback == 0 {
		cfg.Scoring.NeutralFallback = 50
	}
	if cfg.Scoring.ReparseAttempts == 0 {
		cfg.Scoring.ReparseAttempts = 1
	}

	// API timeout defaults
	if cfg.APIs.Reviews.Timeout == 0 {
		cfg.APIs.Reviews.Timeout = 20000
	}
	if cfg.APIs.Reviews.RateLimitRPS == 0 {
		cfg.APIs.Reviews.RateLimitRPS = 5
	}
	if cfg.APIs.Resolver.Timeout == 0 {
		cfg.APIs.Resolver.Timeout = 60000
	}
	if cfg.APIs.Scorer.Timeout == 0 {
		cfg.APIs.Scorer.Timeout = 60000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.APIs.Reviews.BaseURL == "" {
		return fmt.Errorf("apis.reviews.base_url is required")
	}
	if cfg.APIs.Resolver.BaseURL == "" {
		return fmt.Errorf("apis.resolver.base_url is required")
	}
	if cfg.APIs.Scorer.BaseURL == "" {
		return fmt.Errorf("apis.scorer.base_url is required")
	}

	if cfg.Scoring.StarWeight+cfg.Scoring.TextWeight > 1.001 ||
		cfg.Scoring.StarWeight+cfg.Scoring.TextWeight < 0.999 {
		return fmt.Errorf("scoring.star_weight and scoring.text_weight must sum to 1")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Server   ServerConfig            `mapstructure:"server"`
	APIs     APIsConfig              `mapstructure:"apis"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Scoring  ScoringConfig           `mapstructure:"scoring"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig covers the operational HTTP endpoint (metrics, pprof).
type ServerConfig struct {
	MetricsAddress string `mapstructure:"metrics_address"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- External APIs ---

type APIsConfig struct {
	Reviews  ReviewsAPIConfig `mapstructure:"reviews"`
	Resolver OracleAPIConfig  `mapstructure:"resolver"`
	Scorer   OracleAPIConfig  `mapstructure:"scorer"`
}

// ReviewsAPIConfig configures the paged reviews provider.
type ReviewsAPIConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	RateLimitRPS int    `mapstructure:"rate_limit_rps"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	// ProductURLTemplate builds a canonical URL when a run is submitted with
	// a bare product id instead of a URL. %s is the product id.
	ProductURLTemplate string `mapstructure:"product_url_template"`
}

// OracleAPIConfig configures an OpenAI-compatible chat-completions endpoint.
type OracleAPIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// --- Pipeline ---

// PipelineConfig carries the durable-execution stage policy and fetch bounds.
type PipelineConfig struct {
	MaxReviewsDefault int `mapstructure:"max_reviews_default"`
	PageSize          int `mapstructure:"page_size"`
	StageTimeout      int `mapstructure:"stage_timeout"`  // milliseconds, start-to-close per stage
	RetryInitial      int `mapstructure:"retry_initial"`  // milliseconds
	RetryMax          int `mapstructure:"retry_max"`      // milliseconds
	MaxAttempts       int `mapstructure:"max_attempts"`   // per stage, including the first
	RunRetention      int `mapstructure:"run_retention"`  // minutes a finished run stays queryable
}

func (p PipelineConfig) StageTimeoutDuration() time.Duration {
	return time.Duration(p.StageTimeout) * time.Millisecond
}

func (p PipelineConfig) RetryInitialDuration() time.Duration {
	return time.Duration(p.RetryInitial) * time.Millisecond
}

func (p PipelineConfig) RetryMaxDuration() time.Duration {
	return time.Duration(p.RetryMax) * time.Millisecond
}

func (p PipelineConfig) RunRetentionDuration() time.Duration {
	return time.Duration(p.RunRetention) * time.Minute
}

// ScoringConfig enumerates the sentiment scoring policy parameters. The
// heterogeneous policies of earlier iterations (star-only, blended, raw LLM)
// collapse into this one parameterized policy.
type ScoringConfig struct {
	// MinTextLength is the minimal-text threshold: combined title+comment
	// shorter than this skips the oracle and uses the star baseline.
	MinTextLength int `mapstructure:"min_text_length"`
	// StarWeight/TextWeight is the blend the oracle is instructed to apply.
	StarWeight float64 `mapstructure:"star_weight"`
	TextWeight float64 `mapstructure:"text_weight"`
	// ClampEnvelope bounds |score - baseline| after the oracle responds.
	ClampEnvelope int `mapstructure:"clamp_envelope"`
	// NeutralFallback is used when scoring fails and no star rating exists.
	NeutralFallback int `mapstructure:"neutral_fallback"`
	// ReparseAttempts bounds the stricter follow-up prompts issued inside a
	// single scoring attempt when the response cannot be parsed.
	ReparseAttempts int `mapstructure:"reparse_attempts"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

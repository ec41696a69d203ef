// Package config provides configuration management for carpulse-data.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Validation functions may write user-facing warnings via
// gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Database: host, port, user, password, database, ssl_mode
//   - Provider: model, base_url
//   - Limiter: calls_per_second, backoff settings
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (CLI flags / env only):
//   - Provider.APIKey (OPENROUTER_API_KEY, never written to config.yaml)
//   - Generate.* (per-command flags)
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use CARPULSE_ prefix with underscores for nesting:
//
//	CARPULSE_DATABASE_HOST=localhost
//	CARPULSE_DATABASE_PORT=5432
//	CARPULSE_PROVIDER_MODEL=anthropic/claude-3.5-sonnet
//	CARPULSE_LOG_LEVEL=info
//
// OPENROUTER_API_KEY is read directly, matching the provider's own
// convention.
package config

import (
	"runtime"
	"time"
)

// Config represents the complete carpulse-data configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Provider contains OpenRouter API settings.
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`

	// Limiter contains rate limiting and backoff settings shared by
	// every outgoing provider call.
	Limiter LimiterConfig `mapstructure:"limiter" yaml:"limiter"`

	// Generate contains settings specific to the generate command.
	Generate GenerateConfig `mapstructure:"generate" yaml:"generate"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for
	// bounded-parallel gap enrichment. Generation itself is
	// sequential; the shared quota is the provider, not local CPU.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories
	// reside. It must be set by CLI during init, there is no default
	// value for it.
	HomeDir string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// ProviderConfig contains OpenRouter API settings.
type ProviderConfig struct {
	// Model is the OpenRouter model identifier used for structured
	// generation.
	Model string `mapstructure:"model" yaml:"model"`

	// BaseURL is the OpenRouter API root. Overridable for tests.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKey authorizes provider calls. Runtime-only, sourced from
	// the OPENROUTER_API_KEY environment variable. Its absence is a
	// fatal condition checked before any call is made.
	APIKey string

	// Timeout bounds a single completion call at the transport level.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LimiterConfig contains rate gate and backoff parameters.
// The same backoff policy is applied by the rate limiter (throttling
// responses) and the provider adapter (transient retries).
type LimiterConfig struct {
	// CallsPerSecond is the sustained outgoing call rate.
	CallsPerSecond float64 `mapstructure:"calls_per_second" yaml:"calls_per_second"`

	// BackoffBase is the first penalty delay after a throttled
	// response.
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`

	// BackoffMax caps the doubled penalty delay.
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`

	// MaxAttempts bounds consecutive penalties (and transient
	// retries) before the error surfaces as run-ending.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// GenerateConfig contains settings specific to the generate command.
// All fields are runtime-only.
type GenerateConfig struct {
	// Makes is the explicit manufacturer selection. Empty means the
	// selection comes from Country or All.
	Makes []string `mapstructure:"makes" yaml:"makes"`

	// Country selects every manufacturer the catalog lists for one
	// country.
	Country string `mapstructure:"country" yaml:"country"`

	// All selects the full catalog.
	All bool `mapstructure:"all" yaml:"all"`

	// Market is the target market for models and variants.
	Market string `mapstructure:"market" yaml:"market"`

	// FetchDTC appends a DTC pass per make after its hierarchy.
	FetchDTC bool `mapstructure:"fetch_dtc" yaml:"fetch_dtc"`

	// DTCOnly skips the vehicle hierarchy entirely.
	DTCOnly bool `mapstructure:"dtc_only" yaml:"dtc_only"`

	// Expand adds more DTC codes to makes that already have some.
	Expand bool `mapstructure:"expand" yaml:"expand"`

	// Force re-fetches branches even when records already exist.
	// Existing rows are still never deleted; force only disables the
	// skip checks.
	Force bool `mapstructure:"force" yaml:"force"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "carpulse",
			SSLMode:  "disable",
		},
		Provider: ProviderConfig{
			Model:   "anthropic/claude-3.5-sonnet",
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: 120 * time.Second,
		},
		Limiter: LimiterConfig{
			CallsPerSecond: 1, // Matches provider guidance of ~1 call/s
			BackoffBase:    2 * time.Second,
			BackoffMax:     60 * time.Second,
			MaxAttempts:    5,
		},
		Generate: GenerateConfig{
			Market: "Global",
		},
		Log: LogConfig{
			Format:      "json",
			Level:       "info",
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}

	return res
}

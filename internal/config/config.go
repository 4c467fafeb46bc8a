package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config aggregates all configuration settings for the application.
type Config struct {
	// Environment indicates the running environment (e.g., "development", "production").
	Environment string `mapstructure:"environment"`
	// LogLevel sets the global logging verbosity.
	LogLevel string `mapstructure:"log_level"`
	// Server holds configuration for the HTTP server.
	Server ServerConfig `mapstructure:"server"`
	// Store holds configuration for the external tabular data store.
	Store StoreConfig `mapstructure:"store"`
	// Identity holds configuration for the external identity provider.
	Identity IdentityConfig `mapstructure:"identity"`
	// Redis holds configuration for the Redis response cache.
	Redis RedisConfig `mapstructure:"redis"`
	// Sentry holds configuration for Sentry error tracking.
	Sentry SentryConfig `mapstructure:"sentry"`
	// Analytics holds tunables for the aggregation and forecasting engines.
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	// Upload holds limits for spreadsheet ingestion.
	Upload UploadConfig `mapstructure:"upload"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
	// AllowedOrigins is a list of CORS allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Version is the reported service version.
	Version string `mapstructure:"version"`
}

// StoreConfig defines settings for the REST tabular store (PostgREST API).
type StoreConfig struct {
	// BaseURL is the base URL of the store, without the /rest/v1 suffix.
	BaseURL string `mapstructure:"base_url"`
	// ServiceKey authenticates the backend against the store.
	ServiceKey string `mapstructure:"service_key"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `mapstructure:"timeout"`
	// PageSize is the pagination window for full-table fetches.
	PageSize int `mapstructure:"page_size"`
}

// IdentityConfig defines settings for the identity provider service.
type IdentityConfig struct {
	// ServiceURL is the base URL of the identity provider API.
	ServiceURL string `mapstructure:"service_url"`
	// APIKey authenticates the backend against the provider.
	APIKey string `mapstructure:"api_key"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `mapstructure:"timeout"`
	// ClockSkewSeconds is the leeway applied to token expiry checks.
	ClockSkewSeconds int `mapstructure:"clock_skew_seconds"`
}

// RedisConfig defines the Redis connection settings.
type RedisConfig struct {
	// Host is the Redis server hostname.
	Host string `mapstructure:"host"`
	// Port is the Redis server port.
	Port int `mapstructure:"port"`
	// Password is the Redis authentication password.
	Password string `mapstructure:"password"`
	// DB is the Redis database index to use.
	DB int `mapstructure:"db"`
	// Enabled controls whether the response cache is used at all.
	Enabled bool `mapstructure:"enabled"`
	// TTL is the response cache entry lifetime in seconds.
	TTL int `mapstructure:"ttl"`
}

// SentryConfig defines settings for Sentry error reporting.
type SentryConfig struct {
	// Enabled controls whether Sentry reporting is active.
	Enabled bool `mapstructure:"enabled"`
	// DSN is the Data Source Name for the Sentry project.
	DSN string `mapstructure:"dsn"`
	// Environment is the environment tag sent to Sentry.
	Environment string `mapstructure:"environment"`
	// Release is the release version tag.
	Release string `mapstructure:"release"`
	// TracesSampleRate is the percentage of transactions to trace.
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// AnalyticsConfig defines tunables for the analytics pipeline.
type AnalyticsConfig struct {
	// ForecastHorizonMonths is the number of months to forecast.
	ForecastHorizonMonths int `mapstructure:"forecast_horizon_months"`
	// MinTrainingMonths is the minimum number of complete months required
	// before the seasonal model is attempted.
	MinTrainingMonths int `mapstructure:"min_training_months"`
	// SeasonalPeriod is the seasonal cycle length in months.
	SeasonalPeriod int `mapstructure:"seasonal_period"`
	// MaxRows caps how many rows a single analytics query may pull.
	MaxRows int `mapstructure:"max_rows"`
}

// UploadConfig defines limits for spreadsheet ingestion.
type UploadConfig struct {
	// MaxFileSizeMB is the maximum accepted upload size in megabytes.
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

// Load reads the configuration from the config file and environment variables.
//
// Returns:
//
//	*Config: The loaded configuration structure.
//	error: An error if the configuration could not be parsed.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind the store credentials to their conventional environment names
	_ = viper.BindEnv("store.base_url", "SUPABASE_URL")
	_ = viper.BindEnv("store.service_key", "SUPABASE_SERVICE_KEY")

	// Bind identity provider environment variables
	_ = viper.BindEnv("identity.service_url", "IDENTITY_SERVICE_URL")
	_ = viper.BindEnv("identity.api_key", "IDENTITY_API_KEY")

	// Sentry DSN
	_ = viper.BindEnv("sentry.dsn", "SENTRY_DSN")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Sanitize credentials (remove surrounding spaces from pasted values)
	config.Store.BaseURL = strings.TrimSpace(strings.TrimSuffix(config.Store.BaseURL, "/"))
	config.Store.ServiceKey = strings.TrimSpace(config.Store.ServiceKey)
	config.Identity.APIKey = strings.TrimSpace(config.Identity.APIKey)
	if config.Sentry.DSN != "" {
		config.Sentry.DSN = strings.TrimSpace(config.Sentry.DSN)
	}

	// Validate critical security settings
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults initializes the default configuration values in Viper.
func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.version", "1.0.0")

	// Store
	viper.SetDefault("store.base_url", "")
	viper.SetDefault("store.service_key", "")
	viper.SetDefault("store.timeout", 30)
	viper.SetDefault("store.page_size", 1000)

	// Identity
	viper.SetDefault("identity.service_url", "")
	viper.SetDefault("identity.api_key", "")
	viper.SetDefault("identity.timeout", 10)
	viper.SetDefault("identity.clock_skew_seconds", 60)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.ttl", 300)

	// Sentry
	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", viper.GetString("environment"))
	viper.SetDefault("sentry.release", "")
	viper.SetDefault("sentry.traces_sample_rate", 0.2)

	// Analytics
	viper.SetDefault("analytics.forecast_horizon_months", 36)
	viper.SetDefault("analytics.min_training_months", 24)
	viper.SetDefault("analytics.seasonal_period", 12)
	viper.SetDefault("analytics.max_rows", 100000)

	// Upload
	viper.SetDefault("upload.max_file_size_mb", 16)
}

// validateConfig validates critical security and operational settings.
func validateConfig(config *Config) error {
	if config.Environment == "production" || config.Environment == "staging" {
		if config.Store.BaseURL == "" {
			return fmt.Errorf("SUPABASE_URL cannot be empty in %s environment", config.Environment)
		}
		if config.Store.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY cannot be empty in %s environment", config.Environment)
		}
		if config.Identity.ServiceURL == "" {
			return fmt.Errorf("IDENTITY_SERVICE_URL cannot be empty in %s environment", config.Environment)
		}
	}

	if config.Store.PageSize <= 0 {
		return fmt.Errorf("store.page_size must be positive, got %d", config.Store.PageSize)
	}
	if config.Analytics.ForecastHorizonMonths <= 0 {
		return fmt.Errorf("analytics.forecast_horizon_months must be positive, got %d", config.Analytics.ForecastHorizonMonths)
	}
	if config.Analytics.SeasonalPeriod <= 1 {
		return fmt.Errorf("analytics.seasonal_period must be greater than 1, got %d", config.Analytics.SeasonalPeriod)
	}

	return nil
}

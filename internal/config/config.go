// Package config provides configuration management for the entity cache service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/scholarly/openalex-cache/internal/observability"
)

// Config holds all configuration for the entity cache service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// API contains OpenAlex API client settings.
	API APIConfig `mapstructure:"api"`
	// Fetch contains bulk retrieval settings.
	Fetch FetchConfig `mapstructure:"fetch"`
	// Cache contains on-disk cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading a request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// APIConfig holds OpenAlex API client configuration.
type APIConfig struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the contact address for the polite pool. Strongly
	// recommended: it moves requests to faster, more reliable servers.
	Email string `mapstructure:"email"`
	// APIKey is an OpenAlex premium API key. Loaded exclusively from the
	// OAXCACHE_API_KEY environment variable, never from a config file.
	APIKey string `mapstructure:"-"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst allowance.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the retry budget for failed requests.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// BreakerFailures is the consecutive-failure threshold that opens the
	// circuit breaker. Zero disables the breaker.
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
}

// FetchConfig holds bulk retrieval configuration.
type FetchConfig struct {
	// PerPage is the page size for bulk fetches (max 200).
	PerPage int `mapstructure:"per_page"`
	// DefaultMaxEntities caps fetches that do not request a limit.
	// Zero means unbounded.
	DefaultMaxEntities int `mapstructure:"default_max_entities"`
}

// CacheConfig holds on-disk cache configuration.
type CacheConfig struct {
	// Dir is the cache directory.
	Dir string `mapstructure:"dir"`
	// Codec is the compression codec for cache files (gzip, zstd).
	Codec string `mapstructure:"codec"`
	// MaxAgeDays is the entry lifetime in days; older entries are
	// refetched. Zero disables age invalidation.
	MaxAgeDays int `mapstructure:"max_age_days"`
	// MaxStoragePercent is the disk-used-percent ceiling that triggers
	// eviction. Zero disables the ceiling.
	MaxStoragePercent float64 `mapstructure:"max_storage_percent"`
	// MaxFiles is the cache file count ceiling. Zero disables it.
	MaxFiles int `mapstructure:"max_files"`
	// MaxBytes is the total cache size ceiling in bytes. Zero disables it.
	MaxBytes int64 `mapstructure:"max_bytes"`
	// MinFiles is the file count floor below which nothing is evicted.
	MinFiles int `mapstructure:"min_files"`
	// MinBytes is the total size floor below which nothing is evicted.
	MinBytes int64 `mapstructure:"min_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log output format (json, console, pretty).
	Format string `mapstructure:"format"`
	// Output is the log destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log entries.
	AddSource bool `mapstructure:"add_source"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled exposes the /metrics endpoint when true.
	Enabled bool `mapstructure:"enabled"`
	// Namespace is the prefix for all metric names.
	Namespace string `mapstructure:"namespace"`
}

// Load reads configuration from defaults, an optional TOML config file and
// OAXCACHE_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("OAXCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/openalex-cache")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets come exclusively from the environment; the field uses
	// mapstructure:"-" so a config file cannot set it.
	cfg.API.APIKey = v.GetString("api_key")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshalling pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults registers default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// API
	v.SetDefault("api.base_url", "https://api.openalex.org")
	v.SetDefault("api.email", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst_size", 10)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", "1s")
	v.SetDefault("api.breaker_failures", 5)

	// Fetch
	v.SetDefault("fetch.per_page", 200)
	v.SetDefault("fetch.default_max_entities", 10000)

	// Cache
	v.SetDefault("cache.dir", "./cache/openalex")
	v.SetDefault("cache.codec", "gzip")
	v.SetDefault("cache.max_age_days", 365)
	v.SetDefault("cache.max_storage_percent", 95.0)
	v.SetDefault("cache.max_files", 10000)
	v.SetDefault("cache.max_bytes", int64(5)<<30)
	v.SetDefault("cache.min_files", 1000)
	v.SetDefault("cache.min_bytes", int64(5)<<27)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "openalex_cache")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("api rate_limit must be positive")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api max_retries must not be negative")
	}

	if c.Fetch.PerPage <= 0 || c.Fetch.PerPage > 200 {
		return fmt.Errorf("fetch per_page must be between 1 and 200, got %d", c.Fetch.PerPage)
	}
	if c.Fetch.DefaultMaxEntities < 0 {
		return fmt.Errorf("fetch default_max_entities must not be negative")
	}

	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}
	switch c.Cache.Codec {
	case "gzip", "zstd":
	default:
		return fmt.Errorf("invalid cache codec: %s", c.Cache.Codec)
	}
	if c.Cache.MaxStoragePercent < 0 || c.Cache.MaxStoragePercent > 100 {
		return fmt.Errorf("cache max_storage_percent must be between 0 and 100")
	}
	if c.Cache.MinFiles > c.Cache.MaxFiles && c.Cache.MaxFiles > 0 {
		return fmt.Errorf("cache min_files (%d) must be <= max_files (%d)", c.Cache.MinFiles, c.Cache.MaxFiles)
	}
	if c.Cache.MinBytes > c.Cache.MaxBytes && c.Cache.MaxBytes > 0 {
		return fmt.Errorf("cache min_bytes (%d) must be <= max_bytes (%d)", c.Cache.MinBytes, c.Cache.MaxBytes)
	}

	if !observability.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// SetLogLevel changes the configured log level after validating it.
func (c *Config) SetLogLevel(level string) error {
	if !observability.ValidLevel(level) {
		return fmt.Errorf("invalid log level: %s", level)
	}
	c.Logging.Level = level
	return nil
}

// LoggingConfigFor converts the logging section into the observability
// package's configuration type.
func (c *Config) LoggingConfigFor() observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Output:    c.Logging.Output,
		AddSource: c.Logging.AddSource,
	}
}

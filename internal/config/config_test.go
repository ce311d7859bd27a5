package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdirEmpty(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)

	// API defaults
	assert.Equal(t, "https://api.openalex.org", cfg.API.BaseURL)
	assert.Equal(t, 10.0, cfg.API.RateLimit)
	assert.Equal(t, 3, cfg.API.MaxRetries)

	// Fetch defaults
	assert.Equal(t, 200, cfg.Fetch.PerPage)
	assert.Equal(t, 10000, cfg.Fetch.DefaultMaxEntities)

	// Cache defaults
	assert.Equal(t, "gzip", cfg.Cache.Codec)
	assert.Equal(t, 365, cfg.Cache.MaxAgeDays)
	assert.Equal(t, 95.0, cfg.Cache.MaxStoragePercent)
	assert.Equal(t, 10000, cfg.Cache.MaxFiles)
	assert.Less(t, cfg.Cache.MinBytes, cfg.Cache.MaxBytes)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "openalex_cache", cfg.Metrics.Namespace)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirEmpty(t)
	t.Setenv("OAXCACHE_API_EMAIL", "researcher@example.org")
	t.Setenv("OAXCACHE_CACHE_CODEC", "zstd")
	t.Setenv("OAXCACHE_LOGGING_LEVEL", "debug")
	t.Setenv("OAXCACHE_API_KEY", "premium-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "researcher@example.org", cfg.API.Email)
	assert.Equal(t, "zstd", cfg.Cache.Codec)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "premium-key", cfg.API.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirEmpty(t)
	file := []byte(`
[api]
email = "from-file@example.org"

[cache]
dir = "/var/cache/openalex"
max_age_days = 30

[fetch]
default_max_entities = 500
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), file, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file@example.org", cfg.API.Email)
	assert.Equal(t, "/var/cache/openalex", cfg.Cache.Dir)
	assert.Equal(t, 30, cfg.Cache.MaxAgeDays)
	assert.Equal(t, 500, cfg.Fetch.DefaultMaxEntities)
	// Untouched sections keep their defaults.
	assert.Equal(t, 200, cfg.Fetch.PerPage)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "base_url is required"},
		{"per_page too large", func(c *Config) { c.Fetch.PerPage = 500 }, "per_page"},
		{"bad codec", func(c *Config) { c.Cache.Codec = "brotli" }, "invalid cache codec"},
		{"bad percent", func(c *Config) { c.Cache.MaxStoragePercent = 150 }, "max_storage_percent"},
		{"floors above ceilings", func(c *Config) { c.Cache.MinFiles = 99999 }, "min_files"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.SetLogLevel("debug"))
	assert.Equal(t, "debug", cfg.Logging.Level)

	err := cfg.SetLogLevel("chatty")
	require.Error(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level, "a rejected level must not stick")
}

// chdirEmpty moves the test into an empty directory so a developer's local
// config.toml cannot leak into config loading.
func chdirEmpty(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
	return dir
}

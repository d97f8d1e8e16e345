package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/retry"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "metadata-sync", cfg.Storage.Bucket)
	assert.Equal(t, "lineage/", cfg.Storage.LineagePrefix)
	assert.Equal(t, "tables", cfg.Index.Name)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.True(t, cfg.Pipeline.UseManagedScan)
	assert.False(t, cfg.Pipeline.SkipIndexSync)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.FreshnessWindow)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.ScanTimeout)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.PollInterval)
	assert.Equal(t, 10.0, cfg.Pipeline.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Pipeline.RateLimit.Burst)
	assert.Equal(t, 3, cfg.Pipeline.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Pipeline.Retry.BaseDelay)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PIPELINE_FRESHNESS_WINDOW", "12h")
	t.Setenv("PIPELINE_CONCURRENCY", "8")
	t.Setenv("PIPELINE_RATE_LIMIT_BURST", "20")
	t.Setenv("SCAN_ENDPOINT", "https://scans.internal")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Pipeline.FreshnessWindow)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, 20, cfg.Pipeline.RateLimit.Burst)
	assert.Equal(t, "https://scans.internal", cfg.Scan.Endpoint)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	// Registers cleanup so the values loaded from .env do not leak into other tests.
	t.Setenv("INDEX_ENDPOINT", "")
	t.Setenv("INDEX_NAME", "")

	dir := t.TempDir()
	content := "INDEX_ENDPOINT=https://search.internal\nINDEX_NAME=catalog\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://search.internal", cfg.Index.Endpoint)
	assert.Equal(t, "catalog", cfg.Index.Name)
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "information_schema"
	cfg.Database.Driver = "mysql"
	cfg.Scan.Endpoint = "https://scans.internal"
	cfg.Index.Endpoint = "https://search.internal"
	cfg.Storage.Bucket = "metadata-sync"
	cfg.Pipeline.UseManagedScan = true
	cfg.Pipeline.Concurrency = 4
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing host", func(c *Config) { c.Database.Host = "" }, "database.host is required"},
		{"missing database", func(c *Config) { c.Database.Name = " " }, "database.name is required"},
		{"unsupported driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver must be mysql"},
		{"managed scan without endpoint", func(c *Config) { c.Scan.Endpoint = "" }, "scan.endpoint is required"},
		{"fallback only needs no scan endpoint", func(c *Config) {
			c.Scan.Endpoint = ""
			c.Pipeline.UseManagedScan = false
		}, ""},
		{"sync without index endpoint", func(c *Config) { c.Index.Endpoint = "" }, "index.endpoint is required"},
		{"skip sync needs no index endpoint", func(c *Config) {
			c.Index.Endpoint = ""
			c.Pipeline.SkipIndexSync = true
		}, ""},
		{"negative concurrency", func(c *Config) { c.Pipeline.Concurrency = -1 }, "pipeline.concurrency"},
		{"export without bucket", func(c *Config) {
			c.Pipeline.ExportPath = "exports/"
			c.Storage.Bucket = ""
		}, "storage.bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, retry.IsConfig(err))
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Index.Endpoint = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
	assert.Contains(t, err.Error(), "index.endpoint")
}

func TestConfig_ValidatePublish(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Scan.Endpoint = ""
	assert.NoError(t, cfg.ValidatePublish(), "publishing needs neither the database nor the scan service")

	cfg.Index.Endpoint = ""
	cfg.Storage.Bucket = ""
	err := cfg.ValidatePublish()
	require.Error(t, err)
	assert.True(t, retry.IsConfig(err))
	assert.Contains(t, err.Error(), "index.endpoint")
	assert.Contains(t, err.Error(), "storage.bucket")
}

package pipeline

import (
	"time"

	"metadata-sync/core/retry"
	"metadata-sync/core/throttle"
)

// Config holds batch settings.
type Config struct {
	// Concurrency is the number of tables processed at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// MaxTables caps the number of tables per batch. Zero means no cap.
	MaxTables int `mapstructure:"max_tables" default:"0"`
	// UseManagedScan enables the managed scan path. When false every table is profiled
	// with direct queries.
	UseManagedScan bool `mapstructure:"use_managed_scan" default:"true"`
	// FreshnessWindow is the maximum age of a reusable scan result.
	FreshnessWindow time.Duration `mapstructure:"freshness_window" default:"24h"`
	// ScanTimeout bounds the wait for one scan run.
	ScanTimeout time.Duration `mapstructure:"scan_timeout" default:"10m"`
	// PollInterval is the longest pause between job status polls.
	PollInterval time.Duration `mapstructure:"poll_interval" default:"15s"`
	// SkipIndexSync profiles and builds documents without writing to the index.
	SkipIndexSync bool `mapstructure:"skip_index_sync" default:"false"`
	// TopValues is the number of most frequent values collected by the fallback profiler.
	TopValues int `mapstructure:"top_values" default:"10"`
	// ExportPath is the object key documents are exported to. Empty disables export.
	ExportPath string `mapstructure:"export_path" default:""`
	// RateLimit gates every call to the scan service and the search index.
	RateLimit throttle.Config `mapstructure:"rate_limit"`
	// Retry is the policy shared by the scan manager and the sync engine.
	Retry retry.Config `mapstructure:"retry"`
}

// Options returns the run options described by the config.
func (c Config) Options() Options {
	return Options{
		Concurrency:     c.Concurrency,
		MaxTables:       c.MaxTables,
		UseManagedScan:  c.UseManagedScan,
		FreshnessWindow: c.FreshnessWindow,
		ScanTimeout:     c.ScanTimeout,
		PollInterval:    c.PollInterval,
		SkipIndexSync:   c.SkipIndexSync,
		ExportPath:      c.ExportPath,
	}
}

// Package config provides configuration management for metadata-sync.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Log: Logging level and format
//   - Database: MySQL connection used by the fallback profiler and the schema catalog
//   - Storage: S3/MinIO credentials, bucket and lineage prefix
//   - Scan: Managed scan service endpoint, token and location
//   - Index: Search index endpoint, token and index name
//   - Pipeline: Concurrency, freshness window, scan timeouts, rate limit and retry policy
//
// Environment variables map to nested keys by replacing dots with underscores, e.g.
// PIPELINE_FRESHNESS_WINDOW=12h or PIPELINE_RATE_LIMIT_BURST=10.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

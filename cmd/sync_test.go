package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/config"
	"metadata-sync/core/model"
	"metadata-sync/feature/pipeline"
)

func TestPrintSummary(t *testing.T) {
	summary := &pipeline.BatchSummary{
		Created: 1,
		Skipped: 1,
		Failed:  1,
		Outcomes: []pipeline.TableOutcome{
			{Table: "prod.sales.orders", Status: pipeline.StatusCreated, Source: model.SourceManagedScan},
			{Table: "prod.sales.refunds", Status: pipeline.StatusSkipped, Source: model.SourceFallbackQuery, Partial: true},
			{Table: "prod.sales.events", Status: pipeline.StatusFailed, Error: "profile: permission denied"},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "prod.sales.orders")
	assert.Contains(t, out, "FALLBACK_QUERY partial")
	assert.Contains(t, out, "profile: permission denied")
	assert.Contains(t, out, "created: 1 updated: 0 skipped: 1 built: 0 cancelled: 0\n")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("failed: 1\n")))
}

func TestPrintSummary_DryRun(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &pipeline.BatchSummary{Outcomes: []pipeline.TableOutcome{
		{Table: "prod.sales.orders", Status: pipeline.StatusUpdated, Planned: true},
	}})
	assert.Contains(t, buf.String(), "WOULD_UPDATED")
}

func TestApplySyncFlags(t *testing.T) {
	require.NoError(t, syncCmd.Flags().Set("concurrency", "2"))
	require.NoError(t, syncCmd.Flags().Set("use-managed-scan", "false"))
	require.NoError(t, syncCmd.Flags().Set("freshness-window", "2h"))
	t.Cleanup(func() {
		for _, name := range []string{"concurrency", "use-managed-scan", "freshness-window"} {
			f := syncCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	cfg := &config.Config{}
	cfg.Pipeline.Concurrency = 4
	cfg.Pipeline.UseManagedScan = true
	cfg.Pipeline.MaxTables = 7
	applySyncFlags(syncCmd, cfg)

	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.False(t, cfg.Pipeline.UseManagedScan)
	assert.Equal(t, 2*time.Hour, cfg.Pipeline.FreshnessWindow)
	assert.Equal(t, 7, cfg.Pipeline.MaxTables, "unset flags keep configured values")
}

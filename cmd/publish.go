package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"metadata-sync/core/config"
	"metadata-sync/core/logger"
	"metadata-sync/core/metrics"
	"metadata-sync/core/reconcile"
	"metadata-sync/core/storage"
	"metadata-sync/core/throttle"
	"metadata-sync/feature/index"
	"metadata-sync/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	publishConcurrency int
	publishMetricsFile string
)

// publishCmd pushes a previous export into the search index.
var publishCmd = &cobra.Command{
	Use:   "publish EXPORT_KEY",
	Short: "Sync the documents of an NDJSON export into the search index",
	Long: `Reads an export written by "sync --skip-index-sync --export" from the storage bucket,
verifies every document against its table and content hash, and upserts the valid ones.
Documents whose hash is already in the index are skipped.

Example:
  sync "prod.sales.*" --skip-index-sync --export exports/sales.ndjson
  publish exports/sales.ndjson`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&publishConcurrency, "concurrency", pipeline.DefaultConcurrency, "Number of documents synced at once")
	publishCmd.Flags().StringVar(&publishMetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	RootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	// 1. Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Pipeline.Concurrency = publishConcurrency
	}
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	// 2. Wire storage and the sync engine; no database is needed
	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}
	idx, err := index.NewClient(cfg.Index)
	if err != nil {
		return err
	}
	rec := metrics.NewRecorder()
	orch := pipeline.New(pipeline.Deps{
		Syncer:  reconcile.NewEngine(idx, throttle.New(cfg.Pipeline.RateLimit), cfg.Pipeline.Retry.Policy(), l),
		Storage: store,
		Bucket:  cfg.Storage.Bucket,
		Metrics: rec,
		Log:     l,
	})

	// 3. Publish
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := orch.Publish(ctx, args[0], cfg.Pipeline.Options())
	if err != nil {
		return err
	}

	// 4. Report
	printSummary(cmd.OutOrStdout(), summary)
	if publishMetricsFile != "" {
		if err := rec.WriteTextfile(publishMetricsFile); err != nil {
			l.Warn("Failed to write metrics file", zap.String("path", publishMetricsFile), zap.Error(err))
		}
	}
	if summary.ExitCode() != 0 {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, len(summary.Outcomes))
	}
	return nil
}

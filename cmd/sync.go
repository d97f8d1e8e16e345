package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metadata-sync/core/config"
	"metadata-sync/core/logger"
	"metadata-sync/core/metrics"
	"metadata-sync/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncTables          []string
	syncMaxTables       int
	syncUseManagedScan  bool
	syncFreshnessWindow time.Duration
	syncSkipIndexSync   bool
	syncConcurrency     int
	syncExportPath      string
	syncDryRun          bool
	syncMetricsFile     string
)

// syncCmd profiles tables and synchronizes their documents to the search index.
var syncCmd = &cobra.Command{
	Use:   "sync [TABLE_FILTER...]",
	Short: "Profile tables and sync their metadata documents",
	Long: `Profile every selected table and upsert its metadata document into the search index.

Filters are project.dataset.table or project.dataset.* (expanded through the schema catalog).
Flags override the PIPELINE_* configuration.

Examples:
  # Sync two tables
  sync prod.sales.orders prod.sales.refunds

  # Sync a whole dataset with direct queries only
  sync "prod.sales.*" --use-managed-scan=false

  # Build documents and export them without touching the index
  sync --tables prod.sales.orders --skip-index-sync --export exports/

  # Show what would be written
  sync "prod.sales.*" --dry-run`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncTables, "tables", nil, "Comma-separated table filters")
	syncCmd.Flags().IntVar(&syncMaxTables, "max-tables", 0, "Process at most N tables (0 = all)")
	syncCmd.Flags().BoolVar(&syncUseManagedScan, "use-managed-scan", true, "Use the managed scan service (false = always query directly)")
	syncCmd.Flags().DurationVar(&syncFreshnessWindow, "freshness-window", 24*time.Hour, "Maximum age of a reusable scan result")
	syncCmd.Flags().BoolVar(&syncSkipIndexSync, "skip-index-sync", false, "Profile and build documents without writing to the index")
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", pipeline.DefaultConcurrency, "Number of tables processed at once")
	syncCmd.Flags().StringVar(&syncExportPath, "export", "", "Export documents as NDJSON to this object key (trailing / = prefix)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Plan index writes without performing them")
	syncCmd.Flags().StringVar(&syncMetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	// 1. Load configuration; explicit flags win over the environment
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySyncFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	filters := append(append([]string{}, syncTables...), args...)
	if len(filters) == 0 {
		return fmt.Errorf("no tables selected: pass TABLE_FILTER arguments or --tables")
	}

	// 2. Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	// 3. Wire components
	rec := metrics.NewRecorder()
	a, err := newApp(cfg, l, rec)
	if err != nil {
		return err
	}

	// 4. Resolve tables and run; SIGINT stops dispatching new tables
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, err := pipeline.ResolveTables(ctx, a.catalog, filters)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		l.Warn("No tables matched", zap.Strings("filters", filters))
		return nil
	}

	opts := cfg.Pipeline.Options()
	opts.DryRun = syncDryRun
	summary, err := a.orchestrator.Run(ctx, tables, opts)
	if err != nil {
		return err
	}

	// 5. Report
	printSummary(cmd.OutOrStdout(), summary)
	if syncMetricsFile != "" {
		if err := rec.WriteTextfile(syncMetricsFile); err != nil {
			l.Warn("Failed to write metrics file", zap.String("path", syncMetricsFile), zap.Error(err))
		}
	}

	if summary.ExitCode() != 0 {
		return fmt.Errorf("%d of %d tables failed", summary.Failed, len(summary.Outcomes))
	}
	return nil
}

// applySyncFlags copies explicitly set flags into the pipeline configuration.
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("max-tables") {
		cfg.Pipeline.MaxTables = syncMaxTables
	}
	if flags.Changed("use-managed-scan") {
		cfg.Pipeline.UseManagedScan = syncUseManagedScan
	}
	if flags.Changed("freshness-window") {
		cfg.Pipeline.FreshnessWindow = syncFreshnessWindow
	}
	if flags.Changed("skip-index-sync") {
		cfg.Pipeline.SkipIndexSync = syncSkipIndexSync
	}
	if flags.Changed("concurrency") {
		cfg.Pipeline.Concurrency = syncConcurrency
	}
	if flags.Changed("export") {
		cfg.Pipeline.ExportPath = syncExportPath
	}
}

// printSummary writes one line per table followed by the failure count.
func printSummary(w io.Writer, s *pipeline.BatchSummary) {
	for _, o := range s.Outcomes {
		status := string(o.Status)
		if o.Planned {
			status = "WOULD_" + status
		}
		detail := string(o.Source)
		if o.Partial {
			detail += " partial"
		}
		if o.Regressed {
			detail += " regressed"
		}
		if o.Error != "" {
			detail = o.Error
		}
		fmt.Fprintf(w, "%-48s %-16s %s\n", o.Table, status, detail)
	}
	if s.ExportKey != "" {
		fmt.Fprintf(w, "exported: %s\n", s.ExportKey)
	}
	if s.ExportError != "" {
		fmt.Fprintf(w, "export failed: %s\n", s.ExportError)
	}
	fmt.Fprintf(w, "created: %d updated: %d skipped: %d built: %d cancelled: %d\n",
		s.Created, s.Updated, s.Skipped, s.Built, s.Cancelled)
	fmt.Fprintf(w, "failed: %d\n", s.Failed)
}

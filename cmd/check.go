package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"metadata-sync/core/config"
	"metadata-sync/core/database"
	"metadata-sync/core/logger"
	"metadata-sync/core/storage"
	"metadata-sync/feature/integrity"
	"metadata-sync/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkFix  bool
	checkJSON bool
)

// checkCmd runs the preflight checks
var checkCmd = &cobra.Command{
	Use:   "check [TABLE_FILTER...]",
	Short: "Check storage, database and selected tables before a sync",
	Long: `Checks that the export bucket exists, counts lineage snapshots, queries the
database through the read-only query engine and verifies that every selected table
is present in the schema catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		startTime := time.Now()

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		// Create storage client
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}

		// Connect to database (required)
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}
		catalog := database.NewSchemaCatalog(db, cfg.Database.Project)

		tables, err := pipeline.ResolveTables(ctx, catalog, args)
		if err != nil {
			return err
		}

		svc := integrity.NewService(client, cfg.Storage.Bucket, cfg.Storage.LineageRoot(), database.NewQueryEngine(db), catalog, logg)
		report := svc.Run(ctx, tables, checkFix)

		if checkJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			printCheckReport(cmd, report)
		}

		logg.Info("Preflight check completed",
			zap.Bool("healthy", report.Healthy()),
			zap.Int("tables", len(tables)),
			zap.Duration("execution_time", time.Since(startTime)),
		)

		if !report.Healthy() {
			return fmt.Errorf("preflight check failed")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Create the bucket if it is missing")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(checkCmd)
}

func printCheckReport(cmd *cobra.Command, report *integrity.Report) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "=== Preflight Check ===")
	if st := report.Storage; st != nil {
		fmt.Fprintf(w, "Bucket %s exists: %v\n", st.Bucket, st.BucketExists)
		if st.LineagePrefix != "" {
			suffix := ""
			if st.Truncated {
				suffix = "+"
			}
			fmt.Fprintf(w, "Lineage snapshots under %s: %d%s\n", st.LineagePrefix, st.LineageSnapshots, suffix)
		}
	}
	if db := report.Database; db != nil {
		fmt.Fprintf(w, "Database version: %s\n", db.Version)
		for table, tr := range db.Tables {
			fmt.Fprintf(w, "  %-48s %-8s %d columns %s\n", table, tr.Status, tr.Columns, tr.Error)
		}
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}

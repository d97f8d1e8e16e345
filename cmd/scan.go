package cmd

import (
	"fmt"
	"strings"
	"time"

	"metadata-sync/core/config"
	"metadata-sync/core/logger"
	"metadata-sync/core/model"
	"metadata-sync/core/retry"
	"metadata-sync/core/throttle"
	"metadata-sync/feature/scan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanTimeout time.Duration

// scanCmd is the parent command for scan resource operations.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Manage profiling scan resources",
}

// scanEnsureCmd creates the scan of a table unless it already exists.
var scanEnsureCmd = &cobra.Command{
	Use:   "ensure TABLE",
	Short: "Create the scan resource of a table if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		m, table, l, err := scanManager(cfg, args[0])
		if err != nil {
			return err
		}
		defer l.Sync()

		res, err := m.EnsureScan(cmd.Context(), table)
		if err != nil {
			return err
		}
		printScan(cmd, res)
		return nil
	},
}

// scanRefreshCmd runs the scan of a table unless its result is fresh.
var scanRefreshCmd = &cobra.Command{
	Use:   "refresh TABLE",
	Short: "Run the scan of a table and wait for it unless its result is fresh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		m, table, l, err := scanManager(cfg, args[0])
		if err != nil {
			return err
		}
		defer l.Sync()

		timeout := cfg.Pipeline.ScanTimeout
		if cmd.Flags().Changed("timeout") {
			timeout = scanTimeout
		}
		res, err := m.Refresh(cmd.Context(), table, scan.RefreshOptions{
			FreshnessWindow: cfg.Pipeline.FreshnessWindow,
			Timeout:         timeout,
			PollInterval:    cfg.Pipeline.PollInterval,
		})
		if res != nil {
			printScan(cmd, res)
		}
		return err
	},
}

func init() {
	scanRefreshCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "Maximum time to wait for the run")

	scanCmd.AddCommand(scanEnsureCmd)
	scanCmd.AddCommand(scanRefreshCmd)
	RootCmd.AddCommand(scanCmd)
}

// scanManager builds a scan manager from configuration. It needs no database.
func scanManager(cfg *config.Config, ref string) (*scan.Manager, model.TableDescriptor, *zap.Logger, error) {
	table, err := model.ParseTableDescriptor(ref)
	if err != nil {
		return nil, table, nil, retry.ConfigError(err)
	}
	if strings.TrimSpace(cfg.Scan.Endpoint) == "" {
		return nil, table, nil, retry.ConfigError(fmt.Errorf("scan.endpoint is required"))
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, table, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc, err := scan.NewClient(cfg.Scan)
	if err != nil {
		return nil, table, nil, err
	}
	m := scan.NewManager(svc, throttle.New(cfg.Pipeline.RateLimit), cfg.Pipeline.Retry.Policy(), l)
	return m, table, logger.WithTable(l, table), nil
}

func printScan(cmd *cobra.Command, res *model.ScanResource) {
	lastRun := "never"
	if res.LastRunAt != nil {
		lastRun = res.LastRunAt.Format(time.RFC3339)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tlast run: %s\n", res.ID, res.State, lastRun)
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/iocache"
	"github.com/huangsam/triad/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportsSetup loads minimal configuration needed for report store operations.
// This is used by commands that need store access without full shared setup.
func reportsSetup() error {
	backend, connStr, err := storeConfig("report")
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no test history for report commands)
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	cfg.ReportBackend = backend
	cfg.ReportDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// reportsSetupWrapper wraps reportsSetup to provide PreRunE for report commands.
func reportsSetupWrapper(_ *cobra.Command, _ []string) error {
	return reportsSetup()
}

// reportsMigrateSetup loads minimal configuration needed for migrate and clear operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func reportsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig("report")
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetReportDBFilePath()
	}

	cfg.ReportBackend = backend
	cfg.ReportDBConnect = connStr
	return nil
}

// reportStore returns the configured report store or fails.
func reportStore() contract.ReportStore {
	store := storeManager.GetReportStore()
	if store == nil {
		contract.LogFatal("Report store unavailable", errors.New("report store is not configured"))
	}
	return store
}

// reportsCmd focused on report store management.
//
// Note: Report subcommands use minimal initialization (reportsSetup) instead of
// the full sharedSetup used by analysis commands. This avoids target path validation
// and complex config processing for simple store operations.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage stored analysis reports and teaching batches",
	Long: `Manage the report store that holds analysis reports and teaching batches.

The latest report is what gate, fix, coverage and correlate read when no
--report file is given. Older reports and teaching batches make trends visible.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show report store statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all stored reports
  migrate - Run database schema migrations
  prune   - Remove reports older than --retention

Examples:
  # Check the report store
  triad reports status

  # Export for analysis in pandas/DuckDB
  triad reports export --output-file triad`,
}

// reportsStatusCmd shows report store status.
var reportsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display report store statistics and connection details",
	Long: `Show detailed information about the report store.

Displays:
- Backend type and connection status
- Number of stored reports and teaching batches
- The latest report and when it was published
- Oldest and newest scan timestamps

Examples:
  # Check report store status
  triad reports status`,
	PreRunE: reportsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := reportStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get report store status", err)
		}
		iocache.PrintReportStatus(status)
	},
}

// reportsClearCmd clears the report store.
var reportsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored reports and teaching batches",
	Long: `Delete all stored analysis reports and teaching batches.

WARNING: This action cannot be undone. Consider exporting data first.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the report tables

Examples:
  # Export before clearing
  triad reports export --output-file backup
  triad reports clear`,
	PreRunE: reportsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearReports(cfg.ReportBackend, cfg.ReportDBConnect, cfg.ReportDBConnect); err != nil {
			contract.LogFatal("Failed to clear reports", err)
		}
		fmt.Println("Reports cleared successfully.")
	},
}

// reportsExportCmd exports reports to Parquet files.
var reportsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reports, findings and detections to Parquet",
	Long: `Export all stored report data to Parquet format for use with analytics tools.

Exports three datasets named after --output-file:
- <file>.reports.parquet - one row per analysis with its health score
- <file>.findings.parquet - one row per finding of every report
- <file>.detections.parquet - one row per teaching detection

Examples:
  # Writes triad.reports.parquet, triad.findings.parquet and triad.detections.parquet
  triad reports export --output-file triad`,
	PreRunE: reportsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportReports(rootCtx, reportStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export reports", err)
		}
	},
}

// reportsMigrateCmd runs database migrations for the report store.
var reportsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run report store schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the report store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  triad reports migrate

  # Rollback to initial state
  triad reports migrate --target-version 0`,
	PreRunE: reportsMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion, _ := cmd.Flags().GetInt("target-version")
		if err := iocache.MigrateReports(cfg.ReportBackend, cfg.ReportDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// reportsPruneCmd removes old reports.
var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove reports and teaching batches older than --retention",
	Long: `Delete reports and teaching batches scanned before now minus --retention.
The latest report is always kept.

Examples:
  # Keep the last 30 days
  triad reports prune --retention "30 days"`,
	PreRunE: reportsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		cutoff, err := pruneCutoff()
		if err != nil {
			contract.LogFatal("Cannot prune reports", err)
		}
		n, err := reportStore().Prune(rootCtx, cutoff)
		if err != nil {
			contract.LogFatal("Failed to prune reports", err)
		}
		fmt.Printf("Pruned %d rows older than %s.\n", n, cutoff.Format(contract.DateTimeFormat))
	},
}

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

// historySetup loads minimal configuration needed for test history operations.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig("history")
	if err != nil {
		return err
	}

	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup resolves the history store without creating its tables.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig("history")
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetHistoryDBFilePath()
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyStore returns the configured history store or fails.
func historyStore() contract.HistoryStore {
	store := storeManager.GetHistoryStore()
	if store == nil {
		contract.LogFatal("Test history store unavailable", errors.New("test history store is not configured"))
	}
	return store
}

// historyCmd focused on test history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded test execution history",
	Long: `Manage the history store that holds test execution records.

Test profiles, predictions and recommendations are computed from this
history, so it grows with every 'triad record'.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show history store statistics
  export  - Export executions to Parquet
  clear   - Remove all recorded executions
  migrate - Run database schema migrations
  prune   - Remove executions older than --retention

Examples:
  # Check the history store
  triad history status

  # Keep three months of history
  triad history prune --retention "3 months"`,
}

// historyStatusCmd shows history store status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display history store statistics and connection details",
	Long:    `Show the backend, the number of recorded executions and tests, and the time span they cover.`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := historyStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history store status", err)
		}
		iocache.PrintHistoryStatus(status)
	},
}

// historyClearCmd clears the history store.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded test executions",
	Long: `Delete all recorded test executions.

WARNING: This action cannot be undone. Every test starts over with
insufficient data for a flakiness score.

Examples:
  triad history clear`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear test history", err)
		}
		fmt.Println("Test history cleared successfully.")
	},
}

// historyExportCmd exports executions to Parquet.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded test executions to Parquet",
	Long: `Export every recorded test execution to <file>.executions.parquet.

Examples:
  triad history export --output-file triad`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportHistory(rootCtx, historyStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export test history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run history store schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the test history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  triad history migrate
  triad history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion, _ := cmd.Flags().GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// historyPruneCmd removes old executions.
var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove test executions older than --retention",
	Long: `Delete test executions recorded before now minus --retention.

Examples:
  triad history prune --retention "90 days"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		cutoff, err := pruneCutoff()
		if err != nil {
			contract.LogFatal("Cannot prune test history", err)
		}
		n, err := historyStore().Prune(rootCtx, cutoff)
		if err != nil {
			contract.LogFatal("Failed to prune test history", err)
		}
		fmt.Printf("Pruned %d test executions older than %s.\n", n, cutoff.Format(contract.DateTimeFormat))
	},
}

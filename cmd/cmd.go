// Package cmd defines the command-line interface for triad.
package cmd

import (
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(teachingsCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the teachings subcommands to the parent teachings command
	teachingsCmd.AddCommand(teachingsHistoryCmd)

	// Add the store subcommands to their parent commands
	reportsCmd.AddCommand(reportsStatusCmd)
	reportsCmd.AddCommand(reportsClearCmd)
	reportsCmd.AddCommand(reportsExportCmd)
	reportsCmd.AddCommand(reportsMigrateCmd)
	reportsCmd.AddCommand(reportsPruneCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)
	historyCmd.AddCommand(historyPruneCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress and debug details to stderr")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("report-backend", string(schema.SQLiteBackend), "Report store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("report-db-connect", "", "Database connection string for the report store")
	rootCmd.PersistentFlags().String("history-backend", string(schema.SQLiteBackend), "Test history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for the test history store (must differ from report-db-connect)")
	rootCmd.PersistentFlags().String("retention", contract.DefaultRetention, "How long prune keeps stored data (e.g. '90 days')")

	// Analyzer flags are shared by analyze, gate and fix
	rootCmd.PersistentFlags().String("agents", "", "Comma-separated agents to run: di,security,ux,fileorg,performance,documentation")
	rootCmd.PersistentFlags().Bool("sequential", false, "Run agents one at a time")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("agent-timeout", "", "Per-agent timeout (e.g. '2 minutes')")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().String("ux-ruleset", "", "YAML file with the design-system ruleset for the UX agent")
	rootCmd.PersistentFlags().String("test-root", "", "Directory that mirrors source packages with tests")
	rootCmd.PersistentFlags().Int("max-components", 0, "Maximum UI components per file before the UX agent reports it")
	rootCmd.PersistentFlags().String("stale-after", "", "Age after which documentation is reported as stale (e.g. '180 days')")
	rootCmd.PersistentFlags().String("readme-sections", "", "Comma-separated README sections the documentation agent requires")
	rootCmd.PersistentFlags().Bool("no-save", false, "Do not store the analysis report")

	// Inputs shared by test intelligence and correlation
	rootCmd.PersistentFlags().String("coverage-profile", "", "Go cover profile (go test -coverprofile) to find coverage gaps")
	rootCmd.PersistentFlags().String("report", "", "Analysis report JSON file (default: latest stored report)")
	rootCmd.PersistentFlags().String("test", "", "Restrict to one test id")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of recordCmd to Viper
	recordCmd.Flags().String("input", "", "File with execution records (default: stdin)")
	recordCmd.Flags().String("format", "", "Record format: json or jsonl (default: by file extension)")
	if err := viper.BindPFlags(recordCmd.Flags()); err != nil {
		contract.LogFatal("Error binding record flags", err)
	}

	// Bind all flags of generateCmd to Viper
	generateCmd.Flags().Bool("write", false, "Write draft tests next to the code they cover")
	if err := viper.BindPFlags(generateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding generate flags", err)
	}

	// Bind all flags of teachingsHistoryCmd to Viper
	teachingsHistoryCmd.Flags().String("since", "", "Start of the window in ISO8601 or time ago")
	teachingsHistoryCmd.Flags().String("until", "", "End of the window in ISO8601 or time ago")
	if err := viper.BindPFlags(teachingsHistoryCmd.Flags()); err != nil {
		contract.LogFatal("Error binding teachings history flags", err)
	}

	// Bind all flags of fixCmd to Viper
	fixCmd.Flags().Int("fix-attempts", contract.DefaultFixAttempts, "Maximum fix attempts before rolling back")
	fixCmd.Flags().String("validate-cmd", "", "Command that must succeed after each attempt (e.g. 'go build ./...')")
	if err := viper.BindPFlags(fixCmd.Flags()); err != nil {
		contract.LogFatal("Error binding fix flags", err)
	}

	// Migrate commands read their flag directly, both share the same name
	reportsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}

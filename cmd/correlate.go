package cmd

import (
	"github.com/huangsam/triad/core"
	"github.com/huangsam/triad/internal/contract"
	"github.com/spf13/cobra"
)

// correlateCmd runs the correlation engine.
var correlateCmd = &cobra.Command{
	Use:   "correlate [path]",
	Short: "Explain how architecture findings and test health relate.",
	Long: `Join the latest analysis report, test health profiles and an optional
coverage profile, and detect the patterns that connect them.

Patterns:
- di_violations_flaky_tests - many DI violations in a module whose tests are flaky
- complexity_low_coverage   - complex functions that are barely covered
- security_test_gap         - security findings in code without tests
- performance_slow_tests    - performance findings behind slow tests
- module_health_test_health - finding density that tracks test failure rate

Every detection cites its evidence and comes with a teaching: the likely
root cause, the action to take and the expected benefit. A detector whose
inputs are missing is reported as skipped rather than silently passing.
Each run is stored as a teaching batch.

Examples:
  # Correlate the latest report with recorded test history
  triad correlate

  # Use a report file and a coverage profile
  triad correlate --report report.json --coverage-profile cover.out`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCorrelate(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot correlate", err)
		}
	},
}

// teachingsCmd groups commands over stored teaching batches.
var teachingsCmd = &cobra.Command{
	Use:   "teachings",
	Short: "Inspect stored teaching batches",
	Long: `Inspect the teaching batches stored by earlier correlate runs.

Subcommands:
  history - How often each pattern fired over time`,
}

// teachingsHistoryCmd aggregates pattern trends.
var teachingsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show how often each pattern fired across teaching batches",
	Long: `Aggregate stored teaching batches per pattern: how many batches it fired
in, how many detections it produced, when it was last seen and how its
most recent run ended.

Examples:
  # Everything stored
  triad teachings history

  # The last month
  triad teachings history --since "1 month ago"`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTeachingHistory(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot read teaching history", err)
		}
	},
}

package cmd

import (
	"github.com/huangsam/triad/core"
	"github.com/huangsam/triad/internal/contract"
	"github.com/spf13/cobra"
)

// recordCmd ingests test execution records.
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append test execution records to the test history.",
	Long: `Read the results of one test-suite run and append them to the history store.

Each record carries a test id, outcome (PASS, FAIL, SKIP, ERROR), duration
in milliseconds and an optional timestamp. Records are read from --input
or stdin as a JSON array or as JSON lines. A batch with one invalid record
is rejected as a whole.

Examples:
  # Record a JSON report
  triad record --input results.json

  # Stream JSON lines from another tool
  ./run-tests | triad record --format jsonl`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRecord(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot record test executions", err)
		}
	},
}

// profilesCmd shows test health profiles.
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show flakiness, failure rate and speed for recorded tests.",
	Long: `Compute a health profile per test from its recent executions.

Profiles include:
- Flakiness - how often the outcome flips between consecutive runs
- Failure rate - the share of failing or erroring runs
- Mean duration and whether the test is slow for its suite

Tests with fewer samples than intel.min_samples show n/a instead of
a flakiness score.

Examples:
  # Rank every recorded test, flakiest first
  triad profiles

  # Inspect one test
  triad profiles --test github.com/acme/shop/cart.TestCheckout`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteProfiles(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot compute test profiles", err)
		}
	},
}

// recommendCmd lists prioritized test recommendations.
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend which tests to fix, speed up or write next.",
	Long: `Turn test history, coverage gaps and the latest analysis report into
prioritized recommendations.

Recommendation types include flaky and slow tests, coverage gaps,
test pyramid imbalance and quality gate violations. Each one cites the
tests, findings or gaps it was derived from.

Examples:
  # Recommendations from history alone
  triad recommend

  # Include coverage gaps
  triad recommend --coverage-profile cover.out`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRecommend(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot generate recommendations", err)
		}
	},
}

// predictCmd estimates failure risk.
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the failure risk of the next run.",
	Long: `Estimate how likely each test is to fail on its next run from an
exponentially weighted view of its recent outcomes.

Risk is advisory. It never skips or blocks a test.

Examples:
  # Riskiest tests first
  triad predict --limit 10

  # One test
  triad predict --test github.com/acme/shop/cart.TestCheckout`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePredict(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot predict failure risk", err)
		}
	},
}

// coverageCmd lists coverage gaps.
var coverageCmd = &cobra.Command{
	Use:   "coverage [path]",
	Short: "List functions and files below the coverage target.",
	Long: `Read a Go cover profile and list the functions and files whose statement
coverage is below intel.coverage_target (default 80%).

Gaps inside files with analyzer findings list those findings, so untested
risky code sorts first.

Examples:
  go test -coverprofile cover.out ./...
  triad coverage --coverage-profile cover.out`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCoverage(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot compute coverage gaps", err)
		}
	},
}

// generateCmd drafts tests for coverage gaps.
var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Draft test skeletons for the largest coverage gaps.",
	Long: `Draft a table-driven test skeleton for each file with a coverage gap.

Drafts are printed by default. With --write they are written next to the
code under a _draft_test.go name, and existing files are never overwritten.

Examples:
  # Preview drafts
  triad generate --coverage-profile cover.out

  # Write them
  triad generate --coverage-profile cover.out --write`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteGenerate(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot generate test drafts", err)
		}
	},
}

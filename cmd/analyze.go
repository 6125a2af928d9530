package cmd

import (
	"github.com/huangsam/triad/core"
	"github.com/huangsam/triad/internal/contract"
	"github.com/spf13/cobra"
)

// analyzeCmd runs the architecture analyzer.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Run the architecture agents and score the health of a codebase.",
	Long: `Scan a codebase with six specialized agents and merge their findings into one report.

Agents:
- di            - dependency injection violations (direct construction, globals)
- security      - hardcoded secrets, injection risks, weak crypto
- ux            - design-system drift in UI code
- fileorg       - misplaced files, oversized packages, missing test mirrors
- performance   - N+1 queries, nested loops, unbounded reads
- documentation - missing READMEs and stale or undocumented code

Agents run in parallel by default. An agent that fails or times out never
aborts the run: the report is marked degraded and the health score is
computed from the categories that did complete.

Reports are stored in the report store unless --no-save is set, so that
later commands (gate, fix, correlate) can use them.

Examples:
  # Analyze the current directory
  triad analyze

  # Only run the security and performance agents
  triad analyze ./service --agents security,performance

  # Export the full report as JSON
  triad analyze --output json --output-file report.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run architecture analysis", err)
		}
	},
}

// gateCmd enforces the quality gate for CI/CD.
var gateCmd = &cobra.Command{
	Use:   "gate [path]",
	Short: "Fail when health or urgent findings cross the configured thresholds.",
	Long: `Analyze the target and compare the result with the quality gate.

The gate fails when:
- The health score is below gate.min_health (default 70) or unknown
- More URGENT findings exist than gate.max_urgent allows (default 0)
- Conflicting remediations exist and gate.fail_on_conflict is set
- Test intelligence reports a quality gate violation

The process exits non-zero on failure, so the command can block a merge.

Examples:
  # Gate a pull request
  triad gate

  # Gate with a stricter threshold from the config file
  TRIAD_CONFIG=.triad.ci.yaml triad gate ./src`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteGate(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Quality gate failed", err)
		}
	},
}

// fixCmd runs the fix loop for one finding.
var fixCmd = &cobra.Command{
	Use:   "fix <finding-id>",
	Short: "Apply, validate and commit or roll back a fix for one finding.",
	Long: `Attempt an automatic fix for a finding of the latest stored report.

Each attempt edits the file, then runs --validate-cmd when given. A
failing attempt is rolled back before the next one, and after
--fix-attempts failures the file is restored to its original content.
A committed fix triggers a fresh analysis so the stored report stays current.

Only hardcoded secrets in Go, Python, JavaScript and TypeScript files can be
fixed today.

Examples:
  # Move a hardcoded secret to an environment variable
  triad fix 3f2a9c1d

  # Require the build to pass after the edit
  triad fix 3f2a9c1d --validate-cmd "go build ./..."`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return sharedSetup(rootCtx, cmd, nil)
	},
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteFix(args[0])(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot fix finding", err)
		}
	},
}

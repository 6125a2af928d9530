// Package core has the entry points of every triad operation. Each Execute function runs one
// operation against the configured stores and prints the result in the configured output format.
package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/outwriter"
)

// ExecutorFunc defines the function signature for executing the different operations.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteAnalyze runs the architecture analyzer and prints the report.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	report, err := RunAnalysis(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteAnalysisReport(report, cfg, time.Since(start))
}

// ExecuteRecord appends the execution records of one test-suite run to the history store.
func ExecuteRecord(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	n, err := RecordFromInput(ctx, cfg, mgr, os.Stdin)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %d test executions.\n", n)
	return nil
}

// ExecuteProfiles prints test health profiles.
func ExecuteProfiles(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	profiles, err := Profiles(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteProfiles(profiles, cfg)
}

// ExecuteRecommend prints prioritized test recommendations.
func ExecuteRecommend(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	recs, err := Recommendations(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteRecommendations(recs, cfg)
}

// ExecutePredict prints the advisory failure risk of one or all tests.
func ExecutePredict(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	predictions, err := Predictions(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WritePredictions(predictions, cfg)
}

// ExecuteCoverage prints coverage gaps of a Go cover profile.
func ExecuteCoverage(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	coverage, err := CoverageGaps(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteCoverageReport(coverage, cfg)
}

// ExecuteGenerate prints, and with --write stores, draft tests for coverage gaps.
func ExecuteGenerate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	drafts, err := Drafts(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteDrafts(drafts, cfg)
}

// ExecuteCorrelate runs the correlation engine and prints the ranked teachings.
func ExecuteCorrelate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	batch, err := Correlate(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteTeachingBatch(batch, cfg, time.Since(start))
}

// ExecuteTeachingHistory prints how often each pattern fired across stored teaching batches.
func ExecuteTeachingHistory(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	trends, batches, err := TeachingTrends(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WritePatternTrends(trends, batches, cfg)
}

// ExecuteGate analyzes the target and fails with ErrGateFailed when a gate threshold is violated.
func ExecuteGate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, err := RunGate(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	if err := outwriter.WriteGateResult(result, cfg); err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("%w: %s", ErrGateFailed, strings.Join(result.Violations, "; "))
	}
	return nil
}

// ExecuteFix returns an executor that runs the fix loop for one finding.
func ExecuteFix(findingID string) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		result, err := RunFix(ctx, cfg, mgr, findingID)
		if err != nil {
			return err
		}
		return outwriter.WriteFixResult(result, cfg)
	}
}

package core

import (
	"context"
	"fmt"

	"github.com/huangsam/triad/core/arch"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// RunFix drives the fix loop for one finding of the selected report. Files are resolved against
// the report's target path. A committed fix publishes a fresh report so the finding leaves the latest one.
func RunFix(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, findingID string) (*schema.FixResult, error) {
	report, err := LoadReport(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	finding, ok := report.FindingByID(findingID)
	if !ok {
		return nil, fmt.Errorf("finding %s: %w in report %s", findingID, contract.ErrNotFound, report.ID)
	}

	agent, err := arch.DefaultRegistry(cfg.Analyzer).Get(finding.Agent)
	if err != nil {
		return nil, err
	}
	loop := arch.NewFixLoop(report.TargetPath, agent, cfg.FixAttempts)
	loop.Excludes = cfg.Analyzer.Excludes
	loop.ValidateCmd = cfg.ValidateCmd

	result, err := loop.Run(ctx, finding)
	if err != nil {
		return result, err
	}
	if result.Committed && cfg.SaveReport {
		rescan := cfg.Clone()
		rescan.TargetPath = report.TargetPath
		if _, err := RunAnalysis(WithSuppressProgress(ctx), rescan, mgr); err != nil {
			contract.LogWarn("fix committed but the report was not refreshed", err)
		}
	}
	return result, nil
}

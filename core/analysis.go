package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/triad/core/arch"
	"github.com/huangsam/triad/core/testintel"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// Errors returned when a command needs a store that is not configured.
var (
	ErrNoReportStore  = errors.New("report store is not configured")
	ErrNoHistoryStore = errors.New("test history store is not configured")
)

// RunAnalysis scans cfg.TargetPath with the enabled agents and publishes the report
// to the report store unless saving is disabled.
func RunAnalysis(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AnalysisReport, error) {
	registry := arch.DefaultRegistry(cfg.Analyzer)
	orchestrator := arch.NewOrchestrator(registry, cfg.Analyzer).
		WithProgress(!shouldSuppressProgress(ctx)).
		WithGit(contract.NewLocalGitClient())

	report, err := orchestrator.Run(ctx, cfg.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if report.Degraded {
		for _, note := range report.Notes {
			contract.Logger.Warn("analysis degraded", "note", note)
		}
	}

	if !cfg.SaveReport {
		return report, nil
	}
	store := mgr.GetReportStore()
	if store == nil {
		return report, nil
	}
	if err := store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	contract.Logger.Debug("report saved", "id", report.ID)
	return report, nil
}

// LoadReport returns the report named by cfg.ReportFile, or else the latest stored report.
func LoadReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AnalysisReport, error) {
	if cfg.ReportFile != "" {
		return ReadReportFile(cfg.ReportFile)
	}
	store := mgr.GetReportStore()
	if store == nil {
		return nil, ErrNoReportStore
	}
	report, err := store.LatestReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}
	return report, nil
}

// loadOptionalReport is LoadReport for operations that can run without a report.
func loadOptionalReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AnalysisReport, error) {
	report, err := LoadReport(ctx, cfg, mgr)
	if errors.Is(err, contract.ErrNotFound) || errors.Is(err, ErrNoReportStore) {
		contract.Logger.Debug("no analysis report available", "err", err)
		return nil, nil
	}
	return report, err
}

// ReadReportFile reads a serialized report after validating it against the report schema.
func ReadReportFile(path string) (*schema.AnalysisReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if err := schema.ValidateReportDocument(data); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	var report schema.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	return &report, nil
}

// LoadCoverage resolves cfg.CoverageProfile against the target and finds the gaps below the coverage target.
// Findings of the report, when given, are linked to the gaps in the same files.
// It returns nil without error when no profile is configured.
func LoadCoverage(cfg *contract.Config, report *schema.AnalysisReport) (*schema.CoverageReport, error) {
	if cfg.CoverageProfile == "" {
		return nil, nil
	}
	cov, err := testintel.LoadCoverProfile(cfg.CoverageProfile, cfg.TargetPath)
	if err != nil {
		return nil, err
	}
	var findings []schema.Finding
	if report != nil {
		findings = report.Findings
	}
	return testintel.FindCoverageGaps(cov, cfg.Intel.CoverageTarget, findings), nil
}

package core

import (
	"context"
	"fmt"

	"github.com/huangsam/triad/core/correlate"
	"github.com/huangsam/triad/core/testintel"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// Correlate runs the correlation engine over the selected report, the current test health profiles
// and the optional coverage profile, then stores the teaching batch.
// Missing inputs never fail the run; the detectors that need them are reported as skipped.
func Correlate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.TeachingBatch, error) {
	report, err := loadOptionalReport(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	if report == nil {
		contract.Logger.Warn("no analysis report found; run 'triad analyze' first for architecture patterns")
	}

	var profiles []schema.TestHealthProfile
	if store := mgr.GetHistoryStore(); store != nil {
		profiles, err = testintel.NewEngine(store, cfg.Intel).ComputeHealthProfiles(ctx)
		if err != nil {
			return nil, err
		}
	}

	coverage, err := LoadCoverage(cfg, report)
	if err != nil {
		return nil, err
	}

	engine := correlate.NewEngine(correlate.DefaultRegistry(), cfg.Correlation)
	if cfg.Analyzer.Workers > 0 {
		engine = engine.WithWorkers(cfg.Analyzer.Workers)
	}
	batch, err := engine.Run(ctx, correlate.Input{Report: report, Profiles: profiles, Coverage: coverage})
	if err != nil {
		return nil, err
	}
	contract.Logger.Info(correlate.Summary(batch))

	if store := mgr.GetReportStore(); store != nil {
		if err := store.SaveTeachingBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save teaching batch: %w", err)
		}
	}
	return batch, nil
}

// TeachingTrends summarizes stored teaching batches between cfg.Since and cfg.Until.
// It returns the trends and the number of batches they cover.
func TeachingTrends(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.PatternTrend, int, error) {
	store := mgr.GetReportStore()
	if store == nil {
		return nil, 0, ErrNoReportStore
	}
	batches, err := store.ListTeachingBatches(ctx, schema.TimeRange{Start: cfg.Since, End: cfg.Until}, cfg.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teaching batches: %w", err)
	}
	return correlate.PatternTrends(batches), len(batches), nil
}

// Package testintel is the test intelligence engine. It records test executions in an append-only history
// and derives health profiles, failure risk, coverage gaps, recommendations and draft tests from it.
package testintel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"golang.org/x/sync/errgroup"
)

// historyFetchLimit bounds concurrent history queries.
const historyFetchLimit = 8

// Engine reads and writes the execution history. Every derived value is recomputed from the store.
type Engine struct {
	history  contract.HistoryStore
	settings schema.IntelSettings
	now      func() time.Time
}

// NewEngine creates an engine over a history store.
func NewEngine(history contract.HistoryStore, settings schema.IntelSettings) *Engine {
	return &Engine{history: history, settings: settings, now: time.Now}
}

// Settings returns the engine settings.
func (e *Engine) Settings() schema.IntelSettings {
	return e.settings
}

// RecordExecution appends one execution record.
func (e *Engine) RecordExecution(ctx context.Context, rec schema.TestExecutionRecord) error {
	_, err := e.RecordExecutions(ctx, []schema.TestExecutionRecord{rec})
	return err
}

// RecordExecutions validates and appends records. Records without a timestamp take the current time.
// Nothing is stored when any record is invalid.
func (e *Engine) RecordExecutions(ctx context.Context, records []schema.TestExecutionRecord) (int, error) {
	now := e.now().UTC()
	batch := make([]schema.TestExecutionRecord, 0, len(records))
	for i, r := range records {
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		batch = append(batch, r)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := e.history.Append(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to record executions: %w", err)
	}
	contract.Logger.Debug("recorded executions", "count", len(batch))
	return len(batch), nil
}

// Histories returns the windowed history of every known test.
func (e *Engine) Histories(ctx context.Context) (map[string][]schema.TestExecutionRecord, error) {
	ids, err := e.history.TestIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	var mu sync.Mutex
	histories := make(map[string][]schema.TestExecutionRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFetchLimit)
	for _, id := range ids {
		g.Go(func() error {
			records, err := e.history.History(gctx, id, e.settings.Window)
			if err != nil {
				return fmt.Errorf("failed to load history of %s: %w", id, err)
			}
			mu.Lock()
			histories[id] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return histories, nil
}

// ComputeHealthProfiles returns the profile of every known test, sorted by test id.
func (e *Engine) ComputeHealthProfiles(ctx context.Context) ([]schema.TestHealthProfile, error) {
	histories, err := e.Histories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildProfiles(histories, e.settings), nil
}

// ComputeHealthProfile returns the profile of one test. An unknown test yields a profile flagged as insufficient data.
func (e *Engine) ComputeHealthProfile(ctx context.Context, testID string) (schema.TestHealthProfile, error) {
	histories, err := e.Histories(ctx)
	if err != nil {
		return schema.TestHealthProfile{}, err
	}
	if _, ok := histories[testID]; !ok {
		return BuildProfile(testID, nil, e.settings, 0), nil
	}
	for _, p := range BuildProfiles(histories, e.settings) {
		if p.TestID == testID {
			return p, nil
		}
	}
	return BuildProfile(testID, nil, e.settings, 0), nil
}

// PredictFailureRisk returns the advisory failure risk of one test.
func (e *Engine) PredictFailureRisk(ctx context.Context, testID string) (schema.RiskPrediction, error) {
	records, err := e.history.History(ctx, testID, e.settings.Window)
	if err != nil {
		return schema.RiskPrediction{}, fmt.Errorf("failed to load history of %s: %w", testID, err)
	}
	profile := BuildProfile(testID, records, e.settings, 0)
	return PredictRisk(profile, records, e.settings), nil
}

// PredictAll returns the risk of every known test, sorted by test id.
func (e *Engine) PredictAll(ctx context.Context) ([]schema.RiskPrediction, error) {
	histories, err := e.Histories(ctx)
	if err != nil {
		return nil, err
	}
	profiles := BuildProfiles(histories, e.settings)
	out := make([]schema.RiskPrediction, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, PredictRisk(p, histories[p.TestID], e.settings))
	}
	return out, nil
}

// GenerateRecommendations derives recommendations from the stored history plus optional coverage and analysis reports.
func (e *Engine) GenerateRecommendations(ctx context.Context, coverage *schema.CoverageReport, report *schema.AnalysisReport) ([]schema.Recommendation, error) {
	histories, err := e.Histories(ctx)
	if err != nil {
		return nil, err
	}
	profiles := BuildProfiles(histories, e.settings)
	predictions := make([]schema.RiskPrediction, 0, len(profiles))
	for _, p := range profiles {
		predictions = append(predictions, PredictRisk(p, histories[p.TestID], e.settings))
	}
	return GenerateRecommendations(Inputs{
		Profiles:    profiles,
		Predictions: predictions,
		Coverage:    coverage,
		Report:      report,
	}, e.settings), nil
}

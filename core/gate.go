package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// ErrGateFailed is returned by ExecuteGate when any gate threshold is violated.
var ErrGateFailed = errors.New("quality gate failed")

// EvaluateGate checks a report and the test recommendations against the gate thresholds.
// An unknown health score always fails the gate.
func EvaluateGate(report *schema.AnalysisReport, recs []schema.Recommendation, settings schema.GateSettings) *schema.GateResult {
	result := &schema.GateResult{
		ReportID:       report.ID,
		HealthScore:    report.HealthScore,
		Degraded:       report.Degraded,
		MinHealthScore: settings.MinHealthScore,
		MaxUrgent:      settings.MaxUrgent,
		Conflicts:      len(report.Conflicts),
		Violations:     []string{},
	}
	for _, f := range report.Findings {
		if f.Severity == schema.SeverityUrgent {
			result.UrgentFindings++
		}
	}

	switch {
	case report.HealthScore == nil:
		result.Violations = append(result.Violations, "health score is unknown because no agent completed")
	case *report.HealthScore < settings.MinHealthScore:
		result.Violations = append(result.Violations,
			fmt.Sprintf("health score %.1f is below %.1f", *report.HealthScore, settings.MinHealthScore))
	}
	if result.UrgentFindings > settings.MaxUrgent {
		result.Violations = append(result.Violations,
			fmt.Sprintf("%d URGENT findings exceed the limit of %d", result.UrgentFindings, settings.MaxUrgent))
	}
	if settings.FailOnConflict && result.Conflicts > 0 {
		result.Violations = append(result.Violations,
			fmt.Sprintf("%d conflicting remediations need a decision", result.Conflicts))
	}
	for _, r := range recs {
		if r.Type == schema.QualityGateViolation {
			result.Recommendations = append(result.Recommendations, r)
			result.Violations = append(result.Violations, r.Message)
		}
	}

	result.Passed = len(result.Violations) == 0
	return result
}

// RunGate analyzes the target and evaluates the gate. Test recommendations take part
// only when a history store is configured.
func RunGate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.GateResult, error) {
	report, err := RunAnalysis(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}

	var recs []schema.Recommendation
	if engine, err := intelEngine(cfg, mgr); err == nil {
		coverage, err := LoadCoverage(cfg, report)
		if err != nil {
			return nil, err
		}
		if recs, err = engine.GenerateRecommendations(ctx, coverage, report); err != nil {
			return nil, err
		}
	} else {
		contract.Logger.Debug("gate without test recommendations", "err", err)
	}
	return EvaluateGate(report, recs, cfg.Gate), nil
}

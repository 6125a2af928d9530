package testintel

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/huangsam/triad/schema"
)

// Inputs are the reports recommendations are derived from. Any of them may be empty.
type Inputs struct {
	Profiles    []schema.TestHealthProfile
	Predictions []schema.RiskPrediction
	Coverage    *schema.CoverageReport
	Report      *schema.AnalysisReport
}

// upperTierMarkers identify integration and end-to-end tests by id.
var upperTierMarkers = []string{"integration", "e2e", "end_to_end", "endtoend", "functional", "acceptance", "system"}

// Effort estimates in hours used by the debt recommendation.
const (
	flakyFixHours = 4.0
	slowFixHours  = 2.0
	gapFillHours  = 1.0
)

// GenerateRecommendations produces typed recommendations ordered by priority score.
// Every recommendation cites at least one evidence id.
func GenerateRecommendations(in Inputs, settings schema.IntelSettings) []schema.Recommendation {
	var recs []schema.Recommendation
	var flaky, slow, gaps []schema.Evidence

	for _, p := range in.Profiles {
		ev := schema.Evidence{Kind: schema.TestEvidence, ID: p.TestID}
		if p.Flakiness != nil && *p.Flakiness >= settings.FlakyThreshold && *p.Flakiness > 0 {
			severity := schema.SeverityMedium
			if *p.Flakiness >= 0.6 {
				severity = schema.SeverityHigh
			}
			recs = append(recs, newRecommendation(schema.FlakyTestFix, severity, sampleConfidence(p.SampleSize, settings),
				fmt.Sprintf("%s is flaky: %d outcome changes over %d runs (flakiness %.2f)", p.TestID, p.Transitions, p.SampleSize, *p.Flakiness),
				"Remove timing, ordering and shared-state dependencies from the test; quarantine it until it is stable.",
				ev))
			flaky = append(flaky, ev)
		}
		if p.IsSlow {
			recs = append(recs, newRecommendation(schema.SlowTestInvestigate, schema.SeverityMedium, sampleConfidence(p.SampleSize, settings),
				fmt.Sprintf("%s is slow: %s", p.TestID, p.SlowReason),
				"Profile the test; replace real I/O with fakes or move it to a slower suite.",
				ev))
			slow = append(slow, ev)
		}
	}

	coverageRecs := coverageRecommendations(in.Coverage, in.Report)
	for _, r := range coverageRecs {
		gaps = append(gaps, r.Evidence[0])
	}
	recs = append(recs, coverageRecs...)

	if r, ok := pyramidRecommendation(in.Profiles, settings); ok {
		recs = append(recs, r)
	}

	for _, pred := range in.Predictions {
		if pred.InsufficientData || pred.Risk < settings.RiskThreshold {
			continue
		}
		severity := schema.SeverityMedium
		if pred.Risk >= 0.9 {
			severity = schema.SeverityHigh
		}
		recs = append(recs, newRecommendation(schema.PredictiveFailureWarning, severity, 0.8*pred.Risk,
			fmt.Sprintf("%s has a %.0f%% estimated failure risk (recent failure rate %.2f, flakiness %.2f)", pred.TestID, 100*pred.Risk, pred.RecentFailure, pred.Flakiness),
			"Run this test first and review recent changes to the code it exercises. The estimate is advisory.",
			schema.Evidence{Kind: schema.TestEvidence, ID: pred.TestID}))
	}

	recs = append(recs, gateRecommendations(in, flaky, settings)...)

	if total := len(flaky) + len(slow) + len(gaps); total > 0 {
		hours := flakyFixHours*float64(len(flaky)) + slowFixHours*float64(len(slow)) + gapFillHours*float64(len(gaps))
		evidence := append(append(append([]schema.Evidence{}, flaky...), slow...), gaps...)
		recs = append(recs, newRecommendation(schema.DebtQuantify, schema.SeverityLow, 0.5,
			fmt.Sprintf("Test debt: %d flaky, %d slow, %d uncovered regions (about %.0f hours)", len(flaky), len(slow), len(gaps), hours),
			"Plan the debt into upcoming iterations, flaky tests first.",
			evidence...))
	}

	sortRecommendations(recs)
	return recs
}

func newRecommendation(t schema.RecommendationType, severity schema.Severity, confidence float64, message, action string, evidence ...schema.Evidence) schema.Recommendation {
	confidence = math.Max(0, math.Min(1, confidence))
	return schema.Recommendation{
		Type:          t,
		Severity:      severity,
		Confidence:    round3(confidence),
		PriorityScore: round3(severity.Weight() * confidence),
		Message:       message,
		Action:        action,
		Evidence:      evidence,
	}
}

// sampleConfidence grows with the number of runs observed, from 0.5 up to 1 at a full window.
func sampleConfidence(samples int, settings schema.IntelSettings) float64 {
	w := settings.Window
	if w <= 0 {
		w = schema.DefaultWindow
	}
	return 0.5 + 0.5*math.Min(1, float64(samples)/float64(w))
}

// coverageRecommendations turns gaps into fill or critical-path recommendations.
// File-level gaps are skipped when the same file has function-level gaps.
func coverageRecommendations(cov *schema.CoverageReport, report *schema.AnalysisReport) []schema.Recommendation {
	if cov == nil {
		return nil
	}
	findings := make(map[string]schema.Finding)
	if report != nil {
		for _, f := range report.Findings {
			findings[f.ID] = f
		}
	}
	hasFuncGaps := make(map[string]bool)
	for _, g := range cov.Gaps {
		if g.Function != "" {
			hasFuncGaps[g.File] = true
		}
	}

	var recs []schema.Recommendation
	for _, g := range cov.Gaps {
		if g.Function == "" && hasFuncGaps[g.File] {
			continue
		}
		where := g.File
		if g.Function != "" {
			where = fmt.Sprintf("%s in %s", g.Function, g.File)
		}
		evidence := []schema.Evidence{{Kind: schema.CoverageEvidence, ID: g.ID}}

		critical := schema.Severity("")
		for _, id := range g.Findings {
			f, ok := findings[id]
			if !ok {
				continue
			}
			evidence = append(evidence, schema.Evidence{Kind: schema.FindingEvidence, ID: id})
			if f.Category == schema.CategorySecurity || f.Severity.Rank() >= schema.SeverityHigh.Rank() {
				if f.Severity.Rank() > critical.Rank() {
					critical = f.Severity
				}
				if critical.Rank() < schema.SeverityHigh.Rank() {
					critical = schema.SeverityHigh
				}
			}
		}

		if critical != "" {
			recs = append(recs, newRecommendation(schema.CriticalPathAddTest, critical, 0.85,
				fmt.Sprintf("%s has %.1f%% coverage and %d high-impact findings", where, g.Coverage, len(evidence)-1),
				"Add tests around the flagged code before changing it.",
				evidence...))
			continue
		}
		severity := schema.SeverityLow
		if g.Coverage < g.Target/2 {
			severity = schema.SeverityMedium
		}
		recs = append(recs, newRecommendation(schema.CoverageGapFill, severity, 0.9,
			fmt.Sprintf("%s has %.1f%% coverage (target %.0f%%)", where, g.Coverage, g.Target),
			"Add tests for the uncovered branches.",
			evidence...))
	}
	return recs
}

func isUpperTier(testID string) bool {
	id := strings.ToLower(testID)
	for _, m := range upperTierMarkers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return false
}

// pyramidRecommendation fires when integration and end-to-end tests outweigh the allowed share.
func pyramidRecommendation(profiles []schema.TestHealthProfile, settings schema.IntelSettings) (schema.Recommendation, bool) {
	if len(profiles) < 5 || settings.PyramidMaxUpperShare <= 0 {
		return schema.Recommendation{}, false
	}
	var upper []schema.Evidence
	for _, p := range profiles {
		if isUpperTier(p.TestID) {
			upper = append(upper, schema.Evidence{Kind: schema.TestEvidence, ID: p.TestID})
		}
	}
	share := float64(len(upper)) / float64(len(profiles))
	if len(upper) == 0 || share <= settings.PyramidMaxUpperShare {
		return schema.Recommendation{}, false
	}
	return newRecommendation(schema.TestPyramidRebalance, schema.SeverityLow, 0.6,
		fmt.Sprintf("%.0f%% of tests are integration or end-to-end (limit %.0f%%)", 100*share, 100*settings.PyramidMaxUpperShare),
		"Cover the same behavior with unit tests and keep a thin layer of end-to-end tests.",
		upper...), true
}

// gateRecommendations checks pass rate, flaky test budget and overall coverage against the thresholds.
func gateRecommendations(in Inputs, flaky []schema.Evidence, settings schema.IntelSettings) []schema.Recommendation {
	var recs []schema.Recommendation

	var samples, failing float64
	var failingTests []schema.Evidence
	for _, p := range in.Profiles {
		if p.SampleSize == 0 {
			continue
		}
		samples += float64(p.SampleSize)
		failing += p.FailureRate * float64(p.SampleSize)
		if p.FailureRate > 0 {
			failingTests = append(failingTests, schema.Evidence{Kind: schema.TestEvidence, ID: p.TestID})
		}
	}
	if samples > 0 && len(failingTests) > 0 {
		passRate := 1 - failing/samples
		if passRate < settings.MinPassRate {
			recs = append(recs, newRecommendation(schema.QualityGateViolation, schema.SeverityHigh, 0.95,
				fmt.Sprintf("Pass rate %.1f%% is below the %.1f%% gate", 100*passRate, 100*settings.MinPassRate),
				"Fix or quarantine the failing tests before merging.",
				failingTests...))
		}
	}

	if settings.MaxFlakyTests >= 0 && len(flaky) > settings.MaxFlakyTests {
		recs = append(recs, newRecommendation(schema.QualityGateViolation, schema.SeverityHigh, 0.9,
			fmt.Sprintf("%d flaky tests exceed the budget of %d", len(flaky), settings.MaxFlakyTests),
			"Stabilize flaky tests until the count is within budget.",
			flaky...))
	}

	if in.Coverage != nil {
		var statements, covered int
		for _, f := range in.Coverage.Files {
			statements += f.Statements
			covered += f.Covered
		}
		var below []schema.Evidence
		for _, g := range in.Coverage.Gaps {
			if g.Function == "" {
				below = append(below, schema.Evidence{Kind: schema.CoverageEvidence, ID: g.ID})
			}
		}
		if statements > 0 && len(below) > 0 {
			total := percent(covered, statements)
			if total < settings.CoverageTarget {
				recs = append(recs, newRecommendation(schema.QualityGateViolation, schema.SeverityMedium, 0.95,
					fmt.Sprintf("Statement coverage %.1f%% is below the %.0f%% gate", total, settings.CoverageTarget),
					"Add tests to the files below target.",
					below...))
			}
		}
	}
	return recs
}

// sortRecommendations orders by priority score, then type and first evidence id for stable output.
func sortRecommendations(recs []schema.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Evidence[0].ID < b.Evidence[0].ID
	})
}

package testintel

import (
	"testing"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func recsOfType(recs []schema.Recommendation, t schema.RecommendationType) []schema.Recommendation {
	var out []schema.Recommendation
	for _, r := range recs {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func stableProfile(id string) schema.TestHealthProfile {
	return schema.TestHealthProfile{TestID: id, SampleSize: 20, Flakiness: ptr(0), MeanDurationMs: 10}
}

func TestGenerateRecommendations_Flaky(t *testing.T) {
	settings := schema.DefaultIntelSettings()
	profiles := []schema.TestHealthProfile{
		{TestID: "pkg.TestFlaky", SampleSize: 5, Transitions: 4, Flakiness: ptr(1.0), FailureRate: 0.01},
		{TestID: "pkg.TestWobbly", SampleSize: 50, Transitions: 20, Flakiness: ptr(0.4)},
		{TestID: "pkg.TestNew", SampleSize: 2, InsufficientData: true},
		stableProfile("pkg.TestStable"),
	}
	recs := GenerateRecommendations(Inputs{Profiles: profiles}, settings)

	flaky := recsOfType(recs, schema.FlakyTestFix)
	require.Len(t, flaky, 2)
	byID := map[string]schema.Recommendation{}
	for _, r := range flaky {
		byID[r.Evidence[0].ID] = r
	}
	assert.Equal(t, schema.SeverityHigh, byID["pkg.TestFlaky"].Severity)
	assert.InDelta(t, 0.55, byID["pkg.TestFlaky"].Confidence, 1e-9)
	assert.InDelta(t, 0.75*0.55, byID["pkg.TestFlaky"].PriorityScore, 1e-3)
	assert.Equal(t, schema.SeverityMedium, byID["pkg.TestWobbly"].Severity)
	assert.Equal(t, 1.0, byID["pkg.TestWobbly"].Confidence)

	debt := recsOfType(recs, schema.DebtQuantify)
	require.Len(t, debt, 1)
	assert.Len(t, debt[0].Evidence, 2)
	assert.Contains(t, debt[0].Message, "about 8 hours")
}

func TestGenerateRecommendations_Slow(t *testing.T) {
	p := stableProfile("pkg.TestSlow")
	p.IsSlow = true
	p.SlowReason = "mean 900ms exceeds 500ms"
	recs := GenerateRecommendations(Inputs{Profiles: []schema.TestHealthProfile{p}}, schema.DefaultIntelSettings())

	slow := recsOfType(recs, schema.SlowTestInvestigate)
	require.Len(t, slow, 1)
	assert.Equal(t, schema.SeverityMedium, slow[0].Severity)
	assert.Contains(t, slow[0].Message, "900ms")
}

func TestGenerateRecommendations_Coverage(t *testing.T) {
	cov := &schema.CoverageReport{
		Target: 80,
		Files: []schema.FileCoverage{
			{File: "cart/cart.go", Statements: 40, Covered: 10, Percent: 25},
			{File: "util/str.go", Statements: 10, Covered: 7, Percent: 70},
		},
		Gaps: []schema.CoverageGap{
			{ID: "coverage:cart/cart.go", File: "cart/cart.go", Coverage: 25, Target: 80, Findings: []string{"f-secret"}},
			{ID: "coverage:cart/cart.go#Discount", File: "cart/cart.go", Function: "Discount", StartLine: 7, EndLine: 12, Target: 80, Findings: []string{"f-secret"}},
			{ID: "coverage:util/str.go", File: "util/str.go", Coverage: 70, Target: 80},
		},
	}
	report := &schema.AnalysisReport{Findings: []schema.Finding{
		{ID: "f-secret", File: "cart/cart.go", Line: 9, Category: schema.CategorySecurity, Severity: schema.SeverityMedium},
	}}
	recs := GenerateRecommendations(Inputs{Coverage: cov, Report: report}, schema.DefaultIntelSettings())

	critical := recsOfType(recs, schema.CriticalPathAddTest)
	require.Len(t, critical, 1, "the file gap is folded into its function gap")
	assert.Equal(t, schema.SeverityHigh, critical[0].Severity)
	assert.Equal(t, []schema.Evidence{
		{Kind: schema.CoverageEvidence, ID: "coverage:cart/cart.go#Discount"},
		{Kind: schema.FindingEvidence, ID: "f-secret"},
	}, critical[0].Evidence)

	fill := recsOfType(recs, schema.CoverageGapFill)
	require.Len(t, fill, 1)
	assert.Equal(t, "coverage:util/str.go", fill[0].Evidence[0].ID)
	assert.Equal(t, schema.SeverityLow, fill[0].Severity)

	gate := recsOfType(recs, schema.QualityGateViolation)
	require.Len(t, gate, 1)
	assert.Contains(t, gate[0].Message, "Statement coverage 34.0%")
	assert.Len(t, gate[0].Evidence, 2)
}

func TestGenerateRecommendations_Pyramid(t *testing.T) {
	profiles := []schema.TestHealthProfile{
		stableProfile("tests/integration/test_api.py::test_create"),
		stableProfile("tests/integration/test_api.py::test_delete"),
		stableProfile("tests/e2e/test_flow.py::test_checkout"),
		stableProfile("tests/unit/test_cart.py::test_add"),
		stableProfile("tests/unit/test_cart.py::test_remove"),
	}
	recs := GenerateRecommendations(Inputs{Profiles: profiles}, schema.DefaultIntelSettings())

	pyramid := recsOfType(recs, schema.TestPyramidRebalance)
	require.Len(t, pyramid, 1)
	assert.Len(t, pyramid[0].Evidence, 3)
	assert.Contains(t, pyramid[0].Message, "60%")

	recs = GenerateRecommendations(Inputs{Profiles: profiles[2:]}, schema.DefaultIntelSettings())
	assert.Empty(t, recsOfType(recs, schema.TestPyramidRebalance), "too few tests to judge")
}

func TestGenerateRecommendations_Predictive(t *testing.T) {
	preds := []schema.RiskPrediction{
		{TestID: "pkg.TestRisky", Risk: 0.95},
		{TestID: "pkg.TestMaybe", Risk: 0.72},
		{TestID: "pkg.TestFine", Risk: 0.1},
		{TestID: "pkg.TestUnknown", Risk: 0.99, InsufficientData: true},
	}
	recs := GenerateRecommendations(Inputs{Predictions: preds}, schema.DefaultIntelSettings())

	warn := recsOfType(recs, schema.PredictiveFailureWarning)
	require.Len(t, warn, 2)
	assert.Equal(t, "pkg.TestRisky", warn[0].Evidence[0].ID)
	assert.Equal(t, schema.SeverityHigh, warn[0].Severity)
	assert.Equal(t, schema.SeverityMedium, warn[1].Severity)
	assert.Contains(t, warn[0].Action, "advisory")
}

func TestGenerateRecommendations_Gates(t *testing.T) {
	settings := schema.DefaultIntelSettings()
	settings.MaxFlakyTests = 0

	failing := stableProfile("pkg.TestBroken")
	failing.FailureRate = 1
	flaky := schema.TestHealthProfile{TestID: "pkg.TestFlaky", SampleSize: 20, Flakiness: ptr(0.5), FailureRate: 0.5}
	recs := GenerateRecommendations(Inputs{Profiles: []schema.TestHealthProfile{failing, flaky, stableProfile("pkg.TestOK")}}, settings)

	gate := recsOfType(recs, schema.QualityGateViolation)
	require.Len(t, gate, 2)
	messages := []string{gate[0].Message, gate[1].Message}
	assert.Contains(t, messages, "Pass rate 50.0% is below the 95.0% gate")
	assert.Contains(t, messages, "1 flaky tests exceed the budget of 0")
}

func TestGenerateRecommendations_OrderAndEvidence(t *testing.T) {
	settings := schema.DefaultIntelSettings()
	settings.MaxFlakyTests = 0
	slow := stableProfile("pkg.TestSlow")
	slow.IsSlow = true
	in := Inputs{
		Profiles: []schema.TestHealthProfile{
			{TestID: "pkg.TestFlaky", SampleSize: 30, Flakiness: ptr(0.7), FailureRate: 0.4},
			slow,
		},
		Predictions: []schema.RiskPrediction{{TestID: "pkg.TestFlaky", Risk: 0.8}},
	}
	first := GenerateRecommendations(in, settings)
	second := GenerateRecommendations(in, settings)
	assert.Equal(t, first, second, "deterministic")

	require.NotEmpty(t, first)
	for i, r := range first {
		assert.NotEmpty(t, r.Evidence, r.Type)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, first[i-1].PriorityScore, r.PriorityScore)
		}
	}
}

func TestGenerateRecommendations_Empty(t *testing.T) {
	assert.Empty(t, GenerateRecommendations(Inputs{}, schema.DefaultIntelSettings()))
}

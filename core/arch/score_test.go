package arch

import (
	"context"
	"testing"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCategories(t *testing.T) {
	runs := []schema.AgentRun{
		{Agent: schema.SecurityAgent, Status: schema.StatusCompleted},
		{Agent: schema.UXAgent, Status: schema.StatusTimedOut},
		{Agent: schema.DIAgent, Status: schema.StatusCompleted},
		{Agent: "custom", Status: schema.StatusCompleted},
	}
	counts := map[schema.Category]int{schema.CategorySecurity: 3, schema.CategoryDI: 8}
	scores := ScoreCategories(counts, runs, 6, schema.DefaultCategoryWeights(), 100)

	require.Len(t, scores, 3)
	sec := scores[schema.CategorySecurity]
	require.True(t, sec.Known())
	assert.Equal(t, 50.0, *sec.Score)
	assert.Equal(t, 0.5, sec.Density)
	assert.Equal(t, 3, sec.Findings)

	assert.False(t, scores[schema.CategoryUX].Known())
	assert.Equal(t, schema.StatusTimedOut, scores[schema.CategoryUX].Status)

	// Density above the scale clamps to zero.
	assert.Equal(t, 0.0, *scores[schema.CategoryDI].Score)

	// The total keeps the full DI penalty: 100 - (50 + 133.33) / 2.
	health := HealthScore(scores, 6, 100)
	require.NotNil(t, health)
	assert.InDelta(t, 8.33, *health, 1e-9)
}

func TestScoreCategories_EmptyTree(t *testing.T) {
	runs := []schema.AgentRun{{Agent: schema.DocumentationAgent, Status: schema.StatusCompleted}}
	counts := map[schema.Category]int{schema.CategoryDocumentation: 1}
	scores := ScoreCategories(counts, runs, 0, schema.DefaultCategoryWeights(), 10)
	assert.Equal(t, 90.0, *scores[schema.CategoryDocumentation].Score)
}

func TestHealthScore_Unknown(t *testing.T) {
	assert.Nil(t, HealthScore(nil, 10, 100))

	score := 80.0
	zeroWeight := map[schema.Category]schema.CategoryScore{
		schema.CategoryUX: {Score: &score, Weight: 0},
	}
	assert.Nil(t, HealthScore(zeroWeight, 10, 100))
}

func TestHealthScore_Weighted(t *testing.T) {
	a, b := 100.0, 40.0
	health := HealthScore(map[schema.Category]schema.CategoryScore{
		schema.CategorySecurity: {Score: &a, Weight: 0.25},
		schema.CategoryUX:       {Score: &b, Findings: 6, Weight: 0.75},
		schema.CategoryDI:       {Findings: 50, Weight: 1},
	}, 10, 100)
	require.NotNil(t, health)
	assert.InDelta(t, 55.0, *health, 1e-9)
}

func TestHealthScore_DenseCategoryKeepsFullPenalty(t *testing.T) {
	zero, full := 0.0, 100.0
	scores := map[schema.Category]schema.CategoryScore{
		schema.CategorySecurity: {Score: &zero, Findings: 3, Weight: 0.5},
		schema.CategoryUX:       {Score: &full, Weight: 0.5},
	}
	health := HealthScore(scores, 1, 100)
	require.NotNil(t, health)
	assert.InDelta(t, 0.0, *health, 1e-9)

	scores[schema.CategorySecurity] = schema.CategoryScore{Score: &zero, Findings: 3, Weight: 0.25}
	scores[schema.CategoryUX] = schema.CategoryScore{Score: &full, Weight: 0.75}
	health = HealthScore(scores, 1, 100)
	require.NotNil(t, health)
	assert.InDelta(t, 25.0, *health, 1e-9)
}

func TestDetectConflicts(t *testing.T) {
	findings := []schema.Finding{
		{ID: "a", Agent: schema.DIAgent, File: "x.py", Line: 3, Remediation: remediation(schema.ActionInjectDependency, "", "")},
		{ID: "b", Agent: schema.PerformanceAgent, File: "x.py", Line: 3, Remediation: remediation(schema.ActionAddCache, "", "")},
		{ID: "c", Agent: schema.FileOrgAgent, File: "y.py", Remediation: remediation(schema.ActionRemoveFile, "", "")},
		{ID: "d", Agent: schema.DocumentationAgent, File: "y.py", Line: 5, Remediation: remediation(schema.ActionAddDocumentation, "", "")},
		{ID: "e", Agent: schema.DIAgent, File: "x.py", Line: 3, Remediation: remediation(schema.ActionAddCache, "", "")},
		{ID: "f", Agent: schema.SecurityAgent, File: "x.py", Line: 3},
		{ID: "g", Agent: schema.UXAgent, File: "x.py", Line: 4, Remediation: remediation(schema.ActionExtractFunction, "", "")},
	}

	conflicts := DetectConflicts(findings)
	require.Len(t, conflicts, 2)

	assert.Equal(t, "a", conflicts[0].FindingA)
	assert.Equal(t, "b", conflicts[0].FindingB)
	assert.Equal(t, 3, conflicts[0].Line)
	assert.Equal(t, schema.ActionInjectDependency, conflicts[0].ActionA)
	assert.Equal(t, schema.ActionAddCache, conflicts[0].ActionB)
	assert.NotEmpty(t, conflicts[0].Reason)

	assert.Equal(t, "c", conflicts[1].FindingA)
	assert.Equal(t, "d", conflicts[1].FindingB)
	assert.Equal(t, 0, conflicts[1].Line)
	assert.Contains(t, conflicts[1].Reason, "removing y.py")
}

func TestDetectConflicts_Empty(t *testing.T) {
	conflicts := DetectConflicts(nil)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestComputeComplexity(t *testing.T) {
	snap := NewSnapshot("/repo", fixedNow, map[string]string{
		"p/a.go": `package p

func simple() {}

func branchy(x int) int {
	if x > 0 {
		return 1
	}
	for i := 0; i < x; i++ {
		if i == 2 {
			return i
		}
	}
	return 0
}
`,
		"p/a_test.go": "package p\n\nfunc TestX() { if true {} }\n",
		"p/broken.go": "package p\n\nfunc (\n",
		"q/b.go":      "package q\n\nfunc f(a, b bool) bool { return a && b }\n",
	})

	stats, err := ComputeComplexity(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, []schema.ComplexityStat{
		{File: "p/a.go", Function: "simple", Line: 3, Complexity: 1},
		{File: "p/a.go", Function: "branchy", Line: 5, Complexity: 4},
		{File: "q/b.go", Function: "f", Line: 3, Complexity: 2},
	}, stats)

	assert.Equal(t, map[string]int{"p": 4, "q": 2}, ModuleComplexity(stats))
}

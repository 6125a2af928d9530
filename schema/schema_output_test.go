package schema_test

import (
	"testing"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{"Healthy Score Upper", 100.0, "Healthy"},
		{"Healthy Score Lower", 80.0, "Healthy"},
		{"Fair Score Upper", 79.9, "Fair"},
		{"Fair Score Lower", 60.0, "Fair"},
		{"Poor Score Upper", 59.9, "Poor"},
		{"Poor Score Lower", 40.0, "Poor"},
		{"Critical Score Upper", 39.9, "Critical"},
		{"Critical Score Lower", 0.0, "Critical"},
		{"Negative Score", -10.0, "Critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.GetPlainLabel(tt.score)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHealthLabel(t *testing.T) {
	assert.Equal(t, "Unknown", schema.HealthLabel(nil))
	score := 85.0
	assert.Equal(t, "Healthy", schema.HealthLabel(&score))
}

func TestEnrichDetections(t *testing.T) {
	detections := []schema.Detection{
		{Pattern: schema.DIFlakyPattern, Priority: schema.PriorityUrgent},
		{Pattern: schema.SecurityTestGapPattern, Priority: schema.PriorityHigh},
	}

	enriched := schema.EnrichDetections(detections)

	assert.Len(t, enriched, 2)
	assert.Equal(t, 1, enriched[0].Rank)
	assert.Equal(t, schema.DIFlakyPattern, enriched[0].Pattern)
	assert.Equal(t, 2, enriched[1].Rank)
	assert.Equal(t, schema.SecurityTestGapPattern, enriched[1].Pattern)
}

func TestRankFindings(t *testing.T) {
	findings := []schema.Finding{
		{ID: "low", Severity: schema.SeverityLow, File: "a.go"},
		{ID: "urgent", Severity: schema.SeverityUrgent, File: "z.go"},
		{ID: "med-b", Severity: schema.SeverityMedium, File: "b.go", Line: 9},
		{ID: "med-a", Severity: schema.SeverityMedium, File: "b.go", Line: 2},
	}

	ranked := schema.RankFindings(findings, 0)
	ids := make([]string, len(ranked))
	for i, f := range ranked {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"urgent", "med-a", "med-b", "low"}, ids)
	assert.Equal(t, "low", findings[0].ID, "input order is untouched")

	limited := schema.RankFindings(findings, 1)
	assert.Len(t, limited, 1)
	assert.Equal(t, "urgent", limited[0].ID)
}

package outwriter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *schema.AnalysisReport {
	health := 64.5
	di := 40.0
	return &schema.AnalysisReport{
		ID:           "rep-1",
		TargetPath:   "/repo",
		FilesScanned: 12,
		Findings: []schema.Finding{
			{ID: "f-low", Agent: schema.DocumentationAgent, Rule: "missing-doc", Severity: schema.SeverityLow, Category: schema.CategoryDocumentation, File: "README.md", Confidence: 0.5},
			{ID: "f-urgent", Agent: schema.SecurityAgent, Rule: "hardcoded-secret", Severity: schema.SeverityUrgent, Category: schema.CategorySecurity, File: "api/keys.go", Line: 7, Confidence: 0.9,
				Remediation: &schema.Remediation{Action: schema.ActionExternalizeSecret, Description: "load from env"}},
			{ID: "f-med", Agent: schema.DIAgent, Rule: "global-state", Severity: schema.SeverityMedium, Category: schema.CategoryDI, File: "svc/db.go", Line: 3, Confidence: 0.8},
		},
		CategoryScores: map[schema.Category]schema.CategoryScore{
			schema.CategoryDI:       {Score: &di, Status: schema.StatusCompleted, Findings: 1, Density: 0.5, Weight: 0.2},
			schema.CategorySecurity: {Status: schema.StatusTimedOut},
		},
		HealthScore: &health,
		Degraded:    true,
		Notes:       []string{"security agent timed out"},
		Conflicts: []schema.Conflict{
			{FindingA: "f-med", FindingB: "f-urgent", File: "svc/db.go", Line: 3, ActionA: schema.ActionInjectDependency, ActionB: schema.ActionRemoveFile, Reason: "cannot inject into a removed file"},
		},
		AgentRuns: []schema.AgentRun{
			{Agent: schema.DIAgent, Status: schema.StatusCompleted, Findings: 1, DurationMs: 12},
			{Agent: schema.SecurityAgent, Status: schema.StatusTimedOut, Error: "deadline exceeded"},
		},
	}
}

func TestWriteAnalysisReportTable(t *testing.T) {
	cfg := outputConfig(t, schema.TextOut)
	require.NoError(t, WriteAnalysisReport(sampleReport(), cfg, 2*time.Second))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "Health: 64.5 (Fair) across 12 files in /repo")
	assert.Contains(t, out, "DEGRADED")
	assert.Contains(t, out, "security agent timed out")
	assert.Contains(t, out, "f-urgent")
	assert.Contains(t, out, "1 conflicting remediations need a decision")
	assert.Contains(t, out, "timed_out")
	assert.Contains(t, out, "Showing 3 of 3 findings. Report rep-1")
}

func TestWriteAnalysisReportJSON(t *testing.T) {
	cfg := outputConfig(t, schema.JSONOut)
	require.NoError(t, WriteAnalysisReport(sampleReport(), cfg, time.Second))

	var decoded schema.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &decoded))
	assert.Equal(t, "rep-1", decoded.ID)
	assert.Len(t, decoded.Findings, 3, "JSON carries the whole report regardless of limit")
	assert.Nil(t, decoded.CategoryScores[schema.CategorySecurity].Score)
}

func TestWriteAnalysisReportCSV(t *testing.T) {
	cfg := outputConfig(t, schema.CSVOut)
	cfg.Limit = 2
	require.NoError(t, WriteAnalysisReport(sampleReport(), cfg, time.Second))

	records := readCSV(t, cfg)
	require.Len(t, records, 3)
	assert.Equal(t, "rank", records[0][0])
	assert.Equal(t, []string{"1", "f-urgent", "security", "hardcoded-secret", "URGENT", "SECURITY", "api/keys.go", "7", "0.9", "externalize_secret", ""}, records[1][:11])
	assert.Equal(t, "f-med", records[2][1])
}

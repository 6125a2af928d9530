package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFix_CommitsAndRefreshesReport(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	root := secretsRepo(t)
	mgr, reports, _ := newStores(t, true, false)
	cfg := testConfig(root)

	report, err := RunAnalysis(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, report.Findings, 3)
	target := report.Findings[0]

	result, err := RunFix(ctx, cfg, mgr, target.ID)
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.Equal(t, target.ID, result.FindingID)

	content, err := os.ReadFile(filepath.Join(root, "config", "settings.go"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `os.Getenv("DB_PASSWORD")`)

	summaries, err := reports.ListReports(ctx, schema.TimeRange{}, 0)
	require.NoError(t, err)
	var counts []int
	for _, s := range summaries {
		counts = append(counts, s.FindingCount)
	}
	assert.ElementsMatch(t, []int{3, 2}, counts, "a committed fix publishes a fresh report")
}

func TestRunFix_Errors(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	root := secretsRepo(t)

	none, _, _ := newStores(t, false, false)
	_, err := RunFix(ctx, testConfig(root), none, "anything")
	assert.ErrorIs(t, err, ErrNoReportStore)

	mgr, _, _ := newStores(t, true, false)
	_, err = RunFix(ctx, testConfig(root), mgr, "anything")
	assert.ErrorIs(t, err, contract.ErrNotFound, "no report yet")

	_, err = RunAnalysis(ctx, testConfig(root), mgr)
	require.NoError(t, err)
	_, err = RunFix(ctx, testConfig(root), mgr, "missing-finding")
	require.ErrorIs(t, err, contract.ErrNotFound)
	assert.Contains(t, err.Error(), "finding missing-finding")
}

package iocache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestReportStore(t *testing.T) contract.ReportStore {
	t.Helper()
	store, err := NewReportStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testReport(id string, ts time.Time, score *float64) *schema.AnalysisReport {
	return &schema.AnalysisReport{
		SchemaVersion: schema.ReportSchemaVersion,
		ID:            id,
		ScanTimestamp: ts,
		TargetPath:    "/src/app",
		FilesScanned:  3,
		Findings: []schema.Finding{
			{ID: id + "-f1", Agent: schema.DIAgent, Rule: "global-state", Severity: schema.SeverityMedium, Category: schema.CategoryDI, File: "app/store.py", Line: 4, Message: "global", Confidence: 0.8},
		},
		CategoryCounts: map[schema.Category]int{schema.CategoryDI: 1},
		HealthScore:    score,
		Conflicts:      []schema.Conflict{},
		AgentRuns:      []schema.AgentRun{{Agent: schema.DIAgent, Status: schema.StatusCompleted, Findings: 1}},
	}
}

func f64(v float64) *float64 { return &v }

func TestReportStore_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	_, err := store.LatestReport(ctx)
	assert.ErrorIs(t, err, contract.ErrNotFound, "empty store has no latest report")

	require.NoError(t, store.SaveReport(ctx, testReport("r1", baseTime, f64(80))))
	require.NoError(t, store.SaveReport(ctx, testReport("r2", baseTime.Add(time.Hour), f64(65))))

	latest, err := store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
	require.NotNil(t, latest.HealthScore)
	assert.InDelta(t, 65.0, *latest.HealthScore, 0.001)
	require.Len(t, latest.Findings, 1)
	assert.Equal(t, "r2-f1", latest.Findings[0].ID)

	first, err := store.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, first.ScanTimestamp.Equal(baseTime))

	_, err = store.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestReportStore_SaveValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	assert.Error(t, store.SaveReport(ctx, nil))
	assert.Error(t, store.SaveReport(ctx, &schema.AnalysisReport{}))

	require.NoError(t, store.SaveReport(ctx, testReport("dup", baseTime, nil)))
	assert.Error(t, store.SaveReport(ctx, testReport("dup", baseTime, nil)), "duplicate ids are rejected")

	latest, err := store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dup", latest.ID, "a failed save leaves the previous report published")
	assert.Nil(t, latest.HealthScore)
}

func TestReportStore_ListReports(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	for i := range 5 {
		var score *float64
		if i%2 == 0 {
			score = f64(float64(50 + i))
		}
		require.NoError(t, store.SaveReport(ctx, testReport(fmt.Sprintf("r%d", i), baseTime.Add(time.Duration(i)*time.Hour), score)))
	}

	all, err := store.ListReports(ctx, schema.TimeRange{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r4", all[0].ID, "newest first")
	assert.Equal(t, "r0", all[4].ID)
	assert.Nil(t, all[1].HealthScore)
	require.NotNil(t, all[0].HealthScore)
	assert.InDelta(t, 54.0, *all[0].HealthScore, 0.001)
	assert.Equal(t, 1, all[0].FindingCount)

	limited, err := store.ListReports(ctx, schema.TimeRange{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	ranged, err := store.ListReports(ctx, schema.TimeRange{Start: baseTime.Add(time.Hour), End: baseTime.Add(3 * time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, ranged, 3)
	assert.Equal(t, "r3", ranged[0].ID)
	assert.Equal(t, "r1", ranged[2].ID)
}

func TestReportStore_TeachingBatches(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	_, err := store.LatestTeachingBatch(ctx)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	assert.Error(t, store.SaveTeachingBatch(ctx, &schema.TeachingBatch{}))

	for i := range 3 {
		batch := &schema.TeachingBatch{
			ID:          fmt.Sprintf("b%d", i),
			GeneratedAt: baseTime.Add(time.Duration(i) * time.Minute),
			Detections:  []schema.Detection{{Pattern: schema.DIFlakyPattern, Priority: schema.PriorityHigh, Confidence: 0.7, Modules: []string{"app"}}},
		}
		require.NoError(t, store.SaveTeachingBatch(ctx, batch))
	}

	latest, err := store.LatestTeachingBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.ID)
	require.Len(t, latest.Detections, 1)
	assert.Equal(t, schema.DIFlakyPattern, latest.Detections[0].Pattern)

	batches, err := store.ListTeachingBatches(ctx, schema.TimeRange{End: baseTime.Add(time.Minute)}, 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "b1", batches[0].ID)
}

func TestReportStore_PruneKeepsLatest(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	require.NoError(t, store.SaveReport(ctx, testReport("old", baseTime, nil)))
	require.NoError(t, store.SaveReport(ctx, testReport("older-but-latest", baseTime.Add(-time.Hour), nil)))
	require.NoError(t, store.SaveTeachingBatch(ctx, &schema.TeachingBatch{ID: "b", GeneratedAt: baseTime}))

	n, err := store.Prune(ctx, baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "one report and one batch")

	latest, err := store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "older-but-latest", latest.ID)

	_, err = store.GetReport(ctx, "old")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestReportStore_GetStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestReportStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalReports)

	require.NoError(t, store.SaveReport(ctx, testReport("a", baseTime, nil)))
	require.NoError(t, store.SaveReport(ctx, testReport("b", baseTime.Add(time.Hour), nil)))
	require.NoError(t, store.SaveTeachingBatch(ctx, &schema.TeachingBatch{ID: "t", GeneratedAt: baseTime}))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalReports)
	assert.Equal(t, "b", status.LatestReportID)
	assert.True(t, status.LatestReportTime.Equal(baseTime.Add(time.Hour)))
	assert.True(t, status.OldestReportTime.Equal(baseTime))
	assert.Equal(t, 1, status.TotalBatches)
	assert.Equal(t, int64(2), status.TableSizes[reportsTable])
	assert.Equal(t, int64(1), status.TableSizes[reportPointerTable])
}

func TestReportStore_NoneBackend(t *testing.T) {
	ctx := context.Background()
	store, err := NewReportStore(schema.NoneBackend, "")
	require.NoError(t, err)

	assert.NoError(t, store.SaveReport(ctx, testReport("x", baseTime, nil)))
	_, err = store.LatestReport(ctx)
	assert.ErrorIs(t, err, contract.ErrNotFound)
	_, err = store.GetReport(ctx, "x")
	assert.ErrorIs(t, err, contract.ErrNotFound)

	list, err := store.ListReports(ctx, schema.TimeRange{}, 0)
	assert.NoError(t, err)
	assert.Empty(t, list)

	n, err := store.Prune(ctx, time.Now())
	assert.NoError(t, err)
	assert.Zero(t, n)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewReportStore_UnsupportedBackend(t *testing.T) {
	_, err := NewReportStore("oracle", "")
	assert.Error(t, err)
}

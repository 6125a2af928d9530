package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/iocache"
	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsWithSecrets = `// Package config holds settings.
package config

const dbPassword = "s3cr3t-passw0rd"

var apiKey = "a1b2c3d4e5f6"

const authToken = "tok_live_123456"
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// secretsRepo lays out a small repository whose only findings are three hardcoded credentials.
func secretsRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":          "# Demo\n\n## Installation\n\n## Usage\n\n## License\n",
		"config/settings.go": settingsWithSecrets,
		"docs/a.md":          "a\n",
		"docs/b.md":          "b\n",
		"docs/c.md":          "c\n",
	})
	return root
}

// newStores returns a manager over in-memory stores. A false flag leaves that store unconfigured.
func newStores(t *testing.T, withReports, withHistory bool) (*iocache.MockStoreManager, contract.ReportStore, contract.HistoryStore) {
	t.Helper()
	var reports contract.ReportStore
	var history contract.HistoryStore
	if withReports {
		store, err := iocache.NewReportStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		reports = store
	}
	if withHistory {
		store, err := iocache.NewHistoryStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		history = store
	}
	mgr := &iocache.MockStoreManager{}
	mgr.On("GetReportStore").Return(reports).Maybe()
	mgr.On("GetHistoryStore").Return(history).Maybe()
	return mgr, reports, history
}

func testConfig(target string) *contract.Config {
	cfg := contract.NewDefaultConfig(target)
	cfg.Limit = 0
	return cfg
}

func TestRunAnalysis_SavesReport(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	root := secretsRepo(t)
	mgr, reports, _ := newStores(t, true, false)

	report, err := RunAnalysis(ctx, testConfig(root), mgr)
	require.NoError(t, err)
	assert.Len(t, report.Findings, 3)
	require.NotNil(t, report.HealthScore)

	latest, err := reports.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)
}

func TestRunAnalysis_NoSave(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	mgr, reports, _ := newStores(t, true, false)
	cfg := testConfig(secretsRepo(t))
	cfg.SaveReport = false

	_, err := RunAnalysis(ctx, cfg, mgr)
	require.NoError(t, err)

	_, err = reports.LatestReport(ctx)
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestRunAnalysis_WithoutStore(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	mgr, _, _ := newStores(t, false, false)

	report, err := RunAnalysis(ctx, testConfig(secretsRepo(t)), mgr)
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
}

func TestRunAnalysis_BadTarget(t *testing.T) {
	mgr, _, _ := newStores(t, false, false)
	_, err := RunAnalysis(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing")), mgr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
}

func TestLoadReport(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	root := secretsRepo(t)
	mgr, _, _ := newStores(t, true, false)

	_, err := LoadReport(ctx, testConfig(root), mgr)
	assert.ErrorIs(t, err, contract.ErrNotFound, "empty store has no latest report")

	saved, err := RunAnalysis(ctx, testConfig(root), mgr)
	require.NoError(t, err)
	loaded, err := LoadReport(ctx, testConfig(root), mgr)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, loaded.ID)

	// A report file wins over the store.
	data, err := json.Marshal(saved)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(file, data, 0o644))

	none, _, _ := newStores(t, false, false)
	cfg := testConfig(root)
	cfg.ReportFile = file
	fromFile, err := LoadReport(ctx, cfg, none)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, fromFile.ID)
	assert.Len(t, fromFile.Findings, 3)

	_, err = LoadReport(ctx, testConfig(root), none)
	assert.ErrorIs(t, err, ErrNoReportStore)
}

func TestReadReportFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadReportFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": 42}`), 0o644))
	_, err = ReadReportFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report")
}

// executions returns n runs of one test alternating between the given outcomes.
func executions(testID string, n int, outcomes ...schema.Outcome) []schema.TestExecutionRecord {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	out := make([]schema.TestExecutionRecord, n)
	for i := range out {
		out[i] = schema.TestExecutionRecord{
			TestID:     testID,
			Outcome:    outcomes[i%len(outcomes)],
			DurationMs: 50,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func recordHistory(t *testing.T, cfg *contract.Config, mgr contract.StoreManager) {
	t.Helper()
	var records []schema.TestExecutionRecord
	records = append(records, executions("pkg.TestFlaky", 8, schema.OutcomePass, schema.OutcomeFail)...)
	records = append(records, executions("pkg.TestStable", 8, schema.OutcomePass)...)
	records = append(records, executions("pkg.TestNew", 2, schema.OutcomePass)...)
	data, err := json.Marshal(records)
	require.NoError(t, err)

	input := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(input, data, 0o644))
	recordCfg := cfg.Clone()
	recordCfg.InputFile = input
	n, err := RecordFromInput(context.Background(), recordCfg, mgr, nil)
	require.NoError(t, err)
	require.Equal(t, 18, n)
}

func TestRecordFromInput_Stdin(t *testing.T) {
	mgr, _, history := newStores(t, false, true)
	cfg := testConfig(t.TempDir())
	cfg.InputFormat = "jsonl"

	lines := `{"test_id":"pkg.TestA","outcome":"pass","duration_ms":12,"timestamp":"2026-05-01T09:00:00Z"}
{"test_id":"pkg.TestA","outcome":"fail","duration_ms":15,"timestamp":"2026-05-01T09:05:00Z"}
`
	n, err := RecordFromInput(context.Background(), cfg, mgr, strings.NewReader(lines))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := history.TestIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg.TestA"}, ids)
}

func TestIntel_NoHistoryStore(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newStores(t, true, false)
	cfg := testConfig(t.TempDir())

	_, err := RecordFromInput(ctx, cfg, mgr, strings.NewReader("[]"))
	assert.ErrorIs(t, err, ErrNoHistoryStore)
	_, err = Profiles(ctx, cfg, mgr)
	assert.ErrorIs(t, err, ErrNoHistoryStore)
	_, err = Predictions(ctx, cfg, mgr)
	assert.ErrorIs(t, err, ErrNoHistoryStore)
	_, err = Recommendations(ctx, cfg, mgr)
	assert.ErrorIs(t, err, ErrNoHistoryStore)
}

func TestProfilesAndPredictions(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newStores(t, false, true)
	cfg := testConfig(t.TempDir())
	recordHistory(t, cfg, mgr)

	profiles, err := Profiles(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "pkg.TestFlaky", profiles[0].TestID)
	assert.Equal(t, "pkg.TestStable", profiles[1].TestID)
	assert.Equal(t, "pkg.TestNew", profiles[2].TestID)
	assert.True(t, profiles[2].InsufficientData)

	cfg.TestID = "pkg.TestStable"
	single, err := Profiles(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, single, 1)
	require.NotNil(t, single[0].Flakiness)
	assert.Equal(t, 0.0, *single[0].Flakiness)

	cfg.TestID = ""
	cfg.Limit = 2
	predictions, err := Predictions(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, "pkg.TestFlaky", predictions[0].TestID)
	assert.GreaterOrEqual(t, predictions[0].Risk, predictions[1].Risk)
}

func TestRecommendations_WithoutReport(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newStores(t, false, true)
	cfg := testConfig(t.TempDir())
	recordHistory(t, cfg, mgr)

	recs, err := Recommendations(ctx, cfg, mgr)
	require.NoError(t, err)
	var flaky []schema.Recommendation
	for _, r := range recs {
		if r.Type == schema.FlakyTestFix {
			flaky = append(flaky, r)
		}
	}
	require.Len(t, flaky, 1)
	assert.Equal(t, "pkg.TestFlaky", flaky[0].Evidence[0].ID)
}

const cartSource = `package cart

func Add(a, b int) int {
	return a + b
}

func Discount(total int) int {
	if total > 100 {
		return total - 10
	}
	return total
}
`

const cartProfile = `mode: set
example.com/shop/cart/cart.go:3.24,5.2 1 1
example.com/shop/cart/cart.go:7.29,8.17 1 0
example.com/shop/cart/cart.go:8.17,10.3 1 0
example.com/shop/cart/cart.go:11.2,11.14 1 0
`

// coverageModule lays out a Go module with a cover profile in which Discount is never run.
func coverageModule(t *testing.T) (dir, profile string) {
	t.Helper()
	dir = t.TempDir()
	writeTree(t, dir, map[string]string{
		"go.mod":       "module example.com/shop\n\ngo 1.25\n",
		"cart/cart.go": cartSource,
		"cover.out":    cartProfile,
	})
	return dir, filepath.Join(dir, "cover.out")
}

func TestCoverageGaps(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newStores(t, false, false)
	dir, profile := coverageModule(t)
	cfg := testConfig(dir)

	_, err := CoverageGaps(ctx, cfg, mgr)
	assert.ErrorContains(t, err, "--coverage-profile is required")

	cfg.CoverageProfile = profile
	cov, err := CoverageGaps(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, cov.Gaps, 2)
	assert.Equal(t, "coverage:cart/cart.go", cov.Gaps[0].ID)
	assert.Equal(t, "coverage:cart/cart.go#Discount", cov.Gaps[1].ID)
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newStores(t, false, false)
	dir, profile := coverageModule(t)
	cfg := testConfig(dir)
	cfg.CoverageProfile = profile

	drafts, err := Drafts(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, drafts, 1, "one draft per file")
	d := drafts[0]
	assert.Equal(t, "coverage:cart/cart.go#Discount", d.GapID)
	assert.Equal(t, "cart/cart_draft_test.go", d.Path)
	assert.Contains(t, d.Content, "func TestDiscount(t *testing.T)")
	assert.False(t, d.Written)
	assert.NoFileExists(t, filepath.Join(dir, "cart", "cart_draft_test.go"))

	cfg.WriteDrafts = true
	drafts, err = Drafts(ctx, cfg, mgr)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.True(t, drafts[0].Written)
	assert.FileExists(t, filepath.Join(dir, "cart", "cart_draft_test.go"))
}

func TestCorrelateAndTrends(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	mgr, reports, _ := newStores(t, true, false)
	cfg := testConfig(secretsRepo(t))

	report, err := RunAnalysis(ctx, cfg, mgr)
	require.NoError(t, err)

	batch, err := Correlate(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, report.ID, batch.ReportID)
	assert.Empty(t, batch.Detections, "no test history means nothing to correlate")
	require.Len(t, batch.DetectorRuns, 5)
	for _, r := range batch.DetectorRuns {
		assert.Equal(t, schema.StatusSkipped, r.Status, r.Pattern)
	}

	stored, err := reports.LatestTeachingBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, stored.ID)

	trends, batches, err := TeachingTrends(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, 1, batches)
	assert.Len(t, trends, 5)
	for _, tr := range trends {
		assert.Zero(t, tr.Detections)
		assert.Equal(t, string(schema.StatusSkipped), tr.LastOutcome)
	}
}

func TestCorrelate_WithoutStores(t *testing.T) {
	mgr, _, _ := newStores(t, false, false)
	batch, err := Correlate(context.Background(), testConfig(t.TempDir()), mgr)
	require.NoError(t, err)
	assert.Empty(t, batch.ReportID)
	assert.Empty(t, batch.Detections)

	_, _, err = TeachingTrends(context.Background(), testConfig(t.TempDir()), mgr)
	assert.ErrorIs(t, err, ErrNoReportStore)
}

func TestExecuteAnalyze_JSON(t *testing.T) {
	ctx := WithSuppressProgress(context.Background())
	mgr, _, _ := newStores(t, false, false)
	cfg := testConfig(secretsRepo(t))
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, ExecuteAnalyze(ctx, cfg, mgr))

	report, err := ReadReportFile(cfg.OutputFile)
	require.NoError(t, err, "the JSON output is a valid report document")
	assert.Len(t, report.Findings, 3)
}

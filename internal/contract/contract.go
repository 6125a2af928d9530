// Package contract provides interfaces and shared utilities for triad's internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/triad/schema"
)

// ErrNotFound is returned by stores when the requested entry does not exist.
var ErrNotFound = errors.New("not found")

// StoreManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetReportStore() ReportStore
	GetHistoryStore() HistoryStore
}

// ReportStore persists analysis reports and teaching batches.
// Writers never block readers: SaveReport publishes the latest pointer only after the report is committed.
type ReportStore interface {
	// SaveReport stores a report and makes it the latest one
	SaveReport(ctx context.Context, report *schema.AnalysisReport) error

	// LatestReport returns the most recently published report
	LatestReport(ctx context.Context) (*schema.AnalysisReport, error)

	// GetReport returns a report by id
	GetReport(ctx context.Context, id string) (*schema.AnalysisReport, error)

	// ListReports returns report summaries within a time range, newest first
	ListReports(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.ReportSummary, error)

	// SaveTeachingBatch stores a correlation teaching batch
	SaveTeachingBatch(ctx context.Context, batch *schema.TeachingBatch) error

	// LatestTeachingBatch returns the most recently stored teaching batch
	LatestTeachingBatch(ctx context.Context) (*schema.TeachingBatch, error)

	// ListTeachingBatches returns teaching batches within a time range, newest first
	ListTeachingBatches(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.TeachingBatch, error)

	// Prune deletes reports and batches older than the cutoff, never the latest report
	Prune(ctx context.Context, before time.Time) (int64, error)

	// GetStatus returns status information about the report store
	GetStatus() (schema.ReportStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// HistoryStore is the append-only test execution history.
type HistoryStore interface {
	// Append stores execution records; concurrent appends must not lose updates
	Append(ctx context.Context, records []schema.TestExecutionRecord) error

	// History returns the most recent records of one test in chronological order
	History(ctx context.Context, testID string, limit int) ([]schema.TestExecutionRecord, error)

	// TestIDs returns every known test id in sorted order
	TestIDs(ctx context.Context) ([]string, error)

	// Range returns all records within a time range in chronological order
	Range(ctx context.Context, tr schema.TimeRange) ([]schema.TestExecutionRecord, error)

	// Prune deletes records older than the cutoff
	Prune(ctx context.Context, before time.Time) (int64, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// GitClient defines the Git operations used to enrich a scan.
// This allows the analysis logic to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command and returns its output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// GetLastCommitTimes returns the author time of the newest commit touching each tracked path,
	// keyed by the slash-separated path relative to the repository root.
	GetLastCommitTimes(ctx context.Context, repoPath string) (map[string]time.Time, error)
}

package iocache

import (
	"context"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetReportStore implements the StoreManager interface.
func (m *MockStoreManager) GetReportStore() contract.ReportStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ReportStore)
	return store
}

// GetHistoryStore implements the StoreManager interface.
func (m *MockStoreManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockReportStore is a mock implementation of ReportStore for testing.
type MockReportStore struct {
	mock.Mock
}

var _ contract.ReportStore = &MockReportStore{} // Compile-time check

// SaveReport implements the ReportStore interface.
func (m *MockReportStore) SaveReport(ctx context.Context, report *schema.AnalysisReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// LatestReport implements the ReportStore interface.
func (m *MockReportStore) LatestReport(ctx context.Context) (*schema.AnalysisReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*schema.AnalysisReport)
	return report, args.Error(1)
}

// GetReport implements the ReportStore interface.
func (m *MockReportStore) GetReport(ctx context.Context, id string) (*schema.AnalysisReport, error) {
	args := m.Called(ctx, id)
	report, _ := args.Get(0).(*schema.AnalysisReport)
	return report, args.Error(1)
}

// ListReports implements the ReportStore interface.
func (m *MockReportStore) ListReports(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.ReportSummary, error) {
	args := m.Called(ctx, tr, limit)
	summaries, _ := args.Get(0).([]schema.ReportSummary)
	return summaries, args.Error(1)
}

// SaveTeachingBatch implements the ReportStore interface.
func (m *MockReportStore) SaveTeachingBatch(ctx context.Context, batch *schema.TeachingBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

// LatestTeachingBatch implements the ReportStore interface.
func (m *MockReportStore) LatestTeachingBatch(ctx context.Context) (*schema.TeachingBatch, error) {
	args := m.Called(ctx)
	batch, _ := args.Get(0).(*schema.TeachingBatch)
	return batch, args.Error(1)
}

// ListTeachingBatches implements the ReportStore interface.
func (m *MockReportStore) ListTeachingBatches(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.TeachingBatch, error) {
	args := m.Called(ctx, tr, limit)
	batches, _ := args.Get(0).([]schema.TeachingBatch)
	return batches, args.Error(1)
}

// Prune implements the ReportStore interface.
func (m *MockReportStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// GetStatus implements the ReportStore interface.
func (m *MockReportStore) GetStatus() (schema.ReportStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ReportStoreStatus), args.Error(1)
}

// Close implements the ReportStore interface.
func (m *MockReportStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// Append implements the HistoryStore interface.
func (m *MockHistoryStore) Append(ctx context.Context, records []schema.TestExecutionRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// History implements the HistoryStore interface.
func (m *MockHistoryStore) History(ctx context.Context, testID string, limit int) ([]schema.TestExecutionRecord, error) {
	args := m.Called(ctx, testID, limit)
	records, _ := args.Get(0).([]schema.TestExecutionRecord)
	return records, args.Error(1)
}

// TestIDs implements the HistoryStore interface.
func (m *MockHistoryStore) TestIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// Range implements the HistoryStore interface.
func (m *MockHistoryStore) Range(ctx context.Context, tr schema.TimeRange) ([]schema.TestExecutionRecord, error) {
	args := m.Called(ctx, tr)
	records, _ := args.Get(0).([]schema.TestExecutionRecord)
	return records, args.Error(1)
}

// Prune implements the HistoryStore interface.
func (m *MockHistoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStoreStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

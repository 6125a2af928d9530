package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// executionsTable is the append-only test execution table.
const executionsTable = "triad_test_executions"

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := execAll(db, historyTableStatements(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// historyTableStatements returns the DDL for the execution table.
func historyTableStatements(backend schema.DatabaseBackend) []string {
	table := quoteTableName(executionsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return []string{fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				execution_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				test_id VARCHAR(512) NOT NULL,
				outcome VARCHAR(16) NOT NULL,
				duration_ms DOUBLE NOT NULL,
				executed_at DATETIME(6) NOT NULL,
				failure_message TEXT,
				run_id VARCHAR(64),
				INDEX idx_triad_executions_test (test_id, executed_at),
				INDEX idx_triad_executions_time (executed_at)
			);
		`, table)}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					execution_id BIGSERIAL PRIMARY KEY,
					test_id TEXT NOT NULL,
					outcome TEXT NOT NULL,
					duration_ms DOUBLE PRECISION NOT NULL,
					executed_at TIMESTAMPTZ NOT NULL,
					failure_message TEXT,
					run_id TEXT
				);
			`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_executions_test ON %s (test_id, executed_at);`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_executions_time ON %s (executed_at);`, table),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					execution_id INTEGER PRIMARY KEY AUTOINCREMENT,
					test_id TEXT NOT NULL,
					outcome TEXT NOT NULL,
					duration_ms REAL NOT NULL,
					executed_at TEXT NOT NULL,
					failure_message TEXT,
					run_id TEXT
				);
			`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_executions_test ON %s (test_id, executed_at);`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_executions_time ON %s (executed_at);`, table),
		}
	}
}

// Append stores the records in one transaction. Either all records are stored or none.
func (hs *HistoryStoreImpl) Append(ctx context.Context, records []schema.TestExecutionRecord) error {
	if hs.db == nil || len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`
		INSERT INTO %s (test_id, outcome, duration_ms, executed_at, failure_message, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, quoteTableName(executionsTable, hs.backend)), hs.backend)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.TestID, string(r.Outcome), r.DurationMs, formatTime(ts, hs.backend), r.FailureMessage, r.RunID); err != nil {
			return fmt.Errorf("failed to insert execution of %s: %w", r.TestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit executions: %w", err)
	}
	return nil
}

// History returns the most recent records of one test in chronological order.
func (hs *HistoryStoreImpl) History(ctx context.Context, testID string, limit int) ([]schema.TestExecutionRecord, error) {
	if hs.db == nil {
		return nil, nil
	}
	query := rebind(fmt.Sprintf(`
		SELECT test_id, outcome, duration_ms, executed_at, failure_message, run_id
		FROM %s WHERE test_id = ? ORDER BY executed_at DESC, execution_id DESC%s
	`, quoteTableName(executionsTable, hs.backend), limitClause(limit)), hs.backend)

	records, err := hs.queryRecords(ctx, query, testID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

// TestIDs returns every known test id in sorted order.
func (hs *HistoryStoreImpl) TestIDs(ctx context.Context) ([]string, error) {
	if hs.db == nil {
		return nil, nil
	}
	rows, err := hs.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT test_id FROM %s ORDER BY test_id`, quoteTableName(executionsTable, hs.backend)))
	if err != nil {
		return nil, fmt.Errorf("failed to query test ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan test id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Range returns all records within a time range in chronological order.
func (hs *HistoryStoreImpl) Range(ctx context.Context, tr schema.TimeRange) ([]schema.TestExecutionRecord, error) {
	if hs.db == nil {
		return nil, nil
	}
	where, args := rangeClause("executed_at", tr, hs.backend)
	query := rebind(fmt.Sprintf(`
		SELECT test_id, outcome, duration_ms, executed_at, failure_message, run_id
		FROM %s%s ORDER BY executed_at ASC, execution_id ASC
	`, quoteTableName(executionsTable, hs.backend), where), hs.backend)
	return hs.queryRecords(ctx, query, args...)
}

// queryRecords runs a select over the execution columns.
func (hs *HistoryStoreImpl) queryRecords(ctx context.Context, query string, args ...any) ([]schema.TestExecutionRecord, error) {
	rows, err := hs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.TestExecutionRecord
	for rows.Next() {
		var r schema.TestExecutionRecord
		var outcome string
		var executed timeColumn
		var message, runID sql.NullString
		if err := rows.Scan(&r.TestID, &outcome, &r.DurationMs, &executed, &message, &runID); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		r.Outcome = schema.Outcome(outcome)
		r.Timestamp = executed.Time
		r.FailureMessage = message.String
		r.RunID = runID.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than the cutoff.
func (hs *HistoryStoreImpl) Prune(ctx context.Context, before time.Time) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}
	query := rebind(fmt.Sprintf(`DELETE FROM %s WHERE executed_at < ?`, quoteTableName(executionsTable, hs.backend)), hs.backend)
	res, err := hs.db.ExecContext(ctx, query, formatTime(before, hs.backend))
	if err != nil {
		return 0, fmt.Errorf("failed to prune executions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStoreStatus, error) {
	status := schema.HistoryStoreStatus{
		Backend:   string(hs.backend),
		Connected: hs.db != nil,
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	table := quoteTableName(executionsTable, hs.backend)
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err := row.Scan(&status.TotalRecords); err != nil {
		return status, fmt.Errorf("failed to get total records: %w", err)
	}

	if status.TotalRecords == 0 {
		return status, nil
	}

	row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(DISTINCT test_id) FROM %s", table))
	if err := row.Scan(&status.DistinctTests); err != nil {
		return status, fmt.Errorf("failed to get distinct tests: %w", err)
	}

	var newest, oldest timeColumn
	row = hs.db.QueryRow(fmt.Sprintf("SELECT MAX(executed_at), MIN(executed_at) FROM %s", table))
	if err := row.Scan(&newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to get record time range: %w", err)
	}
	status.LastRecordTime = newest.Time
	status.OldestRecordTime = oldest.Time

	status.TableSizeBytes = tableSizeBytes(hs.db, hs.backend, hs.connStr, executionsTable, status.TotalRecords)
	return status, nil
}

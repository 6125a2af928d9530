package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// Table names for report storage.
const (
	reportsTable       = "triad_reports"
	reportPointerTable = "triad_report_pointer"
	teachingsTable     = "triad_teaching_batches"
)

// latestPointer is the pointer row that names the published report.
const latestPointer = "latest"

// ReportStoreImpl implements the ReportStore interface.
type ReportStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.ReportStore = &ReportStoreImpl{} // Compile-time check

// NewReportStore creates a new ReportStore with the specified backend.
func NewReportStore(backend schema.DatabaseBackend, connStr string) (contract.ReportStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled persistence
		return &ReportStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetReportDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := execAll(db, reportTableStatements(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create report tables: %w", err)
	}

	return &ReportStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// reportTableStatements returns the DDL for the report tables.
func reportTableStatements(backend schema.DatabaseBackend) []string {
	reports := quoteTableName(reportsTable, backend)
	pointer := quoteTableName(reportPointerTable, backend)
	teachings := quoteTableName(teachingsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					report_id VARCHAR(64) PRIMARY KEY,
					scan_timestamp DATETIME(6) NOT NULL,
					target_path TEXT NOT NULL,
					health_score DOUBLE,
					degraded INT NOT NULL,
					finding_count INT NOT NULL,
					document LONGTEXT NOT NULL,
					INDEX idx_triad_reports_scan (scan_timestamp)
				);
			`, reports),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					pointer_name VARCHAR(32) PRIMARY KEY,
					report_id VARCHAR(64) NOT NULL,
					published_at DATETIME(6) NOT NULL
				);
			`, pointer),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					batch_id VARCHAR(64) PRIMARY KEY,
					generated_at DATETIME(6) NOT NULL,
					report_id VARCHAR(64) NOT NULL,
					detection_count INT NOT NULL,
					document LONGTEXT NOT NULL,
					INDEX idx_triad_teachings_generated (generated_at)
				);
			`, teachings),
		}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					report_id TEXT PRIMARY KEY,
					scan_timestamp TIMESTAMPTZ NOT NULL,
					target_path TEXT NOT NULL,
					health_score DOUBLE PRECISION,
					degraded INT NOT NULL,
					finding_count INT NOT NULL,
					document TEXT NOT NULL
				);
			`, reports),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_reports_scan ON %s (scan_timestamp);`, reports),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					pointer_name TEXT PRIMARY KEY,
					report_id TEXT NOT NULL,
					published_at TIMESTAMPTZ NOT NULL
				);
			`, pointer),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					batch_id TEXT PRIMARY KEY,
					generated_at TIMESTAMPTZ NOT NULL,
					report_id TEXT NOT NULL,
					detection_count INT NOT NULL,
					document TEXT NOT NULL
				);
			`, teachings),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_teachings_generated ON %s (generated_at);`, teachings),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					report_id TEXT PRIMARY KEY,
					scan_timestamp TEXT NOT NULL,
					target_path TEXT NOT NULL,
					health_score REAL,
					degraded INTEGER NOT NULL,
					finding_count INTEGER NOT NULL,
					document TEXT NOT NULL
				);
			`, reports),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_reports_scan ON %s (scan_timestamp);`, reports),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					pointer_name TEXT PRIMARY KEY,
					report_id TEXT NOT NULL,
					published_at TEXT NOT NULL
				);
			`, pointer),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					batch_id TEXT PRIMARY KEY,
					generated_at TEXT NOT NULL,
					report_id TEXT NOT NULL,
					detection_count INTEGER NOT NULL,
					document TEXT NOT NULL
				);
			`, teachings),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_triad_teachings_generated ON %s (generated_at);`, teachings),
		}
	}
}

// getPointerUpsertQuery returns the UPSERT query for the latest pointer.
func (rs *ReportStoreImpl) getPointerUpsertQuery() string {
	quotedTableName := quoteTableName(reportPointerTable, rs.backend)
	switch rs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (pointer_name, report_id, published_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE report_id = new.report_id, published_at = new.published_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (pointer_name, report_id, published_at) VALUES ($1, $2, $3)
			ON CONFLICT (pointer_name) DO UPDATE SET report_id = EXCLUDED.report_id, published_at = EXCLUDED.published_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (pointer_name, report_id, published_at) VALUES (?, ?, ?)`, quotedTableName)
	}
}

// SaveReport stores the report and moves the latest pointer in the same transaction,
// so readers observe either the previous report or the new one.
func (rs *ReportStoreImpl) SaveReport(ctx context.Context, report *schema.AnalysisReport) error {
	if rs.db == nil {
		return nil
	}
	if report == nil || report.ID == "" {
		return errors.New("report id is required")
	}

	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := rebind(fmt.Sprintf(`
		INSERT INTO %s (report_id, scan_timestamp, target_path, health_score, degraded, finding_count, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(reportsTable, rs.backend)), rs.backend)
	if _, err := tx.ExecContext(ctx, insert,
		report.ID, formatTime(report.ScanTimestamp, rs.backend), report.TargetPath,
		nullFloat(report.HealthScore), boolToInt(report.Degraded), len(report.Findings), string(doc),
	); err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}

	if _, err := tx.ExecContext(ctx, rs.getPointerUpsertQuery(), latestPointer, report.ID, formatTime(time.Now(), rs.backend)); err != nil {
		return fmt.Errorf("failed to publish report %s: %w", report.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report %s: %w", report.ID, err)
	}
	return nil
}

// LatestReport returns the report named by the latest pointer.
func (rs *ReportStoreImpl) LatestReport(ctx context.Context) (*schema.AnalysisReport, error) {
	if rs.db == nil {
		return nil, contract.ErrNotFound
	}
	query := rebind(fmt.Sprintf(`
		SELECT r.document FROM %s r
		JOIN %s p ON p.report_id = r.report_id
		WHERE p.pointer_name = ?
	`, quoteTableName(reportsTable, rs.backend), quoteTableName(reportPointerTable, rs.backend)), rs.backend)
	return rs.scanReport(rs.db.QueryRowContext(ctx, query, latestPointer))
}

// GetReport returns a report by id.
func (rs *ReportStoreImpl) GetReport(ctx context.Context, id string) (*schema.AnalysisReport, error) {
	if rs.db == nil {
		return nil, contract.ErrNotFound
	}
	query := rebind(fmt.Sprintf(`SELECT document FROM %s WHERE report_id = ?`, quoteTableName(reportsTable, rs.backend)), rs.backend)
	return rs.scanReport(rs.db.QueryRowContext(ctx, query, id))
}

// scanReport decodes a single report document row.
func (rs *ReportStoreImpl) scanReport(row *sql.Row) (*schema.AnalysisReport, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report schema.AnalysisReport
	if err := json.Unmarshal([]byte(doc), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// ListReports returns report summaries within a time range, newest first.
func (rs *ReportStoreImpl) ListReports(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.ReportSummary, error) {
	if rs.db == nil {
		return nil, nil
	}

	where, args := rangeClause("scan_timestamp", tr, rs.backend)
	query := rebind(fmt.Sprintf(`
		SELECT report_id, scan_timestamp, target_path, health_score, degraded, finding_count
		FROM %s%s ORDER BY scan_timestamp DESC, report_id DESC%s
	`, quoteTableName(reportsTable, rs.backend), where, limitClause(limit)), rs.backend)

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ReportSummary
	for rows.Next() {
		var summary schema.ReportSummary
		var scanned timeColumn
		var health sql.NullFloat64
		var degraded int
		if err := rows.Scan(&summary.ID, &scanned, &summary.TargetPath, &health, &degraded, &summary.FindingCount); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		summary.ScanTimestamp = scanned.Time
		if health.Valid {
			score := health.Float64
			summary.HealthScore = &score
		}
		summary.Degraded = degraded != 0
		results = append(results, summary)
	}
	return results, rows.Err()
}

// SaveTeachingBatch stores a correlation teaching batch.
func (rs *ReportStoreImpl) SaveTeachingBatch(ctx context.Context, batch *schema.TeachingBatch) error {
	if rs.db == nil {
		return nil
	}
	if batch == nil || batch.ID == "" {
		return errors.New("teaching batch id is required")
	}

	doc, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal teaching batch: %w", err)
	}

	query := rebind(fmt.Sprintf(`
		INSERT INTO %s (batch_id, generated_at, report_id, detection_count, document)
		VALUES (?, ?, ?, ?, ?)
	`, quoteTableName(teachingsTable, rs.backend)), rs.backend)
	if _, err := rs.db.ExecContext(ctx, query,
		batch.ID, formatTime(batch.GeneratedAt, rs.backend), batch.ReportID, len(batch.Detections), string(doc),
	); err != nil {
		return fmt.Errorf("failed to insert teaching batch %s: %w", batch.ID, err)
	}
	return nil
}

// LatestTeachingBatch returns the most recently generated teaching batch.
func (rs *ReportStoreImpl) LatestTeachingBatch(ctx context.Context) (*schema.TeachingBatch, error) {
	batches, err := rs.ListTeachingBatches(ctx, schema.TimeRange{}, 1)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, contract.ErrNotFound
	}
	return &batches[0], nil
}

// ListTeachingBatches returns teaching batches within a time range, newest first.
func (rs *ReportStoreImpl) ListTeachingBatches(ctx context.Context, tr schema.TimeRange, limit int) ([]schema.TeachingBatch, error) {
	if rs.db == nil {
		return nil, nil
	}

	where, args := rangeClause("generated_at", tr, rs.backend)
	query := rebind(fmt.Sprintf(`SELECT document FROM %s%s ORDER BY generated_at DESC, batch_id DESC%s`,
		quoteTableName(teachingsTable, rs.backend), where, limitClause(limit)), rs.backend)

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teaching batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TeachingBatch
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan teaching batch: %w", err)
		}
		var batch schema.TeachingBatch
		if err := json.Unmarshal([]byte(doc), &batch); err != nil {
			return nil, fmt.Errorf("failed to decode teaching batch: %w", err)
		}
		results = append(results, batch)
	}
	return results, rows.Err()
}

// Prune deletes reports and teaching batches older than the cutoff.
// The published report survives regardless of its age.
func (rs *ReportStoreImpl) Prune(ctx context.Context, before time.Time) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latestID string
	pointerQuery := rebind(fmt.Sprintf(`SELECT report_id FROM %s WHERE pointer_name = ?`, quoteTableName(reportPointerTable, rs.backend)), rs.backend)
	if err := tx.QueryRowContext(ctx, pointerQuery, latestPointer).Scan(&latestID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to read latest pointer: %w", err)
	}

	cutoff := formatTime(before, rs.backend)
	var total int64

	reportQuery := rebind(fmt.Sprintf(`DELETE FROM %s WHERE scan_timestamp < ? AND report_id <> ?`, quoteTableName(reportsTable, rs.backend)), rs.backend)
	res, err := tx.ExecContext(ctx, reportQuery, cutoff, latestID)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	batchQuery := rebind(fmt.Sprintf(`DELETE FROM %s WHERE generated_at < ?`, quoteTableName(teachingsTable, rs.backend)), rs.backend)
	res, err = tx.ExecContext(ctx, batchQuery, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune teaching batches: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return total, nil
}

// Close closes the underlying connection.
func (rs *ReportStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the report store.
func (rs *ReportStoreImpl) GetStatus() (schema.ReportStoreStatus, error) {
	status := schema.ReportStoreStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if rs.backend == schema.NoneBackend || rs.db == nil {
		return status, nil
	}

	reports := quoteTableName(reportsTable, rs.backend)
	row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", reports))
	if err := row.Scan(&status.TotalReports); err != nil {
		return status, fmt.Errorf("failed to get total reports: %w", err)
	}

	if status.TotalReports > 0 {
		var newest, oldest timeColumn
		row = rs.db.QueryRow(fmt.Sprintf("SELECT MAX(scan_timestamp), MIN(scan_timestamp) FROM %s", reports))
		if err := row.Scan(&newest, &oldest); err != nil {
			return status, fmt.Errorf("failed to get report time range: %w", err)
		}
		status.LatestReportTime = newest.Time
		status.OldestReportTime = oldest.Time

		pointerQuery := rebind(fmt.Sprintf("SELECT report_id FROM %s WHERE pointer_name = ?", quoteTableName(reportPointerTable, rs.backend)), rs.backend)
		if err := rs.db.QueryRow(pointerQuery, latestPointer).Scan(&status.LatestReportID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return status, fmt.Errorf("failed to get latest report id: %w", err)
		}
	}

	row = rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(teachingsTable, rs.backend)))
	if err := row.Scan(&status.TotalBatches); err != nil {
		return status, fmt.Errorf("failed to get total teaching batches: %w", err)
	}

	for _, table := range []string{reportsTable, reportPointerTable, teachingsTable} {
		var count int64
		row = rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

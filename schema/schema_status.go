package schema

import "time"

// ReportStoreStatus represents the status of the analysis report store.
type ReportStoreStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalReports     int              `json:"total_reports"`
	LatestReportID   string           `json:"latest_report_id"`
	LatestReportTime time.Time        `json:"latest_report_time"`
	OldestReportTime time.Time        `json:"oldest_report_time"`
	TotalBatches     int              `json:"total_batches"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// HistoryStoreStatus represents the status of the test execution history store.
type HistoryStoreStatus struct {
	Backend          string    `json:"backend"`
	Connected        bool      `json:"connected"`
	TotalRecords     int       `json:"total_records"`
	DistinctTests    int       `json:"distinct_tests"`
	LastRecordTime   time.Time `json:"last_record_time"`
	OldestRecordTime time.Time `json:"oldest_record_time"`
	TableSizeBytes   int64     `json:"table_size_bytes"`
}

// TimeRange bounds a store query. A zero bound is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.Start.IsZero() && t.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && t.After(tr.End) {
		return false
	}
	return true
}

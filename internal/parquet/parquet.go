// Package parquet provides data structures and functions for exporting triad
// reports, test history and teachings to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/triad/schema"
	"github.com/parquet-go/parquet-go"
)

// Report is one stored analysis report without its findings.
type Report struct {
	// ReportID is the unique identifier of the report
	ReportID string `parquet:"report_id,snappy"`

	// ScanTimestamp is when the scan ran
	ScanTimestamp time.Time `parquet:"scan_timestamp,snappy"`

	// TargetPath is the scanned directory
	TargetPath string `parquet:"target_path,snappy"`

	// Commit is the HEAD commit of the scanned work tree, empty outside Git
	Commit string `parquet:"commit,snappy"`

	// HealthScore is nil when no category could be scored
	HealthScore *float64 `parquet:"health_score,optional,snappy"`

	Degraded      bool  `parquet:"degraded,snappy"`
	FilesScanned  int32 `parquet:"files_scanned,snappy"`
	FindingCount  int32 `parquet:"finding_count,snappy"`
	ConflictCount int32 `parquet:"conflict_count,snappy"`
}

// Finding is one finding of one report.
type Finding struct {
	ReportID  string `parquet:"report_id,snappy"`
	FindingID string `parquet:"finding_id,snappy"`
	Agent     string `parquet:"agent,snappy"`
	Rule      string `parquet:"rule,snappy"`
	Severity  string `parquet:"severity,snappy"`
	Category  string `parquet:"category,snappy"`
	File      string `parquet:"file,snappy"`

	// Line is nil when the finding has no specific line
	Line *int32 `parquet:"line,optional,snappy"`

	Message string `parquet:"message,snappy"`

	// Action is the remediation action, nil when the finding has no remediation
	Action *string `parquet:"action,optional,snappy"`

	Confidence float64 `parquet:"confidence,snappy"`
}

// Execution is one test execution record.
type Execution struct {
	TestID         string    `parquet:"test_id,snappy"`
	Outcome        string    `parquet:"outcome,snappy"`
	DurationMs     float64   `parquet:"duration_ms,snappy"`
	ExecutedAt     time.Time `parquet:"executed_at,snappy"`
	FailureMessage *string   `parquet:"failure_message,optional,snappy"`
	RunID          *string   `parquet:"run_id,optional,snappy"`
}

// Detection is one ranked detection of one teaching batch.
type Detection struct {
	BatchID     string    `parquet:"batch_id,snappy"`
	GeneratedAt time.Time `parquet:"generated_at,snappy"`
	Rank        int32     `parquet:"rank,snappy"`
	Pattern     string    `parquet:"pattern,snappy"`
	Priority    string    `parquet:"priority,snappy"`
	Confidence  float64   `parquet:"confidence,snappy"`

	// Modules is the comma-separated list of affected modules
	Modules       string `parquet:"modules,snappy"`
	EvidenceCount int32  `parquet:"evidence_count,snappy"`
	RootCause     string `parquet:"root_cause,snappy"`
	Action        string `parquet:"action,snappy"`
}

// writeParquet writes rows to a Parquet file whose schema is inferred from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WriteReportsParquet writes report rows to a Parquet file.
func WriteReportsParquet(data []Report, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFindingsParquet writes finding rows to a Parquet file.
func WriteFindingsParquet(data []Finding, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteExecutionsParquet writes execution rows to a Parquet file.
func WriteExecutionsParquet(data []Execution, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteDetectionsParquet writes detection rows to a Parquet file.
func WriteDetectionsParquet(data []Detection, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertReport converts a report to its row and the rows of its findings.
func ConvertReport(report *schema.AnalysisReport) (Report, []Finding) {
	row := Report{
		ReportID:      report.ID,
		ScanTimestamp: report.ScanTimestamp,
		TargetPath:    report.TargetPath,
		Commit:        report.Commit,
		HealthScore:   report.HealthScore,
		Degraded:      report.Degraded,
		FilesScanned:  int32(report.FilesScanned),
		FindingCount:  int32(len(report.Findings)),
		ConflictCount: int32(len(report.Conflicts)),
	}

	findings := make([]Finding, len(report.Findings))
	for i, f := range report.Findings {
		findings[i] = Finding{
			ReportID:   report.ID,
			FindingID:  f.ID,
			Agent:      string(f.Agent),
			Rule:       f.Rule,
			Severity:   string(f.Severity),
			Category:   string(f.Category),
			File:       f.File,
			Message:    f.Message,
			Confidence: f.Confidence,
		}
		if f.Line > 0 {
			line := int32(f.Line)
			findings[i].Line = &line
		}
		if f.Remediation != nil {
			action := string(f.Remediation.Action)
			findings[i].Action = &action
		}
	}
	return row, findings
}

// ConvertExecutions converts execution records for Parquet export.
func ConvertExecutions(records []schema.TestExecutionRecord) []Execution {
	result := make([]Execution, len(records))
	for i, r := range records {
		result[i] = Execution{
			TestID:         r.TestID,
			Outcome:        string(r.Outcome),
			DurationMs:     r.DurationMs,
			ExecutedAt:     r.Timestamp,
			FailureMessage: optionalString(r.FailureMessage),
			RunID:          optionalString(r.RunID),
		}
	}
	return result
}

// ConvertTeachingBatch converts the detections of a batch for Parquet export.
// Detections are already ranked, so the rank is their position.
func ConvertTeachingBatch(batch schema.TeachingBatch) []Detection {
	result := make([]Detection, len(batch.Detections))
	for i, d := range batch.Detections {
		result[i] = Detection{
			BatchID:       batch.ID,
			GeneratedAt:   batch.GeneratedAt,
			Rank:          int32(i + 1),
			Pattern:       string(d.Pattern),
			Priority:      string(d.Priority),
			Confidence:    d.Confidence,
			Modules:       strings.Join(d.Modules, ","),
			EvidenceCount: int32(len(d.Evidence)),
			RootCause:     d.Teaching.RootCause,
			Action:        d.Teaching.Action,
		}
	}
	return result
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

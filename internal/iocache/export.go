package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/parquet"
	"github.com/huangsam/triad/schema"
)

// ExportReports writes every stored report, finding and teaching detection to Parquet files
// named after outputFile with a per-table suffix.
func ExportReports(ctx context.Context, store contract.ReportStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("report store is not configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get report store status: %w", err)
	}
	if status.TotalReports == 0 && status.TotalBatches == 0 {
		return errors.New("no report data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total reports: %d\n", status.TotalReports)
	fmt.Printf("Total teaching batches: %d\n", status.TotalBatches)

	summaries, err := store.ListReports(ctx, schema.TimeRange{}, 0)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	reportRows := make([]parquet.Report, 0, len(summaries))
	var findingRows []parquet.Finding
	for _, summary := range summaries {
		report, err := store.GetReport(ctx, summary.ID)
		if err != nil {
			return fmt.Errorf("failed to retrieve report %s: %w", summary.ID, err)
		}
		row, findings := parquet.ConvertReport(report)
		reportRows = append(reportRows, row)
		findingRows = append(findingRows, findings...)
	}

	batches, err := store.ListTeachingBatches(ctx, schema.TimeRange{}, 0)
	if err != nil {
		return fmt.Errorf("failed to list teaching batches: %w", err)
	}
	var detectionRows []parquet.Detection
	for _, batch := range batches {
		detectionRows = append(detectionRows, parquet.ConvertTeachingBatch(batch)...)
	}

	reportsFile := outputFile + ".reports.parquet"
	if err := parquet.WriteReportsParquet(reportRows, reportsFile); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	fmt.Printf("Exported %d reports to: %s\n", len(reportRows), reportsFile)

	findingsFile := outputFile + ".findings.parquet"
	if err := parquet.WriteFindingsParquet(findingRows, findingsFile); err != nil {
		return fmt.Errorf("failed to write findings: %w", err)
	}
	fmt.Printf("Exported %d findings to: %s\n", len(findingRows), findingsFile)

	detectionsFile := outputFile + ".detections.parquet"
	if err := parquet.WriteDetectionsParquet(detectionRows, detectionsFile); err != nil {
		return fmt.Errorf("failed to write detections: %w", err)
	}
	fmt.Printf("Exported %d detections from %d teaching batches to: %s\n", len(detectionRows), len(batches), detectionsFile)

	printExportFooter()
	return nil
}

// ExportHistory writes every stored test execution to a Parquet file named after outputFile.
func ExportHistory(ctx context.Context, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history store status: %w", err)
	}
	if status.TotalRecords == 0 {
		return errors.New("no test history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total executions: %d\n", status.TotalRecords)

	records, err := store.Range(ctx, schema.TimeRange{})
	if err != nil {
		return fmt.Errorf("failed to retrieve test executions: %w", err)
	}

	executionsFile := outputFile + ".executions.parquet"
	if err := parquet.WriteExecutionsParquet(parquet.ConvertExecutions(records), executionsFile); err != nil {
		return fmt.Errorf("failed to write test executions: %w", err)
	}
	fmt.Printf("Exported %d test executions to: %s\n", len(records), executionsFile)

	printExportFooter()
	return nil
}

func printExportFooter() {
	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")
}

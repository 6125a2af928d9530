package iocache

import (
	"fmt"
	"sort"

	"github.com/huangsam/triad/schema"
)

// PrintReportStatus prints report store status information.
func PrintReportStatus(status schema.ReportStoreStatus) {
	fmt.Printf("Report Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Reports: %d\n", status.TotalReports)
	if status.TotalReports > 0 {
		fmt.Printf("Latest Report ID: %s\n", status.LatestReportID)
		fmt.Printf("Latest Report: %s\n", status.LatestReportTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Report: %s\n", status.OldestReportTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Teaching Batches: %d\n", status.TotalBatches)
	fmt.Println("Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// PrintHistoryStatus prints history store status information.
func PrintHistoryStatus(status schema.HistoryStoreStatus) {
	fmt.Printf("History Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Executions: %d\n", status.TotalRecords)
	if status.TotalRecords > 0 {
		fmt.Printf("Distinct Tests: %d\n", status.DistinctTests)
		fmt.Printf("Last Execution: %s\n", status.LastRecordTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Execution: %s\n", status.OldestRecordTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

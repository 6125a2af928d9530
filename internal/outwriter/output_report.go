package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// WriteAnalysisReport outputs an analysis report, dispatching based on the output format configured.
func WriteAnalysisReport(report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(1)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForFindings(w, schema.RankFindings(report.Findings, cfg.Limit), fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(report, cfg, fmtFloat, intFmt, duration, w)
		}, "Wrote table")
	}
	return nil
}

// writeReportTable writes the summary, category scores, findings, conflicts and agent runs.
func writeReportTable(report *schema.AnalysisReport, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration, w io.Writer) error {
	labels := newLabeler(cfg)

	if _, err := fmt.Fprintf(w, "Health: %s (%s) across %d files in %s\n",
		formatScore(report.HealthScore, fmtFloat), labels.health(report.HealthScore),
		report.FilesScanned, report.TargetPath); err != nil {
		return err
	}
	if report.Degraded {
		if _, err := fmt.Fprintln(w, labels.verdict(false, "", "DEGRADED: some agents did not complete")); err != nil {
			return err
		}
		for _, note := range report.Notes {
			if _, err := fmt.Fprintf(w, "  - %s\n", note); err != nil {
				return err
			}
		}
	}

	var categories [][]string
	for _, c := range schema.AllCategories {
		cs, ok := report.CategoryScores[c]
		if !ok {
			continue
		}
		categories = append(categories, []string{
			string(c),
			formatScore(cs.Score, fmtFloat),
			labels.health(cs.Score),
			fmt.Sprintf(intFmt, cs.Findings),
			fmt.Sprintf("%.2f", cs.Density),
			fmt.Sprintf("%.2f", cs.Weight),
			labels.status(cs.Status),
		})
	}
	if err := writeTable(w, []string{"Category", "Score", "Label", "Findings", "Density", "Weight", "Status"}, categories); err != nil {
		return err
	}

	findings := schema.RankFindings(report.Findings, cfg.Limit)
	if len(findings) > 0 {
		pathWidth := getMaxTablePathWidth(cfg, 70)
		var data [][]string
		for i, f := range findings {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				labels.severity(f.Severity),
				string(f.Category),
				contract.TruncatePath(location(f.File, f.Line), pathWidth),
				f.Rule,
				f.ID,
			})
		}
		if err := writeTable(w, []string{"Rank", "Severity", "Category", "Location", "Rule", "ID"}, data); err != nil {
			return err
		}
	}

	if len(report.Conflicts) > 0 {
		var data [][]string
		for _, c := range report.Conflicts {
			data = append(data, []string{
				location(c.File, c.Line),
				fmt.Sprintf("%s (%s)", c.FindingA, c.ActionA),
				fmt.Sprintf("%s (%s)", c.FindingB, c.ActionB),
				c.Reason,
			})
		}
		if _, err := fmt.Fprintf(w, "%d conflicting remediations need a decision:\n", len(report.Conflicts)); err != nil {
			return err
		}
		if err := writeTable(w, []string{"Location", "Finding A", "Finding B", "Reason"}, data); err != nil {
			return err
		}
	}

	var runs [][]string
	for _, r := range report.AgentRuns {
		runs = append(runs, []string{
			string(r.Agent),
			labels.status(r.Status),
			fmt.Sprintf(intFmt, r.Findings),
			fmt.Sprintf("%dms", r.DurationMs),
			r.Error,
		})
	}
	if err := writeTable(w, []string{"Agent", "Status", "Findings", "Duration", "Error"}, runs); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing %d of %d findings. Report %s\n", len(findings), len(report.Findings), report.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Analysis completed in %v. Report backend: %s\n", duration, cfg.ReportBackend); err != nil {
		return err
	}
	return nil
}

// writeCSVResultsForFindings writes one row per finding.
func writeCSVResultsForFindings(w io.Writer, findings []schema.Finding, fmtFloat func(float64) string) error {
	header := []string{"rank", "id", "agent", "rule", "severity", "category", "file", "line", "confidence", "action", "message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, f := range findings {
			action := ""
			if f.Remediation != nil {
				action = string(f.Remediation.Action)
			}
			rec := []string{
				strconv.Itoa(i + 1),
				f.ID,
				string(f.Agent),
				f.Rule,
				string(f.Severity),
				string(f.Category),
				f.File,
				strconv.Itoa(f.Line),
				fmtFloat(f.Confidence),
				action,
				f.Message,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// WriteGateResult outputs the verdict of a quality gate check.
func WriteGateResult(result *schema.GateResult, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(1)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForGate(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGateTable(result, cfg, fmtFloat, w)
		}, "Wrote table")
	}
	return nil
}

func writeGateTable(result *schema.GateResult, cfg *contract.Config, fmtFloat func(float64) string, w io.Writer) error {
	labels := newLabeler(cfg)
	health := formatScore(result.HealthScore, fmtFloat)
	if result.Degraded {
		health += " (degraded)"
	}
	data := [][]string{
		{"Health score", health, ">= " + fmtFloat(result.MinHealthScore)},
		{"URGENT findings", strconv.Itoa(result.UrgentFindings), "<= " + strconv.Itoa(result.MaxUrgent)},
		{"Conflicts", strconv.Itoa(result.Conflicts), ""},
	}
	if err := writeTable(w, []string{"Check", "Value", "Threshold"}, data); err != nil {
		return err
	}
	for _, v := range result.Violations {
		if _, err := fmt.Fprintf(w, "  ✗ %s\n", v); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Quality gate %s for report %s\n", labels.verdict(result.Passed, "PASSED", "FAILED"), result.ReportID)
	return err
}

func writeCSVResultsForGate(w io.Writer, result *schema.GateResult) error {
	header := []string{"report_id", "passed", "kind", "detail"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		passed := strconv.FormatBool(result.Passed)
		if len(result.Violations) == 0 {
			return cw.Write([]string{result.ReportID, passed, "", ""})
		}
		for _, v := range result.Violations {
			if err := cw.Write([]string{result.ReportID, passed, "violation", v}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFixResult outputs the state transitions of one fix loop run.
func WriteFixResult(result *schema.FixResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForFix(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFixTable(result, cfg, w)
		}, "Wrote table")
	}
	return nil
}

func writeFixTable(result *schema.FixResult, cfg *contract.Config, w io.Writer) error {
	labels := newLabeler(cfg)
	var data [][]string
	for _, s := range result.Steps {
		data = append(data, []string{
			strconv.Itoa(s.Attempt),
			string(s.State),
			labels.verdict(s.OK, "ok", "failed"),
			s.Detail,
		})
	}
	if err := writeTable(w, []string{"Attempt", "State", "Result", "Detail"}, data); err != nil {
		return err
	}
	outcome := labels.verdict(result.Committed, "committed", "rolled back")
	if _, err := fmt.Fprintf(w, "Fix for %s in %s %s after %d attempts\n", result.FindingID, result.File, outcome, result.Attempts); err != nil {
		return err
	}
	if result.Committed && result.Description != "" {
		if _, err := fmt.Fprintln(w, result.Description); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVResultsForFix(w io.Writer, result *schema.FixResult) error {
	header := []string{"finding_id", "attempt", "state", "ok", "detail"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range result.Steps {
			rec := []string{result.FindingID, strconv.Itoa(s.Attempt), string(s.State), strconv.FormatBool(s.OK), s.Detail}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// WriteTeachingBatch outputs the ranked detections of one correlation run.
func WriteTeachingBatch(batch *schema.TeachingBatch, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(2)
	detections := schema.EnrichDetections(batch.Detections)
	if cfg.Limit > 0 && len(detections) > cfg.Limit {
		detections = detections[:cfg.Limit]
	}

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONResultsForBatch(w, batch, detections)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForDetections(w, detections, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(batch, detections, cfg, fmtFloat, intFmt, duration, w)
		}, "Wrote table")
	}
	return nil
}

func writeJSONResultsForBatch(w io.Writer, batch *schema.TeachingBatch, detections []schema.EnrichedDetection) error {
	type jsonBatch struct {
		ID           string                     `json:"id"`
		GeneratedAt  time.Time                  `json:"generated_at"`
		ReportID     string                     `json:"report_id,omitempty"`
		Profiles     int                        `json:"profiles"`
		Detections   []schema.EnrichedDetection `json:"detections"`
		DetectorRuns []schema.DetectorRun       `json:"detector_runs"`
	}
	return writeJSON(w, jsonBatch{
		ID:           batch.ID,
		GeneratedAt:  batch.GeneratedAt,
		ReportID:     batch.ReportID,
		Profiles:     batch.Profiles,
		Detections:   detections,
		DetectorRuns: batch.DetectorRuns,
	})
}

func writeBatchTable(batch *schema.TeachingBatch, detections []schema.EnrichedDetection, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration, w io.Writer) error {
	labels := newLabeler(cfg)

	if len(detections) == 0 {
		if _, err := fmt.Fprintln(w, "No cross-system patterns detected."); err != nil {
			return err
		}
	}
	for _, d := range detections {
		if _, err := fmt.Fprintf(w, "%d. [%s] %s in %s (confidence %s, %d evidence)\n",
			d.Rank, labels.priority(d.Priority), d.Pattern, strings.Join(d.Modules, ", "),
			fmtFloat(d.Confidence), len(d.Evidence)); err != nil {
			return err
		}
		for _, line := range []struct{ label, text string }{
			{"Root cause", d.Teaching.RootCause},
			{"Action", d.Teaching.Action},
			{"Benefit", d.Teaching.Benefit},
		} {
			if line.text == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "   %s: %s\n", line.label, line.text); err != nil {
				return err
			}
		}
	}

	var runs [][]string
	for _, r := range batch.DetectorRuns {
		runs = append(runs, []string{
			string(r.Pattern),
			labels.status(r.Status),
			fmt.Sprintf(intFmt, r.Detections),
			fmt.Sprintf(intFmt, r.Suppressed),
			fmt.Sprintf("%dms", r.DurationMs),
			r.Reason,
		})
	}
	if err := writeTable(w, []string{"Pattern", "Status", "Detections", "Suppressed", "Duration", "Reason"}, runs); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Showing %d of %d detections from %d test profiles. Batch %s\n",
		len(detections), len(batch.Detections), batch.Profiles, batch.ID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Correlation completed in %v\n", duration)
	return err
}

func writeCSVResultsForDetections(w io.Writer, detections []schema.EnrichedDetection, fmtFloat func(float64) string) error {
	header := []string{"rank", "pattern", "priority", "confidence", "modules", "evidence", "root_cause", "action", "benefit"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range detections {
			rec := []string{
				strconv.Itoa(d.Rank),
				string(d.Pattern),
				string(d.Priority),
				fmtFloat(d.Confidence),
				strings.Join(d.Modules, "|"),
				formatEvidence(d.Evidence),
				d.Teaching.RootCause,
				d.Teaching.Action,
				d.Teaching.Benefit,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WritePatternTrends outputs how often each pattern fired across stored batches.
func WritePatternTrends(trends []schema.PatternTrend, batches int, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, map[string]any{"batches": batches, "patterns": trends})
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForTrends(w, trends)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTrendsTable(trends, batches, w)
		}, "Wrote table")
	}
	return nil
}

func formatLastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(contract.DateTimeFormat)
}

func writeTrendsTable(trends []schema.PatternTrend, batches int, w io.Writer) error {
	var data [][]string
	for _, t := range trends {
		data = append(data, []string{
			string(t.Pattern),
			strconv.Itoa(t.Batches),
			strconv.Itoa(t.Detections),
			formatLastSeen(t.LastSeen),
			t.LastOutcome,
		})
	}
	if err := writeTable(w, []string{"Pattern", "Batches", "Detections", "Last Seen", "Last Outcome"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Aggregated %d teaching batches\n", batches)
	return err
}

func writeCSVResultsForTrends(w io.Writer, trends []schema.PatternTrend) error {
	header := []string{"pattern", "batches", "detections", "last_seen", "last_outcome"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, t := range trends {
			lastSeen := ""
			if !t.LastSeen.IsZero() {
				lastSeen = t.LastSeen.Format(contract.DateTimeFormat)
			}
			rec := []string{
				string(t.Pattern),
				strconv.Itoa(t.Batches),
				strconv.Itoa(t.Detections),
				lastSeen,
				t.LastOutcome,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

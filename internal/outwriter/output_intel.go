package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// WriteProfiles outputs test health profiles in rank order.
func WriteProfiles(profiles []schema.TestHealthProfile, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(2)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, profiles)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForProfiles(w, profiles, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfilesTable(profiles, cfg, fmtFloat, intFmt, w)
		}, "Wrote table")
	}
	return nil
}

func writeProfilesTable(profiles []schema.TestHealthProfile, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, w io.Writer) error {
	pathWidth := getMaxTablePathWidth(cfg, 60)
	var data [][]string
	for i, p := range profiles {
		flakiness := "n/a"
		if !p.InsufficientData {
			flakiness = fmtFloat(p.FlakinessOr(0))
		}
		slow := ""
		if p.IsSlow {
			slow = "yes"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(p.TestID, pathWidth),
			fmt.Sprintf(intFmt, p.SampleSize),
			flakiness,
			fmtFloat(p.FailureRate),
			fmt.Sprintf("%.0fms", p.MeanDurationMs),
			slow,
		})
	}
	if err := writeTable(w, []string{"Rank", "Test", "Runs", "Flakiness", "Fail Rate", "Mean", "Slow"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d test profiles\n", len(profiles))
	return err
}

func writeCSVResultsForProfiles(w io.Writer, profiles []schema.TestHealthProfile, fmtFloat func(float64) string) error {
	header := []string{"rank", "test_id", "module", "sample_size", "insufficient_data", "flakiness", "transitions", "failure_rate", "mean_duration_ms", "is_slow", "last_run"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, p := range profiles {
			flakiness := ""
			if p.Flakiness != nil {
				flakiness = fmtFloat(*p.Flakiness)
			}
			rec := []string{
				strconv.Itoa(i + 1),
				p.TestID,
				p.Module,
				strconv.Itoa(p.SampleSize),
				strconv.FormatBool(p.InsufficientData),
				flakiness,
				strconv.Itoa(p.Transitions),
				fmtFloat(p.FailureRate),
				fmtFloat(p.MeanDurationMs),
				strconv.FormatBool(p.IsSlow),
				p.LastRun.Format(contract.DateTimeFormat),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteRecommendations outputs prioritized recommendations.
func WriteRecommendations(recs []schema.Recommendation, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(2)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, recs)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForRecommendations(w, recs, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecommendationsTable(recs, cfg, fmtFloat, w)
		}, "Wrote table")
	}
	return nil
}

func writeRecommendationsTable(recs []schema.Recommendation, cfg *contract.Config, fmtFloat func(float64) string, w io.Writer) error {
	labels := newLabeler(cfg)
	var data [][]string
	for i, r := range recs {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			labels.severity(r.Severity),
			string(r.Type),
			fmtFloat(r.PriorityScore),
			r.Message,
		})
	}
	if err := writeTable(w, []string{"Rank", "Severity", "Type", "Priority", "Message"}, data); err != nil {
		return err
	}
	for i, r := range recs {
		if r.Action == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, r.Action); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Showing %d recommendations\n", len(recs))
	return err
}

func writeCSVResultsForRecommendations(w io.Writer, recs []schema.Recommendation, fmtFloat func(float64) string) error {
	header := []string{"rank", "type", "severity", "confidence", "priority_score", "message", "action", "evidence"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, r := range recs {
			rec := []string{
				strconv.Itoa(i + 1),
				string(r.Type),
				string(r.Severity),
				fmtFloat(r.Confidence),
				fmtFloat(r.PriorityScore),
				r.Message,
				r.Action,
				formatEvidence(r.Evidence),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// formatEvidence joins evidence as kind:id pairs.
func formatEvidence(evidence []schema.Evidence) string {
	parts := make([]string, len(evidence))
	for i, e := range evidence {
		parts[i] = string(e.Kind) + ":" + e.ID
	}
	return strings.Join(parts, "|")
}

// WritePredictions outputs pre-flight failure risk per test.
func WritePredictions(predictions []schema.RiskPrediction, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(2)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, predictions)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForPredictions(w, predictions, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePredictionsTable(predictions, cfg, fmtFloat, w)
		}, "Wrote table")
	}
	return nil
}

func writePredictionsTable(predictions []schema.RiskPrediction, cfg *contract.Config, fmtFloat func(float64) string, w io.Writer) error {
	pathWidth := getMaxTablePathWidth(cfg, 55)
	var data [][]string
	for i, p := range predictions {
		risk := fmtFloat(p.Risk)
		if p.InsufficientData {
			risk = "n/a"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(p.TestID, pathWidth),
			risk,
			fmtFloat(p.RecentFailure),
			fmtFloat(p.Flakiness),
			p.Advisory,
		})
	}
	if err := writeTable(w, []string{"Rank", "Test", "Risk", "Recent Fail", "Flakiness", "Advisory"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d predictions. Risk is advisory and never blocks a run.\n", len(predictions))
	return err
}

func writeCSVResultsForPredictions(w io.Writer, predictions []schema.RiskPrediction, fmtFloat func(float64) string) error {
	header := []string{"rank", "test_id", "risk", "insufficient_data", "recent_failure_rate", "flakiness", "advisory"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, p := range predictions {
			rec := []string{
				strconv.Itoa(i + 1),
				p.TestID,
				fmtFloat(p.Risk),
				strconv.FormatBool(p.InsufficientData),
				fmtFloat(p.RecentFailure),
				fmtFloat(p.Flakiness),
				p.Advisory,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCoverageReport outputs the coverage gaps below target.
func WriteCoverageReport(coverage *schema.CoverageReport, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(1)
	if coverage == nil {
		coverage = &schema.CoverageReport{}
	}

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, coverage)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForGaps(w, coverage.Gaps, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCoverageTable(coverage, cfg, fmtFloat, w)
		}, "Wrote table")
	}
	return nil
}

func writeCoverageTable(coverage *schema.CoverageReport, cfg *contract.Config, fmtFloat func(float64) string, w io.Writer) error {
	pathWidth := getMaxTablePathWidth(cfg, 50)
	gaps := coverage.Gaps
	if cfg.Limit > 0 && len(gaps) > cfg.Limit {
		gaps = gaps[:cfg.Limit]
	}
	var data [][]string
	for i, g := range gaps {
		function := g.Function
		if function == "" {
			function = "(file)"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(location(g.File, g.StartLine), pathWidth),
			function,
			fmtFloat(g.Coverage) + "%",
			strconv.Itoa(len(g.Findings)),
		})
	}
	if err := writeTable(w, []string{"Rank", "Location", "Function", "Coverage", "Findings"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d gaps below %s%% across %d files\n",
		len(gaps), len(coverage.Gaps), fmtFloat(coverage.Target), len(coverage.Files))
	return err
}

func writeCSVResultsForGaps(w io.Writer, gaps []schema.CoverageGap, fmtFloat func(float64) string) error {
	header := []string{"id", "file", "function", "start_line", "end_line", "coverage", "target", "findings"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, g := range gaps {
			rec := []string{
				g.ID,
				g.File,
				g.Function,
				strconv.Itoa(g.StartLine),
				strconv.Itoa(g.EndLine),
				fmtFloat(g.Coverage),
				fmtFloat(g.Target),
				strings.Join(g.Findings, "|"),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDrafts outputs synthesized test skeletons. Table output prints the content of drafts not written to disk.
func WriteDrafts(drafts []schema.TestDraft, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, drafts)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForDrafts(w, drafts)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDraftsText(drafts, w)
		}, "Wrote drafts")
	}
	return nil
}

func writeDraftsText(drafts []schema.TestDraft, w io.Writer) error {
	if len(drafts) == 0 {
		_, err := fmt.Fprintln(w, "No coverage gaps need a draft.")
		return err
	}
	for _, d := range drafts {
		state := "draft"
		if d.Written {
			state = "written"
		}
		if _, err := fmt.Fprintf(w, "== %s (%s, %s) for %s\n", d.Path, d.Language, state, d.GapID); err != nil {
			return err
		}
		if d.Note != "" {
			if _, err := fmt.Fprintf(w, "   %s\n", d.Note); err != nil {
				return err
			}
		}
		if !d.Written {
			if _, err := fmt.Fprintln(w, d.Content); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d drafts synthesized. Every draft needs review before it is trusted.\n", len(drafts))
	return err
}

func writeCSVResultsForDrafts(w io.Writer, drafts []schema.TestDraft) error {
	header := []string{"gap_id", "path", "language", "synthesized", "written", "note"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range drafts {
			rec := []string{
				d.GapID,
				d.Path,
				d.Language,
				strconv.FormatBool(d.Synthesized),
				strconv.FormatBool(d.Written),
				d.Note,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

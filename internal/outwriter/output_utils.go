// Package outwriter has output and writer logic.
package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// createFormatters creates the common formatter closures used across multiple output types.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	numFmt := "%.*f"
	intFmt = "%d"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	return fmtFloat, intFmt
}

// writeTable renders one table with the shared look.
func writeTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// getMaxTablePathWidth calculates the maximum width for file paths in table output
// based on terminal width and the columns that share the row with the path.
func getMaxTablePathWidth(cfg *contract.Config, reserved int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Conservative default for narrow terminals and CI
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - reserved - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}

// labeler renders severity, priority and health labels, colored only when enabled.
type labeler struct {
	colors bool
}

func newLabeler(cfg *contract.Config) labeler {
	return labeler{colors: cfg.UseColors}
}

func (l labeler) severity(s schema.Severity) string {
	if l.colors {
		return contract.GetSeverityLabel(s)
	}
	return string(s)
}

func (l labeler) priority(p schema.Priority) string {
	if l.colors {
		return contract.GetPriorityLabel(p)
	}
	return string(p)
}

func (l labeler) health(score *float64) string {
	if l.colors {
		return contract.GetColorLabel(score)
	}
	return schema.HealthLabel(score)
}

func (l labeler) status(s schema.WorkerStatus) string {
	if !l.colors {
		return string(s)
	}
	switch s {
	case schema.StatusCompleted, schema.StatusFired:
		return contract.HealthyColor.Sprint(s)
	case schema.StatusErrored, schema.StatusTimedOut:
		return contract.CriticalColor.Sprint(s)
	case schema.StatusSkipped:
		return contract.ModerateColor.Sprint(s)
	default:
		return contract.LowColor.Sprint(s)
	}
}

func (l labeler) verdict(ok bool, pass, fail string) string {
	if !l.colors {
		if ok {
			return pass
		}
		return fail
	}
	if ok {
		return contract.HealthyColor.Sprint(pass)
	}
	return contract.CriticalColor.Sprint(fail)
}

// formatScore renders an optional score, where nil means unknown.
func formatScore(score *float64, fmtFloat func(float64) string) string {
	if score == nil {
		return "-"
	}
	return fmtFloat(*score)
}

// location joins a file and an optional line.
func location(file string, line int) string {
	if line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d", file, line)
}

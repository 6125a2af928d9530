package testintel

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/triad/schema"
)

// Ingestion formats accepted by ParseRecords.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// ParseRecords reads execution records as a JSON array or as one JSON object per line.
// Outcomes are upper-cased so that "pass" and "PASS" are equivalent.
func ParseRecords(r io.Reader, format string) ([]schema.TestExecutionRecord, error) {
	var records []schema.TestExecutionRecord
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("invalid JSON records: %w", err)
		}
	case FormatJSONL:
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var rec schema.TestExecutionRecord
			if err := json.Unmarshal([]byte(text), &rec); err != nil {
				return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q (use %s or %s)", format, FormatJSON, FormatJSONL)
	}

	for i := range records {
		records[i].Outcome = schema.Outcome(strings.ToUpper(string(records[i].Outcome)))
	}
	return records, nil
}

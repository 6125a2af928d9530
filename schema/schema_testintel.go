package schema

import (
	"fmt"
	"time"
)

// EvidenceKind identifies what an evidence reference points to.
type EvidenceKind string

// All evidence kinds supported.
const (
	FindingEvidence    EvidenceKind = "finding"
	TestEvidence       EvidenceKind = "test"
	CoverageEvidence   EvidenceKind = "coverage"
	ComplexityEvidence EvidenceKind = "complexity"
)

// Evidence is a citable reference to a finding, test profile, coverage region or complexity stat.
type Evidence struct {
	Kind EvidenceKind `json:"kind"`
	ID   string       `json:"id"`
}

// TestExecutionRecord is one observed outcome of one test run.
type TestExecutionRecord struct {
	TestID         string    `json:"test_id"`
	Outcome        Outcome   `json:"outcome"`
	DurationMs     float64   `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
	FailureMessage string    `json:"failure_message,omitempty"`
	RunID          string    `json:"run_id,omitempty"`
}

// Duration returns the duration of the execution.
func (r TestExecutionRecord) Duration() time.Duration {
	return time.Duration(r.DurationMs * float64(time.Millisecond))
}

// Validate checks the record fields that the history store relies on.
func (r TestExecutionRecord) Validate() error {
	if r.TestID == "" {
		return fmt.Errorf("test_id is required")
	}
	if _, ok := ValidOutcomes[r.Outcome]; !ok {
		return fmt.Errorf("invalid outcome %q for test %s", r.Outcome, r.TestID)
	}
	if r.DurationMs < 0 {
		return fmt.Errorf("negative duration for test %s", r.TestID)
	}
	return nil
}

// TestHealthProfile is derived from the execution history of one test.
// Flakiness is nil when InsufficientData is set.
type TestHealthProfile struct {
	TestID             string    `json:"test_id"`
	Module             string    `json:"module"`
	SampleSize         int       `json:"sample_size"`
	InsufficientData   bool      `json:"insufficient_data"`
	Flakiness          *float64  `json:"flakiness"`
	Transitions        int       `json:"transitions"`
	FailureRate        float64   `json:"failure_rate"`
	MeanDurationMs     float64   `json:"mean_duration_ms"`
	DurationVarianceMs float64   `json:"duration_variance_ms"`
	IsSlow             bool      `json:"is_slow"`
	SlowReason         string    `json:"slow_reason,omitempty"`
	LastOutcomes       []Outcome `json:"last_outcomes"`
	LastRun            time.Time `json:"last_run"`
}

// FlakinessOr returns the flakiness score or the fallback when unknown.
func (p TestHealthProfile) FlakinessOr(fallback float64) float64 {
	if p.Flakiness == nil {
		return fallback
	}
	return *p.Flakiness
}

// FileCoverage is the statement coverage of one source file.
type FileCoverage struct {
	File       string  `json:"file"`
	Statements int     `json:"statements"`
	Covered    int     `json:"covered"`
	Percent    float64 `json:"percent"`
}

// Module returns the module (directory) of the file.
func (fc FileCoverage) Module() string {
	return ModuleOfFile(fc.File)
}

// CoverageGap is a code region whose coverage is below the target threshold.
// Function is empty for file-level gaps.
type CoverageGap struct {
	ID        string   `json:"id"`
	File      string   `json:"file"`
	Function  string   `json:"function,omitempty"`
	StartLine int      `json:"start_line,omitempty"`
	EndLine   int      `json:"end_line,omitempty"`
	Coverage  float64  `json:"coverage"`
	Target    float64  `json:"target"`
	Findings  []string `json:"findings,omitempty"`
}

// Module returns the module (directory) of the gap.
func (g CoverageGap) Module() string {
	return ModuleOfFile(g.File)
}

// CoverageReport bundles per-file coverage and the gaps derived from it.
type CoverageReport struct {
	Target float64        `json:"target"`
	Files  []FileCoverage `json:"files"`
	Gaps   []CoverageGap  `json:"gaps"`
}

// ModuleCoverage returns statement-weighted coverage per module.
func (cr *CoverageReport) ModuleCoverage() map[string]float64 {
	statements := make(map[string]int)
	covered := make(map[string]int)
	for _, f := range cr.Files {
		m := f.Module()
		statements[m] += f.Statements
		covered[m] += f.Covered
	}
	out := make(map[string]float64, len(statements))
	for m, total := range statements {
		if total == 0 {
			out[m] = 100
			continue
		}
		out[m] = 100 * float64(covered[m]) / float64(total)
	}
	return out
}

// Recommendation is a typed, prioritized test-intelligence suggestion.
type Recommendation struct {
	Type          RecommendationType `json:"type"`
	Severity      Severity           `json:"severity"`
	Confidence    float64            `json:"confidence"`
	PriorityScore float64            `json:"priority_score"`
	Message       string             `json:"message"`
	Action        string             `json:"action"`
	Evidence      []Evidence         `json:"evidence"`
}

// RiskPrediction is an advisory pre-flight failure risk for one test.
type RiskPrediction struct {
	TestID           string  `json:"test_id"`
	Risk             float64 `json:"risk"`
	InsufficientData bool    `json:"insufficient_data"`
	RecentFailure    float64 `json:"recent_failure_rate"`
	Flakiness        float64 `json:"flakiness"`
	Advisory         string  `json:"advisory"`
}

// TestDraft is a synthesized test skeleton that always needs review.
type TestDraft struct {
	GapID       string `json:"gap_id"`
	Path        string `json:"path"`
	Language    string `json:"language"`
	Content     string `json:"content"`
	Synthesized bool   `json:"synthesized"`
	Written     bool   `json:"written"`
	Note        string `json:"note,omitempty"`
}

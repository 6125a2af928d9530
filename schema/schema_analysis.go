package schema

import (
	"sort"
	"time"
)

// ReportSchemaVersion is the version of the serialized AnalysisReport document.
const ReportSchemaVersion = "1.0"

// Remediation is a suggested fix attached to a finding.
type Remediation struct {
	Action      RemediationAction `json:"action"`
	Description string            `json:"description"`
	Example     string            `json:"example,omitempty"`
}

// Finding is a single architectural observation emitted by one agent.
// Line is 0 when the observation has no specific line.
type Finding struct {
	ID          string       `json:"id"`
	Agent       AgentID      `json:"agent"`
	Rule        string       `json:"rule"`
	Severity    Severity     `json:"severity"`
	Category    Category     `json:"category"`
	File        string       `json:"file"`
	Line        int          `json:"line,omitempty"`
	Message     string       `json:"message"`
	Remediation *Remediation `json:"remediation,omitempty"`
	Confidence  float64      `json:"confidence"`
}

// Module returns the module (directory) the finding belongs to.
func (f Finding) Module() string {
	return ModuleOfFile(f.File)
}

// CategoryScore is the score of one category within a report.
// Score is nil when the category is unknown because its agent did not complete.
type CategoryScore struct {
	Score    *float64     `json:"score"`
	Status   WorkerStatus `json:"status"`
	Findings int          `json:"findings"`
	Density  float64      `json:"density"`
	Weight   float64      `json:"weight"`
}

// Known reports whether the category has a usable score.
func (cs CategoryScore) Known() bool {
	return cs.Score != nil
}

// Conflict is a pair of findings whose remediations contradict each other.
type Conflict struct {
	FindingA string            `json:"finding_a"`
	FindingB string            `json:"finding_b"`
	File     string            `json:"file"`
	Line     int               `json:"line,omitempty"`
	ActionA  RemediationAction `json:"action_a"`
	ActionB  RemediationAction `json:"action_b"`
	Reason   string            `json:"reason"`
}

// AgentRun records how one agent run ended.
type AgentRun struct {
	Agent      AgentID      `json:"agent"`
	Status     WorkerStatus `json:"status"`
	Findings   int          `json:"findings"`
	DurationMs int64        `json:"duration_ms"`
	Error      string       `json:"error,omitempty"`
}

// ComplexityStat is the cyclomatic complexity of one function.
type ComplexityStat struct {
	File       string `json:"file"`
	Function   string `json:"function"`
	Line       int    `json:"line"`
	Complexity int    `json:"complexity"`
}

// Module returns the module (directory) the function belongs to.
func (c ComplexityStat) Module() string {
	return ModuleOfFile(c.File)
}

// AnalysisReport is the owned output of one orchestrated scan.
// HealthScore is nil when no category could be scored.
type AnalysisReport struct {
	SchemaVersion  string                     `json:"schema_version"`
	ID             string                     `json:"id"`
	ScanTimestamp  time.Time                  `json:"scan_timestamp"`
	TargetPath     string                     `json:"target_path"`
	Commit         string                     `json:"commit,omitempty"`
	FilesScanned   int                        `json:"files_scanned"`
	FilesByModule  map[string]int             `json:"files_by_module,omitempty"`
	Findings       []Finding                  `json:"findings"`
	CategoryCounts map[Category]int           `json:"category_counts"`
	CategoryScores map[Category]CategoryScore `json:"category_scores"`
	HealthScore    *float64                   `json:"health_score"`
	Degraded       bool                       `json:"degraded"`
	Notes          []string                   `json:"notes,omitempty"`
	Conflicts      []Conflict                 `json:"conflicts"`
	AgentRuns      []AgentRun                 `json:"agent_runs"`
	Complexity     []ComplexityStat           `json:"complexity,omitempty"`
}

// FindingsByCategory returns the findings of one category in report order.
func (r *AnalysisReport) FindingsByCategory(c Category) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// FindingByID returns the finding with the given id.
func (r *AnalysisReport) FindingByID(id string) (Finding, bool) {
	for _, f := range r.Findings {
		if f.ID == id {
			return f, true
		}
	}
	return Finding{}, false
}

// Modules returns the sorted set of modules that have at least one scanned file.
func (r *AnalysisReport) Modules() []string {
	mods := make([]string, 0, len(r.FilesByModule))
	for m := range r.FilesByModule {
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return mods
}

// ReportSummary is the metadata of a stored report without its findings.
type ReportSummary struct {
	ID            string    `json:"id"`
	ScanTimestamp time.Time `json:"scan_timestamp"`
	TargetPath    string    `json:"target_path"`
	HealthScore   *float64  `json:"health_score"`
	Degraded      bool      `json:"degraded"`
	FindingCount  int       `json:"finding_count"`
}

// Summary returns the metadata of the report.
func (r *AnalysisReport) Summary() ReportSummary {
	return ReportSummary{
		ID:            r.ID,
		ScanTimestamp: r.ScanTimestamp,
		TargetPath:    r.TargetPath,
		HealthScore:   r.HealthScore,
		Degraded:      r.Degraded,
		FindingCount:  len(r.Findings),
	}
}

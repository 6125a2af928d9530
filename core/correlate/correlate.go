// Package correlate is the correlation engine. Independent detectors look for patterns that link
// architecture findings with test health, and the engine ranks what fired into a teaching batch.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/huangsam/triad/schema"
)

// ErrMissingInput is returned by a detector whose required input is absent.
// The engine records such a detector as skipped, never as "no pattern".
var ErrMissingInput = errors.New("missing input")

// ErrUnknownPattern is returned when a pattern name is not registered.
var ErrUnknownPattern = errors.New("unknown pattern")

// Input holds the read-only reports a run correlates. Report and Coverage may be nil.
type Input struct {
	Report   *schema.AnalysisReport
	Profiles []schema.TestHealthProfile
	Coverage *schema.CoverageReport
}

// Detector finds one pattern. It must not modify its input and may return several detections, one per module group.
type Detector interface {
	Name() schema.PatternName
	Detect(ctx context.Context, in *Input, settings schema.CorrelationSettings) ([]schema.Detection, error)
}

// Registry maps pattern names to detectors in registration order.
type Registry struct {
	detectors map[schema.PatternName]Detector
	order     []schema.PatternName
}

// NewRegistry creates a registry holding the given detectors.
func NewRegistry(detectors ...Detector) *Registry {
	r := &Registry{detectors: make(map[schema.PatternName]Detector)}
	for _, d := range detectors {
		r.Register(d)
	}
	return r
}

// DefaultRegistry returns the five built-in detectors.
func DefaultRegistry() *Registry {
	return NewRegistry(
		diFlakyDetector{},
		complexityCoverageDetector{},
		securityTestGapDetector{},
		performanceSlowDetector{},
		moduleHealthDetector{},
	)
}

// Register adds or replaces a detector.
func (r *Registry) Register(d Detector) {
	if _, ok := r.detectors[d.Name()]; !ok {
		r.order = append(r.order, d.Name())
	}
	r.detectors[d.Name()] = d
}

// Get returns the detector registered under name.
func (r *Registry) Get(name schema.PatternName) (Detector, error) {
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	}
	return d, nil
}

// Names returns the registered pattern names in registration order.
func (r *Registry) Names() []schema.PatternName {
	return append([]schema.PatternName(nil), r.order...)
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector {
	out := make([]Detector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.detectors[name])
	}
	return out
}

// missing wraps ErrMissingInput with the name of the absent input.
func missing(what string) error {
	return fmt.Errorf("%w: %s", ErrMissingInput, what)
}

// agentCompleted reports whether the report holds a completed run of the agent.
// A report without run accounting is trusted as complete.
func agentCompleted(report *schema.AnalysisReport, id schema.AgentID) bool {
	if len(report.AgentRuns) == 0 {
		return true
	}
	for _, run := range report.AgentRuns {
		if run.Agent == id {
			return run.Status == schema.StatusCompleted
		}
	}
	return false
}

// profilesWithData drops profiles that have no recorded samples.
func profilesWithData(profiles []schema.TestHealthProfile) []schema.TestHealthProfile {
	var out []schema.TestHealthProfile
	for _, p := range profiles {
		if p.SampleSize > 0 {
			out = append(out, p)
		}
	}
	return out
}

// findingsByModule groups findings of one category by module, keeping report order within a module.
func findingsByModule(report *schema.AnalysisReport, category schema.Category) (map[string][]schema.Finding, []string) {
	groups := make(map[string][]schema.Finding)
	for _, f := range report.Findings {
		if f.Category != category {
			continue
		}
		groups[f.Module()] = append(groups[f.Module()], f)
	}
	return groups, sortedKeys(groups)
}

// profilesFor returns the profiles whose test module refers to the source module.
func profilesFor(module string, profiles []schema.TestHealthProfile) []schema.TestHealthProfile {
	var out []schema.TestHealthProfile
	for _, p := range profiles {
		if schema.ModulesMatch(p.Module, module) {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func findingEvidence(findings []schema.Finding) []schema.Evidence {
	out := make([]schema.Evidence, 0, len(findings))
	for _, f := range findings {
		out = append(out, schema.Evidence{Kind: schema.FindingEvidence, ID: f.ID})
	}
	return out
}

func testEvidence(profiles []schema.TestHealthProfile) []schema.Evidence {
	out := make([]schema.Evidence, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, schema.Evidence{Kind: schema.TestEvidence, ID: p.TestID})
	}
	return out
}

// jointConfidence maps the smaller of two normalized excesses to [0.5, 1).
// Both signals at their threshold give 0.5; both at double give 0.75.
func jointConfidence(a, b float64) float64 {
	joint := max(0, min(a, b))
	return round3(1 - 0.5/(1+joint))
}

// jointPriority tiers a detection by how far both signals exceed their thresholds together.
func jointPriority(a, b float64) schema.Priority {
	switch joint := min(a, b); {
	case joint >= 1:
		return schema.PriorityUrgent
	case joint >= 0.5:
		return schema.PriorityHigh
	default:
		return schema.PriorityMedium
	}
}

// excess is how far value exceeds threshold, relative to the threshold.
func excess(value, threshold float64) float64 {
	if threshold <= 0 {
		return value
	}
	return (value - threshold) / threshold
}

// Package arch is the architecture analyzer: six independent agents run over one source snapshot,
// and the orchestrator merges their findings into an AnalysisReport.
package arch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/huangsam/triad/schema"
)

// ErrUnknownAgent is returned when an agent id is not registered.
var ErrUnknownAgent = errors.New("unknown agent")

// Agent analyzes a snapshot and returns its findings in discovery order.
// The orchestrator fills in ID, Agent and Category.
type Agent interface {
	ID() schema.AgentID
	Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error)
}

// Registry maps agent ids to agents.
type Registry struct {
	agents map[schema.AgentID]Agent
	order  []schema.AgentID
}

// NewRegistry creates a registry holding the given agents.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[schema.AgentID]Agent)}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns the six built-in agents configured from settings.
func DefaultRegistry(settings schema.AnalyzerSettings) *Registry {
	return NewRegistry(
		NewDIAgent(),
		NewSecurityAgent(),
		NewUXAgent(settings.UXRuleset),
		NewFileOrgAgent(settings.TestRoot, settings.MaxComponentsPerFile, settings.StaleAfter),
		NewPerformanceAgent(settings.MaxLoopDepth, settings.RepeatedCallMin),
		NewDocumentationAgent(settings.ReadmeSections),
	)
}

// Register adds or replaces an agent.
func (r *Registry) Register(a Agent) {
	if _, ok := r.agents[a.ID()]; !ok {
		r.order = append(r.order, a.ID())
	}
	r.agents[a.ID()] = a
}

// Get returns the agent registered under id.
func (r *Registry) Get(id schema.AgentID) (Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return a, nil
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []schema.AgentID {
	return append([]schema.AgentID(nil), r.order...)
}

// Helpers shared by the line-based agents.

var (
	testFileRe = regexp.MustCompile(`(^test_.*\.py$|_test\.(py|go)$|\.(test|spec)\.(js|jsx|ts|tsx|mjs)$|Tests?\.(java|cs|kt)$)`)
	docExts    = map[string]bool{".md": true, ".rst": true, ".txt": true, ".adoc": true}
)

// sourceExts are the extensions treated as program source.
var sourceExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".java": true, ".kt": true, ".cs": true, ".rb": true, ".php": true, ".scala": true, ".rs": true,
}

func isSource(f *SourceFile) bool {
	return sourceExts[f.Ext()]
}

func isTestFile(f *SourceFile) bool {
	if testFileRe.MatchString(f.Base()) {
		return true
	}
	for _, seg := range strings.Split(path.Dir(f.Path), "/") {
		if seg == "__tests__" {
			return true
		}
	}
	return false
}

// isComment reports whether a trimmed line is a whole-line comment in common languages.
func isComment(trimmed string) bool {
	for _, p := range []string{"//", "#", "/*", "*", "<!--", "--"} {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// codeLines calls fn for each non-blank, non-comment line with its 1-based number.
// It stops early when ctx is done.
func codeLines(ctx context.Context, f *SourceFile, fn func(n int, line string)) error {
	for i, line := range f.Lines() {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		fn(i+1, line)
	}
	return nil
}

func remediation(action schema.RemediationAction, description, example string) *schema.Remediation {
	return &schema.Remediation{Action: action, Description: description, Example: example}
}

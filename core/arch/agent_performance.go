package arch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/triad/schema"
)

var (
	pyLoopRe    = regexp.MustCompile(`^\s*(?:async\s+)?(?:for|while)\b.*:\s*(?:#.*)?$`)
	braceLoopRe = regexp.MustCompile(`^\s*(?:\}\s*)?(?:for|while|do)\b|\.forEach\(|\bfor\s+range\b`)

	dataAccessRe = regexp.MustCompile(`(?i)\.(?:query|queryrow|querycontext|queryrowcontext|execute|executemany|exec|execcontext|findone|findbyid|find_by_id|get_by_id|fetchone|fetchall|fetch|raw)\s*\(|\bobjects\.(?:get|filter)\s*\(|\bawait\s+fetch\s*\(|\b(?:requests|axios|http)\.(?:get|post|Get|Post)\s*\(`)

	expensiveCallRe = regexp.MustCompile(`\b((?:[A-Za-z_]\w*\.)*(?:load|fetch|read|query|compute|calculate|parse|download|request|open|Load|Fetch|Read|Query|Compute|Calculate|Parse|Download|Open)\w*)\(([^()]*)\)`)
)

// PerformanceAgent detects N+1 data access, deep loop nesting and repeated expensive calls.
type PerformanceAgent struct {
	maxDepth  int
	repeatMin int
}

// NewPerformanceAgent creates the performance agent.
func NewPerformanceAgent(maxLoopDepth, repeatedCallMin int) *PerformanceAgent {
	if maxLoopDepth <= 0 {
		maxLoopDepth = schema.DefaultMaxLoopDepth
	}
	if repeatedCallMin <= 1 {
		repeatedCallMin = schema.DefaultRepeatedCallMin
	}
	return &PerformanceAgent{maxDepth: maxLoopDepth, repeatMin: repeatedCallMin}
}

// ID implements Agent.
func (a *PerformanceAgent) ID() schema.AgentID {
	return schema.PerformanceAgent
}

// Analyze implements Agent.
func (a *PerformanceAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	var findings []schema.Finding
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isSource(f) || isTestFile(f) {
			continue
		}
		findings = append(findings, a.checkLoops(f)...)
		findings = append(findings, a.checkRepeatedCalls(f)...)
	}
	return findings, nil
}

// loopFrame is one open loop: for Python its header indentation, otherwise the brace depth of its body.
type loopFrame struct {
	level     int
	reported  bool
	headerRow int
}

// checkLoops tracks loop nesting per line with indentation for Python and braces elsewhere.
func (a *PerformanceAgent) checkLoops(f *SourceFile) []schema.Finding {
	var findings []schema.Finding
	var stack []*loopFrame
	python := f.Ext() == ".py"
	depth := 0

	for i, line := range f.Lines() {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if python {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			for len(stack) > 0 && indent <= stack[len(stack)-1].level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 {
				findings = a.checkDataAccess(findings, f, n, line, stack)
			}
			if pyLoopRe.MatchString(line) {
				stack = append(stack, &loopFrame{level: indent, headerRow: n})
				findings = a.checkDepth(findings, f, n, stack)
			}
			continue
		}

		if len(stack) > 0 {
			findings = a.checkDataAccess(findings, f, n, line, stack)
		}
		opens := strings.Count(line, "{")
		closes := strings.Count(line, "}")
		isLoop := braceLoopRe.MatchString(line) && opens > closes
		depth += opens - closes
		for len(stack) > 0 && depth < stack[len(stack)-1].level {
			stack = stack[:len(stack)-1]
		}
		if isLoop {
			stack = append(stack, &loopFrame{level: depth, headerRow: n})
			findings = a.checkDepth(findings, f, n, stack)
		}
	}
	return findings
}

func (a *PerformanceAgent) checkDataAccess(findings []schema.Finding, f *SourceFile, n int, line string, stack []*loopFrame) []schema.Finding {
	if !dataAccessRe.MatchString(line) {
		return findings
	}
	inner := stack[len(stack)-1]
	if inner.reported {
		return findings
	}
	inner.reported = true
	return append(findings, schema.Finding{
		Rule:     "n-plus-one",
		Severity: schema.SeverityHigh,
		File:     f.Path,
		Line:     n,
		Message:  fmt.Sprintf("Data access inside the loop starting at line %d runs once per iteration", inner.headerRow),
		Remediation: remediation(schema.ActionBatchQuery,
			"Load all rows with one batched query before the loop.",
			"SELECT * FROM orders WHERE user_id IN (...)"),
		Confidence: 0.7,
	})
}

func (a *PerformanceAgent) checkDepth(findings []schema.Finding, f *SourceFile, n int, stack []*loopFrame) []schema.Finding {
	if len(stack) != a.maxDepth+1 {
		return findings
	}
	return append(findings, schema.Finding{
		Rule:     "deep-nesting",
		Severity: schema.SeverityMedium,
		File:     f.Path,
		Line:     n,
		Message:  fmt.Sprintf("Loops are nested %d levels deep (limit %d)", len(stack), a.maxDepth),
		Remediation: remediation(schema.ActionExtractFunction,
			"Extract the inner loops into a function or index the data to avoid nested scans.", ""),
		Confidence: 0.8,
	})
}

// checkRepeatedCalls flags identical expensive calls repeated within one file.
func (a *PerformanceAgent) checkRepeatedCalls(f *SourceFile) []schema.Finding {
	type callSite struct {
		first int
		count int
	}
	calls := make(map[string]*callSite)
	var order []string

	for i, line := range f.Lines() {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) || strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "func ") {
			continue
		}
		for _, m := range expensiveCallRe.FindAllStringSubmatch(line, -1) {
			key := m[1] + "(" + strings.Join(strings.Fields(m[2]), " ") + ")"
			site, ok := calls[key]
			if !ok {
				site = &callSite{first: i + 1}
				calls[key] = site
				order = append(order, key)
			}
			site.count++
		}
	}

	var findings []schema.Finding
	for _, key := range order {
		site := calls[key]
		if site.count < a.repeatMin {
			continue
		}
		findings = append(findings, schema.Finding{
			Rule:     "repeated-expensive-call",
			Severity: schema.SeverityLow,
			File:     f.Path,
			Line:     site.first,
			Message:  fmt.Sprintf("%s is called %d times with the same arguments", key, site.count),
			Remediation: remediation(schema.ActionAddCache,
				"Compute the value once and reuse it, or memoize the call.", ""),
			Confidence: 0.6,
		})
	}
	return findings
}

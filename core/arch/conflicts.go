package arch

import (
	"fmt"

	"github.com/huangsam/triad/schema"
)

type actionPair struct {
	a, b schema.RemediationAction
}

// opposingActions lists remediation pairs that cannot both be applied to the same line.
// Pairs not listed here are left to human judgment and never reported.
var opposingActions = map[actionPair]string{
	{schema.ActionAddCache, schema.ActionRemoveGlobalState}: "the proposed cache is shared state that the other remediation removes",
	{schema.ActionAddCache, schema.ActionInjectDependency}:  "caching the call keeps the concrete dependency that injection replaces",
}

func opposingReason(x, y schema.RemediationAction) (string, bool) {
	if reason, ok := opposingActions[actionPair{x, y}]; ok {
		return reason, true
	}
	reason, ok := opposingActions[actionPair{y, x}]
	return reason, ok
}

// DetectConflicts pairs findings whose remediations contradict each other.
// Two findings conflict when they target the same file and line with opposing actions,
// or when one removes a file that the other edits.
func DetectConflicts(findings []schema.Finding) []schema.Conflict {
	byFile := make(map[string][]int)
	var files []string
	for i, f := range findings {
		if f.Remediation == nil || f.File == "" {
			continue
		}
		if _, ok := byFile[f.File]; !ok {
			files = append(files, f.File)
		}
		byFile[f.File] = append(byFile[f.File], i)
	}

	conflicts := []schema.Conflict{}
	for _, file := range files {
		idx := byFile[file]
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				a, b := findings[idx[x]], findings[idx[y]]
				if a.Agent == b.Agent {
					continue
				}
				if c, ok := conflictBetween(a, b); ok {
					conflicts = append(conflicts, c)
				}
			}
		}
	}
	return conflicts
}

func conflictBetween(a, b schema.Finding) (schema.Conflict, bool) {
	actA, actB := a.Remediation.Action, b.Remediation.Action
	c := schema.Conflict{FindingA: a.ID, FindingB: b.ID, File: a.File, ActionA: actA, ActionB: actB}

	removesA, removesB := actA == schema.ActionRemoveFile, actB == schema.ActionRemoveFile
	if removesA != removesB {
		other := actB
		if removesB {
			other = actA
		}
		c.Reason = fmt.Sprintf("removing %s discards the %s change proposed for it", a.File, other)
		return c, true
	}

	if a.Line == 0 || a.Line != b.Line {
		return schema.Conflict{}, false
	}
	reason, ok := opposingReason(actA, actB)
	if !ok {
		return schema.Conflict{}, false
	}
	c.Line = a.Line
	c.Reason = reason
	return c, true
}

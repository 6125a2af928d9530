package arch

import (
	"context"
	"go/parser"
	"go/token"
	"sort"

	"github.com/fzipp/gocyclo"
	"github.com/huangsam/triad/schema"
)

// ComputeComplexity returns the cyclomatic complexity of every function in the Go files of a snapshot.
// Test files and files that fail to parse are skipped.
func ComputeComplexity(ctx context.Context, snap *Snapshot) ([]schema.ComplexityStat, error) {
	fset := token.NewFileSet()
	var stats gocyclo.Stats
	for _, f := range snap.FilesWithExt(".go") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isTestFile(f) {
			continue
		}
		parsed, err := parser.ParseFile(fset, f.Path, f.Content, 0)
		if err != nil {
			continue
		}
		stats = gocyclo.AnalyzeASTFile(parsed, fset, stats)
	}

	out := make([]schema.ComplexityStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, schema.ComplexityStat{
			File:       s.Pos.Filename,
			Function:   s.FuncName,
			Line:       s.Pos.Line,
			Complexity: s.Complexity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out, nil
}

// ModuleComplexity returns the highest function complexity per module.
func ModuleComplexity(stats []schema.ComplexityStat) map[string]int {
	out := make(map[string]int)
	for _, s := range stats {
		if m := s.Module(); s.Complexity > out[m] {
			out[m] = s.Complexity
		}
	}
	return out
}

package testintel

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huangsam/triad/schema"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"
)

// FuncCoverage is the statement coverage of one function.
type FuncCoverage struct {
	File       string
	Function   string // e.g. "Save" or "(*Store).Save"
	StartLine  int
	EndLine    int
	Statements int
	Covered    int
	Percent    float64
}

// Coverage is a cover profile resolved against a module directory.
type Coverage struct {
	Files []schema.FileCoverage
	Funcs []FuncCoverage
}

// LoadCoverProfile parses a Go cover profile. File names are made relative to moduleDir
// using the module path from its go.mod; functions are found by parsing the sources when present.
func LoadCoverProfile(profilePath, moduleDir string) (*Coverage, error) {
	profiles, err := cover.ParseProfiles(profilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cover profile: %w", err)
	}
	if moduleDir == "" {
		moduleDir = "."
	}
	modulePath := readModulePath(moduleDir)

	cov := &Coverage{Files: []schema.FileCoverage{}, Funcs: []FuncCoverage{}}
	for _, p := range profiles {
		rel := relativeName(p.FileName, modulePath, moduleDir)

		fc := schema.FileCoverage{File: rel}
		for _, b := range p.Blocks {
			fc.Statements += b.NumStmt
			if b.Count > 0 {
				fc.Covered += b.NumStmt
			}
		}
		fc.Percent = percent(fc.Covered, fc.Statements)
		cov.Files = append(cov.Files, fc)

		funcs, err := findFunctions(filepath.Join(moduleDir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		for _, fn := range funcs {
			covered, total := funcCoverage(fn, p)
			cov.Funcs = append(cov.Funcs, FuncCoverage{
				File:       rel,
				Function:   fn.name,
				StartLine:  fn.startLine,
				EndLine:    fn.endLine,
				Statements: total,
				Covered:    covered,
				Percent:    percent(covered, total),
			})
		}
	}

	sort.Slice(cov.Files, func(i, j int) bool { return cov.Files[i].File < cov.Files[j].File })
	sort.SliceStable(cov.Funcs, func(i, j int) bool {
		if cov.Funcs[i].File != cov.Funcs[j].File {
			return cov.Funcs[i].File < cov.Funcs[j].File
		}
		return cov.Funcs[i].StartLine < cov.Funcs[j].StartLine
	})
	return cov, nil
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(covered) / float64(total)
}

// readModulePath returns the module path declared in dir/go.mod, or "".
func readModulePath(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

// relativeName maps an import-path file name from a profile to a slash path relative to the module.
func relativeName(name, modulePath, moduleDir string) string {
	if filepath.IsAbs(name) {
		if abs, err := filepath.Abs(moduleDir); err == nil {
			if rel, err := filepath.Rel(abs, name); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
		return filepath.ToSlash(name)
	}
	if modulePath != "" && strings.HasPrefix(name, modulePath+"/") {
		return strings.TrimPrefix(name, modulePath+"/")
	}
	return name
}

type funcExtent struct {
	name      string
	startLine int
	startCol  int
	endLine   int
	endCol    int
}

func findFunctions(path string) ([]funcExtent, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	var funcs []funcExtent
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		start, end := fset.Position(fn.Pos()), fset.Position(fn.End())
		name := fn.Name.Name
		if fn.Recv != nil && fn.Recv.NumFields() > 0 {
			name = "(" + recvType(fn.Recv.List[0].Type) + ")." + name
		}
		funcs = append(funcs, funcExtent{name: name, startLine: start.Line, startCol: start.Column, endLine: end.Line, endCol: end.Column})
	}
	return funcs, nil
}

func recvType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "*" + recvType(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return recvType(t.X)
	case *ast.IndexListExpr:
		return recvType(t.X)
	default:
		return "?"
	}
}

// funcCoverage sums the profile blocks that overlap a function.
func funcCoverage(fn funcExtent, p *cover.Profile) (covered, total int) {
	for _, b := range p.Blocks {
		if b.StartLine > fn.endLine || (b.StartLine == fn.endLine && b.StartCol >= fn.endCol) {
			break
		}
		if b.EndLine < fn.startLine || (b.EndLine == fn.startLine && b.EndCol <= fn.startCol) {
			continue
		}
		total += b.NumStmt
		if b.Count > 0 {
			covered += b.NumStmt
		}
	}
	return covered, total
}

// FileGapID is the evidence id of a file-level coverage gap.
func FileGapID(file string) string { return "coverage:" + file }

// FuncGapID is the evidence id of a function-level coverage gap.
func FuncGapID(file, function string) string { return "coverage:" + file + "#" + function }

// FindCoverageGaps reports files and functions below the target and links the findings located in them.
func FindCoverageGaps(cov *Coverage, target float64, findings []schema.Finding) *schema.CoverageReport {
	report := &schema.CoverageReport{Target: target, Files: cov.Files, Gaps: []schema.CoverageGap{}}
	if report.Files == nil {
		report.Files = []schema.FileCoverage{}
	}

	byFile := make(map[string][]schema.Finding)
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}

	for _, fc := range cov.Files {
		if fc.Statements == 0 || fc.Percent >= target {
			continue
		}
		gap := schema.CoverageGap{ID: FileGapID(fc.File), File: fc.File, Coverage: round1(fc.Percent), Target: target}
		for _, f := range byFile[fc.File] {
			gap.Findings = append(gap.Findings, f.ID)
		}
		report.Gaps = append(report.Gaps, gap)
	}

	for _, fn := range cov.Funcs {
		if fn.Statements == 0 || fn.Percent >= target {
			continue
		}
		gap := schema.CoverageGap{
			ID:        FuncGapID(fn.File, fn.Function),
			File:      fn.File,
			Function:  fn.Function,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Coverage:  round1(fn.Percent),
			Target:    target,
		}
		for _, f := range byFile[fn.File] {
			if f.Line >= fn.StartLine && f.Line <= fn.EndLine {
				gap.Findings = append(gap.Findings, f.ID)
			}
		}
		report.Gaps = append(report.Gaps, gap)
	}

	sort.SliceStable(report.Gaps, func(i, j int) bool {
		if report.Gaps[i].File != report.Gaps[j].File {
			return report.Gaps[i].File < report.Gaps[j].File
		}
		return report.Gaps[i].StartLine < report.Gaps[j].StartLine
	})
	return report
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

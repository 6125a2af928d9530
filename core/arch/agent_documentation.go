package arch

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/huangsam/triad/schema"
)

var (
	readmeRe      = regexp.MustCompile(`(?i)^readme(\.(md|rst|txt|adoc))?$`)
	mdHeadingRe   = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.+?)\s*#*\s*$`)
	underlineRe   = regexp.MustCompile(`^\s*(=+|-+|~+)\s*$`)
	pyPublicDefRe = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z]\w*)\s*\(`)
	pyDocstringRe = regexp.MustCompile(`^\s*[rRuUbB]?("""|''')`)
	pyClassRe     = regexp.MustCompile(`^class\s+\w+`)
)

// publicDeclRes match public function declarations in languages documented with /** */ or /// blocks.
var publicDeclRes = map[string]*regexp.Regexp{
	".js":   jsExportRe,
	".jsx":  jsExportRe,
	".mjs":  jsExportRe,
	".ts":   jsExportRe,
	".tsx":  jsExportRe,
	".java": publicMethodRe,
	".cs":   publicMethodRe,
	".kt":   regexp.MustCompile(`^\s*(?:public\s+)?(?:(?:suspend|inline|override|open)\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?(\w+)\s*\(`),
	".rs":   regexp.MustCompile(`^\s*pub\s+(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`),
	".php":  regexp.MustCompile(`^\s*public\s+(?:static\s+)?function\s+(\w+)`),
}

var (
	jsExportRe     = regexp.MustCompile(`^export\s+(?:default\s+)?(?:async\s+)?function\*?\s+([A-Za-z_$][\w$]*)|^export\s+const\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::[^=]*)?=>`)
	publicMethodRe = regexp.MustCompile(`^\s*public\s+(?:(?:static|final|abstract|synchronized|override|virtual|async|sealed)\s+)*[\w<>\[\],.?]+\s+(\w+)\s*\(`)
)

// DocumentationAgent checks README completeness and module and function documentation.
type DocumentationAgent struct {
	sections []string
}

// NewDocumentationAgent creates the documentation agent with the README sections that must be present.
func NewDocumentationAgent(sections []string) *DocumentationAgent {
	return &DocumentationAgent{sections: sections}
}

// ID implements Agent.
func (a *DocumentationAgent) ID() schema.AgentID {
	return schema.DocumentationAgent
}

// Analyze implements Agent.
func (a *DocumentationAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	findings := a.checkReadme(snap)

	goPackages := make(map[string][]*SourceFile)
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isTestFile(f) {
			continue
		}
		switch f.Ext() {
		case ".go":
			goPackages[f.Module()] = append(goPackages[f.Module()], f)
		case ".py":
			findings = append(findings, checkPythonDocs(f)...)
		default:
			if re, ok := publicDeclRes[f.Ext()]; ok {
				findings = append(findings, checkBlockDocs(f, re)...)
			}
		}
	}

	dirs := make([]string, 0, len(goPackages))
	for dir := range goPackages {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		findings = append(findings, checkGoPackageDocs(goPackages[dir])...)
	}
	return findings, nil
}

// checkReadme requires a README at the root with every configured section heading.
func (a *DocumentationAgent) checkReadme(snap *Snapshot) []schema.Finding {
	var readme *SourceFile
	for _, f := range snap.Files {
		if !strings.Contains(f.Path, "/") && readmeRe.MatchString(f.Base()) {
			readme = f
			break
		}
	}
	if readme == nil {
		return []schema.Finding{{
			Rule:     "missing-readme",
			Severity: schema.SeverityMedium,
			File:     "README.md",
			Message:  "Project has no README",
			Remediation: remediation(schema.ActionAddDocumentation,
				"Add a README that explains what the project does and how to use it.",
				"# Project\n\n## Installation\n\n## Usage\n\n## License"),
			Confidence: 1,
		}}
	}

	headings := readmeHeadings(readme.Lines())
	var findings []schema.Finding
	for _, section := range a.sections {
		want := strings.ToLower(strings.TrimSpace(section))
		if want == "" || hasHeading(headings, want) {
			continue
		}
		findings = append(findings, schema.Finding{
			Rule:     "readme-missing-section",
			Severity: schema.SeverityLow,
			File:     readme.Path,
			Message:  fmt.Sprintf("README has no %q section", section),
			Remediation: remediation(schema.ActionAddDocumentation,
				fmt.Sprintf("Add a %q section to the README.", section), "## "+section),
			Confidence: 0.9,
		})
	}
	return findings
}

func readmeHeadings(lines []string) []string {
	var headings []string
	for i, line := range lines {
		if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
			headings = append(headings, strings.ToLower(m[1]))
			continue
		}
		if i > 0 && underlineRe.MatchString(line) && strings.TrimSpace(lines[i-1]) != "" {
			headings = append(headings, strings.ToLower(strings.TrimSpace(lines[i-1])))
		}
	}
	return headings
}

func hasHeading(headings []string, want string) bool {
	for _, h := range headings {
		if strings.Contains(h, want) {
			return true
		}
	}
	return false
}

// checkGoPackageDocs parses the files of one package for a package comment and exported declaration docs.
func checkGoPackageDocs(files []*SourceFile) []schema.Finding {
	var findings []schema.Finding
	fset := token.NewFileSet()
	hasPackageDoc := false
	var first *SourceFile
	var firstLine int
	var packageName string

	for _, f := range files {
		parsed, err := parser.ParseFile(fset, f.Path, f.Content, parser.ParseComments)
		if err != nil {
			continue
		}
		if packageName == "" {
			first, packageName = f, parsed.Name.Name
			firstLine = fset.Position(parsed.Package).Line
		}
		if parsed.Doc != nil && strings.TrimSpace(parsed.Doc.Text()) != "" {
			hasPackageDoc = true
		}
		findings = append(findings, undocumentedGoFuncs(fset, f.Path, parsed)...)
	}

	if first != nil && !hasPackageDoc && packageName != "main" {
		findings = append([]schema.Finding{{
			Rule:     "missing-module-doc",
			Severity: schema.SeverityLow,
			File:     first.Path,
			Line:     firstLine,
			Message:  fmt.Sprintf("Package %s has no package comment", packageName),
			Remediation: remediation(schema.ActionAddDocumentation,
				"Add a package comment describing what the package provides.",
				fmt.Sprintf("// Package %s ...\npackage %s", packageName, packageName)),
			Confidence: 0.95,
		}}, findings...)
	}
	return findings
}

func undocumentedGoFuncs(fset *token.FileSet, file string, parsed *ast.File) []schema.Finding {
	var findings []schema.Finding
	for _, decl := range parsed.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !fn.Name.IsExported() || fn.Doc != nil {
			continue
		}
		name := fn.Name.Name
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			recv := receiverName(fn.Recv.List[0].Type)
			if recv == "" || !ast.IsExported(recv) {
				continue
			}
			name = recv + "." + name
		}
		findings = append(findings, schema.Finding{
			Rule:     "missing-function-doc",
			Severity: schema.SeverityLow,
			File:     file,
			Line:     fset.Position(fn.Pos()).Line,
			Message:  fmt.Sprintf("Exported function %s has no doc comment", name),
			Remediation: remediation(schema.ActionAddDocumentation,
				"Add a doc comment that starts with the function name.",
				fmt.Sprintf("// %s ...", fn.Name.Name)),
			Confidence: 0.9,
		})
	}
	return findings
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	default:
		return ""
	}
}

// checkPythonDocs requires a module docstring and docstrings on public top-level and class-level functions.
func checkPythonDocs(f *SourceFile) []schema.Finding {
	lines := f.Lines()
	var findings []schema.Finding

	firstCode := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		firstCode = i
		break
	}
	if firstCode < 0 {
		return nil
	}
	if path.Base(f.Path) != "__init__.py" && !pyDocstringRe.MatchString(lines[firstCode]) {
		findings = append(findings, schema.Finding{
			Rule:     "missing-module-doc",
			Severity: schema.SeverityLow,
			File:     f.Path,
			Line:     firstCode + 1,
			Message:  "Module has no docstring",
			Remediation: remediation(schema.ActionAddDocumentation,
				"Start the module with a docstring describing its purpose.", `"""Order processing helpers."""`),
			Confidence: 0.8,
		})
	}

	inClass := false
	for i, line := range lines {
		if pyClassRe.MatchString(line) {
			inClass = true
			continue
		}
		m := pyPublicDefRe.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, "@") {
				inClass = false
			}
			continue
		}
		indent := len(m[1])
		if indent > 0 && !(inClass && indent <= 4) {
			continue
		}
		if !pyHasDocstring(lines, i) {
			findings = append(findings, schema.Finding{
				Rule:     "missing-function-doc",
				Severity: schema.SeverityLow,
				File:     f.Path,
				Line:     i + 1,
				Message:  fmt.Sprintf("Public function %s has no docstring", m[2]),
				Remediation: remediation(schema.ActionAddDocumentation,
					"Add a docstring describing arguments and return value.", ""),
				Confidence: 0.75,
			})
		}
	}
	return findings
}

// pyHasDocstring looks for a docstring after the signature, which may span several lines.
func pyHasDocstring(lines []string, def int) bool {
	i := def
	for i < len(lines) && !strings.HasSuffix(strings.TrimSpace(stripPyComment(lines[i])), ":") {
		i++
	}
	for i++; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return pyDocstringRe.MatchString(lines[i])
	}
	return false
}

func stripPyComment(line string) string {
	if idx := strings.Index(line, "  #"); idx >= 0 {
		return line[:idx]
	}
	return line
}

// checkBlockDocs requires a /** */ or /// doc block directly above every public declaration.
// Annotation and attribute lines between the block and the declaration are skipped.
func checkBlockDocs(f *SourceFile, declRe *regexp.Regexp) []schema.Finding {
	lines := f.Lines()
	var findings []schema.Finding
	for i, line := range lines {
		m := declRe.FindStringSubmatch(line)
		if m == nil || hasBlockDoc(lines, i) {
			continue
		}
		name := ""
		for _, g := range m[1:] {
			if g != "" {
				name = g
				break
			}
		}
		findings = append(findings, schema.Finding{
			Rule:     "missing-function-doc",
			Severity: schema.SeverityLow,
			File:     f.Path,
			Line:     i + 1,
			Message:  fmt.Sprintf("Public function %s has no doc comment", name),
			Remediation: remediation(schema.ActionAddDocumentation,
				"Add a doc block describing parameters and return value.", "/** ... */"),
			Confidence: 0.7,
		})
	}
	return findings
}

func hasBlockDoc(lines []string, decl int) bool {
	for i := decl - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, "///"):
			return true
		case strings.HasPrefix(trimmed, "@"), strings.HasPrefix(trimmed, "#["), strings.HasPrefix(trimmed, "["):
			continue
		case strings.HasSuffix(trimmed, "*/"):
			for j := i; j >= 0; j-- {
				if start := strings.TrimSpace(lines[j]); strings.HasPrefix(start, "/*") {
					return strings.HasPrefix(start, "/**")
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

package arch

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/huangsam/triad/schema"
)

// SecretFixer replaces a hardcoded credential with an environment lookup.
type SecretFixer struct{}

// CanFix implements Fixer.
func (s *SecretFixer) CanFix(f schema.Finding) bool {
	if f.Rule != "hardcoded-secret" || f.Line <= 0 {
		return false
	}
	switch path.Ext(f.File) {
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return true
	}
	return false
}

// Propose implements Fixer. There is a single strategy, so attempts after the first fail.
func (s *SecretFixer) Propose(f schema.Finding, content []byte, attempt int) (Patch, error) {
	if attempt > 1 {
		return Patch{}, errors.New("no alternative fix for hardcoded secret")
	}
	lines := strings.Split(string(content), "\n")
	if f.Line > len(lines) {
		return Patch{}, fmt.Errorf("line %d is past the end of %s", f.Line, f.File)
	}
	line := lines[f.Line-1]
	m := namedSecretRe.FindStringSubmatchIndex(line)
	if m == nil {
		return Patch{}, fmt.Errorf("no named credential on %s:%d", f.File, f.Line)
	}
	name := line[m[2]:m[3]]
	env := envName(name)
	start, end := m[4]-1, m[5]+1 // include the quotes

	var lookup string
	switch path.Ext(f.File) {
	case ".go":
		lookup = fmt.Sprintf("os.Getenv(%q)", env)
	case ".py":
		if start > 0 && strings.ContainsRune("rbf", rune(line[start-1])) {
			start--
		}
		lookup = fmt.Sprintf("os.environ.get(%q, \"\")", env)
	default:
		lookup = "process.env." + env
	}
	lines[f.Line-1] = line[:start] + lookup + line[end:]

	patch := Patch{
		TargetLine:  f.Line,
		Description: fmt.Sprintf("read %s from environment variable %s", name, env),
	}
	var err error
	switch path.Ext(f.File) {
	case ".go":
		lines, patch.TargetLine, err = goEnvPatch(content, lines, f.Line)
	case ".py":
		lines, patch.TargetLine = pyEnvPatch(lines, f.Line)
	}
	if err != nil {
		return Patch{}, err
	}
	patch.Content = []byte(strings.Join(lines, "\n"))
	return patch, nil
}

// goEnvPatch turns a const credential into a var and makes sure the file imports os.
func goEnvPatch(original []byte, lines []string, target int) ([]string, int, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", original, parser.SkipObjectResolution)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot parse Go source: %w", err)
	}

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		first, last := fset.Position(gen.Pos()).Line, fset.Position(gen.End()).Line
		if target < first || target > last {
			continue
		}
		if gen.Lparen.IsValid() && len(gen.Specs) > 1 {
			return nil, 0, errors.New("credential is declared in a const block")
		}
		pos := fset.Position(gen.TokPos)
		l := lines[pos.Line-1]
		lines[pos.Line-1] = l[:pos.Column-1] + "var" + l[pos.Column-1+len("const"):]
	}

	for _, imp := range file.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if p == "os" && (imp.Name == nil || imp.Name.Name == "os") {
			return lines, target, nil
		}
	}
	pkgLine := fset.Position(file.Package).Line
	lines = insertLines(lines, pkgLine, "", `import "os"`)
	return lines, target + 2, nil
}

// pyEnvPatch adds "import os" before the first import, or at the top of the module.
func pyEnvPatch(lines []string, target int) ([]string, int) {
	at := -1
	for i, l := range lines {
		if l == "import os" || strings.HasPrefix(l, "import os,") || strings.HasPrefix(l, "import os ") {
			return lines, target
		}
		if at < 0 && (strings.HasPrefix(l, "import ") || strings.HasPrefix(l, "from ")) {
			at = i
		}
	}
	if at < 0 {
		at = 0
		if len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
			at = 1
		}
	}
	lines = insertLines(lines, at, "import os")
	if at < target {
		target++
	}
	return lines, target
}

// insertLines inserts extra after the first at lines.
func insertLines(lines []string, at int, extra ...string) []string {
	out := make([]string, 0, len(lines)+len(extra))
	out = append(out, lines[:at]...)
	out = append(out, extra...)
	return append(out, lines[at:]...)
}

// envName converts dbPassword or db.password to DB_PASSWORD.
func envName(name string) string {
	var buf bytes.Buffer
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				buf.WriteByte('_')
			}
			buf.WriteRune(r)
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			buf.WriteRune(unicode.ToUpper(r))
			prevLower = true
		default:
			if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("_")) {
				buf.WriteByte('_')
			}
			prevLower = false
		}
	}
	return strings.Trim(buf.String(), "_")
}

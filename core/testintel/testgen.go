package testintel

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// ErrUnsupportedLanguage is returned when no skeleton template exists for a file type.
var ErrUnsupportedLanguage = errors.New("no test template for this language")

var goTestTemplate = template.Must(template.New("go").Parse(`// DRAFT: synthesized for coverage gap {{.GapID}}.
// It is not guaranteed to compile or pass; review it before relying on it.

package {{.Package}}

import "testing"

func Test{{.TestName}}(t *testing.T) {
	t.Skip("DRAFT: exercise {{.Target}} ({{printf "%.1f" .Coverage}}% covered, target {{printf "%.0f" .Goal}}%)")

	tests := []struct {
		name string
	}{
		{name: "happy path"},
		{name: "error path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// TODO: call {{.Target}} and assert on its results.
		})
	}
}
`))

var pyTestTemplate = template.Must(template.New("py").Parse(`# DRAFT: synthesized for coverage gap {{.GapID}}.
# It is not guaranteed to pass; review it before relying on it.
import pytest

{{if .Function}}from {{.Import}} import {{.Function}}
{{else}}import {{.Import}}
{{end}}

@pytest.mark.skip(reason="DRAFT: exercise {{.Target}} ({{printf "%.1f" .Coverage}}% covered)")
@pytest.mark.parametrize("case", ["happy path", "error path"])
def test_{{.TestName}}(case):
    # TODO: call {{.Target}} and assert on its results.
    ...
`))

type skeletonData struct {
	GapID    string
	Package  string
	Import   string
	Function string
	Target   string
	TestName string
	Coverage float64
	Goal     float64
}

// GenerateSkeleton synthesizes a draft test for a coverage gap. root is used to read the package name of Go sources.
// The draft is always marked as synthesized and is never written by this function.
func GenerateSkeleton(gap schema.CoverageGap, root string) (*schema.TestDraft, error) {
	data := skeletonData{GapID: gap.ID, Coverage: gap.Coverage, Goal: gap.Target}
	fn := funcBaseName(gap.Function)
	data.Target = gap.File
	if gap.Function != "" {
		data.Target = gap.Function
	}

	draft := &schema.TestDraft{GapID: gap.ID, Synthesized: true, Note: "DRAFT: review before use"}
	var tmpl *template.Template

	switch path.Ext(gap.File) {
	case ".go":
		draft.Language = "go"
		draft.Path = strings.TrimSuffix(gap.File, ".go") + "_draft_test.go"
		data.Package = goPackageName(filepath.Join(root, filepath.FromSlash(gap.File)), gap.File)
		data.TestName = exportedName(fn, path.Base(strings.TrimSuffix(gap.File, ".go")))
		tmpl = goTestTemplate
	case ".py":
		draft.Language = "python"
		base := strings.TrimSuffix(path.Base(gap.File), ".py")
		draft.Path = path.Join("tests", path.Dir(gap.File), "test_"+base+"_draft.py")
		data.Import = strings.ReplaceAll(strings.TrimSuffix(gap.File, ".py"), "/", ".")
		data.Function = fn
		data.TestName = snakeName(fn, base)
		tmpl = pyTestTemplate
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, gap.File)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render draft for %s: %w", gap.ID, err)
	}
	draft.Content = buf.String()
	return draft, nil
}

// WriteDraft writes a draft under root unless a file already exists at its path.
func WriteDraft(root string, draft *schema.TestDraft) error {
	target := filepath.Join(root, filepath.FromSlash(draft.Path))
	if _, err := os.Stat(target); err == nil {
		draft.Written = false
		draft.Note = fmt.Sprintf("%s already exists; not overwritten", draft.Path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := contract.WriteFileAtomic(target, []byte(draft.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write draft %s: %w", draft.Path, err)
	}
	draft.Written = true
	return nil
}

// funcBaseName strips the receiver from names like "(*Store).Save".
func funcBaseName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func goPackageName(file, rel string) string {
	if f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.PackageClauseOnly); err == nil {
		return f.Name.Name
	}
	dir := path.Base(path.Dir(rel))
	if dir == "." || dir == "/" {
		return "main"
	}
	return strings.ReplaceAll(dir, "-", "_")
}

func exportedName(fn, fallback string) string {
	name := fn
	if name == "" {
		name = fallback
	}
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func snakeName(fn, fallback string) string {
	name := fn
	if name == "" {
		name = fallback
	}
	return strings.ToLower(strings.Trim(name, "_"))
}

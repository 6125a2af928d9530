package testintel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartSource = `package cart

func Add(a, b int) int {
	return a + b
}

func Discount(total int) int {
	if total > 100 {
		return total - 10
	}
	return total
}
`

const cartProfile = `mode: set
example.com/shop/cart/cart.go:3.24,5.2 1 1
example.com/shop/cart/cart.go:7.29,8.17 1 0
example.com/shop/cart/cart.go:8.17,10.3 1 0
example.com/shop/cart/cart.go:11.2,11.14 1 0
`

// writeCoverageModule lays out a small module with a cover profile and returns the profile path.
func writeCoverageModule(t *testing.T) (dir, profile string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/shop\n\ngo 1.25\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cart"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart", "cart.go"), []byte(cartSource), 0o644))
	profile = filepath.Join(dir, "cover.out")
	require.NoError(t, os.WriteFile(profile, []byte(cartProfile), 0o644))
	return dir, profile
}

func TestLoadCoverProfile(t *testing.T) {
	dir, profile := writeCoverageModule(t)

	cov, err := LoadCoverProfile(profile, dir)
	require.NoError(t, err)

	require.Len(t, cov.Files, 1)
	assert.Equal(t, "cart/cart.go", cov.Files[0].File)
	assert.Equal(t, 4, cov.Files[0].Statements)
	assert.Equal(t, 1, cov.Files[0].Covered)
	assert.InDelta(t, 25.0, cov.Files[0].Percent, 1e-9)

	require.Len(t, cov.Funcs, 2)
	assert.Equal(t, "Add", cov.Funcs[0].Function)
	assert.Equal(t, 3, cov.Funcs[0].StartLine)
	assert.Equal(t, 5, cov.Funcs[0].EndLine)
	assert.InDelta(t, 100.0, cov.Funcs[0].Percent, 1e-9)
	assert.Equal(t, "Discount", cov.Funcs[1].Function)
	assert.Equal(t, 3, cov.Funcs[1].Statements)
	assert.Equal(t, 0, cov.Funcs[1].Covered)
}

func TestLoadCoverProfile_MissingSources(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "cover.out")
	require.NoError(t, os.WriteFile(profile, []byte(cartProfile), 0o644))

	cov, err := LoadCoverProfile(profile, dir)
	require.NoError(t, err)
	require.Len(t, cov.Files, 1)
	assert.Equal(t, "example.com/shop/cart/cart.go", cov.Files[0].File, "no go.mod keeps the import path")
	assert.Empty(t, cov.Funcs)
}

func TestLoadCoverProfile_Invalid(t *testing.T) {
	_, err := LoadCoverProfile(filepath.Join(t.TempDir(), "missing.out"), ".")
	assert.Error(t, err)
}

func TestRelativeName(t *testing.T) {
	dir := t.TempDir()
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)

	assert.Equal(t, "pkg/a.go", relativeName("example.com/m/pkg/a.go", "example.com/m", dir))
	assert.Equal(t, "other.com/x/a.go", relativeName("other.com/x/a.go", "example.com/m", dir))
	assert.Equal(t, "pkg/a.go", relativeName(filepath.Join(abs, "pkg", "a.go"), "", dir))
}

func TestFindCoverageGaps(t *testing.T) {
	dir, profile := writeCoverageModule(t)
	cov, err := LoadCoverProfile(profile, dir)
	require.NoError(t, err)

	findings := []schema.Finding{
		{ID: "f-secret", File: "cart/cart.go", Line: 9, Category: schema.CategorySecurity, Severity: schema.SeverityHigh},
		{ID: "f-add", File: "cart/cart.go", Line: 4, Category: schema.CategoryPerformance, Severity: schema.SeverityLow},
		{ID: "f-other", File: "billing/pay.go", Line: 9, Category: schema.CategorySecurity, Severity: schema.SeverityHigh},
	}
	report := FindCoverageGaps(cov, 80, findings)

	assert.Equal(t, 80.0, report.Target)
	require.Len(t, report.Gaps, 2)

	fileGap := report.Gaps[0]
	assert.Equal(t, "coverage:cart/cart.go", fileGap.ID)
	assert.Empty(t, fileGap.Function)
	assert.Equal(t, 25.0, fileGap.Coverage)
	assert.ElementsMatch(t, []string{"f-secret", "f-add"}, fileGap.Findings)

	funcGap := report.Gaps[1]
	assert.Equal(t, "coverage:cart/cart.go#Discount", funcGap.ID)
	assert.Equal(t, 7, funcGap.StartLine)
	assert.Equal(t, 12, funcGap.EndLine)
	assert.Equal(t, 0.0, funcGap.Coverage)
	assert.Equal(t, []string{"f-secret"}, funcGap.Findings)
	assert.Equal(t, "cart", funcGap.Module())

	assert.InDelta(t, 25.0, report.ModuleCoverage()["cart"], 1e-9)
}

func TestFindCoverageGaps_AboveTarget(t *testing.T) {
	cov := &Coverage{
		Files: []schema.FileCoverage{{File: "a/a.go", Statements: 10, Covered: 9, Percent: 90}},
		Funcs: []FuncCoverage{{File: "a/a.go", Function: "Run", StartLine: 3, EndLine: 9, Statements: 4, Covered: 2, Percent: 50}},
	}
	report := FindCoverageGaps(cov, 80, nil)
	require.Len(t, report.Gaps, 1, "a weak function is reported even when its file meets the target")
	assert.Equal(t, "Run", report.Gaps[0].Function)

	empty := FindCoverageGaps(&Coverage{}, 80, nil)
	assert.NotNil(t, empty.Files)
	assert.Empty(t, empty.Gaps)
}

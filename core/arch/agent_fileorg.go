package arch

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/triad/schema"
)

var (
	componentRe = map[string]*regexp.Regexp{
		".py":   regexp.MustCompile(`^class\s+\w+`),
		".java": regexp.MustCompile(`^\s*(?:public\s+|final\s+|abstract\s+)*(?:class|interface|enum|record)\s+\w+`),
		".kt":   regexp.MustCompile(`^(?:data\s+|open\s+|abstract\s+)*class\s+\w+`),
		".cs":   regexp.MustCompile(`^\s*(?:public\s+|internal\s+|sealed\s+|abstract\s+|static\s+)*class\s+\w+`),
		".go":   regexp.MustCompile(`^type\s+[A-Z]\w*\s+(?:struct|interface)\b`),
		".js":   regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:class\s+\w+|(?:function|const)\s+[A-Z]\w*\s*[=(])`),
		".jsx":  regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:class\s+\w+|(?:function|const)\s+[A-Z]\w*\s*[=(])`),
		".ts":   regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+\w+`),
		".tsx":  regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:class\s+\w+|(?:function|const)\s+[A-Z]\w*\s*[=(:])`),
	}

	obsoleteNameRe = regexp.MustCompile(`(?i)(\.(?:bak|orig|old|tmp|swp)$|~$|^copy of |[ _-]copy\.\w+$|[._-](?:old|backup|deprecated)\.\w+$)`)
)

// FileOrgAgent checks test placement, components per file and obsolete files.
type FileOrgAgent struct {
	testRoot      string
	maxComponents int
	staleAfter    time.Duration
}

// NewFileOrgAgent creates the file organization agent. A zero staleAfter disables the staleness rule.
func NewFileOrgAgent(testRoot string, maxComponents int, staleAfter time.Duration) *FileOrgAgent {
	if maxComponents <= 0 {
		maxComponents = schema.DefaultMaxComponentsPerFile
	}
	return &FileOrgAgent{
		testRoot:      strings.Trim(testRoot, "/"),
		maxComponents: maxComponents,
		staleAfter:    staleAfter,
	}
}

// ID implements Agent.
func (a *FileOrgAgent) ID() schema.AgentID {
	return schema.FileOrgAgent
}

// Analyze implements Agent.
func (a *FileOrgAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	var findings []schema.Finding
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if finding, ok := a.checkTestPlacement(f); ok {
			findings = append(findings, finding)
		}
		if finding, ok := a.checkComponents(f); ok {
			findings = append(findings, finding)
		}

		switch {
		case obsoleteNameRe.MatchString(f.Base()):
			findings = append(findings, schema.Finding{
				Rule:     "obsolete-file",
				Severity: schema.SeverityLow,
				File:     f.Path,
				Message:  fmt.Sprintf("%s looks like a backup or leftover copy", f.Base()),
				Remediation: remediation(schema.ActionRemoveFile,
					"Delete the file; version control keeps the history.", ""),
				Confidence: 0.8,
			})
		case a.staleAfter > 0 && !f.ModTime.IsZero() && snap.TakenAt.Sub(f.ModTime) > a.staleAfter:
			findings = append(findings, schema.Finding{
				Rule:     "stale-file",
				Severity: schema.SeverityLow,
				File:     f.Path,
				Message:  fmt.Sprintf("%s has not changed in %d days", f.Base(), int(snap.TakenAt.Sub(f.ModTime).Hours()/24)),
				Remediation: remediation(schema.ActionRemoveFile,
					"Confirm the file is still used and remove it if it is orphaned.", ""),
				Confidence: 0.4,
			})
		}
	}
	return findings, nil
}

// checkTestPlacement flags test files outside the test root. Go tests live beside their package.
func (a *FileOrgAgent) checkTestPlacement(f *SourceFile) (schema.Finding, bool) {
	if a.testRoot == "" || f.Ext() == ".go" || !isTestFile(f) {
		return schema.Finding{}, false
	}
	if f.Path == a.testRoot || strings.HasPrefix(f.Path, a.testRoot+"/") {
		return schema.Finding{}, false
	}
	target := path.Join(a.testRoot, f.Path)
	return schema.Finding{
		Rule:     "test-outside-test-root",
		Severity: schema.SeverityMedium,
		File:     f.Path,
		Message:  fmt.Sprintf("Test file is outside the test root %s/", a.testRoot),
		Remediation: remediation(schema.ActionMoveFile,
			fmt.Sprintf("Move the file to %s.", target), target),
		Confidence: 0.9,
	}, true
}

// checkComponents flags files that declare more top-level components than allowed.
func (a *FileOrgAgent) checkComponents(f *SourceFile) (schema.Finding, bool) {
	re, ok := componentRe[f.Ext()]
	if !ok || isTestFile(f) {
		return schema.Finding{}, false
	}
	count, overflowLine := 0, 0
	for i, line := range f.Lines() {
		if re.MatchString(line) {
			count++
			if count == a.maxComponents+1 {
				overflowLine = i + 1
			}
		}
	}
	if count <= a.maxComponents {
		return schema.Finding{}, false
	}
	return schema.Finding{
		Rule:     "multiple-components",
		Severity: schema.SeverityMedium,
		File:     f.Path,
		Line:     overflowLine,
		Message:  fmt.Sprintf("File declares %d components (limit %d)", count, a.maxComponents),
		Remediation: remediation(schema.ActionSplitFile,
			"Move each component into its own file.", ""),
		Confidence: 0.75,
	}, true
}

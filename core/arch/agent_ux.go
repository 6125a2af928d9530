package arch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/triad/schema"
)

var (
	styleExts  = map[string]bool{".css": true, ".scss": true, ".sass": true, ".less": true}
	markupExts = map[string]bool{".html": true, ".htm": true, ".jsx": true, ".tsx": true, ".vue": true, ".svelte": true}

	declarationRe    = regexp.MustCompile(`^\s*([a-z-]+)\s*:\s*([^;{}]+?)\s*;?\s*$`)
	numericLiteralRe = regexp.MustCompile(`(?:^|[\s(,])-?\d*\.?\d+(?:px|rem|em|pt|vh|vw|%)?(?:$|[\s),])`)
	literalColorRe   = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b|\b(?:rgb|rgba|hsl|hsla)\(`)
	tokenRefRe       = regexp.MustCompile(`var\(--|\$[\w-]+|@[\w-]+|theme\(`)
	selectorClassRe  = regexp.MustCompile(`\.(-?[A-Za-z_][\w-]*)`)
	markupClassRe    = regexp.MustCompile(`\bclass(?:Name)?\s*=\s*["']([^"']+)["']`)
	inlineStyleRe    = regexp.MustCompile(`\bstyle\s*=\s*(?:"[^"]*\S[^"]*"|'[^']*\S[^']*'|\{\{)`)
)

var colorProperties = map[string]bool{
	"color": true, "background": true, "background-color": true, "border": true, "border-color": true,
	"fill": true, "stroke": true, "outline-color": true, "box-shadow": true,
}

// UXAgent checks stylesheets and markup against a design-system ruleset.
type UXAgent struct {
	tokenProps map[string]bool
	allowed    map[string]bool
	className  *regexp.Regexp
	ruleset    schema.UXRuleset
}

// NewUXAgent creates the UX compliance agent. An invalid class name pattern disables the naming rule.
func NewUXAgent(ruleset schema.UXRuleset) *UXAgent {
	a := &UXAgent{tokenProps: make(map[string]bool), allowed: make(map[string]bool), ruleset: ruleset}
	for _, p := range ruleset.TokenProperties {
		a.tokenProps[strings.ToLower(p)] = true
	}
	for _, l := range ruleset.AllowedLiterals {
		a.allowed[strings.ToLower(l)] = true
	}
	if ruleset.ClassNamePattern != "" {
		a.className, _ = regexp.Compile(ruleset.ClassNamePattern)
	}
	return a
}

// ID implements Agent.
func (a *UXAgent) ID() schema.AgentID {
	return schema.UXAgent
}

// Analyze implements Agent.
func (a *UXAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	var findings []schema.Finding
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case styleExts[f.Ext()]:
			findings = append(findings, a.checkStylesheet(f)...)
		case markupExts[f.Ext()]:
			findings = append(findings, a.checkMarkup(f)...)
		}
	}
	return findings, nil
}

func (a *UXAgent) checkStylesheet(f *SourceFile) []schema.Finding {
	var findings []schema.Finding
	inComment := false
	for i, line := range f.Lines() {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		if inComment {
			if strings.Contains(trimmed, "*/") {
				inComment = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			inComment = !strings.Contains(trimmed, "*/")
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if selector, rest, ok := strings.Cut(trimmed, "{"); ok {
			findings = append(findings, a.checkClassNames(f.Path, n, selectorClasses(selector))...)
			trimmed = rest
		} else if strings.HasSuffix(trimmed, ",") {
			findings = append(findings, a.checkClassNames(f.Path, n, selectorClasses(trimmed))...)
			continue
		}

		for _, decl := range strings.Split(strings.ReplaceAll(trimmed, "}", ""), ";") {
			m := declarationRe.FindStringSubmatch(decl)
			if m == nil {
				continue
			}
			prop, value := strings.ToLower(m[1]), m[2]
			if strings.HasPrefix(prop, "--") || tokenRefRe.MatchString(value) {
				continue
			}
			if finding, ok := a.checkDeclaration(f.Path, n, prop, value); ok {
				findings = append(findings, finding)
			}
		}
	}
	return findings
}

// checkDeclaration reports literal values for properties that must use design tokens.
func (a *UXAgent) checkDeclaration(file string, n int, prop, value string) (schema.Finding, bool) {
	if a.tokenProps[prop] && numericLiteralRe.MatchString(value) && !a.allLiteralsAllowed(value) {
		return schema.Finding{
			Rule:     "literal-token-value",
			Severity: schema.SeverityLow,
			File:     file,
			Line:     n,
			Message:  fmt.Sprintf("%s uses the literal value %q instead of a design token", prop, value),
			Remediation: remediation(schema.ActionUseToken,
				"Replace the literal with the matching spacing or typography token.",
				fmt.Sprintf("%s: var(--space-2);", prop)),
			Confidence: 0.8,
		}, true
	}
	if a.ruleset.ForbidLiteralColors && colorProperties[prop] && literalColorRe.MatchString(value) {
		return schema.Finding{
			Rule:     "literal-color",
			Severity: schema.SeverityLow,
			File:     file,
			Line:     n,
			Message:  fmt.Sprintf("%s uses the literal color %q instead of a color token", prop, value),
			Remediation: remediation(schema.ActionUseToken,
				"Use a color token from the design system.", fmt.Sprintf("%s: var(--color-primary);", prop)),
			Confidence: 0.85,
		}, true
	}
	return schema.Finding{}, false
}

func (a *UXAgent) allLiteralsAllowed(value string) bool {
	for _, part := range strings.Fields(value) {
		if !a.allowed[strings.ToLower(strings.Trim(part, ","))] {
			return false
		}
	}
	return true
}

func (a *UXAgent) checkMarkup(f *SourceFile) []schema.Finding {
	var findings []schema.Finding
	for i, line := range f.Lines() {
		n := i + 1
		if a.ruleset.ForbidInlineStyles && inlineStyleRe.MatchString(line) {
			findings = append(findings, schema.Finding{
				Rule:     "inline-style",
				Severity: schema.SeverityLow,
				File:     f.Path,
				Line:     n,
				Message:  "Inline style bypasses the design system",
				Remediation: remediation(schema.ActionUseToken,
					"Move the style into a class that uses design tokens.", ""),
				Confidence: 0.9,
			})
		}
		for _, m := range markupClassRe.FindAllStringSubmatch(line, -1) {
			findings = append(findings, a.checkClassNames(f.Path, n, strings.Fields(m[1]))...)
		}
	}
	return findings
}

func (a *UXAgent) checkClassNames(file string, n int, names []string) []schema.Finding {
	if a.className == nil {
		return nil
	}
	var findings []schema.Finding
	for _, name := range names {
		if strings.ContainsAny(name, "{}$") || a.className.MatchString(name) {
			continue
		}
		findings = append(findings, schema.Finding{
			Rule:     "class-naming",
			Severity: schema.SeverityLow,
			File:     file,
			Line:     n,
			Message:  fmt.Sprintf("Class name %q does not follow the naming convention", name),
			Remediation: remediation(schema.ActionRename,
				fmt.Sprintf("Rename the class to match %s.", a.className.String()), ""),
			Confidence: 0.7,
		})
	}
	return findings
}

// selectorClasses returns the class names used in a selector list.
func selectorClasses(selector string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range selectorClassRe.FindAllStringSubmatch(selector, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

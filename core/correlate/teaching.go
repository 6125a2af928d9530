package correlate

import (
	"bytes"
	"text/template"

	"github.com/huangsam/triad/schema"
)

// teachingData is the evidence summary a teaching template is rendered with.
type teachingData struct {
	Module      string
	Findings    int
	Tests       int
	Functions   int
	Flakiness   float64
	Complexity  int
	Coverage    float64
	Density     float64
	FailureRate float64
	Correlation float64
	Severity    schema.Severity
	Slowest     string
}

type teachingTemplate struct {
	rootCause *template.Template
	action    *template.Template
	benefit   *template.Template
}

var teachingFuncs = template.FuncMap{
	"pct": func(v float64) float64 { return 100 * v },
}

func newTeachingTemplate(name, rootCause, action, benefit string) teachingTemplate {
	parse := func(part, text string) *template.Template {
		return template.Must(template.New(name + "." + part).Funcs(teachingFuncs).Parse(text))
	}
	return teachingTemplate{
		rootCause: parse("root_cause", rootCause),
		action:    parse("action", action),
		benefit:   parse("benefit", benefit),
	}
}

var teachingTemplates = map[schema.PatternName]teachingTemplate{
	schema.DIFlakyPattern: newTeachingTemplate("di_flaky",
		`Module {{.Module}} has {{.Findings}} dependency-injection violations and {{.Tests}} flaky tests (mean flakiness {{printf "%.2f" .Flakiness}}). `+
			`Hidden construction and global state make test setup depend on run order and shared instances.`,
		`Inject the collaborators of {{.Module}} through constructors and replace global state with explicit parameters; `+
			`then give each flaky test its own fakes.`,
		`Tests in {{.Module}} become isolated and repeatable, which removes most of their flakiness.`),
	schema.ComplexityCoveragePattern: newTeachingTemplate("complexity_coverage",
		`Module {{.Module}} has {{.Functions}} functions at or above the complexity threshold (worst {{.Complexity}}) `+
			`but only {{printf "%.1f" .Coverage}}% statement coverage, so most branches run untested.`,
		`Add table-driven tests for the branches of the most complex functions in {{.Module}}, then split them into smaller functions.`,
		`Changes to {{.Module}} are caught by tests before release and the code gets easier to reason about.`),
	schema.SecurityTestGapPattern: newTeachingTemplate("security_gap",
		`Module {{.Module}} has {{.Findings}} security findings (worst {{.Severity}}) in code that no test exercises.`,
		`Write tests that pin the expected secure behavior of {{.Module}} before fixing the findings, and keep them as regression tests.`,
		`Security fixes in {{.Module}} are verified and cannot silently regress.`),
	schema.PerformanceSlowPattern: newTeachingTemplate("performance_slow",
		`Module {{.Module}} has {{.Findings}} performance findings and {{.Tests}} slow tests (slowest {{.Slowest}}); `+
			`the tests are likely paying for the same inefficient code paths.`,
		`Fix the flagged loops and queries in {{.Module}} first, then re-measure the slow tests.`,
		`Both production latency and test suite time drop for {{.Module}}.`),
	schema.ModuleHealthPattern: newTeachingTemplate("module_health",
		`Module {{.Module}} combines a high violation density ({{printf "%.2f" .Density}} findings per file) with a {{printf "%.0f" (pct .FailureRate)}}% test failure rate; `+
			`across modules the two move together (r = {{printf "%.2f" .Correlation}}).`,
		`Schedule a focused cleanup of {{.Module}}: address its findings by category and stabilize its {{.Tests}} failing tests.`,
		`Improving the structure of {{.Module}} should lower its test failure rate as well.`),
}

// teach renders the teaching of a pattern. Unknown patterns get a generic teaching.
func teach(pattern schema.PatternName, data teachingData) schema.Teaching {
	tt, ok := teachingTemplates[pattern]
	if !ok {
		return schema.Teaching{
			RootCause: "Pattern " + string(pattern) + " fired for module " + data.Module + ".",
			Action:    "Review the cited evidence.",
			Benefit:   "The linked findings and tests are addressed together.",
		}
	}
	return schema.Teaching{
		RootCause: render(tt.rootCause, data),
		Action:    render(tt.action, data),
		Benefit:   render(tt.benefit, data),
	}
}

func render(t *template.Template, data teachingData) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return t.Name() + ": " + err.Error()
	}
	return buf.String()
}

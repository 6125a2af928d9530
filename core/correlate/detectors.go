package correlate

import (
	"context"
	"math"

	"github.com/huangsam/triad/core/testintel"
	"github.com/huangsam/triad/schema"
)

// diFlakyDetector links dependency-injection violations in a module with flaky tests of that module.
type diFlakyDetector struct{}

func (diFlakyDetector) Name() schema.PatternName { return schema.DIFlakyPattern }

func (d diFlakyDetector) Detect(ctx context.Context, in *Input, s schema.CorrelationSettings) ([]schema.Detection, error) {
	if in.Report == nil {
		return nil, missing("analysis report")
	}
	if !agentCompleted(in.Report, schema.DIAgent) {
		return nil, missing("DI agent results")
	}
	profiles := scoredProfiles(in.Profiles)
	if len(profiles) == 0 {
		return nil, missing("test flakiness scores")
	}

	minViolations := max(1, s.DIMinViolations)
	groups, modules := findingsByModule(in.Report, schema.CategoryDI)
	var out []schema.Detection
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings := groups[m]
		if len(findings) < minViolations {
			continue
		}
		tests := profilesFor(m, profiles)
		if len(tests) < max(1, s.MinTestsPerModule) {
			continue
		}
		var sum float64
		var flaky []schema.TestHealthProfile
		for _, p := range tests {
			sum += *p.Flakiness
			if *p.Flakiness > 0 {
				flaky = append(flaky, p)
			}
		}
		mean := sum / float64(len(tests))
		if len(flaky) == 0 || mean < s.FlakyThreshold {
			continue
		}

		ed := excess(float64(len(findings)), float64(minViolations))
		ef := excess(mean, s.FlakyThreshold)
		out = append(out, schema.Detection{
			Pattern:    d.Name(),
			Priority:   jointPriority(ed, ef),
			Confidence: jointConfidence(ed, ef),
			Modules:    []string{m},
			Evidence:   append(findingEvidence(findings), testEvidence(flaky)...),
			Teaching: teach(d.Name(), teachingData{
				Module:    m,
				Findings:  len(findings),
				Tests:     len(flaky),
				Flakiness: mean,
			}),
		})
	}
	return out, nil
}

// complexityCoverageDetector links complex functions with low coverage of their module.
type complexityCoverageDetector struct{}

func (complexityCoverageDetector) Name() schema.PatternName { return schema.ComplexityCoveragePattern }

func (d complexityCoverageDetector) Detect(ctx context.Context, in *Input, s schema.CorrelationSettings) ([]schema.Detection, error) {
	if in.Report == nil {
		return nil, missing("analysis report")
	}
	if len(in.Report.Complexity) == 0 {
		return nil, missing("complexity data")
	}
	if in.Coverage == nil || len(in.Coverage.Files) == 0 {
		return nil, missing("coverage report")
	}

	threshold := max(1, s.ComplexityThreshold)
	moduleCoverage := in.Coverage.ModuleCoverage()
	hot := make(map[string][]schema.ComplexityStat)
	for _, c := range in.Report.Complexity {
		if c.Complexity >= threshold {
			hot[c.Module()] = append(hot[c.Module()], c)
		}
	}

	var out []schema.Detection
	for _, m := range sortedKeys(hot) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		covMod, pct, ok := coverageFor(m, moduleCoverage)
		if !ok || pct >= s.LowCoverage {
			continue
		}
		stats := hot[m]
		worst := 0
		evidence := make([]schema.Evidence, 0, len(stats)+1)
		for _, c := range stats {
			worst = max(worst, c.Complexity)
			evidence = append(evidence, schema.Evidence{Kind: schema.ComplexityEvidence, ID: ComplexityID(c)})
		}
		evidence = append(evidence, coverageEvidence(covMod, in.Coverage)...)

		ec := excess(float64(worst), float64(threshold))
		es := 1.0
		if s.LowCoverage > 0 {
			es = (s.LowCoverage - pct) / s.LowCoverage
		}
		out = append(out, schema.Detection{
			Pattern:    d.Name(),
			Priority:   jointPriority(ec, es),
			Confidence: jointConfidence(ec, es),
			Modules:    []string{m},
			Evidence:   evidence,
			Teaching: teach(d.Name(), teachingData{
				Module:     m,
				Functions:  len(stats),
				Complexity: worst,
				Coverage:   pct,
			}),
		})
	}
	return out, nil
}

// ComplexityID is the evidence id of a complexity stat.
func ComplexityID(c schema.ComplexityStat) string {
	return "complexity:" + c.File + "#" + c.Function
}

// coverageFor finds the coverage of a source module, preferring an exact module match.
func coverageFor(module string, coverage map[string]float64) (string, float64, bool) {
	if pct, ok := coverage[module]; ok {
		return module, pct, true
	}
	for _, m := range sortedKeys(coverage) {
		if schema.ModulesMatch(m, module) {
			return m, coverage[m], true
		}
	}
	return "", 0, false
}

// coverageEvidence cites the gaps of a coverage module, or its files when no gap was recorded.
func coverageEvidence(module string, cov *schema.CoverageReport) []schema.Evidence {
	var out []schema.Evidence
	for _, g := range cov.Gaps {
		if g.Module() == module {
			out = append(out, schema.Evidence{Kind: schema.CoverageEvidence, ID: g.ID})
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, f := range cov.Files {
		if f.Module() == module {
			out = append(out, schema.Evidence{Kind: schema.CoverageEvidence, ID: testintel.FileGapID(f.File)})
		}
	}
	return out
}

// securityTestGapDetector finds security findings in code that no test exercises.
// A file listed in the coverage report is judged by its gaps; other files fall back to test modules.
type securityTestGapDetector struct{}

func (securityTestGapDetector) Name() schema.PatternName { return schema.SecurityTestGapPattern }

func (d securityTestGapDetector) Detect(ctx context.Context, in *Input, _ schema.CorrelationSettings) ([]schema.Detection, error) {
	if in.Report == nil {
		return nil, missing("analysis report")
	}
	if !agentCompleted(in.Report, schema.SecurityAgent) {
		return nil, missing("security agent results")
	}
	profiles := profilesWithData(in.Profiles)
	if in.Coverage == nil && len(profiles) == 0 {
		return nil, missing("coverage report or test profiles")
	}

	listed := make(map[string]bool)
	gapsByFinding := make(map[string][]string)
	if in.Coverage != nil {
		for _, f := range in.Coverage.Files {
			listed[f.File] = true
		}
		for _, g := range in.Coverage.Gaps {
			for _, id := range g.Findings {
				gapsByFinding[id] = append(gapsByFinding[id], g.ID)
			}
		}
	}

	groups, modules := findingsByModule(in.Report, schema.CategorySecurity)
	var out []schema.Detection
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hasTests := len(profilesFor(m, profiles)) > 0

		var untested []schema.Finding
		var gapEvidence []schema.Evidence
		seenGap := make(map[string]bool)
		byCoverage := 0
		worst := schema.SeverityLow
		for _, f := range groups[m] {
			if listed[f.File] {
				gaps := gapsByFinding[f.ID]
				if len(gaps) == 0 {
					continue
				}
				byCoverage++
				for _, id := range gaps {
					if !seenGap[id] {
						seenGap[id] = true
						gapEvidence = append(gapEvidence, schema.Evidence{Kind: schema.CoverageEvidence, ID: id})
					}
				}
			} else if hasTests {
				continue
			}
			untested = append(untested, f)
			if f.Severity.Rank() > worst.Rank() {
				worst = f.Severity
			}
		}
		if len(untested) == 0 {
			continue
		}

		byModule := len(untested) - byCoverage
		confidence := (0.9*float64(byCoverage) + 0.6*float64(byModule)) / float64(len(untested))
		out = append(out, schema.Detection{
			Pattern:    d.Name(),
			Priority:   severityPriority(worst),
			Confidence: round3(confidence),
			Modules:    []string{m},
			Evidence:   append(findingEvidence(untested), gapEvidence...),
			Teaching: teach(d.Name(), teachingData{
				Module:   m,
				Findings: len(untested),
				Severity: worst,
			}),
		})
	}
	return out, nil
}

func severityPriority(s schema.Severity) schema.Priority {
	switch s {
	case schema.SeverityUrgent:
		return schema.PriorityUrgent
	case schema.SeverityHigh:
		return schema.PriorityHigh
	default:
		return schema.PriorityMedium
	}
}

// performanceSlowDetector links performance findings with slow tests of the same module.
type performanceSlowDetector struct{}

func (performanceSlowDetector) Name() schema.PatternName { return schema.PerformanceSlowPattern }

func (d performanceSlowDetector) Detect(ctx context.Context, in *Input, _ schema.CorrelationSettings) ([]schema.Detection, error) {
	if in.Report == nil {
		return nil, missing("analysis report")
	}
	if !agentCompleted(in.Report, schema.PerformanceAgent) {
		return nil, missing("performance agent results")
	}
	profiles := profilesWithData(in.Profiles)
	if len(profiles) == 0 {
		return nil, missing("test health profiles")
	}

	groups, modules := findingsByModule(in.Report, schema.CategoryPerformance)
	var out []schema.Detection
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tests := profilesFor(m, profiles)
		var slow []schema.TestHealthProfile
		for _, p := range tests {
			if p.IsSlow {
				slow = append(slow, p)
			}
		}
		if len(slow) == 0 {
			continue
		}

		findings := groups[m]
		priority := schema.PriorityMedium
		for _, f := range findings {
			if f.Severity.Rank() >= schema.SeverityHigh.Rank() {
				priority = schema.PriorityHigh
			}
		}
		if len(findings) >= 3 {
			priority = schema.PriorityHigh
		}
		share := float64(len(slow)) / float64(len(tests))
		out = append(out, schema.Detection{
			Pattern:    d.Name(),
			Priority:   priority,
			Confidence: round3(0.5 + 0.4*share),
			Modules:    []string{m},
			Evidence:   append(findingEvidence(findings), testEvidence(slow)...),
			Teaching: teach(d.Name(), teachingData{
				Module:    m,
				Findings:  len(findings),
				Tests:     len(slow),
				Slowest:   slowestTest(slow),
			}),
		})
	}
	return out, nil
}

func slowestTest(profiles []schema.TestHealthProfile) string {
	best := profiles[0]
	for _, p := range profiles[1:] {
		if p.MeanDurationMs > best.MeanDurationMs {
			best = p
		}
	}
	return best.TestID
}

// moduleHealthDetector is the coarse fallback: across modules, violation density that tracks the
// aggregate test failure rate flags the modules where both are high.
type moduleHealthDetector struct{}

func (moduleHealthDetector) Name() schema.PatternName { return schema.ModuleHealthPattern }

type modulePair struct {
	module   string
	findings []schema.Finding
	failing  []schema.TestHealthProfile
	density  float64
	failRate float64
}

func (d moduleHealthDetector) Detect(ctx context.Context, in *Input, s schema.CorrelationSettings) ([]schema.Detection, error) {
	if in.Report == nil {
		return nil, missing("analysis report")
	}
	if len(in.Report.FilesByModule) == 0 {
		return nil, missing("per-module file counts")
	}
	profiles := profilesWithData(in.Profiles)
	if len(profiles) == 0 {
		return nil, missing("test health profiles")
	}

	byModule := make(map[string][]schema.Finding)
	for _, f := range in.Report.Findings {
		byModule[f.Module()] = append(byModule[f.Module()], f)
	}

	var pairs []modulePair
	for _, m := range in.Report.Modules() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tests := profilesFor(m, profiles)
		if len(tests) < max(1, s.MinTestsPerModule) {
			continue
		}
		p := modulePair{module: m, findings: byModule[m]}
		var samples, failing float64
		for _, t := range tests {
			samples += float64(t.SampleSize)
			failing += t.FailureRate * float64(t.SampleSize)
			if t.FailureRate > 0 {
				p.failing = append(p.failing, t)
			}
		}
		p.failRate = failing / samples
		if files := in.Report.FilesByModule[m]; files > 0 {
			p.density = float64(len(p.findings)) / float64(files)
		}
		pairs = append(pairs, p)
	}
	if len(pairs) < max(2, s.MinModules) {
		return nil, missing("not enough modules with both files and tests")
	}

	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	var meanDensity float64
	for i, p := range pairs {
		xs[i], ys[i] = p.density, p.failRate
		meanDensity += p.density
	}
	meanDensity /= float64(len(pairs))

	r := pearson(xs, ys)
	if math.IsNaN(r) || r < s.MinCorrelation {
		return nil, nil
	}

	var out []schema.Detection
	for _, p := range pairs {
		if p.density <= meanDensity || p.failRate < s.ModuleFailureRate || len(p.failing) == 0 {
			continue
		}
		priority := schema.PriorityMedium
		if p.failRate >= 2*s.ModuleFailureRate {
			priority = schema.PriorityHigh
		}
		out = append(out, schema.Detection{
			Pattern:    d.Name(),
			Priority:   priority,
			Confidence: round3(min(1, r)),
			Modules:    []string{p.module},
			Evidence:   append(findingEvidence(p.findings), testEvidence(p.failing)...),
			Teaching: teach(d.Name(), teachingData{
				Module:      p.module,
				Findings:    len(p.findings),
				Tests:       len(p.failing),
				Density:     p.density,
				FailureRate: p.failRate,
				Correlation: r,
			}),
		})
	}
	return out, nil
}

// pearson returns the correlation coefficient of two equal-length series, or NaN when either is constant.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// scoredProfiles keeps the profiles that carry a flakiness score.
func scoredProfiles(profiles []schema.TestHealthProfile) []schema.TestHealthProfile {
	var out []schema.TestHealthProfile
	for _, p := range profiles {
		if p.Flakiness != nil {
			out = append(out, p)
		}
	}
	return out
}

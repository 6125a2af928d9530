package testintel

import (
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/triad/schema"
)

// Flakiness counts failing/passing transitions across consecutive runs and divides by runs-1.
// SKIP outcomes are ignored. A constant sequence scores 0 and a strictly alternating one scores 1.
func Flakiness(outcomes []schema.Outcome) (score float64, transitions, samples int) {
	var prev, started bool
	for _, o := range outcomes {
		if o == schema.OutcomeSkip {
			continue
		}
		failing := o.IsFailing()
		if started && failing != prev {
			transitions++
		}
		prev, started = failing, true
		samples++
	}
	if samples < 2 {
		return 0, transitions, samples
	}
	return float64(transitions) / float64(samples-1), transitions, samples
}

// window keeps the most recent n records of a chronological history.
func window(records []schema.TestExecutionRecord, n int) []schema.TestExecutionRecord {
	if n > 0 && len(records) > n {
		return records[len(records)-n:]
	}
	return records
}

func meanDuration(records []schema.TestExecutionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.DurationMs
	}
	return sum / float64(len(records))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// BuildProfiles derives one health profile per test from chronological histories.
// Slowness compares each test's mean duration with the median of all tests' means within the window.
func BuildProfiles(histories map[string][]schema.TestExecutionRecord, settings schema.IntelSettings) []schema.TestHealthProfile {
	ids := make([]string, 0, len(histories))
	means := make([]float64, 0, len(histories))
	for id, records := range histories {
		ids = append(ids, id)
		if w := window(records, settings.Window); len(w) > 0 {
			means = append(means, meanDuration(w))
		}
	}
	sort.Strings(ids)
	med := median(means)

	profiles := make([]schema.TestHealthProfile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, BuildProfile(id, histories[id], settings, med))
	}
	return profiles
}

// BuildProfile derives the profile of one test. medianMs is the median mean duration across all tests.
func BuildProfile(testID string, records []schema.TestExecutionRecord, settings schema.IntelSettings, medianMs float64) schema.TestHealthProfile {
	w := window(records, settings.Window)
	p := schema.TestHealthProfile{
		TestID:       testID,
		Module:       schema.ModuleOfTest(testID),
		LastOutcomes: []schema.Outcome{},
	}
	if len(w) == 0 {
		p.InsufficientData = true
		return p
	}

	outcomes := make([]schema.Outcome, len(w))
	for i, r := range w {
		outcomes[i] = r.Outcome
	}
	score, transitions, samples := Flakiness(outcomes)
	p.SampleSize = samples
	p.Transitions = transitions
	p.LastRun = w[len(w)-1].Timestamp

	recent := settings.RecentOutcomes
	if recent <= 0 || recent > len(outcomes) {
		recent = len(outcomes)
	}
	p.LastOutcomes = append(p.LastOutcomes, outcomes[len(outcomes)-recent:]...)

	if samples < max(1, settings.MinSamples) {
		p.InsufficientData = true
	} else {
		p.Flakiness = &score
	}

	failing := 0
	for _, o := range outcomes {
		if o.IsFailing() {
			failing++
		}
	}
	if samples > 0 {
		p.FailureRate = float64(failing) / float64(samples)
	}

	p.MeanDurationMs = meanDuration(w)
	var sq float64
	for _, r := range w {
		d := r.DurationMs - p.MeanDurationMs
		sq += d * d
	}
	p.DurationVarianceMs = sq / float64(len(w))

	switch {
	case settings.SlowMultiplier > 0 && medianMs > 0 && p.MeanDurationMs > settings.SlowMultiplier*medianMs:
		p.IsSlow = true
		p.SlowReason = fmt.Sprintf("mean %.0fms is more than %.1fx the median %.0fms", p.MeanDurationMs, settings.SlowMultiplier, medianMs)
	case settings.SlowAbsoluteMs > 0 && p.MeanDurationMs > settings.SlowAbsoluteMs:
		p.IsSlow = true
		p.SlowReason = fmt.Sprintf("mean %.0fms exceeds %.0fms", p.MeanDurationMs, settings.SlowAbsoluteMs)
	}
	return p
}

// riskEWMA is the exponentially weighted failure rate over non-skip outcomes, oldest first.
func riskEWMA(outcomes []schema.Outcome, alpha float64) (float64, int) {
	var ewma float64
	n := 0
	for _, o := range outcomes {
		if o == schema.OutcomeSkip {
			continue
		}
		x := 0.0
		if o.IsFailing() {
			x = 1
		}
		if n == 0 {
			ewma = x
		} else {
			ewma = alpha*x + (1-alpha)*ewma
		}
		n++
	}
	return ewma, n
}

// PredictRisk combines the recent failure trend with flakiness into an advisory score in [0,1].
func PredictRisk(profile schema.TestHealthProfile, records []schema.TestExecutionRecord, settings schema.IntelSettings) schema.RiskPrediction {
	w := window(records, settings.Window)
	outcomes := make([]schema.Outcome, len(w))
	for i, r := range w {
		outcomes[i] = r.Outcome
	}
	alpha := settings.RiskAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = schema.DefaultRiskAlpha
	}
	recent, n := riskEWMA(outcomes, alpha)
	flaky, _, _ := Flakiness(outcomes)

	pred := schema.RiskPrediction{
		TestID:           profile.TestID,
		InsufficientData: profile.InsufficientData,
		RecentFailure:    round3(recent),
		Flakiness:        round3(flaky),
	}
	if n == 0 {
		pred.Advisory = "no history; risk unknown"
		return pred
	}
	pred.Risk = round3(math.Max(0, math.Min(1, 0.6*recent+0.4*flaky)))

	switch {
	case profile.InsufficientData:
		pred.Advisory = fmt.Sprintf("only %d runs recorded; estimate is weak", n)
	case pred.Risk >= settings.RiskThreshold:
		pred.Advisory = "likely to fail; run it early and check recent changes"
	default:
		pred.Advisory = "expected to pass"
	}
	return pred
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

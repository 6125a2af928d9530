package arch

import (
	"math"

	"github.com/huangsam/triad/schema"
)

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds to two decimals so that scores are stable across runs.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScoreCategories computes the display score of every category whose agent ran.
// A category is unknown (nil score) when its agent did not complete.
func ScoreCategories(counts map[schema.Category]int, runs []schema.AgentRun, filesScanned int, weights map[schema.Category]float64, densityScale float64) map[schema.Category]schema.CategoryScore {
	scores := make(map[schema.Category]schema.CategoryScore, len(runs))
	for _, run := range runs {
		cat, ok := schema.AgentCategory[run.Agent]
		if !ok {
			continue
		}
		cs := schema.CategoryScore{
			Status:   run.Status,
			Findings: counts[cat],
			Weight:   weights[cat],
		}
		if run.Status == schema.StatusCompleted {
			density := float64(counts[cat]) / math.Max(1, float64(filesScanned))
			score := round2(clamp(100-density*densityScale, 0, 100))
			cs.Density = round2(density)
			cs.Score = &score
		}
		scores[cat] = cs
	}
	return scores
}

// HealthScore is 100 minus the weighted density penalty of the known categories, clamped to [0, 100].
// Weights are renormalized over the known categories and only the total is clamped,
// so a dense category keeps its whole penalty.
// It returns nil when no category is known or every known category has zero weight.
func HealthScore(scores map[schema.Category]schema.CategoryScore, filesScanned int, densityScale float64) *float64 {
	var penalty, weightSum float64
	for _, cat := range schema.AllCategories {
		cs, ok := scores[cat]
		if !ok || !cs.Known() {
			continue
		}
		density := float64(cs.Findings) / math.Max(1, float64(filesScanned))
		penalty += cs.Weight * density * densityScale
		weightSum += cs.Weight
	}
	if weightSum == 0 {
		return nil
	}
	health := round2(clamp(100-penalty/weightSum, 0, 100))
	return &health
}

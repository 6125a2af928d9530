package core

import (
	"sort"

	"github.com/huangsam/triad/schema"
)

// rankProfiles orders profiles by flakiness, then failure rate, then mean duration.
// Profiles without enough data sort after every scored profile.
func rankProfiles(profiles []schema.TestHealthProfile, limit int) []schema.TestHealthProfile {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if fa, fb := a.FlakinessOr(-1), b.FlakinessOr(-1); fa != fb {
			return fa > fb
		}
		if a.FailureRate != b.FailureRate {
			return a.FailureRate > b.FailureRate
		}
		if a.MeanDurationMs != b.MeanDurationMs {
			return a.MeanDurationMs > b.MeanDurationMs
		}
		return a.TestID < b.TestID
	})
	return truncate(profiles, limit)
}

// rankPredictions orders predictions by risk. Insufficient data sorts last.
func rankPredictions(predictions []schema.RiskPrediction, limit int) []schema.RiskPrediction {
	sort.SliceStable(predictions, func(i, j int) bool {
		a, b := predictions[i], predictions[j]
		if a.InsufficientData != b.InsufficientData {
			return !a.InsufficientData
		}
		if a.Risk != b.Risk {
			return a.Risk > b.Risk
		}
		return a.TestID < b.TestID
	})
	return truncate(predictions, limit)
}

// selectDraftGaps keeps one gap per source file: the least covered function, or the file gap
// when no function of that file is below target. Drafts are written one per file.
func selectDraftGaps(gaps []schema.CoverageGap) []schema.CoverageGap {
	best := make(map[string]schema.CoverageGap)
	var order []string
	for _, g := range gaps {
		cur, ok := best[g.File]
		if !ok {
			order = append(order, g.File)
			best[g.File] = g
			continue
		}
		switch {
		case cur.Function == "" && g.Function != "":
			best[g.File] = g
		case cur.Function != "" && g.Function != "" && g.Coverage < cur.Coverage:
			best[g.File] = g
		}
	}
	out := make([]schema.CoverageGap, 0, len(order))
	for _, f := range order {
		out = append(out, best[f])
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

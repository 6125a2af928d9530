package correlate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/triad/schema"
)

// Rank orders detections by priority tier, then confidence, then evidence count.
// Pattern name and modules break the remaining ties so that identical inputs rank identically.
func Rank(detections []schema.Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		a, b := detections[i], detections[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.Evidence) != len(b.Evidence) {
			return len(a.Evidence) > len(b.Evidence)
		}
		if a.Pattern != b.Pattern {
			return a.Pattern < b.Pattern
		}
		return strings.Join(a.Modules, ",") < strings.Join(b.Modules, ",")
	})
}

// PatternTrends counts detections per pattern across batches. Batches may be in any order.
func PatternTrends(batches []schema.TeachingBatch) []schema.PatternTrend {
	byPattern := make(map[schema.PatternName]*schema.PatternTrend)
	latest := make(map[schema.PatternName]time.Time)
	for _, b := range batches {
		for _, run := range b.DetectorRuns {
			t, ok := byPattern[run.Pattern]
			if !ok {
				t = &schema.PatternTrend{Pattern: run.Pattern}
				byPattern[run.Pattern] = t
			}
			if run.Detections > 0 {
				t.Batches++
				t.Detections += run.Detections
				if b.GeneratedAt.After(t.LastSeen) {
					t.LastSeen = b.GeneratedAt
				}
			}
			if prev, seen := latest[run.Pattern]; !seen || b.GeneratedAt.After(prev) {
				latest[run.Pattern] = b.GeneratedAt
				t.LastOutcome = string(run.Status)
			}
		}
	}

	out := make([]schema.PatternTrend, 0, len(byPattern))
	for _, t := range byPattern {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Detections != out[j].Detections {
			return out[i].Detections > out[j].Detections
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

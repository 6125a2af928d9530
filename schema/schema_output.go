package schema

import "sort"

// EnrichedDetection adds presentation data to a Detection.
type EnrichedDetection struct {
	Rank int `json:"rank"`
	Detection
}

// GetPlainLabel returns a plain text label for a health score.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return "Healthy"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Poor"
	default:
		return "Critical"
	}
}

// HealthLabel returns the label of an optional health score.
func HealthLabel(score *float64) string {
	if score == nil {
		return "Unknown"
	}
	return GetPlainLabel(*score)
}

// EnrichDetections adds rank to a list of ranked detections.
func EnrichDetections(detections []Detection) []EnrichedDetection {
	output := make([]EnrichedDetection, len(detections))
	for i, d := range detections {
		output[i] = EnrichedDetection{
			Rank:      i + 1,
			Detection: d,
		}
	}
	return output
}

// RankFindings returns the findings ordered by severity, then location, keeping the first limit.
// A limit of zero or less keeps every finding. The input slice is not modified.
func RankFindings(findings []Finding, limit int) []Finding {
	out := append([]Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

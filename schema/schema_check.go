package schema

// GateResult holds the results of a quality gate check.
type GateResult struct {
	Passed          bool             `json:"passed"`
	ReportID        string           `json:"report_id"`
	HealthScore     *float64         `json:"health_score"`
	Degraded        bool             `json:"degraded"`
	MinHealthScore  float64          `json:"min_health_score"`
	UrgentFindings  int              `json:"urgent_findings"`
	MaxUrgent       int              `json:"max_urgent"`
	Conflicts       int              `json:"conflicts"`
	Violations      []string         `json:"violations"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

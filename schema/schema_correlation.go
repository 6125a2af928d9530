package schema

import "time"

// Teaching is the human-readable guidance produced by a firing pattern.
type Teaching struct {
	RootCause string `json:"root_cause"`
	Action    string `json:"action"`
	Benefit   string `json:"benefit"`
}

// Detection is the result of one correlation pattern firing for one set of modules.
type Detection struct {
	Pattern    PatternName `json:"pattern"`
	Priority   Priority    `json:"priority"`
	Confidence float64     `json:"confidence"`
	Modules    []string    `json:"modules"`
	Evidence   []Evidence  `json:"evidence"`
	Teaching   Teaching    `json:"teaching"`
}

// EvidenceIDs returns the cited ids of one evidence kind.
func (d Detection) EvidenceIDs(kind EvidenceKind) []string {
	var ids []string
	for _, e := range d.Evidence {
		if e.Kind == kind {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// DetectorRun records how one detector run ended.
type DetectorRun struct {
	Pattern    PatternName  `json:"pattern"`
	Status     WorkerStatus `json:"status"`
	Detections int          `json:"detections"`
	Suppressed int          `json:"suppressed,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	Reason     string       `json:"reason,omitempty"`
}

// TeachingBatch is the immutable output of one correlation engine run.
type TeachingBatch struct {
	ID           string        `json:"id"`
	GeneratedAt  time.Time     `json:"generated_at"`
	ReportID     string        `json:"report_id,omitempty"`
	Profiles     int           `json:"profiles"`
	Detections   []Detection   `json:"detections"`
	DetectorRuns []DetectorRun `json:"detector_runs"`
}

// PatternTrend is the number of detections of one pattern across stored batches.
type PatternTrend struct {
	Pattern     PatternName `json:"pattern"`
	Batches     int         `json:"batches"`
	Detections  int         `json:"detections"`
	LastSeen    time.Time   `json:"last_seen"`
	LastOutcome string      `json:"last_outcome"`
}

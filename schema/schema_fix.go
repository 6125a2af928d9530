package schema

// FixState is one state of the fix loop.
type FixState string

// States of the fix loop, in the order they run within one attempt.
const (
	FixPropose          FixState = "PROPOSE_FIX"
	FixApply            FixState = "APPLY"
	FixValidate         FixState = "VALIDATE"
	FixCommitOrRollback FixState = "COMMIT_OR_ROLLBACK"
)

// FixStep records one state transition of the fix loop.
type FixStep struct {
	Attempt int      `json:"attempt"`
	State   FixState `json:"state"`
	OK      bool     `json:"ok"`
	Detail  string   `json:"detail"`
}

// FixResult is the outcome of running the fix loop for one finding.
// Committed is true only when validation confirmed the finding no longer reproduces.
type FixResult struct {
	FindingID   string    `json:"finding_id"`
	File        string    `json:"file"`
	Committed   bool      `json:"committed"`
	Attempts    int       `json:"attempts"`
	Description string    `json:"description,omitempty"`
	Steps       []FixStep `json:"steps"`
}

package arch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// ErrNoFixer is returned when no fixer can handle a finding.
var ErrNoFixer = errors.New("no automatic fix available")

// Patch is a proposed change to one file.
type Patch struct {
	Content     []byte
	TargetLine  int // line of the fixed code in the patched content
	Description string
}

// Fixer proposes a patch for a finding. Attempt starts at 1 and lets a fixer try alternatives.
type Fixer interface {
	CanFix(f schema.Finding) bool
	Propose(f schema.Finding, content []byte, attempt int) (Patch, error)
}

// FixLoop applies fixes as PROPOSE_FIX, APPLY, VALIDATE, COMMIT_OR_ROLLBACK with bounded attempts.
// A fix is kept only after the producing agent no longer reports the finding
// and the optional validation command succeeds.
type FixLoop struct {
	Root        string
	Agent       Agent
	Fixers      []Fixer
	MaxAttempts int
	Excludes    []string
	ValidateCmd []string
}

// NewFixLoop creates a fix loop with the built-in fixers.
func NewFixLoop(root string, agent Agent, maxAttempts int) *FixLoop {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &FixLoop{
		Root:        root,
		Agent:       agent,
		Fixers:      []Fixer{&SecretFixer{}},
		MaxAttempts: maxAttempts,
	}
}

// Run drives the loop for one finding. The returned error covers only failures that leave nothing to report,
// such as an unreadable file. A rejected fix is reported through the result.
func (l *FixLoop) Run(ctx context.Context, finding schema.Finding) (*schema.FixResult, error) {
	result := &schema.FixResult{FindingID: finding.ID, File: finding.File, Steps: []schema.FixStep{}}

	fixer := l.fixerFor(finding)
	if fixer == nil {
		result.Steps = append(result.Steps, schema.FixStep{Attempt: 1, State: schema.FixPropose, Detail: ErrNoFixer.Error()})
		return result, nil
	}

	path := filepath.Join(l.Root, filepath.FromSlash(finding.File))
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", finding.File, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", finding.File, err)
	}

	for attempt := 1; attempt <= l.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempts = attempt
		step := func(state schema.FixState, ok bool, detail string) {
			result.Steps = append(result.Steps, schema.FixStep{Attempt: attempt, State: state, OK: ok, Detail: detail})
			contract.Logger.Debug("fix loop", "finding", finding.ID, "attempt", attempt, "state", state, "ok", ok, "detail", detail)
		}

		// PROPOSE_FIX
		patch, err := fixer.Propose(finding, original, attempt)
		if err != nil {
			step(schema.FixPropose, false, err.Error())
			break
		}
		step(schema.FixPropose, true, patch.Description)

		// APPLY
		if err := contract.WriteFileAtomic(path, patch.Content, info.Mode().Perm()); err != nil {
			step(schema.FixApply, false, err.Error())
			break
		}
		step(schema.FixApply, true, fmt.Sprintf("wrote %s", finding.File))

		// VALIDATE
		verr := l.validate(ctx, finding, patch)
		if verr == nil {
			step(schema.FixValidate, true, "finding no longer reproduces")
		} else {
			step(schema.FixValidate, false, verr.Error())
		}

		// COMMIT_OR_ROLLBACK
		if verr == nil {
			step(schema.FixCommitOrRollback, true, "committed")
			result.Committed = true
			result.Description = patch.Description
			return result, nil
		}
		if err := contract.WriteFileAtomic(path, original, info.Mode().Perm()); err != nil {
			step(schema.FixCommitOrRollback, false, fmt.Sprintf("rollback failed: %v", err))
			return result, fmt.Errorf("failed to restore %s: %w", finding.File, err)
		}
		step(schema.FixCommitOrRollback, true, "rolled back")
	}
	return result, nil
}

func (l *FixLoop) fixerFor(f schema.Finding) Fixer {
	for _, fx := range l.Fixers {
		if fx.CanFix(f) {
			return fx
		}
	}
	return nil
}

// validate re-runs the producing agent on a fresh snapshot and then the validation command.
func (l *FixLoop) validate(ctx context.Context, target schema.Finding, patch Patch) error {
	snap, err := LoadSnapshot(ctx, l.Root, l.Excludes)
	if err != nil {
		return err
	}
	findings, err := l.Agent.Analyze(ctx, snap)
	if err != nil {
		return fmt.Errorf("agent %s failed during validation: %w", l.Agent.ID(), err)
	}
	for _, f := range findings {
		if f.Rule == target.Rule && f.File == target.File && f.Line == patch.TargetLine {
			return fmt.Errorf("finding still reproduces at %s:%d", f.File, f.Line)
		}
	}

	if len(l.ValidateCmd) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, l.ValidateCmd[0], l.ValidateCmd[1:]...)
	cmd.Dir = l.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("validation command '%s' failed: %s", strings.Join(l.ValidateCmd, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

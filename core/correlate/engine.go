package correlate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/workpool"
	"github.com/huangsam/triad/schema"
)

// State is the phase of an engine run.
type State string

// Engine states in run order. A run always returns to idle.
const (
	StateIdle       State = "IDLE"
	StateCollecting State = "COLLECTING"
	StateDetecting  State = "DETECTING"
	StateRanking    State = "RANKING"
	StateEmitting   State = "EMITTING"
)

// Engine runs every registered detector over one input and emits a ranked teaching batch.
type Engine struct {
	registry *Registry
	settings schema.CorrelationSettings
	workers  int
	now      func() time.Time

	mu       sync.Mutex
	state    State
	observer func(State)
}

// NewEngine creates an engine over a registry.
func NewEngine(registry *Registry, settings schema.CorrelationSettings) *Engine {
	return &Engine{
		registry: registry,
		settings: settings,
		workers:  len(registry.order),
		now:      time.Now,
		state:    StateIdle,
	}
}

// WithWorkers limits how many detectors run at once.
func (e *Engine) WithWorkers(n int) *Engine {
	e.workers = n
	return e
}

// WithObserver registers a callback invoked on every state transition.
func (e *Engine) WithObserver(fn func(State)) *Engine {
	e.observer = fn
	return e
}

// State returns the current phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(s State) {
	e.mu.Lock()
	e.state = s
	observer := e.observer
	e.mu.Unlock()
	contract.Logger.Debug("correlation state", "state", s)
	if observer != nil {
		observer(s)
	}
}

// Run correlates one analysis report with a set of test health profiles.
// Detector failures and skips are recorded in the batch; only a cancelled context fails the run.
func (e *Engine) Run(ctx context.Context, in Input) (*schema.TeachingBatch, error) {
	defer e.transition(StateIdle)

	e.transition(StateCollecting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input := collect(in)

	e.transition(StateDetecting)
	detectors := e.registry.Detectors()
	results := e.detect(ctx, detectors, input)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.transition(StateRanking)
	runs := make([]schema.DetectorRun, 0, len(results))
	var detections []schema.Detection
	for i, res := range results {
		run := schema.DetectorRun{
			Pattern:    detectors[i].Name(),
			Status:     res.Status,
			DurationMs: res.Duration.Milliseconds(),
		}
		switch {
		case errors.Is(res.Err, ErrMissingInput):
			run.Status = schema.StatusSkipped
			run.Reason = res.Err.Error()
		case res.Err != nil:
			run.Reason = res.Err.Error()
			contract.Logger.Warn("detector degraded", "pattern", run.Pattern, "status", run.Status, "err", res.Err)
		default:
			kept := withEvidence(res.Value)
			run.Suppressed = len(res.Value) - len(kept)
			run.Detections = len(kept)
			run.Status = schema.StatusNoPattern
			if len(kept) > 0 {
				run.Status = schema.StatusFired
			}
			detections = append(detections, kept...)
		}
		runs = append(runs, run)
	}
	detections, suppressed := suppressCovered(detections)
	for i := range runs {
		if n := suppressed[runs[i].Pattern]; n > 0 {
			runs[i].Suppressed += n
			runs[i].Detections -= n
			if runs[i].Detections == 0 {
				runs[i].Status = schema.StatusNoPattern
			}
		}
	}
	Rank(detections)

	e.transition(StateEmitting)
	batch := &schema.TeachingBatch{
		ID:           uuid.NewString(),
		GeneratedAt:  e.now().UTC(),
		Profiles:     len(input.Profiles),
		Detections:   detections,
		DetectorRuns: runs,
	}
	if batch.Detections == nil {
		batch.Detections = []schema.Detection{}
	}
	if input.Report != nil {
		batch.ReportID = input.Report.ID
	}
	contract.Logger.Debug("teaching batch emitted", "id", batch.ID, "detections", len(batch.Detections))
	return batch, nil
}

// collect copies the profile slice so that no detector can observe another's changes.
func collect(in Input) *Input {
	return &Input{
		Report:   in.Report,
		Profiles: append([]schema.TestHealthProfile(nil), in.Profiles...),
		Coverage: in.Coverage,
	}
}

func (e *Engine) detect(ctx context.Context, detectors []Detector, in *Input) []workpool.Result[[]schema.Detection] {
	tasks := make([]workpool.Task[[]schema.Detection], len(detectors))
	for i, d := range detectors {
		tasks[i] = workpool.Task[[]schema.Detection]{
			Name: string(d.Name()),
			Run: func(ctx context.Context) ([]schema.Detection, error) {
				return d.Detect(ctx, in, e.settings)
			},
		}
	}
	return workpool.Run(ctx, tasks, workpool.Options{
		Limit:   max(1, e.workers),
		Timeout: e.settings.DetectorTimeout,
	})
}

// withEvidence drops detections that cite nothing.
func withEvidence(detections []schema.Detection) []schema.Detection {
	out := make([]schema.Detection, 0, len(detections))
	for _, d := range detections {
		if len(d.Evidence) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// suppressCovered drops module-health detections for modules already caught by a more specific pattern.
func suppressCovered(detections []schema.Detection) ([]schema.Detection, map[schema.PatternName]int) {
	caught := make(map[string]bool)
	for _, d := range detections {
		if d.Pattern == schema.ModuleHealthPattern {
			continue
		}
		for _, m := range d.Modules {
			caught[m] = true
		}
	}
	suppressed := make(map[schema.PatternName]int)
	out := make([]schema.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Pattern == schema.ModuleHealthPattern && anyCaught(d.Modules, caught) {
			suppressed[d.Pattern]++
			continue
		}
		out = append(out, d)
	}
	return out, suppressed
}

func anyCaught(modules []string, caught map[string]bool) bool {
	for _, m := range modules {
		if caught[m] {
			return true
		}
	}
	return false
}

// Summary is a one-line accounting of a batch.
func Summary(batch *schema.TeachingBatch) string {
	counts := make(map[schema.WorkerStatus]int)
	for _, r := range batch.DetectorRuns {
		counts[r.Status]++
	}
	return fmt.Sprintf("%d detections; detectors: %d fired, %d no pattern, %d skipped, %d errored, %d timed out",
		len(batch.Detections), counts[schema.StatusFired], counts[schema.StatusNoPattern],
		counts[schema.StatusSkipped], counts[schema.StatusErrored], counts[schema.StatusTimedOut])
}

package arch

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/workpool"
	"github.com/huangsam/triad/schema"
)

// findingNamespace seeds the deterministic finding ids.
var findingNamespace = uuid.MustParse("6f1c2b9e-4d0a-5c8e-9a47-3e2f1d6b8c05")

// Orchestrator runs the enabled agents over one snapshot and merges their output.
type Orchestrator struct {
	registry *Registry
	settings schema.AnalyzerSettings
	progress bool
	git      contract.GitClient
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator for the given registry and settings.
func NewOrchestrator(registry *Registry, settings schema.AnalyzerSettings) *Orchestrator {
	return &Orchestrator{registry: registry, settings: settings, now: time.Now}
}

// WithProgress shows a progress bar on interactive terminals.
func (o *Orchestrator) WithProgress(enabled bool) *Orchestrator {
	o.progress = enabled
	return o
}

// WithGit uses Git history for file ages and records the scanned commit.
func (o *Orchestrator) WithGit(client contract.GitClient) *Orchestrator {
	o.git = client
	return o
}

// Run scans root and returns a new report. Agent failures are recorded in the report and never returned;
// only an unreadable target or an unknown agent fails the run.
func (o *Orchestrator) Run(ctx context.Context, root string) (*schema.AnalysisReport, error) {
	agents, err := o.enabledAgents()
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target path: %w", err)
	}
	snap, err := LoadSnapshot(ctx, absRoot, o.settings.Excludes)
	if err != nil {
		return nil, err
	}
	contract.Logger.Debug("snapshot loaded", "root", absRoot, "files", len(snap.Files))
	var commit string
	if o.git != nil {
		commit = snap.ApplyGitHistory(ctx, o.git)
	}

	report := o.analyze(ctx, snap, agents)
	report.Commit = commit

	complexity, err := ComputeComplexity(ctx, snap)
	if err != nil {
		contract.LogWarn("complexity analysis skipped", err)
	} else if len(complexity) > 0 {
		report.Complexity = complexity
	}
	return report, nil
}

// RunSnapshot analyzes an already loaded snapshot.
func (o *Orchestrator) RunSnapshot(ctx context.Context, snap *Snapshot) (*schema.AnalysisReport, error) {
	agents, err := o.enabledAgents()
	if err != nil {
		return nil, err
	}
	return o.analyze(ctx, snap, agents), nil
}

func (o *Orchestrator) enabledAgents() ([]Agent, error) {
	ids := o.settings.Agents
	if len(ids) == 0 {
		ids = o.registry.IDs()
	}
	agents := make([]Agent, 0, len(ids))
	for _, id := range ids {
		a, err := o.registry.Get(id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func (o *Orchestrator) analyze(ctx context.Context, snap *Snapshot, agents []Agent) *schema.AnalysisReport {
	limit := 1
	if o.settings.Parallel {
		limit = max(1, o.settings.Workers)
	}

	tasks := make([]workpool.Task[[]schema.Finding], len(agents))
	for i, a := range agents {
		tasks[i] = workpool.Task[[]schema.Finding]{
			Name: string(a.ID()),
			Run: func(ctx context.Context) ([]schema.Finding, error) {
				findings, err := a.Analyze(ctx, snap)
				if err != nil {
					return nil, err
				}
				return normalizeFindings(a.ID(), findings)
			},
		}
	}

	progress := workpool.NewProgress(o.progress, "Analyzing", len(tasks))
	results := workpool.Run(ctx, tasks, workpool.Options{
		Limit:    limit,
		Timeout:  o.settings.AgentTimeout,
		Progress: progress,
	})
	progress.Complete()

	report := &schema.AnalysisReport{
		SchemaVersion:  schema.ReportSchemaVersion,
		ID:             uuid.NewString(),
		ScanTimestamp:  o.now().UTC(),
		TargetPath:     snap.Root,
		FilesScanned:   len(snap.Files),
		FilesByModule:  snap.FilesByModule(),
		Findings:       []schema.Finding{},
		CategoryCounts: make(map[schema.Category]int),
		Conflicts:      []schema.Conflict{},
		AgentRuns:      make([]schema.AgentRun, 0, len(results)),
	}

	for i, res := range results {
		id := agents[i].ID()
		run := schema.AgentRun{
			Agent:      id,
			Status:     res.Status,
			Findings:   len(res.Value),
			DurationMs: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			run.Error = res.Err.Error()
			report.Degraded = true
			report.Notes = append(report.Notes, fmt.Sprintf("agent %s %s: %s", id, res.Status, res.Err))
			contract.Logger.Warn("agent degraded", "agent", id, "status", res.Status, "err", res.Err)
		} else {
			contract.Logger.Debug("agent finished", "agent", id, "status", res.Status, "findings", run.Findings, "duration", res.Duration)
		}
		report.AgentRuns = append(report.AgentRuns, run)
		report.Findings = append(report.Findings, res.Value...)
		if cat, ok := schema.AgentCategory[id]; ok && res.Status == schema.StatusCompleted {
			report.CategoryCounts[cat] += len(res.Value)
		}
	}

	report.CategoryScores = ScoreCategories(report.CategoryCounts, report.AgentRuns, report.FilesScanned,
		o.settings.CategoryWeights, o.settings.DensityScale)
	report.HealthScore = HealthScore(report.CategoryScores, report.FilesScanned, o.settings.DensityScale)
	if report.HealthScore == nil {
		report.Degraded = true
		report.Notes = append(report.Notes, "health score unknown: no category could be scored")
	}
	report.Conflicts = DetectConflicts(report.Findings)
	return report
}

// normalizeFindings stamps agent, category and deterministic ids on an agent's findings.
// Findings with an invalid severity fail the whole agent run.
func normalizeFindings(id schema.AgentID, findings []schema.Finding) ([]schema.Finding, error) {
	category := schema.AgentCategory[id]
	occurrences := make(map[string]int)
	out := make([]schema.Finding, 0, len(findings))
	for _, f := range findings {
		if _, ok := schema.ValidSeverities[f.Severity]; !ok {
			return nil, fmt.Errorf("agent %s emitted invalid severity %q", id, f.Severity)
		}
		f.Agent = id
		if category != "" {
			f.Category = category
		}
		if f.Line < 0 {
			f.Line = 0
		}
		f.Confidence = clamp(f.Confidence, 0, 1)
		if math.IsNaN(f.Confidence) {
			f.Confidence = 0
		}

		key := string(id) + "|" + f.Rule + "|" + f.File + "|" + strconv.Itoa(f.Line)
		occurrences[key]++
		f.ID = FindingID(key, occurrences[key])
		out = append(out, f)
	}
	return out, nil
}

// FindingID derives a stable id from a finding's location key and its occurrence within the key.
func FindingID(key string, occurrence int) string {
	return uuid.NewSHA1(findingNamespace, []byte(key+"|"+strconv.Itoa(occurrence))).String()
}

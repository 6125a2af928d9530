package schema

// Custom string types for type safety.
type (
	// Severity is the severity of a single finding.
	Severity string

	// Category is the analysis dimension a finding belongs to.
	Category string

	// AgentID is the stable registry key of an analysis agent.
	AgentID string

	// RemediationAction is the kind of change a remediation proposes.
	RemediationAction string

	// Outcome is the observed result of one test execution.
	Outcome string

	// RecommendationType is the kind of test-intelligence recommendation.
	RecommendationType string

	// Priority is the tier of a correlation detection.
	Priority string

	// PatternName is the stable name of a correlation pattern.
	PatternName string

	// WorkerStatus is the terminal status of an agent or detector run.
	WorkerStatus string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for a store.
	DatabaseBackend string
)

// All severities supported, lowest first.
const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
	SeverityUrgent Severity = "URGENT"
)

// All finding categories supported.
const (
	CategoryDI            Category = "DI_VIOLATION"
	CategorySecurity      Category = "SECURITY"
	CategoryUX            Category = "UX"
	CategoryFileOrg       Category = "FILE_ORG"
	CategoryPerformance   Category = "PERFORMANCE"
	CategoryDocumentation Category = "DOCUMENTATION"
)

// All agents supported.
const (
	DIAgent            AgentID = "di"
	SecurityAgent      AgentID = "security"
	UXAgent            AgentID = "ux"
	FileOrgAgent       AgentID = "fileorg"
	PerformanceAgent   AgentID = "performance"
	DocumentationAgent AgentID = "documentation"
)

// Remediation actions emitted by the agents.
const (
	ActionInjectDependency  RemediationAction = "inject_dependency"
	ActionRemoveGlobalState RemediationAction = "remove_global_state"
	ActionExternalizeSecret RemediationAction = "externalize_secret"
	ActionParameterize      RemediationAction = "parameterize_query"
	ActionSafeDeserialize   RemediationAction = "safe_deserialize"
	ActionUseToken          RemediationAction = "use_design_token"
	ActionRename            RemediationAction = "rename"
	ActionMoveFile          RemediationAction = "move_file"
	ActionSplitFile         RemediationAction = "split_file"
	ActionRemoveFile        RemediationAction = "remove_file"
	ActionBatchQuery        RemediationAction = "batch_query"
	ActionExtractFunction   RemediationAction = "extract_function"
	ActionAddCache          RemediationAction = "add_cache"
	ActionAddDocumentation  RemediationAction = "add_documentation"
)

// All test outcomes supported.
const (
	OutcomePass  Outcome = "PASS"
	OutcomeFail  Outcome = "FAIL"
	OutcomeError Outcome = "ERROR"
	OutcomeSkip  Outcome = "SKIP"
)

// All recommendation types supported.
const (
	FlakyTestFix             RecommendationType = "flaky_test_fix"
	CoverageGapFill          RecommendationType = "coverage_gap_fill"
	SlowTestInvestigate      RecommendationType = "slow_test_investigate"
	TestPyramidRebalance     RecommendationType = "test_pyramid_rebalance"
	CriticalPathAddTest      RecommendationType = "critical_path_add_test"
	DebtQuantify             RecommendationType = "debt_quantify"
	QualityGateViolation     RecommendationType = "quality_gate_violation"
	PredictiveFailureWarning RecommendationType = "predictive_failure_warning"
)

// All correlation priority tiers, lowest first.
const (
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Built-in correlation patterns.
const (
	DIFlakyPattern            PatternName = "di_violations_flaky_tests"
	ComplexityCoveragePattern PatternName = "complexity_low_coverage"
	SecurityTestGapPattern    PatternName = "security_test_gap"
	PerformanceSlowPattern    PatternName = "performance_slow_tests"
	ModuleHealthPattern       PatternName = "module_health_test_health"
)

// Terminal statuses of a worker run.
const (
	StatusCompleted WorkerStatus = "completed"
	StatusErrored   WorkerStatus = "errored"
	StatusTimedOut  WorkerStatus = "timed_out"
	StatusFired     WorkerStatus = "fired"
	StatusNoPattern WorkerStatus = "no_pattern"
	StatusSkipped   WorkerStatus = "skipped_missing_data"
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllCategories lists every category in report order.
var AllCategories = []Category{
	CategoryDI, CategorySecurity, CategoryUX, CategoryFileOrg, CategoryPerformance, CategoryDocumentation,
}

// AllAgents lists every agent in registry order.
var AllAgents = []AgentID{
	DIAgent, SecurityAgent, UXAgent, FileOrgAgent, PerformanceAgent, DocumentationAgent,
}

// AgentCategory maps each agent to the single category it reports.
var AgentCategory = map[AgentID]Category{
	DIAgent:            CategoryDI,
	SecurityAgent:      CategorySecurity,
	UXAgent:            CategoryUX,
	FileOrgAgent:       CategoryFileOrg,
	PerformanceAgent:   CategoryPerformance,
	DocumentationAgent: CategoryDocumentation,
}

// ValidSeverities lists all valid severities.
var ValidSeverities = map[Severity]struct{}{
	SeverityLow:    {},
	SeverityMedium: {},
	SeverityHigh:   {},
	SeverityUrgent: {},
}

// ValidAgents lists all valid agent ids.
var ValidAgents = map[AgentID]struct{}{
	DIAgent:            {},
	SecurityAgent:      {},
	UXAgent:            {},
	FileOrgAgent:       {},
	PerformanceAgent:   {},
	DocumentationAgent: {},
}

// ValidOutcomes lists all valid test outcomes.
var ValidOutcomes = map[Outcome]struct{}{
	OutcomePass:  {},
	OutcomeFail:  {},
	OutcomeError: {},
	OutcomeSkip:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// severityRank orders severities for sorting and weighting.
var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
	SeverityUrgent: 4,
}

// priorityRank orders correlation priorities.
var priorityRank = map[Priority]int{
	PriorityMedium: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Rank returns the ordinal of the severity (0 when invalid).
func (s Severity) Rank() int {
	return severityRank[s]
}

// Weight returns the severity as a fraction of URGENT.
func (s Severity) Weight() float64 {
	return float64(severityRank[s]) / float64(severityRank[SeverityUrgent])
}

// Rank returns the ordinal of the priority (0 when invalid).
func (p Priority) Rank() int {
	return priorityRank[p]
}

// IsFailing reports whether the outcome counts as a failure.
func (o Outcome) IsFailing() bool {
	return o == OutcomeFail || o == OutcomeError
}

// DefaultCategoryWeights returns equal weights for every category.
func DefaultCategoryWeights() map[Category]float64 {
	weights := make(map[Category]float64, len(AllCategories))
	for _, c := range AllCategories {
		weights[c] = 1.0 / float64(len(AllCategories))
	}
	return weights
}

package contract

import (
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/triad/schema"
	"gopkg.in/yaml.v3"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultRetention   = "90 days"
	DefaultFixAttempts = 3
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DefaultExcludes are path patterns never scanned by the analyzer.
var DefaultExcludes = []string{
	".git/", "vendor/", "node_modules/", "dist/", "build/", "target/", "bin/",
	".min.js", ".min.css", "go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
}

// WeightsRawInput holds custom category weights from the YAML config file.
type WeightsRawInput struct {
	DI            *float64 `mapstructure:"di_violation"`
	Security      *float64 `mapstructure:"security"`
	UX            *float64 `mapstructure:"ux"`
	FileOrg       *float64 `mapstructure:"file_org"`
	Performance   *float64 `mapstructure:"performance"`
	Documentation *float64 `mapstructure:"documentation"`
}

// IntelRawInput holds test intelligence thresholds. Zero values keep the defaults.
type IntelRawInput struct {
	Window         int      `mapstructure:"window"`
	MinSamples     int      `mapstructure:"min_samples"`
	RecentOutcomes int      `mapstructure:"recent_outcomes"`
	SlowMultiplier float64  `mapstructure:"slow_multiplier"`
	SlowAbsoluteMs float64  `mapstructure:"slow_absolute_ms"`
	FlakyThreshold float64  `mapstructure:"flaky_threshold"`
	RiskAlpha      float64  `mapstructure:"risk_alpha"`
	RiskThreshold  float64  `mapstructure:"risk_threshold"`
	CoverageTarget float64  `mapstructure:"coverage_target"`
	MinPassRate    float64  `mapstructure:"min_pass_rate"`
	MaxFlakyTests  *int     `mapstructure:"max_flaky_tests"`
	PyramidShare   *float64 `mapstructure:"pyramid_max_upper_share"`
}

// CorrelationRawInput holds correlation detector thresholds. Zero values keep the defaults.
type CorrelationRawInput struct {
	DetectorTimeout     string  `mapstructure:"detector_timeout"`
	DIMinViolations     int     `mapstructure:"di_min_violations"`
	FlakyThreshold      float64 `mapstructure:"flaky_threshold"`
	ComplexityThreshold int     `mapstructure:"complexity_threshold"`
	LowCoverage         float64 `mapstructure:"low_coverage"`
	MinCorrelation      float64 `mapstructure:"min_correlation"`
	ModuleFailureRate   float64 `mapstructure:"module_failure_rate"`
	MinModules          int     `mapstructure:"min_modules"`
}

// GateRawInput holds quality gate thresholds.
type GateRawInput struct {
	MinHealth      *float64 `mapstructure:"min_health"`
	MaxUrgent      *int     `mapstructure:"max_urgent"`
	FailOnConflict bool     `mapstructure:"fail_on_conflict"`
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	TargetPath string
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Verbose    bool
	Limit      int

	Analyzer    schema.AnalyzerSettings
	Intel       schema.IntelSettings
	Correlation schema.CorrelationSettings
	Gate        schema.GateSettings

	CoverageProfile string
	ReportFile      string
	TestID          string
	InputFile       string
	InputFormat     string
	SaveReport      bool
	WriteDrafts     bool
	FixAttempts     int
	ValidateCmd     []string
	Since           time.Time
	Until           time.Time
	Retention       time.Duration

	ReportBackend   schema.DatabaseBackend
	ReportDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	TargetPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	Verbose          bool   `mapstructure:"verbose"`
	Limit            int    `mapstructure:"limit"`
	ReportBackend    string `mapstructure:"report-backend"`
	ReportDBConnect  string `mapstructure:"report-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Retention        string `mapstructure:"retention"`

	// --- Fields from analyzeCmd.Flags() ---
	Agents         string `mapstructure:"agents"`
	Sequential     bool   `mapstructure:"sequential"`
	Workers        int    `mapstructure:"workers"`
	AgentTimeout   string `mapstructure:"agent-timeout"`
	Exclude        string `mapstructure:"exclude"`
	UXRuleset      string `mapstructure:"ux-ruleset"`
	TestRoot       string `mapstructure:"test-root"`
	MaxComponents  int    `mapstructure:"max-components"`
	StaleAfter     string `mapstructure:"stale-after"`
	ReadmeSections string `mapstructure:"readme-sections"`
	NoSave         bool   `mapstructure:"no-save"`

	// --- Fields from the test intelligence commands ---
	CoverageProfile string `mapstructure:"coverage-profile"`
	Report          string `mapstructure:"report"`
	Test            string `mapstructure:"test"`
	Input           string `mapstructure:"input"`
	Format          string `mapstructure:"format"`
	Write           bool   `mapstructure:"write"`
	Since           string `mapstructure:"since"`
	Until           string `mapstructure:"until"`

	// --- Fields from fixCmd.Flags() ---
	FixAttempts int    `mapstructure:"fix-attempts"`
	ValidateCmd string `mapstructure:"validate-cmd"`

	// --- Sections from the config file (some are also bound to flags) ---
	Weights     WeightsRawInput     `mapstructure:"weights"`
	Intel       IntelRawInput       `mapstructure:"intel"`
	Correlation CorrelationRawInput `mapstructure:"correlation"`
	Gate        GateRawInput        `mapstructure:"gate"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Analyzer.Agents = append([]schema.AgentID(nil), c.Analyzer.Agents...)
	clone.Analyzer.Excludes = append([]string(nil), c.Analyzer.Excludes...)
	clone.Analyzer.ReadmeSections = append([]string(nil), c.Analyzer.ReadmeSections...)
	clone.ValidateCmd = append([]string(nil), c.ValidateCmd...)
	if c.Analyzer.CategoryWeights != nil {
		clone.Analyzer.CategoryWeights = make(map[schema.Category]float64, len(c.Analyzer.CategoryWeights))
		maps.Copy(clone.Analyzer.CategoryWeights, c.Analyzer.CategoryWeights)
	}
	return &clone
}

// NewDefaultConfig returns a config with every default applied, used by tests and the MCP server.
func NewDefaultConfig(target string) *Config {
	analyzer := schema.DefaultAnalyzerSettings()
	analyzer.Excludes = append([]string(nil), DefaultExcludes...)
	return &Config{
		TargetPath:     target,
		Output:         schema.TextOut,
		Limit:          DefaultResultLimit,
		Analyzer:       analyzer,
		Intel:          schema.DefaultIntelSettings(),
		Correlation:    schema.DefaultCorrelationSettings(),
		Gate:           schema.DefaultGateSettings(),
		InputFormat:    "json",
		SaveReport:     true,
		FixAttempts:    DefaultFixAttempts,
		Retention:      90 * 24 * time.Hour,
		ReportBackend:  schema.SQLiteBackend,
		HistoryBackend: schema.SQLiteBackend,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processAnalyzerInputs(cfg, input); err != nil {
		return err
	}
	if err := processCustomWeights(cfg, input); err != nil {
		return err
	}
	if err := processIntelInputs(cfg, input); err != nil {
		return err
	}
	if err := processCorrelationInputs(cfg, input); err != nil {
		return err
	}
	if err := processGateInputs(cfg, input); err != nil {
		return err
	}
	return resolveTargetPath(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output and general fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose
	cfg.CoverageProfile = input.CoverageProfile
	cfg.ReportFile = input.Report
	cfg.TestID = strings.TrimSpace(input.Test)
	cfg.InputFile = input.Input
	cfg.SaveReport = !input.NoSave
	cfg.WriteDrafts = input.Write
	cfg.ValidateCmd = strings.Fields(input.ValidateCmd)

	cfg.InputFormat = strings.ToLower(input.Format)
	switch cfg.InputFormat {
	case "":
		cfg.InputFormat = "json"
		if strings.HasSuffix(strings.ToLower(input.Input), ".jsonl") {
			cfg.InputFormat = "jsonl"
		}
	case "json", "jsonl":
	default:
		return fmt.Errorf("invalid input format '%s'. must be json, jsonl", input.Format)
	}

	colors := true
	if input.Color != "" {
		parsed, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}
		colors = parsed
	}
	cfg.UseColors = colors

	cfg.Limit = DefaultResultLimit
	if input.Limit != 0 {
		if input.Limit < 0 || input.Limit > MaxResultLimit {
			return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
		}
		cfg.Limit = input.Limit
	}

	cfg.Output = schema.TextOut
	if input.Output != "" {
		cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
		if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
			return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
		}
	}

	cfg.FixAttempts = DefaultFixAttempts
	if input.FixAttempts != 0 {
		if input.FixAttempts < 0 {
			return fmt.Errorf("fix-attempts must be greater than 0 (received %d)", input.FixAttempts)
		}
		cfg.FixAttempts = input.FixAttempts
	}

	retention := input.Retention
	if retention == "" {
		retention = DefaultRetention
	}
	d, err := ParseLookbackDuration(retention)
	if err != nil {
		return fmt.Errorf("invalid retention: %w", err)
	}
	cfg.Retention = d

	now := time.Now()
	if cfg.Since, err = ParseTimeBound(input.Since, now); err != nil {
		return err
	}
	if cfg.Until, err = ParseTimeBound(input.Until, now); err != nil {
		return err
	}
	if !cfg.Since.IsZero() && !cfg.Until.IsZero() && cfg.Since.After(cfg.Until) {
		return fmt.Errorf("since (%s) cannot be after until (%s)", cfg.Since.Format(DateTimeFormat), cfg.Until.Format(DateTimeFormat))
	}
	return nil
}

// validateBackendConfigs validates report and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	parse := func(name, raw string) (schema.DatabaseBackend, error) {
		if raw == "" {
			return schema.SQLiteBackend, nil
		}
		backend := schema.DatabaseBackend(strings.ToLower(raw))
		if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
			return "", fmt.Errorf("invalid %s backend '%s'. must be sqlite, mysql, postgresql, none", name, raw)
		}
		return backend, nil
	}

	var err error
	if cfg.ReportBackend, err = parse("report", input.ReportBackend); err != nil {
		return err
	}
	cfg.ReportDBConnect = input.ReportDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ReportBackend, cfg.ReportDBConnect); err != nil {
		return err
	}

	if cfg.HistoryBackend, err = parse("history", input.HistoryBackend); err != nil {
		return err
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Both stores share a schema name space, so two sqlite stores need two files
	if cfg.ReportBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		reportPath := cfg.ReportDBConnect
		if reportPath == "" {
			reportPath = GetReportDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if reportPath == historyPath && reportPath != ":memory:" {
			return fmt.Errorf("report and history storage must use different SQLite database files. Both resolve to %q", reportPath)
		}
	}
	return nil
}

// processAnalyzerInputs handles agent selection and agent-specific settings.
func processAnalyzerInputs(cfg *Config, input *ConfigRawInput) error {
	a := schema.DefaultAnalyzerSettings()
	a.Parallel = !input.Sequential

	if input.Agents != "" {
		agents, err := ParseAgentList(input.Agents)
		if err != nil {
			return err
		}
		a.Agents = agents
	}

	a.Workers = DefaultWorkers
	if input.Workers != 0 {
		if input.Workers < 0 {
			return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
		}
		a.Workers = input.Workers
	}

	if input.AgentTimeout != "" {
		d, err := ParseLookbackDuration(input.AgentTimeout)
		if err != nil {
			return fmt.Errorf("invalid agent-timeout: %w", err)
		}
		a.AgentTimeout = d
	}

	if input.StaleAfter != "" {
		d, err := ParseLookbackDuration(input.StaleAfter)
		if err != nil {
			return fmt.Errorf("invalid stale-after: %w", err)
		}
		a.StaleAfter = d
	}

	a.Excludes = append([]string(nil), DefaultExcludes...)
	a.Excludes = append(a.Excludes, splitList(input.Exclude)...)

	if input.TestRoot != "" {
		a.TestRoot = strings.Trim(path.Clean(filepath.ToSlash(input.TestRoot)), "/")
	}
	if input.MaxComponents != 0 {
		if input.MaxComponents < 0 {
			return fmt.Errorf("max-components must be greater than 0 (received %d)", input.MaxComponents)
		}
		a.MaxComponentsPerFile = input.MaxComponents
	}
	if sections := splitList(input.ReadmeSections); len(sections) > 0 {
		a.ReadmeSections = sections
	}

	if input.UXRuleset != "" {
		ruleset, err := LoadUXRuleset(input.UXRuleset)
		if err != nil {
			return err
		}
		a.UXRuleset = ruleset
	}

	cfg.Analyzer = a
	return nil
}

// ParseAgentList parses a comma-separated list of agent ids.
func ParseAgentList(s string) ([]schema.AgentID, error) {
	var agents []schema.AgentID
	seen := make(map[schema.AgentID]bool)
	for _, part := range splitList(s) {
		id := schema.AgentID(strings.ToLower(part))
		if _, ok := schema.ValidAgents[id]; !ok {
			return nil, fmt.Errorf("invalid agent '%s'. must be one of di, security, ux, fileorg, performance, documentation", part)
		}
		if !seen[id] {
			seen[id] = true
			agents = append(agents, id)
		}
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("at least one agent must be enabled")
	}
	return agents, nil
}

// LoadUXRuleset reads a design-system ruleset from a YAML file.
// Fields missing from the file keep their defaults.
func LoadUXRuleset(file string) (schema.UXRuleset, error) {
	ruleset := schema.DefaultUXRuleset()
	data, err := os.ReadFile(file)
	if err != nil {
		return ruleset, fmt.Errorf("failed to read ux ruleset: %w", err)
	}
	if err := yaml.Unmarshal(data, &ruleset); err != nil {
		return ruleset, fmt.Errorf("failed to parse ux ruleset %s: %w", file, err)
	}
	return ruleset, nil
}

// ProcessWeightsRawInput converts WeightsRawInput into a weights map.
// If validateSum is true, it validates that the provided weights sum to 1.0.
func ProcessWeightsRawInput(weights WeightsRawInput, validateSum bool) (map[schema.Category]float64, error) {
	raw := map[schema.Category]*float64{
		schema.CategoryDI:            weights.DI,
		schema.CategorySecurity:      weights.Security,
		schema.CategoryUX:            weights.UX,
		schema.CategoryFileOrg:       weights.FileOrg,
		schema.CategoryPerformance:   weights.Performance,
		schema.CategoryDocumentation: weights.Documentation,
	}

	result := make(map[schema.Category]float64)
	sum := 0.0
	for _, c := range schema.AllCategories {
		w := raw[c]
		if w == nil {
			continue
		}
		if *w < 0 {
			return nil, fmt.Errorf("weight for category %s must not be negative, got %.3f", c, *w)
		}
		result[c] = *w
		sum += *w
	}

	if len(result) > 0 && validateSum && (sum < 0.999 || sum > 1.001) {
		return nil, fmt.Errorf("custom category weights must sum to 1.0, got %.3f", sum)
	}
	return result, nil
}

// processCustomWeights merges custom category weights over the defaults.
func processCustomWeights(cfg *Config, input *ConfigRawInput) error {
	custom, err := ProcessWeightsRawInput(input.Weights, false)
	if err != nil {
		return err
	}

	weights := schema.DefaultCategoryWeights()
	if len(custom) == len(schema.AllCategories) {
		maps.Copy(weights, custom)
	} else if len(custom) > 0 {
		// Partial overrides keep the remaining categories in their default proportion
		rest := 1.0
		for _, w := range custom {
			rest -= w
		}
		if rest < -0.001 {
			return fmt.Errorf("custom category weights exceed 1.0")
		}
		unset := len(schema.AllCategories) - len(custom)
		for _, c := range schema.AllCategories {
			if _, ok := custom[c]; !ok {
				weights[c] = max(rest, 0) / float64(unset)
			}
		}
		maps.Copy(weights, custom)
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("category weights must sum to 1.0, got %.3f", sum)
	}
	cfg.Analyzer.CategoryWeights = weights
	return nil
}

// processIntelInputs applies test intelligence overrides.
func processIntelInputs(cfg *Config, input *ConfigRawInput) error {
	s := schema.DefaultIntelSettings()
	in := input.Intel

	if in.Window < 0 || in.MinSamples < 0 || in.RecentOutcomes < 0 {
		return fmt.Errorf("intel window, min_samples and recent_outcomes must not be negative")
	}
	if in.Window > 0 {
		s.Window = in.Window
	}
	if in.MinSamples > 0 {
		s.MinSamples = in.MinSamples
	}
	if in.RecentOutcomes > 0 {
		s.RecentOutcomes = in.RecentOutcomes
	}
	if s.MinSamples > s.Window {
		return fmt.Errorf("intel min_samples (%d) cannot exceed window (%d)", s.MinSamples, s.Window)
	}
	if in.SlowMultiplier != 0 {
		s.SlowMultiplier = in.SlowMultiplier
	}
	s.SlowAbsoluteMs = in.SlowAbsoluteMs
	if s.SlowMultiplier < 0 || s.SlowAbsoluteMs < 0 {
		return fmt.Errorf("slowness thresholds must not be negative")
	}

	for name, v := range map[string]float64{
		"flaky_threshold": in.FlakyThreshold,
		"risk_alpha":      in.RiskAlpha,
		"risk_threshold":  in.RiskThreshold,
		"min_pass_rate":   in.MinPassRate,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("intel %s must be between 0.0 and 1.0 (received %.2f)", name, v)
		}
	}
	if in.FlakyThreshold != 0 {
		s.FlakyThreshold = in.FlakyThreshold
	}
	if in.RiskAlpha != 0 {
		s.RiskAlpha = in.RiskAlpha
	}
	if in.RiskThreshold != 0 {
		s.RiskThreshold = in.RiskThreshold
	}
	if in.MinPassRate != 0 {
		s.MinPassRate = in.MinPassRate
	}

	if in.CoverageTarget < 0 || in.CoverageTarget > 100 {
		return fmt.Errorf("intel coverage_target must be between 0.0 and 100.0 (received %.2f)", in.CoverageTarget)
	}
	if in.CoverageTarget != 0 {
		s.CoverageTarget = in.CoverageTarget
	}
	if in.MaxFlakyTests != nil {
		s.MaxFlakyTests = *in.MaxFlakyTests
	}
	if in.PyramidShare != nil {
		s.PyramidMaxUpperShare = *in.PyramidShare
	}

	cfg.Intel = s
	return nil
}

// processCorrelationInputs applies correlation detector overrides.
func processCorrelationInputs(cfg *Config, input *ConfigRawInput) error {
	s := schema.DefaultCorrelationSettings()
	in := input.Correlation

	if in.DetectorTimeout != "" {
		d, err := ParseLookbackDuration(in.DetectorTimeout)
		if err != nil {
			return fmt.Errorf("invalid correlation detector_timeout: %w", err)
		}
		s.DetectorTimeout = d
	}
	if in.DIMinViolations < 0 || in.ComplexityThreshold < 0 || in.MinModules < 0 {
		return fmt.Errorf("correlation counts must not be negative")
	}
	if in.DIMinViolations > 0 {
		s.DIMinViolations = in.DIMinViolations
	}
	if in.ComplexityThreshold > 0 {
		s.ComplexityThreshold = in.ComplexityThreshold
	}
	if in.MinModules > 0 {
		s.MinModules = in.MinModules
	}
	for name, v := range map[string]float64{
		"flaky_threshold":     in.FlakyThreshold,
		"min_correlation":     in.MinCorrelation,
		"module_failure_rate": in.ModuleFailureRate,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("correlation %s must be between 0.0 and 1.0 (received %.2f)", name, v)
		}
	}
	if in.FlakyThreshold != 0 {
		s.FlakyThreshold = in.FlakyThreshold
	}
	if in.MinCorrelation != 0 {
		s.MinCorrelation = in.MinCorrelation
	}
	if in.ModuleFailureRate != 0 {
		s.ModuleFailureRate = in.ModuleFailureRate
	}
	if in.LowCoverage < 0 || in.LowCoverage > 100 {
		return fmt.Errorf("correlation low_coverage must be between 0.0 and 100.0 (received %.2f)", in.LowCoverage)
	}
	if in.LowCoverage != 0 {
		s.LowCoverage = in.LowCoverage
	}

	cfg.Correlation = s
	return nil
}

// processGateInputs applies quality gate thresholds.
func processGateInputs(cfg *Config, input *ConfigRawInput) error {
	g := schema.DefaultGateSettings()
	if input.Gate.MinHealth != nil {
		if *input.Gate.MinHealth < 0 || *input.Gate.MinHealth > 100 {
			return fmt.Errorf("gate min_health must be between 0.0 and 100.0 (received %.2f)", *input.Gate.MinHealth)
		}
		g.MinHealthScore = *input.Gate.MinHealth
	}
	if input.Gate.MaxUrgent != nil {
		if *input.Gate.MaxUrgent < 0 {
			return fmt.Errorf("gate max_urgent must not be negative (received %d)", *input.Gate.MaxUrgent)
		}
		g.MaxUrgent = *input.Gate.MaxUrgent
	}
	g.FailOnConflict = input.Gate.FailOnConflict
	cfg.Gate = g
	return nil
}

// resolveTargetPath resolves the analysis target into an absolute directory.
func resolveTargetPath(cfg *Config, input *ConfigRawInput) error {
	target := input.TargetPathStr
	if target == "" {
		target = "."
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	cfg.TargetPath = filepath.Clean(abs)
	return nil
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

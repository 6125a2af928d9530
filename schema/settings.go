package schema

import "time"

// Default values for analyzer settings.
const (
	DefaultAgentTimeout         = 2 * time.Minute
	DefaultDensityScale         = 100.0
	DefaultMaxComponentsPerFile = 5
	DefaultMaxLoopDepth         = 3
	DefaultRepeatedCallMin      = 3
	DefaultTestRoot             = "tests"
)

// Default values for test intelligence settings.
const (
	DefaultWindow               = 50
	DefaultMinSamples           = 5
	DefaultRecentOutcomes       = 10
	DefaultSlowMultiplier       = 3.0
	DefaultFlakyThreshold       = 0.3
	DefaultRiskAlpha            = 0.3
	DefaultRiskThreshold        = 0.7
	DefaultCoverageTarget       = 80.0
	DefaultMinPassRate          = 0.95
	DefaultPyramidMaxUpperShare = 0.3
)

// Default values for correlation settings.
const (
	DefaultDetectorTimeout      = 30 * time.Second
	DefaultDIMinViolations      = 3
	DefaultComplexityThreshold  = 15
	DefaultLowCoverage          = 60.0
	DefaultMinCorrelation       = 0.5
	DefaultModuleFailureRate    = 0.2
	DefaultCorrelationMinTests  = 1
	DefaultCorrelationMinModule = 3
)

// UXRuleset is the design-system ruleset checked by the UX agent.
type UXRuleset struct {
	TokenProperties     []string `yaml:"token_properties"`
	AllowedLiterals     []string `yaml:"allowed_literals"`
	ClassNamePattern    string   `yaml:"class_name_pattern"`
	ForbidInlineStyles  bool     `yaml:"forbid_inline_styles"`
	ForbidLiteralColors bool     `yaml:"forbid_literal_colors"`
}

// DefaultUXRuleset returns the ruleset used when no ruleset file is configured.
func DefaultUXRuleset() UXRuleset {
	return UXRuleset{
		TokenProperties: []string{
			"margin", "margin-top", "margin-bottom", "margin-left", "margin-right",
			"padding", "padding-top", "padding-bottom", "padding-left", "padding-right",
			"gap", "font-size", "border-radius", "line-height",
		},
		AllowedLiterals:     []string{"0", "0px", "auto", "inherit", "initial", "100%"},
		ClassNamePattern:    `^[a-z][a-z0-9]*(-[a-z0-9]+)*(__[a-z0-9]+(-[a-z0-9]+)*)?(--[a-z0-9]+(-[a-z0-9]+)*)?$`,
		ForbidInlineStyles:  true,
		ForbidLiteralColors: true,
	}
}

// AnalyzerSettings configures the orchestrator and its agents.
type AnalyzerSettings struct {
	Agents               []AgentID
	Parallel             bool
	Workers              int
	AgentTimeout         time.Duration
	Excludes             []string
	CategoryWeights      map[Category]float64
	DensityScale         float64
	UXRuleset            UXRuleset
	TestRoot             string
	MaxComponentsPerFile int
	StaleAfter           time.Duration
	MaxLoopDepth         int
	RepeatedCallMin      int
	ReadmeSections       []string
}

// DefaultAnalyzerSettings returns settings with every agent enabled in parallel mode.
func DefaultAnalyzerSettings() AnalyzerSettings {
	return AnalyzerSettings{
		Agents:               append([]AgentID(nil), AllAgents...),
		Parallel:             true,
		Workers:              len(AllAgents),
		AgentTimeout:         DefaultAgentTimeout,
		CategoryWeights:      DefaultCategoryWeights(),
		DensityScale:         DefaultDensityScale,
		UXRuleset:            DefaultUXRuleset(),
		TestRoot:             DefaultTestRoot,
		MaxComponentsPerFile: DefaultMaxComponentsPerFile,
		MaxLoopDepth:         DefaultMaxLoopDepth,
		RepeatedCallMin:      DefaultRepeatedCallMin,
		ReadmeSections:       []string{"Installation", "Usage", "License"},
	}
}

// IntelSettings configures the test intelligence engine.
// SlowMultiplier and SlowAbsoluteMs are independent; zero disables either.
type IntelSettings struct {
	Window               int
	MinSamples           int
	RecentOutcomes       int
	SlowMultiplier       float64
	SlowAbsoluteMs       float64
	FlakyThreshold       float64
	RiskAlpha            float64
	RiskThreshold        float64
	CoverageTarget       float64
	MinPassRate          float64
	MaxFlakyTests        int
	PyramidMaxUpperShare float64
}

// DefaultIntelSettings returns the documented defaults.
func DefaultIntelSettings() IntelSettings {
	return IntelSettings{
		Window:               DefaultWindow,
		MinSamples:           DefaultMinSamples,
		RecentOutcomes:       DefaultRecentOutcomes,
		SlowMultiplier:       DefaultSlowMultiplier,
		FlakyThreshold:       DefaultFlakyThreshold,
		RiskAlpha:            DefaultRiskAlpha,
		RiskThreshold:        DefaultRiskThreshold,
		CoverageTarget:       DefaultCoverageTarget,
		MinPassRate:          DefaultMinPassRate,
		MaxFlakyTests:        -1,
		PyramidMaxUpperShare: DefaultPyramidMaxUpperShare,
	}
}

// CorrelationSettings configures the correlation detectors.
type CorrelationSettings struct {
	DetectorTimeout     time.Duration
	DIMinViolations     int
	FlakyThreshold      float64
	ComplexityThreshold int
	LowCoverage         float64
	MinCorrelation      float64
	ModuleFailureRate   float64
	MinTestsPerModule   int
	MinModules          int
}

// DefaultCorrelationSettings returns the documented defaults.
func DefaultCorrelationSettings() CorrelationSettings {
	return CorrelationSettings{
		DetectorTimeout:     DefaultDetectorTimeout,
		DIMinViolations:     DefaultDIMinViolations,
		FlakyThreshold:      DefaultFlakyThreshold,
		ComplexityThreshold: DefaultComplexityThreshold,
		LowCoverage:         DefaultLowCoverage,
		MinCorrelation:      DefaultMinCorrelation,
		ModuleFailureRate:   DefaultModuleFailureRate,
		MinTestsPerModule:   DefaultCorrelationMinTests,
		MinModules:          DefaultCorrelationMinModule,
	}
}

// GateSettings configures the CI quality gate.
type GateSettings struct {
	MinHealthScore float64
	MaxUrgent      int
	FailOnConflict bool
}

// DefaultGateSettings returns the documented defaults.
func DefaultGateSettings() GateSettings {
	return GateSettings{
		MinHealthScore: 70,
		MaxUrgent:      0,
	}
}

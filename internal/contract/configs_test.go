package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       *ConfigRawInput
		expectError bool
	}{
		{
			name:  "empty input uses defaults",
			input: &ConfigRawInput{},
		},
		{
			name: "valid full config",
			input: &ConfigRawInput{
				TargetPathStr:  ".",
				Output:         "json",
				Limit:          10,
				Agents:         "security,di",
				Workers:        2,
				AgentTimeout:   "30s",
				StaleAfter:     "6 months",
				Retention:      "30 days",
				ReadmeSections: "Install, Usage",
			},
		},
		{name: "invalid output", input: &ConfigRawInput{Output: "xml"}, expectError: true},
		{name: "invalid limit", input: &ConfigRawInput{Limit: MaxResultLimit + 1}, expectError: true},
		{name: "invalid agent", input: &ConfigRawInput{Agents: "security,linter"}, expectError: true},
		{name: "invalid agent timeout", input: &ConfigRawInput{AgentTimeout: "soon"}, expectError: true},
		{name: "invalid color", input: &ConfigRawInput{Color: "sometimes"}, expectError: true},
		{name: "invalid backend", input: &ConfigRawInput{ReportBackend: "oracle"}, expectError: true},
		{name: "invalid input format", input: &ConfigRawInput{Format: "junit"}, expectError: true},
		{name: "jsonl input format", input: &ConfigRawInput{Format: "JSONL"}},
		{
			name:        "mysql without connection string",
			input:       &ConfigRawInput{HistoryBackend: "mysql"},
			expectError: true,
		},
		{
			name:        "same sqlite file for both stores",
			input:       &ConfigRawInput{ReportDBConnect: "/tmp/triad.db", HistoryDBConnect: "/tmp/triad.db"},
			expectError: true,
		},
		{
			name:  "in-memory sqlite for both stores",
			input: &ConfigRawInput{ReportDBConnect: ":memory:", HistoryDBConnect: ":memory:"},
		},
		{
			name:        "since after until",
			input:       &ConfigRawInput{Since: "1 day ago", Until: "3 days ago"},
			expectError: true,
		},
		{
			name:        "min samples above window",
			input:       &ConfigRawInput{Intel: IntelRawInput{Window: 5, MinSamples: 10}},
			expectError: true,
		},
		{
			name:        "flaky threshold out of range",
			input:       &ConfigRawInput{Intel: IntelRawInput{FlakyThreshold: 1.5}},
			expectError: true,
		},
		{
			name:        "gate min health out of range",
			input:       &ConfigRawInput{Gate: GateRawInput{MinHealth: f64(120)}},
			expectError: true,
		},
		{
			name:        "weights over one",
			input:       &ConfigRawInput{Weights: WeightsRawInput{Security: f64(0.8), DI: f64(0.5)}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := ProcessAndValidate(cfg, tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{}))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.TargetPath)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, DefaultResultLimit, cfg.Limit)
	assert.True(t, cfg.UseColors)
	assert.True(t, cfg.SaveReport)
	assert.True(t, cfg.Analyzer.Parallel)
	assert.Equal(t, schema.AllAgents, cfg.Analyzer.Agents)
	assert.Equal(t, schema.SQLiteBackend, cfg.ReportBackend)
	assert.Equal(t, schema.SQLiteBackend, cfg.HistoryBackend)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention)
	assert.Equal(t, schema.DefaultIntelSettings(), cfg.Intel)
	assert.Equal(t, schema.DefaultCorrelationSettings(), cfg.Correlation)
	assert.Equal(t, schema.DefaultGateSettings(), cfg.Gate)
	assert.Contains(t, cfg.Analyzer.Excludes, "vendor/")
}

func TestProcessAndValidateOverrides(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{
		Sequential:    true,
		Agents:        "Security, security, ux",
		Exclude:       "generated/, *.pb.go",
		TestRoot:      "./spec/",
		MaxComponents: 2,
		NoSave:        true,
		Input:         "runs/nightly.jsonl",
		Test:          " pkg.TestSave ",
		ValidateCmd:   "go test ./...",
		Intel: IntelRawInput{
			Window:         20,
			MinSamples:     4,
			SlowAbsoluteMs: 500,
			MaxFlakyTests:  intp(0),
		},
		Correlation: CorrelationRawInput{DetectorTimeout: "5s", DIMinViolations: 7},
		Gate:        GateRawInput{MinHealth: f64(85), MaxUrgent: intp(2), FailOnConflict: true},
	}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.False(t, cfg.Analyzer.Parallel)
	assert.Equal(t, []schema.AgentID{schema.SecurityAgent, schema.UXAgent}, cfg.Analyzer.Agents)
	assert.Contains(t, cfg.Analyzer.Excludes, "generated/")
	assert.Contains(t, cfg.Analyzer.Excludes, "*.pb.go")
	assert.Equal(t, "spec", cfg.Analyzer.TestRoot)
	assert.Equal(t, 2, cfg.Analyzer.MaxComponentsPerFile)
	assert.False(t, cfg.SaveReport)
	assert.Equal(t, "jsonl", cfg.InputFormat)
	assert.Equal(t, "pkg.TestSave", cfg.TestID)
	assert.Equal(t, []string{"go", "test", "./..."}, cfg.ValidateCmd)

	assert.Equal(t, 20, cfg.Intel.Window)
	assert.Equal(t, 4, cfg.Intel.MinSamples)
	assert.Equal(t, 500.0, cfg.Intel.SlowAbsoluteMs)
	assert.Equal(t, schema.DefaultSlowMultiplier, cfg.Intel.SlowMultiplier)
	assert.Equal(t, 0, cfg.Intel.MaxFlakyTests)

	assert.Equal(t, 5*time.Second, cfg.Correlation.DetectorTimeout)
	assert.Equal(t, 7, cfg.Correlation.DIMinViolations)

	assert.Equal(t, 85.0, cfg.Gate.MinHealthScore)
	assert.Equal(t, 2, cfg.Gate.MaxUrgent)
	assert.True(t, cfg.Gate.FailOnConflict)
}

func TestProcessCustomWeights(t *testing.T) {
	t.Run("full override", func(t *testing.T) {
		cfg := &Config{}
		input := &ConfigRawInput{Weights: WeightsRawInput{
			DI: f64(0.5), Security: f64(0.3), UX: f64(0.05),
			FileOrg: f64(0.05), Performance: f64(0.05), Documentation: f64(0.05),
		}}
		require.NoError(t, ProcessAndValidate(cfg, input))
		assert.Equal(t, 0.5, cfg.Analyzer.CategoryWeights[schema.CategoryDI])
		assert.Equal(t, 0.3, cfg.Analyzer.CategoryWeights[schema.CategorySecurity])
	})

	t.Run("full override must sum to one", func(t *testing.T) {
		cfg := &Config{}
		input := &ConfigRawInput{Weights: WeightsRawInput{
			DI: f64(0.5), Security: f64(0.5), UX: f64(0.5),
			FileOrg: f64(0), Performance: f64(0), Documentation: f64(0),
		}}
		assert.Error(t, ProcessAndValidate(cfg, input))
	})

	t.Run("partial override spreads the remainder", func(t *testing.T) {
		cfg := &Config{}
		input := &ConfigRawInput{Weights: WeightsRawInput{Security: f64(0.5)}}
		require.NoError(t, ProcessAndValidate(cfg, input))

		weights := cfg.Analyzer.CategoryWeights
		assert.Equal(t, 0.5, weights[schema.CategorySecurity])
		assert.InDelta(t, 0.1, weights[schema.CategoryUX], 1e-9)
		total := 0.0
		for _, w := range weights {
			total += w
		}
		assert.InDelta(t, 1.0, total, 1e-9)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := ProcessWeightsRawInput(WeightsRawInput{UX: f64(-0.1)}, false)
		assert.Error(t, err)
	})
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite needs nothing", schema.SQLiteBackend, "", false},
		{"none needs nothing", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/triad", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/triad", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=triad", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadUXRuleset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ux.yaml")
	content := "token_properties: [margin, color]\nforbid_inline_styles: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ruleset, err := LoadUXRuleset(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"margin", "color"}, ruleset.TokenProperties)
	assert.False(t, ruleset.ForbidInlineStyles)
	assert.True(t, ruleset.ForbidLiteralColors, "unset fields keep their defaults")
	assert.NotEmpty(t, ruleset.ClassNamePattern)

	_, err = LoadUXRuleset(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("token_properties: {"), 0o644))
	_, err = LoadUXRuleset(bad)
	assert.Error(t, err)
}

func TestConfigClone(t *testing.T) {
	cfg := NewDefaultConfig("/tmp/project")
	clone := cfg.Clone()

	clone.Analyzer.Agents[0] = schema.UXAgent
	clone.Analyzer.CategoryWeights[schema.CategoryUX] = 0.9
	clone.Analyzer.Excludes = append(clone.Analyzer.Excludes, "extra/")

	assert.Equal(t, schema.DIAgent, cfg.Analyzer.Agents[0])
	assert.InDelta(t, 1.0/6, cfg.Analyzer.CategoryWeights[schema.CategoryUX], 1e-9)
	assert.NotContains(t, cfg.Analyzer.Excludes, "extra/")
}

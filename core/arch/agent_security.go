package arch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/triad/schema"
)

var (
	// password = "hunter2", "apiKey": "abc123", API_TOKEN := "..."
	namedSecretRe = regexp.MustCompile(`(?i)\b([\w.-]*(?:password|passwd|pwd|secret|api[_-]?key|access[_-]?key|auth[_-]?token|token|private[_-]?key|client[_-]?secret|credentials?))["']?\s*(?::=|=|:)\s*(?:[rbf]?)["'\x60]([^"'\x60\s]{4,})["'\x60]`)

	// Literals whose shape alone identifies a credential.
	secretShapes = []struct {
		name     string
		re       *regexp.Regexp
		severity schema.Severity
	}{
		{"private key block", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), schema.SeverityUrgent},
		{"AWS access key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), schema.SeverityHigh},
		{"GitHub token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), schema.SeverityHigh},
		{"API secret key", regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`), schema.SeverityHigh},
		{"Slack token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`), schema.SeverityHigh},
	}

	// Values that are references or placeholders rather than secrets.
	placeholderRe = regexp.MustCompile(`(?i)^(?:\$\{?.*|<.*>|\{\{.*\}\}|%\(.*|x{3,}|\*{3,}|changeme|example|dummy|placeholder|redacted|none|null|true|false|password|secret|token)$`)

	sqlConcatRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["'\x60]\s*(?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\b[^"'\x60]*["'\x60]\s*(?:\+|\|\||\.\s*\$|\.\s)`),
		regexp.MustCompile(`(?i)\bf["'](?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\b[^"']*\{`),
		regexp.MustCompile(`(?i)["'](?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\b[^"']*%[sd][^"']*["']\s*%`),
		regexp.MustCompile(`(?i)["'](?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\b[^"']*\{\}[^"']*["']\s*\.format\(`),
		regexp.MustCompile(`(?i)Sprintf\(\s*["\x60](?:SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\b[^"\x60]*%[svd]`),
	}

	unsafeDeserializeRe = regexp.MustCompile(`\b(?:pickle|cPickle|dill|marshal|shelve)\.loads?\(|\bjsonpickle\.decode\(|\byaml\.(?:load|load_all)\(|\bnew\s+ObjectInputStream\(|\bBinaryFormatter\(\)|\bunserialize\(`)
	safeYAMLRe          = regexp.MustCompile(`SafeLoader|CSafeLoader|safe_load`)
)

// secretFileExts are the files scanned for credentials in addition to program source.
var secretFileExts = map[string]bool{
	".yaml": true, ".yml": true, ".json": true, ".env": true, ".ini": true, ".toml": true,
	".properties": true, ".cfg": true, ".conf": true, ".sh": true, ".xml": true,
}

// SecurityAgent detects hardcoded credentials, string-built SQL and unsafe deserialization.
type SecurityAgent struct{}

// NewSecurityAgent creates the security agent.
func NewSecurityAgent() *SecurityAgent {
	return &SecurityAgent{}
}

// ID implements Agent.
func (a *SecurityAgent) ID() schema.AgentID {
	return schema.SecurityAgent
}

// Analyze implements Agent.
func (a *SecurityAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	var findings []schema.Finding
	for _, f := range snap.Files {
		source := isSource(f)
		if !source && !secretFileExts[f.Ext()] && !strings.HasPrefix(f.Base(), ".env") {
			continue
		}

		err := codeLines(ctx, f, func(n int, line string) {
			if finding, ok := secretFinding(f.Path, n, line); ok {
				findings = append(findings, finding)
				return
			}
			if !source {
				return
			}
			if sqlConcatenated(line) {
				findings = append(findings, schema.Finding{
					Rule:     "sql-concatenation",
					Severity: schema.SeverityHigh,
					File:     f.Path,
					Line:     n,
					Message:  "SQL statement is built from string concatenation or formatting",
					Remediation: remediation(schema.ActionParameterize,
						"Pass values as query parameters instead of formatting them into the statement.",
						`cursor.execute("SELECT * FROM users WHERE id = ?", (user_id,))`),
					Confidence: 0.8,
				})
				return
			}
			if unsafeDeserializeRe.MatchString(line) && !safeYAMLRe.MatchString(line) {
				findings = append(findings, schema.Finding{
					Rule:     "unsafe-deserialization",
					Severity: schema.SeverityHigh,
					File:     f.Path,
					Line:     n,
					Message:  fmt.Sprintf("Deserialization of untrusted data can execute code: %s", strings.TrimSpace(line)),
					Remediation: remediation(schema.ActionSafeDeserialize,
						"Use a data-only format such as JSON or a safe loader.", "yaml.safe_load(data)"),
					Confidence: 0.85,
				})
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

// secretFinding reports at most one credential per line.
func secretFinding(file string, n int, line string) (schema.Finding, bool) {
	for _, shape := range secretShapes {
		if shape.re.MatchString(line) {
			return schema.Finding{
				Rule:     "hardcoded-secret",
				Severity: shape.severity,
				File:     file,
				Line:     n,
				Message:  fmt.Sprintf("Hardcoded %s", shape.name),
				Remediation: remediation(schema.ActionExternalizeSecret,
					"Load the credential from the environment or a secret manager.", ""),
				Confidence: 0.95,
			}, true
		}
	}

	m := namedSecretRe.FindStringSubmatch(line)
	if m == nil || placeholderRe.MatchString(m[2]) {
		return schema.Finding{}, false
	}
	return schema.Finding{
		Rule:     "hardcoded-secret",
		Severity: schema.SeverityHigh,
		File:     file,
		Line:     n,
		Message:  fmt.Sprintf("Hardcoded credential assigned to %s", m[1]),
		Remediation: remediation(schema.ActionExternalizeSecret,
			"Load the credential from the environment or a secret manager.",
			fmt.Sprintf("%s = os.environ[%q]", m[1], strings.ToUpper(m[1]))),
		Confidence: 0.9,
	}, true
}

func sqlConcatenated(line string) bool {
	for _, re := range sqlConcatRe {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

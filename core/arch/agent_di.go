package arch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/triad/schema"
)

// dependencySuffix matches type names that usually denote a collaborator rather than a value.
const dependencySuffix = `(?:Service|Repository|Repo|Client|Store|Manager|Gateway|Dao|DAO|Connection|Provider|Adapter)`

var (
	// self.db = UserRepository(...) or this.client = new HttpClient(...)
	fieldInstantiationRe = regexp.MustCompile(`\b(?:self|this)\.\w+\s*=\s*(?:new\s+)?([A-Z]\w*` + dependencySuffix + `)\s*\(`)

	// new PaymentService(...) anywhere else in business logic
	newInstantiationRe = regexp.MustCompile(`\bnew\s+([A-Z]\w*` + dependencySuffix + `)\s*\(`)

	// ServiceLocator.get(...), container.resolve(...), Foo.getInstance()
	// The locator must be a bare identifier; o.registry.Get(id) is a field, not a global lookup.
	serviceLocatorRe = regexp.MustCompile(`(?:^|[^\w.])(?:[Ss]ervice[Ll]ocator|[Cc]ontainer|[Ii]njector|[Rr]egistry)\.(?:get|resolve|lookup|Get|Resolve|Lookup|getService|GetService)\s*\(|\b\w+\.(?:getInstance|GetInstance|instance)\(\s*\)|\b(?:get_service|resolve_service)\s*\(`)

	// var defaultStore = NewUserStore(...) at package level
	goGlobalDependencyRe = regexp.MustCompile(`^var\s+\w+\s*=\s*(?:&\s*)?(?:\w+\.)?(?:New\w*` + dependencySuffix + `\s*\(|\w*` + dependencySuffix + `\s*\{)`)

	// global name inside a Python function
	pyGlobalRe = regexp.MustCompile(`^\s+global\s+\w+`)
)

// compositionRoots are files allowed to wire concrete dependencies together.
var compositionRoots = map[string]bool{
	"main.go": true, "main.py": true, "app.py": true, "wsgi.py": true, "asgi.py": true,
	"main.ts": true, "main.js": true, "index.ts": true, "index.js": true, "server.ts": true, "server.js": true,
	"container.py": true, "container.ts": true, "bootstrap.py": true, "bootstrap.ts": true, "wire.go": true,
}

// DIAgent detects direct instantiation of collaborators, service locator lookups and global state.
type DIAgent struct{}

// NewDIAgent creates the dependency injection agent.
func NewDIAgent() *DIAgent {
	return &DIAgent{}
}

// ID implements Agent.
func (a *DIAgent) ID() schema.AgentID {
	return schema.DIAgent
}

// Analyze implements Agent.
func (a *DIAgent) Analyze(ctx context.Context, snap *Snapshot) ([]schema.Finding, error) {
	var findings []schema.Finding
	for _, f := range snap.Files {
		if !isSource(f) || isTestFile(f) || compositionRoots[f.Base()] {
			continue
		}
		isGo := f.Ext() == ".go"
		isPython := f.Ext() == ".py"

		err := codeLines(ctx, f, func(n int, line string) {
			switch {
			case serviceLocatorRe.MatchString(line):
				findings = append(findings, schema.Finding{
					Rule:     "service-locator",
					Severity: schema.SeverityHigh,
					File:     f.Path,
					Line:     n,
					Message:  fmt.Sprintf("Dependency resolved through a global lookup: %s", strings.TrimSpace(line)),
					Remediation: remediation(schema.ActionInjectDependency,
						"Accept the dependency as a constructor parameter instead of resolving it at runtime.",
						"def __init__(self, repo: UserRepository): self.repo = repo"),
					Confidence: 0.8,
				})

			case fieldInstantiationRe.MatchString(line):
				name := fieldInstantiationRe.FindStringSubmatch(line)[1]
				findings = append(findings, schema.Finding{
					Rule:     "direct-instantiation",
					Severity: schema.SeverityMedium,
					File:     f.Path,
					Line:     n,
					Message:  fmt.Sprintf("Concrete dependency %s is instantiated inside the class instead of injected", name),
					Remediation: remediation(schema.ActionInjectDependency,
						fmt.Sprintf("Pass %s (or an interface it satisfies) into the constructor.", name), ""),
					Confidence: 0.85,
				})

			case !isPython && newInstantiationRe.MatchString(line):
				name := newInstantiationRe.FindStringSubmatch(line)[1]
				findings = append(findings, schema.Finding{
					Rule:     "direct-instantiation",
					Severity: schema.SeverityMedium,
					File:     f.Path,
					Line:     n,
					Message:  fmt.Sprintf("Concrete dependency %s is created in business logic", name),
					Remediation: remediation(schema.ActionInjectDependency,
						fmt.Sprintf("Create %s in the composition root and inject it.", name), ""),
					Confidence: 0.7,
				})

			case isGo && goGlobalDependencyRe.MatchString(line):
				findings = append(findings, schema.Finding{
					Rule:     "global-state",
					Severity: schema.SeverityMedium,
					File:     f.Path,
					Line:     n,
					Message:  "Package-level variable holds a shared dependency",
					Remediation: remediation(schema.ActionRemoveGlobalState,
						"Construct the dependency in main and pass it to the types that use it.", ""),
					Confidence: 0.75,
				})

			case isPython && pyGlobalRe.MatchString(line):
				findings = append(findings, schema.Finding{
					Rule:     "global-state",
					Severity: schema.SeverityMedium,
					File:     f.Path,
					Line:     n,
					Message:  fmt.Sprintf("Function mutates module state: %s", strings.TrimSpace(line)),
					Remediation: remediation(schema.ActionRemoveGlobalState,
						"Keep the state on an object that is passed to the function.", ""),
					Confidence: 0.8,
				})
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

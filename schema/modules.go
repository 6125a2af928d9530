package schema

import (
	"path"
	"strings"
)

// RootModule is the module of files at the top of the scanned tree.
const RootModule = "."

// testRootPrefixes are stripped before comparing a test module to a source module.
var testRootPrefixes = []string{"tests/", "test/", "__tests__/", "spec/", "specs/"}

// ModuleOfFile returns the slash-separated directory of a relative file path.
func ModuleOfFile(file string) string {
	file = strings.ReplaceAll(file, "\\", "/")
	return path.Dir(strings.TrimPrefix(file, "./"))
}

// ModuleOfTest derives the module of a test from its identifier.
//
// Supported shapes:
//   - "pkg/path/file_test.py::TestClass::test_name" (pytest node ids)
//   - "github.com/org/repo/pkg.TestName/subtest" (go test)
//   - "com.org.pkg.ClassTest#method" (JUnit style)
func ModuleOfTest(testID string) string {
	id := strings.ReplaceAll(testID, "\\", "/")
	if left, _, ok := strings.Cut(id, "::"); ok {
		if path.Ext(left) != "" {
			return path.Dir(left)
		}
		return strings.TrimSuffix(left, "/")
	}
	if idx := strings.LastIndex(id, ".Test"); idx > 0 {
		return id[:idx]
	}
	if left, _, ok := strings.Cut(id, "#"); ok {
		if dot := strings.LastIndex(left, "."); dot > 0 {
			return strings.ReplaceAll(left[:dot], ".", "/")
		}
		return RootModule
	}
	return RootModule
}

// normalizeModule strips a leading test root so tests/foo matches foo.
func normalizeModule(m string) string {
	m = strings.TrimSuffix(strings.TrimPrefix(m, "./"), "/")
	for _, p := range testRootPrefixes {
		if strings.HasPrefix(m, p) {
			return strings.TrimPrefix(m, p)
		}
	}
	switch m {
	case "tests", "test", "__tests__", "spec", "specs", "":
		return RootModule
	}
	return m
}

// ModulesMatch reports whether a test module and a source module refer to the same code.
// Either side may carry extra leading path segments (an import path or a test root).
func ModulesMatch(a, b string) bool {
	a, b = normalizeModule(a), normalizeModule(b)
	if a == b {
		return true
	}
	if a == RootModule || b == RootModule {
		return false
	}
	return strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}

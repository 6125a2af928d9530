package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleOfFile(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"main.go", "."},
		{"./main.go", "."},
		{"internal/store/db.go", "internal/store"},
		{`internal\store\db.go`, "internal/store"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModuleOfFile(tt.file), tt.file)
	}
}

func TestModuleOfTest(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"tests/store/test_db.py::TestDB::test_open", "tests/store"},
		{"test_root.py::test_x", "."},
		{"tests/store::test_open", "tests/store"},
		{"github.com/acme/app/internal/store.TestOpen/sub", "github.com/acme/app/internal/store"},
		{"com.acme.store.DBTest#open", "com/acme/store"},
		{"DBTest#open", "."},
		{"plain_name", "."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModuleOfTest(tt.id), tt.id)
	}
}

func TestModulesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"internal/store", "internal/store", true},
		{"tests/store", "store", true},
		{"github.com/acme/app/internal/store", "internal/store", true},
		{"com/acme/store", "store", true},
		{".", ".", true},
		{"tests", ".", true},
		{".", "store", false},
		{"internal/store", "internal/cache", false},
		{"internal/restore", "store", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModulesMatch(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

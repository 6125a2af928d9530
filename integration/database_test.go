//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestTriadWithMySQL tests the triad CLI with a MySQL backend.
func TestTriadWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "triad",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/triad?parseTime=true", host, port.Port())

	// Both stores share one database; their tables never overlap
	env := storeEnv("mysql", connStr)
	runStoreLifecycle(t, env)
}

// TestTriadWithPostgres tests the triad CLI with a PostgreSQL backend.
func TestTriadWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	// Both stores share one database; their tables never overlap
	env := storeEnv("postgresql", connStr)
	runStoreLifecycle(t, env)
}

func storeEnv(backend, connStr string) []string {
	return []string{
		"TRIAD_REPORT_BACKEND=" + backend,
		"TRIAD_REPORT_DB_CONNECT=" + connStr,
		"TRIAD_HISTORY_BACKEND=" + backend,
		"TRIAD_HISTORY_DB_CONNECT=" + connStr,
	}
}

// runStoreLifecycle migrates, fills, inspects, prunes and clears both stores.
func runStoreLifecycle(t *testing.T, env []string) {
	root := writeFixture(t)
	run := func(stdin string, args ...string) string {
		out, err := runTriad(t, root, env, stdin, args...)
		require.NoError(t, err, "triad %v", args)
		return out
	}

	run("", "reports", "clear")
	run("", "history", "clear")
	run("", "reports", "migrate")
	run("", "history", "migrate")

	run("", "analyze", "--limit", "5")
	assert.Contains(t, run(executionRecords(), "record", "--format", "jsonl"), "Recorded 16 test executions.")
	run("", "profiles")
	run("", "correlate")

	assert.Contains(t, run("", "reports", "status"), "Total Reports: 1")
	assert.Contains(t, run("", "history", "status"), "Connected: true")

	// Records from 2026 are within a 100 year retention
	assert.Contains(t, run("", "history", "prune", "--retention", "100 years"), "Pruned 0 test executions")

	run("", "reports", "clear")
	run("", "history", "clear")
}

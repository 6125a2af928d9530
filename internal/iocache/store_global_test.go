package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManager{}
}

func TestInitStores(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	dir := t.TempDir()
	err := InitStores(
		schema.SQLiteBackend, filepath.Join(dir, "reports.db"),
		schema.SQLiteBackend, filepath.Join(dir, "history.db"),
	)
	require.NoError(t, err)
	assert.NotNil(t, Manager.GetReportStore())
	assert.NotNil(t, Manager.GetHistoryStore())

	// Subsequent calls are no-ops
	require.NoError(t, InitStores("oracle", "", "oracle", ""))

	CloseStores()
	CloseStores()
}

func TestInitStores_EmptyBackends(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	require.NoError(t, InitStores("", "", schema.NoneBackend, ""))
	assert.Nil(t, Manager.GetReportStore())
	assert.NotNil(t, Manager.GetHistoryStore())
	CloseStores()
}

func TestInitStores_Error(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	err := InitStores(schema.NoneBackend, "", "oracle", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "history store")
}

func TestClearReportsAndHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reports.db")

	store, err := NewReportStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	require.NoError(t, ClearReports(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	// Missing files are fine
	assert.NoError(t, ClearReports(schema.SQLiteBackend, dbPath, ""))
	assert.NoError(t, ClearHistory(schema.SQLiteBackend, filepath.Join(dir, "missing.db"), ""))

	assert.Error(t, ClearReports(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearHistory("oracle", "", ""))
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/spf13/viper"
)

// storeConfig loads the backend and connection string of one store from the config file,
// env and flags. prefix is "report" or "history".
func storeConfig(prefix string) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := strings.ToLower(viper.GetString(prefix + "-backend"))
	connStr := viper.GetString(prefix + "-db-connect")

	// Handle empty backend as the default sqlite backend
	backend := schema.SQLiteBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
		if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
			return "", "", fmt.Errorf("invalid %s backend '%s'. must be sqlite, mysql, postgresql, none", prefix, backendStr)
		}
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// pruneCutoff returns the oldest time kept by a prune with the configured retention.
func pruneCutoff() (time.Time, error) {
	retention, err := contract.ParseLookbackDuration(viper.GetString("retention"))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid retention: %w", err)
	}
	return time.Now().Add(-retention), nil
}

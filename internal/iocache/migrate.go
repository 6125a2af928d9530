package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/triad/schema"
)

// Version tables keep the two stores independent when they share a database.
const (
	reportsMigrationsTable = "triad_reports_migrations"
	historyMigrationsTable = "triad_history_migrations"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateReports runs database migrations for the report store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func MigrateReports(backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	return runMigrations("reports", reportsMigrationsTable, GetReportDBFilePath(), backend, connStr, targetVersion)
}

// MigrateHistory runs database migrations for the history store with the same version semantics as MigrateReports.
func MigrateHistory(backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	return runMigrations("history", historyMigrationsTable, GetHistoryDBFilePath(), backend, connStr, targetVersion)
}

func runMigrations(store, versionTable, defaultPath string, backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.NoneBackend {
		return fmt.Errorf("migrations are not supported for NoneBackend")
	}

	db, err := openMigrationDB(backend, connStr, defaultPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// Create a migrate driver instance
	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: versionTable})
		if err != nil {
			return fmt.Errorf("failed to create SQLite migrate driver: %w", err)
		}

	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: versionTable})
		if err != nil {
			return fmt.Errorf("failed to create MySQL migrate driver: %w", err)
		}

	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: versionTable})
		if err != nil {
			return fmt.Errorf("failed to create PostgreSQL migrate driver: %w", err)
		}
	}

	// Get the migrations subdirectory for this store and backend
	migrationFS, err := fs.Sub(migrationsFS, path.Join("migrations", store, string(backend)))
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "triad_"+store, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		return fmt.Errorf("%s database is in a dirty state at version %d. Please fix manually or force version", store, currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate %s to latest version: %w", store, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. The %s database is already at the latest version.\n", store)
		} else {
			newVersion, _, _ := m.Version()
			fmt.Printf("Successfully migrated %s from version %d to version %d\n", store, currentVersion, newVersion)
		}

	case targetVersion == 0:
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back %s to version 0: %w", store, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. The %s database is already at version 0\n", store)
		} else {
			fmt.Printf("Successfully rolled back %s from version %d to version 0\n", store, currentVersion)
		}

	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate %s to version %d: %w", store, targetVersion, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. The %s database is already at version %d\n", store, targetVersion)
		} else {
			fmt.Printf("Successfully migrated %s from version %d to version %d\n", store, currentVersion, targetVersion)
		}
	}

	return nil
}

// openMigrationDB opens the database like the stores do, with multi-statement scripts enabled for MySQL.
func openMigrationDB(backend schema.DatabaseBackend, connStr, defaultPath string) (*sql.DB, error) {
	if backend != schema.MySQLBackend {
		return openDB(backend, connStr, defaultPath)
	}
	dsn, err := mysqlDSN(connStr, true)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL connection string: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Package db is the sync journal: one row per run and one per synchronized
// entry, kept in SQLite next to the global config.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the journal database file inside the base directory.
const FileName = "journal.db"

// Init opens (creating if needed) the journal at baseDir/journal.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.coursesync.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: runs and events
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS runs (
		  id          TEXT PRIMARY KEY,
		  kind        TEXT NOT NULL,
		  status      TEXT NOT NULL,
		  courses     INTEGER NOT NULL DEFAULT 0,
		  failed      INTEGER NOT NULL DEFAULT 0,
		  started_at  INTEGER NOT NULL,
		  finished_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started
		ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS events (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		  course     TEXT NOT NULL,
		  scope      TEXT NOT NULL,
		  key        TEXT,
		  remote_id  TEXT,
		  outcome    TEXT NOT NULL,
		  items      INTEGER NOT NULL DEFAULT 0,
		  detail     TEXT,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_run
		ON events(run_id, id);

		CREATE INDEX IF NOT EXISTS idx_events_course
		ON events(course, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration is one step of the phrase database schema.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// migrations run in order. Append only; never edit an applied step.
var migrations = []Migration{
	{1, "Initial user phrase table", `
CREATE TABLE IF NOT EXISTS user_phrases (
    reading     TEXT NOT NULL,
    phrase      TEXT NOT NULL,
    position    INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    PRIMARY KEY (reading, phrase)
);
CREATE INDEX IF NOT EXISTS idx_user_phrases_order ON user_phrases(reading, position);
`},
	{2, "Record phrase source", `
ALTER TABLE user_phrases ADD COLUMN source TEXT NOT NULL DEFAULT 'marked';
`},
}

const createMigrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    applied_at  INTEGER NOT NULL,
    description TEXT
)`

// requiredTables must exist in a migrated database.
var requiredTables = []string{"user_phrases", "schema_migrations"}

// MigrateDB brings db up to the latest schema. Each step commits on its own
// so an interrupted upgrade resumes where it stopped.
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(createMigrationTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version > current {
			if err := applyMigration(db, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)`,
		m.Version, time.Now().UnixNano(), m.Description); err != nil {
		return fmt.Errorf("migration %d: record: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}

// MigrationStatus compares a database with the known migrations.
type MigrationStatus struct {
	CurrentVersion int
	LatestVersion  int
	Pending        []Migration
	Applied        []AppliedMigration
}

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	Version     int
	AppliedAt   time.Time
	Description string
}

// GetMigrationStatus reads schema_migrations. A database that was never
// migrated reports every migration as pending.
func GetMigrationStatus(db *sql.DB) (*MigrationStatus, error) {
	status := &MigrationStatus{LatestVersion: migrations[len(migrations)-1].Version}

	rows, err := db.Query(`SELECT version, applied_at, description FROM schema_migrations ORDER BY version`)
	if err != nil {
		status.Pending = migrations
		return status, nil
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var (
			am AppliedMigration
			at int64
		)
		if err := rows.Scan(&am.Version, &at, &am.Description); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		am.AppliedAt = time.Unix(0, at)
		status.Applied = append(status.Applied, am)
		status.CurrentVersion = max(status.CurrentVersion, am.Version)
		done[am.Version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		if !done[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// ValidateSchema fails when a required table is missing.
func ValidateSchema(db *sql.DB) error {
	for _, table := range requiredTables {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("missing required table: %s", table)
		}
	}
	return nil
}

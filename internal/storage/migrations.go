package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// CurrentSchemaVersion is the user_version a fully migrated database reports.
const CurrentSchemaVersion = 2

// schemaStep moves the database from version-1 to version.
type schemaStep struct {
	name       string
	statements []string
	version    int
}

var schemaSteps = []schemaStep{
	{
		version: 1,
		name:    "statement cache",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS statements (
				cache_key  TEXT PRIMARY KEY,
				origin     TEXT,
				periods    TEXT NOT NULL,
				fetched_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS statement_rows (
				cache_key TEXT NOT NULL REFERENCES statements(cache_key) ON DELETE CASCADE,
				position  INTEGER NOT NULL,
				raw_label TEXT NOT NULL,
				amounts   TEXT NOT NULL,
				PRIMARY KEY (cache_key, position)
			)`,
		},
	},
	{
		version: 2,
		name:    "repair audit trail",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS repair_actions (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id       TEXT NOT NULL,
				raw_label        TEXT NOT NULL,
				normalized_label TEXT NOT NULL,
				kind             TEXT NOT NULL CHECK (kind IN ('add_pattern', 'override', 'abort')),
				category         TEXT,
				pattern          TEXT,
				resolved         INTEGER NOT NULL DEFAULT 0,
				created_at       DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_repair_actions_session ON repair_actions(session_id, id)`,
		},
	},
}

// Migrate brings the schema up to CurrentSchemaVersion. Each step runs in its
// own transaction together with the user_version bump, so a failed step
// leaves the previous version intact.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than supported version %d",
			ErrUnsupportedSchema, version, CurrentSchemaVersion)
	}

	for _, step := range schemaSteps {
		if step.version <= version {
			continue
		}
		if err := s.withTx(ctx, step.apply); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", step.version, step.name, err)
		}
		slog.Debug("Applied migration", "version", step.version, "name", step.name)
	}

	if version, err = s.SchemaVersion(ctx); err != nil {
		return err
	}
	if version != CurrentSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", CurrentSchemaVersion, version)
	}
	return nil
}

func (step schemaStep) apply(tx *sql.Tx) error {
	for _, stmt := range step.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters.
	_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", step.version))
	return err
}

// SchemaVersion reports the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

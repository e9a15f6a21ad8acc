package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SchemaVersion is the latest schema version
const SchemaVersion = 2

// Migration is one schema change, applied in a transaction
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				started_at TEXT NOT NULL,
				completed_at TEXT,
				contamination REAL NOT NULL DEFAULT 0,
				enrollments INTEGER NOT NULL DEFAULT 0,
				demographic INTEGER NOT NULL DEFAULT 0,
				biometric INTEGER NOT NULL DEFAULT 0,
				anomalies INTEGER NOT NULL DEFAULT 0,
				integrity_hits INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS anomalies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				date TEXT NOT NULL,
				state TEXT NOT NULL,
				district TEXT NOT NULL,
				pincode TEXT NOT NULL,
				total INTEGER NOT NULL,
				age_0_5 INTEGER NOT NULL,
				age_5_17 INTEGER NOT NULL,
				age_18_plus INTEGER NOT NULL,
				score REAL NOT NULL,
				category TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id)`,
			`CREATE TABLE IF NOT EXISTS integrity_flags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				state TEXT NOT NULL,
				district TEXT NOT NULL,
				month TEXT NOT NULL,
				enrollment_total INTEGER NOT NULL,
				demographic_total INTEGER NOT NULL,
				biometric_total INTEGER NOT NULL,
				demo_to_enrol REAL NOT NULL,
				bio_to_enrol REAL NOT NULL,
				bio_to_demo REAL NOT NULL,
				fraud_types TEXT NOT NULL,
				primary_type TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_integrity_flags_run ON integrity_flags(run_id)`,
		},
	},
	{
		Version:     2,
		Description: "Index runs by start time",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		},
	},
}

// Migrate applies every migration newer than the database's user_version
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Applied migration",
			slog.Int("version", m.Version),
			slog.String("description", m.Description))
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer rollback(tx)

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

// Version returns the applied schema version
func (s *Store) Version(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aadhaarcli/internal/integrity"
	"aadhaarcli/pkg/contracts/domain"
)

const (
	timeLayout     = time.RFC3339Nano
	dateLayout     = "2006-01-02"
	tagSeparator   = ", "
	fraudSeparator = "; "

	// DefaultListLimit caps ListRuns when no limit is given
	DefaultListLimit = 20
)

const runColumns = `id, status, started_at, completed_at, contamination, enrollments,
	demographic, biometric, anomalies, integrity_hits, error`

// SaveRun stores the run summary with its flagged records and flagged
// integrity rows. Saving an existing run ID replaces it.
func (s *Store) SaveRun(ctx context.Context, run domain.Run, scored []domain.ScoredRecord, integrity []domain.IntegrityRow) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	for _, stmt := range []string{
		"DELETE FROM anomalies WHERE run_id = ?",
		"DELETE FROM integrity_flags WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, run.ID); err != nil {
			return fmt.Errorf("failed to clear run %s: %w", run.ID, err)
		}
	}

	var completed sql.NullString
	if run.CompletedAt != nil {
		completed = sql.NullString{String: run.CompletedAt.UTC().Format(timeLayout), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt.UTC().Format(timeLayout), completed,
		run.Contamination, run.Enrollments, run.Demographic, run.Biometric,
		run.Anomalies, run.IntegrityHits, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	anomalies, err := insertAnomalies(ctx, tx, run.ID, scored)
	if err != nil {
		return err
	}
	flags, err := insertIntegrity(ctx, tx, run.ID, integrity)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.InfoContext(ctx, "Saved run",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Int("anomalies", anomalies),
		slog.Int("integrity_flags", flags))
	return nil
}

func insertAnomalies(ctx context.Context, tx *sql.Tx, runID string, scored []domain.ScoredRecord) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anomalies
		(run_id, date, state, district, pincode, total, age_0_5, age_5_17, age_18_plus, score, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare anomaly insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, r := range scored {
		if !r.Label.Outlier {
			continue
		}
		_, err := stmt.ExecContext(ctx, runID, r.Date.Format(dateLayout), r.State, r.District, r.Pincode,
			r.Total, r.Age0To5, r.Age5To17, r.Age18Plus, r.Label.Score, r.Label.Category())
		if err != nil {
			return n, fmt.Errorf("failed to insert anomaly: %w", err)
		}
		n++
	}
	return n, nil
}

func insertIntegrity(ctx context.Context, tx *sql.Tx, runID string, rows []domain.IntegrityRow) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO integrity_flags
		(run_id, state, district, month, enrollment_total, demographic_total, biometric_total,
		 demo_to_enrol, bio_to_enrol, bio_to_demo, fraud_types, primary_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare integrity insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, r := range rows {
		if !r.Flagged() {
			continue
		}
		types := make([]string, len(r.FraudTypes))
		for i, ft := range r.FraudTypes {
			types[i] = string(ft)
		}
		_, err := stmt.ExecContext(ctx, runID, r.Key.State, r.Key.District, r.Key.Month,
			r.EnrollmentTotal, r.DemographicTotal, r.BiometricTotal,
			r.DemoToEnrol, r.BioToEnrol, r.BioToDemo,
			strings.Join(types, fraudSeparator), string(r.Primary))
		if err != nil {
			return n, fmt.Errorf("failed to insert integrity flag: %w", err)
		}
		n++
	}
	return n, nil
}

// GetRun returns the run with the given ID or ErrRunNotFound
func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit uses DefaultListLimit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunAnomalies returns the flagged records stored for a run, highest score first
func (s *Store) RunAnomalies(ctx context.Context, runID string) ([]domain.ScoredRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, state, district, pincode, total,
		age_0_5, age_5_17, age_18_plus, score, category
		FROM anomalies WHERE run_id = ? ORDER BY score DESC, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredRecord
	for rows.Next() {
		var (
			r        domain.ScoredRecord
			date     string
			category string
		)
		if err := rows.Scan(&date, &r.State, &r.District, &r.Pincode, &r.Total,
			&r.Age0To5, &r.Age5To17, &r.Age18Plus, &r.Label.Score, &category); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		r.YearMonth = r.Date.Format(domain.MonthLayout)
		r.Label.Outlier = true
		if category != domain.CategoryOther {
			r.Label.Tags = strings.Split(category, tagSeparator)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunIntegrity returns the flagged integrity rows stored for a run
func (s *Store) RunIntegrity(ctx context.Context, runID string) ([]domain.IntegrityRow, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT state, district, month, enrollment_total,
		demographic_total, biometric_total, demo_to_enrol, bio_to_enrol, bio_to_demo,
		fraud_types, primary_type
		FROM integrity_flags WHERE run_id = ? ORDER BY state, district, month`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrity flags: %w", err)
	}
	defer rows.Close()

	var out []domain.IntegrityRow
	for rows.Next() {
		var (
			r       domain.IntegrityRow
			types   string
			primary string
		)
		if err := rows.Scan(&r.Key.State, &r.Key.District, &r.Key.Month,
			&r.EnrollmentTotal, &r.DemographicTotal, &r.BiometricTotal,
			&r.DemoToEnrol, &r.BioToEnrol, &r.BioToDemo, &types, &primary); err != nil {
			return nil, fmt.Errorf("failed to scan integrity flag: %w", err)
		}
		for _, t := range strings.Split(types, fraudSeparator) {
			if t != "" {
				r.FraudTypes = append(r.FraudTypes, domain.FraudType(t))
			}
		}
		r.Primary = domain.FraudType(primary)
		r.Dead = integrity.IsDead(r.GeoAggregate)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its stored results
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	for _, stmt := range []string{
		"DELETE FROM anomalies WHERE run_id = ?",
		"DELETE FROM integrity_flags WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete run results: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var (
		run       domain.Run
		status    string
		started   string
		completed sql.NullString
	)
	err := sc.Scan(&run.ID, &status, &started, &completed, &run.Contamination,
		&run.Enrollments, &run.Demographic, &run.Biometric, &run.Anomalies,
		&run.IntegrityHits, &run.Error)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completed.String, err)
		}
		run.CompletedAt = &t
		run.Duration = t.Sub(run.StartedAt)
	}
	return &run, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is one row of the run ledger: one generation of one run.
type RunRecord struct {
	RunID      string       `db:"run_id"`
	Generation int          `db:"generation"`
	Phase      string       `db:"phase"`
	Processed  int          `db:"processed"`
	Accepted   int          `db:"accepted"`
	Reason     string       `db:"reason"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
}

// RunLedgerRepo records the lifecycle of every generation for auditing.
type RunLedgerRepo struct {
	db *DB
}

// NewRunLedgerRepo creates a new run ledger repository.
func NewRunLedgerRepo(db *DB) *RunLedgerRepo {
	return &RunLedgerRepo{db: db}
}

// RecordStart inserts (or resets) the row for a generation.
func (r *RunLedgerRepo) RecordStart(ctx context.Context, runID string, generation int, phase string) error {
	query := `
		INSERT INTO run_ledger (run_id, generation, phase, processed, accepted, reason, started_at)
		VALUES ($1, $2, $3, 0, 0, '', NOW())
		ON CONFLICT (run_id, generation)
		DO UPDATE SET phase = EXCLUDED.phase, started_at = NOW(), finished_at = NULL`
	if _, err := r.db.ExecContext(ctx, query, runID, generation, phase); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordEscalation marks a generation as healed with the escalation reason.
func (r *RunLedgerRepo) RecordEscalation(ctx context.Context, runID string, generation int, reason string) error {
	query := `
		UPDATE run_ledger
		SET phase = $3, reason = $4, finished_at = NOW()
		WHERE run_id = $1 AND generation = $2`
	if _, err := r.db.ExecContext(ctx, query, runID, generation, "HEALED", reason); err != nil {
		return fmt.Errorf("failed to record escalation: %w", err)
	}
	return nil
}

// RecordCompletion marks a generation as completed with its counters.
func (r *RunLedgerRepo) RecordCompletion(ctx context.Context, runID string, generation, processed, accepted int) error {
	query := `
		UPDATE run_ledger
		SET phase = $3, processed = $4, accepted = $5, finished_at = NOW()
		WHERE run_id = $1 AND generation = $2`
	if _, err := r.db.ExecContext(ctx, query, runID, generation, "COMPLETED", processed, accepted); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// List returns the most recent ledger rows, newest first.
func (r *RunLedgerRepo) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []RunRecord
	query := `
		SELECT run_id, generation, phase, processed, accepted, reason, started_at, finished_at
		FROM run_ledger
		ORDER BY started_at DESC
		LIMIT $1`
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list run ledger: %w", err)
	}
	return records, nil
}

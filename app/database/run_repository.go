package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// RunRepo handles pipeline run records
type RunRepo struct {
	db *DB
}

var _ RunRepository = (*RunRepo)(nil)

func NewRunRepository(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Create(runID string) error {
	_, err := r.db.Exec(`
		INSERT INTO pipeline_runs (id, status)
		VALUES ($1, $2)
	`, runID, RunStatusRunning)

	if err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}

	return nil
}

// Finalize completes a run record. The completion timestamp is set in the
// same statement that moves the status out of running.
func (r *RunRepo) Finalize(runID string, update RunUpdate) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = $2, completed_at = NOW(), items_found = $3, items_processed = $4,
		    error_count = $5, errors = $6, duration_ms = $7, total_cost = $8, total_tokens = $9
		WHERE id = $1 AND status = $10
	`, runID, update.Status, update.ItemsFound, update.ItemsProcessed,
		len(update.Errors), pq.Array(update.Errors), update.DurationMs,
		update.TotalCost, update.TotalTokens, RunStatusRunning)

	if err != nil {
		return fmt.Errorf("failed to finalize pipeline run: %w", err)
	}

	return nil
}

func (r *RunRepo) GetByID(runID string) (*PipelineRun, error) {
	var run PipelineRun
	err := r.db.QueryRow(`
		SELECT id, status, started_at, completed_at, items_found, items_processed,
		       error_count, COALESCE(errors, '{}'), duration_ms, total_cost, total_tokens
		FROM pipeline_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.Status, &run.StartedAt, &run.CompletedAt, &run.ItemsFound,
		&run.ItemsProcessed, &run.ErrorCount, pq.Array(&run.Errors),
		&run.DurationMs, &run.TotalCost, &run.TotalTokens,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}

	return &run, nil
}

func (r *RunRepo) GetRecent(limit int) ([]PipelineRun, error) {
	rows, err := r.db.Query(`
		SELECT id, status, started_at, completed_at, items_found, items_processed,
		       error_count, COALESCE(errors, '{}'), duration_ms, total_cost, total_tokens
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		err := rows.Scan(
			&run.ID, &run.Status, &run.StartedAt, &run.CompletedAt, &run.ItemsFound,
			&run.ItemsProcessed, &run.ErrorCount, pq.Array(&run.Errors),
			&run.DurationMs, &run.TotalCost, &run.TotalTokens,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline run rows: %w", err)
	}

	return runs, nil
}

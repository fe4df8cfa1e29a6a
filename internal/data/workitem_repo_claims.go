package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/merchkit/merchsync/internal/domain/model"
)

// SQL used by ClaimPending to atomically take ownership of a pending job.
// The status predicate makes the claim race-free: of any number of concurrent
// claimants for the same key, exactly one sees a row come back.
const claimPendingSQL = `
  UPDATE sync_jobs
  SET
    status = 'running',
    started_at = $4,
    updated_at = $4
  WHERE shop = $1 AND start_date = $2 AND object_type = $3
    AND status = 'pending'
  RETURNING ` + itemColumns

// ClaimPending transitions a pending job to running and returns the claimed
// row. Returns model.ErrNoItemsAvailable when the job is missing or was
// already taken by a concurrent claimant.
func (r *WorkItemRepo) ClaimPending(ctx context.Context, key model.WorkKey) (*model.WorkItem, error) {
	currentTime := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(
		ctx,
		claimPendingSQL,
		key.Shop,
		key.StartDate.UTC().Truncate(24*time.Hour),
		key.ObjectType,
		currentTime,
	)

	item, err := scanItemFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoItemsAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("claim sync job: %w", err)
	}
	return item, nil
}

// MarkCompleted marks a running job as completed with its processed record
// count. Returns false when the job was not running (the watchdog may have
// reclaimed it first).
func (r *WorkItemRepo) MarkCompleted(ctx context.Context, id string, recordsProcessed int) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = 'completed',
		    records_processed = $2,
		    error_message = NULL,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, id, recordsProcessed, currentTime)
	if err != nil {
		return false, fmt.Errorf("complete sync job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkFailed marks a running job as failed with the given error message and
// bumps the attempt counter. A job that has exhausted its attempt budget goes
// to dead instead and will not be retried without an explicit reset. The
// returned status is the job's resulting status, or empty when the job was
// not running.
func (r *WorkItemRepo) MarkFailed(ctx context.Context, id, errMsg string) (model.WorkStatus, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
      UPDATE sync_jobs
      SET
        error_message = $2,
        attempts = attempts + 1,
        status = CASE WHEN attempts + 1 >= $3 THEN 'dead' ELSE 'failed' END,
        completed_at = $4,
        updated_at = $4
      WHERE id = $1 AND status = 'running'
      RETURNING status
    `

	var status model.WorkStatus
	if err := r.DB.QueryRowContext(ctx, query, id, errMsg, r.maxAttempts(), currentTime).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fail sync job: %w", err)
	}

	if status == model.StatusDead && r.logger != nil {
		r.logger.WarnContext(ctx, "sync job moved to dead letter",
			"item_id", id,
			"max_attempts", r.maxAttempts(),
		)
	}
	return status, nil
}

// ResetFailed requeues failed jobs as pending, clearing their error state and
// attempt counter. Returns the number of jobs requeued.
func (r *WorkItemRepo) ResetFailed(ctx context.Context, filters ListFilters) (int, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE sync_jobs
		SET status = 'pending',
		    attempts = 0,
		    error_message = NULL,
		    started_at = NULL,
		    completed_at = NULL,
		    updated_at = $1
		WHERE status = 'failed'`
	args := []any{currentTime}
	query, args = appendFilters(query, args, filters)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset failed sync jobs: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// ResetDead requeues dead jobs as pending. Separate from ResetFailed so
// operators opt in to re-running jobs that already burned their full budget.
func (r *WorkItemRepo) ResetDead(ctx context.Context, filters ListFilters) (int, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE sync_jobs
		SET status = 'pending',
		    attempts = 0,
		    error_message = NULL,
		    started_at = NULL,
		    completed_at = NULL,
		    updated_at = $1
		WHERE status = 'dead'`
	args := []any{currentTime}
	query, args = appendFilters(query, args, filters)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset dead sync jobs: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// ReclassifyEmpty converts a failed job to completed with zero records and a
// diagnostic note. Used when the upstream confirms the window genuinely has
// nothing to sync.
func (r *WorkItemRepo) ReclassifyEmpty(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = 'completed',
		    records_processed = 0,
		    error_message = 'reclassified: window has no records upstream',
		    completed_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'failed'
	`, id, currentTime)
	if err != nil {
		return false, fmt.Errorf("reclassify sync job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reclassify rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

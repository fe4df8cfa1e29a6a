package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/merchkit/merchsync/internal/data/pgxutil"
	"github.com/merchkit/merchsync/internal/domain/model"
)

// Advisory lock namespace for watchdog operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 2000 is reserved for merchsync watchdog operations.
const (
	advisoryLockWatchdogMajor      = 2000
	advisoryLockWatchdogFailStale  = 1 // minor key for FailStaleRunning
	advisoryLockWatchdogDeleteDone = 2 // minor key for DeleteOldCompleted
)

// FailStaleRunning marks running jobs whose started_at is older than maxAge as
// failed so the dispatcher can retry them. Processes up to batchSize jobs per
// call to prevent long locks and I/O spikes. Uses advisory locks so concurrent
// watchdog instances do not conflict. Returns the keys of the reclaimed jobs.
func (r *WorkItemRepo) FailStaleRunning(
	ctx context.Context,
	maxAge time.Duration,
	batchSize int,
) ([]model.WorkKey, error) {
	if maxAge <= 0 {
		return nil, errors.New("max age must be greater than zero")
	}
	if batchSize <= 0 {
		return nil, errors.New("batch size must be greater than zero")
	}

	var reclaimed []model.WorkKey
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockWatchdogMajor, advisoryLockWatchdogFailStale).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-maxAge)
			message := fmt.Sprintf("watchdog: exceeded %s staleness threshold", maxAge)

			rows, err := tx.QueryContext(ctx, `
				UPDATE sync_jobs
				SET status = 'failed',
					error_message = $1,
					completed_at = $2,
					updated_at = $2
				WHERE id IN (
					SELECT id FROM sync_jobs
					WHERE status = 'running'
					  AND started_at IS NOT NULL
					  AND started_at < $3
					ORDER BY started_at
					LIMIT $4
				)
				RETURNING shop, start_date, object_type
			`, message, currentTime.UTC(), cutoffTime.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("fail stale running jobs: %w", err)
			}
			defer func() { _ = rows.Close() }()

			for rows.Next() {
				var key model.WorkKey
				if scanErr := rows.Scan(&key.Shop, &key.StartDate, &key.ObjectType); scanErr != nil {
					return fmt.Errorf("scan reclaimed job: %w", scanErr)
				}
				reclaimed = append(reclaimed, key)
			}
			if rowsErr := rows.Err(); rowsErr != nil {
				return fmt.Errorf("iterate reclaimed jobs: %w", rowsErr)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return reclaimed, nil
}

// DeleteOldCompleted deletes completed jobs older than maxAge. Processes up to
// batchSize jobs per call. Returns the number of jobs deleted.
func (r *WorkItemRepo) DeleteOldCompleted(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockWatchdogMajor, advisoryLockWatchdogDeleteDone).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-maxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM sync_jobs
				WHERE id IN (
					SELECT id FROM sync_jobs
					WHERE status = 'completed'
					  AND completed_at < $1
					ORDER BY completed_at
					LIMIT $2
				)
			`, cutoffTime, batchSize)
			if err != nil {
				return fmt.Errorf("delete old completed jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

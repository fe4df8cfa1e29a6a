package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/merchkit/merchsync/internal/data/pgxutil"
	"github.com/merchkit/merchsync/internal/domain/model"
)

// InsertIfAbsent inserts pending single-day jobs for the given keys, skipping
// any key that already exists in any status. Returns the number of rows
// actually inserted.
func (r *WorkItemRepo) InsertIfAbsent(ctx context.Context, keys []model.WorkKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	now := r.timeProvider.Now().UTC()

	var inserted int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			query, args := buildInsertIfAbsentQuery(keys, now)
			tag, execErr := tx.Exec(ctx, query, args...)
			if execErr != nil {
				return fmt.Errorf("insert sync jobs: %w", execErr)
			}
			inserted = tag.RowsAffected()
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// buildInsertIfAbsentQuery builds a multi-row INSERT ... ON CONFLICT DO NOTHING
// statement. The natural key constraint makes re-insertion a no-op, which keeps
// gap filling idempotent under concurrent invocations.
func buildInsertIfAbsentQuery(keys []model.WorkKey, now time.Time) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
      INSERT INTO sync_jobs (shop, object_type, start_date, end_date, status, created_at, updated_at)
      VALUES `)

	args := make([]any, 0, len(keys)*4+1)
	args = append(args, now)
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		day := k.StartDate.UTC().Truncate(24 * time.Hour)
		base := len(args)
		args = append(args, k.Shop, k.ObjectType, day)
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, 'pending', $1, $1)", base+1, base+2, base+3, base+3))
	}
	sb.WriteString(`
      ON CONFLICT (shop, start_date, object_type) DO NOTHING`)
	return sb.String(), args
}

// ListByStatus returns jobs in the given status ordered by (start_date, shop),
// oldest window first, optionally narrowed by shop and object type.
func (r *WorkItemRepo) ListByStatus(
	ctx context.Context,
	status model.WorkStatus,
	filters ListFilters,
	limit int,
) ([]model.WorkItem, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	query := `
      SELECT ` + itemColumns + `
      FROM sync_jobs
      WHERE status = $1`
	args := []any{status}
	query, args = appendFilters(query, args, filters)
	query += `
      ORDER BY start_date ASC, shop ASC, object_type ASC
      LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	return r.queryItems(ctx, query, args...)
}

// ListWindows pages through every job whose window falls inside [start, end],
// regardless of status. Gap detection relies on seeing all of them, so the
// method loops until a short page rather than trusting a single query.
func (r *WorkItemRepo) ListWindows(
	ctx context.Context,
	start, end time.Time,
	objectType *model.ObjectType,
) ([]model.WorkItem, error) {
	const pageSize = 500

	base := `
      SELECT ` + itemColumns + `
      FROM sync_jobs
      WHERE start_date >= $1 AND start_date <= $2`
	args := []any{start.UTC().Truncate(24 * time.Hour), end.UTC().Truncate(24 * time.Hour)}
	if objectType != nil {
		base += ` AND object_type = $3`
		args = append(args, *objectType)
	}
	base += `
      ORDER BY start_date ASC, shop ASC, object_type ASC
      LIMIT ` + strconv.Itoa(pageSize) + ` OFFSET $` + strconv.Itoa(len(args)+1)

	var all []model.WorkItem
	for offset := 0; ; offset += pageSize {
		pageArgs := append(append([]any{}, args...), offset)
		page, err := r.queryItems(ctx, base, pageArgs...)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// GetByID retrieves a sync job by its ID.
func (r *WorkItemRepo) GetByID(ctx context.Context, id string) (*model.WorkItem, error) {
	var item *model.WorkItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+itemColumns+`
			FROM sync_jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		item, err = collectItemFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync job: %w", err)
	}
	return item, nil
}

// GetByKey retrieves a sync job by its natural key.
func (r *WorkItemRepo) GetByKey(ctx context.Context, key model.WorkKey) (*model.WorkItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM sync_jobs
		WHERE shop = $1 AND start_date = $2 AND object_type = $3
	`, key.Shop, key.StartDate.UTC().Truncate(24*time.Hour), key.ObjectType)

	item, err := scanItemFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get sync job by key: %w", err)
	}
	return item, nil
}

// CountByStatus returns job counts per status, optionally narrowed by shop
// and object type.
func (r *WorkItemRepo) CountByStatus(ctx context.Context, filters ListFilters) (*model.SyncStats, error) {
	query := `
  SELECT
    count(*) FILTER (WHERE status = 'pending')   AS pending,
    count(*) FILTER (WHERE status = 'running')   AS running,
    count(*) FILTER (WHERE status = 'completed') AS completed,
    count(*) FILTER (WHERE status = 'failed')    AS failed,
    count(*) FILTER (WHERE status = 'dead')      AS dead
  FROM sync_jobs
  WHERE TRUE`
	var args []any
	query, args = appendFilters(query, args, filters)

	var s model.SyncStats
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&s.Pending,
		&s.Running,
		&s.Completed,
		&s.Failed,
		&s.Dead,
	)
	if err != nil {
		return nil, fmt.Errorf("count sync jobs: %w", err)
	}
	return &s, nil
}

func appendFilters(query string, args []any, filters ListFilters) (string, []any) {
	if filters.Shop != "" {
		args = append(args, filters.Shop)
		query += ` AND shop = $` + strconv.Itoa(len(args))
	}
	if filters.ObjectType != "" {
		args = append(args, filters.ObjectType)
		query += ` AND object_type = $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (r *WorkItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]model.WorkItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.WorkItem
	for rows.Next() {
		item, scanErr := scanItemFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan sync job: %w", scanErr)
		}
		items = append(items, *item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate sync jobs: %w", rowsErr)
	}
	return items, nil
}

// collectItemFromRows collects a single sync job from pgx rows.
func collectItemFromRows(rows pgx.Rows) (*model.WorkItem, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	item, err := scanItemFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return item, nil
}

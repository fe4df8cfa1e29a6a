package data

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/merchkit/merchsync/internal/domain/model"
)

var (
	// ErrItemNotFound is returned when a sync job is not found.
	ErrItemNotFound = errors.New("sync job not found")
	// ErrItemNotClaimable is returned when a claim targets a job that is not pending.
	ErrItemNotClaimable = errors.New("sync job is not pending and cannot be claimed")
)

// RepoConfig holds configuration options for the sync job repository.
type RepoConfig struct {
	MaxAttempts  int
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

const defaultMaxAttempts = 5

// WorkItemRepo provides database operations for sync job management.
type WorkItemRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewWorkItemRepo creates a new WorkItemRepo instance with the given database connection and configuration.
func NewWorkItemRepo(db *sql.DB, cfg RepoConfig) *WorkItemRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &WorkItemRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

func (r *WorkItemRepo) maxAttempts() int {
	if r.cfg.MaxAttempts > 0 {
		return r.cfg.MaxAttempts
	}
	return defaultMaxAttempts
}

const itemColumns = `
  id,
  shop,
  object_type,
  start_date,
  end_date,
  status,
  attempts,
  records_processed,
  error_message,
  started_at,
  completed_at,
  created_at,
  updated_at
`

// ListFilters narrows list and count queries. Zero values match everything.
type ListFilters struct {
	Shop       string
	ObjectType model.ObjectType
}

type itemRowScanner interface {
	Scan(dest ...any) error
}

type itemRowData struct {
	errorMessage           sql.NullString
	startedAt, completedAt sql.NullTime
}

func (d *itemRowData) scanInto(scanner itemRowScanner, item *model.WorkItem) error {
	return scanner.Scan(
		&item.ID,
		&item.Shop,
		&item.ObjectType,
		&item.StartDate,
		&item.EndDate,
		&item.Status,
		&item.Attempts,
		&item.RecordsProcessed,
		&d.errorMessage,
		&d.startedAt,
		&d.completedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

func (d *itemRowData) apply(item *model.WorkItem) {
	item.ErrorMessage = cloneNullableString(d.errorMessage)
	item.StartedAt = cloneNullableTime(d.startedAt)
	item.CompletedAt = cloneNullableTime(d.completedAt)
}

func scanItemFromRow(scanner itemRowScanner) (*model.WorkItem, error) {
	item := &model.WorkItem{}
	var data itemRowData
	if err := data.scanInto(scanner, item); err != nil {
		return nil, err
	}

	data.apply(item)
	return item, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

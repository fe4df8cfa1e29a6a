// Package core contains the repository and collaborator interfaces (ports in
// hexagonal architecture) between the service layer and the data/transport
// layers. Service implementations depend on these interfaces, not concrete
// implementations.
package core

import (
	"context"
	"time"

	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/domain/model"
)

// WorkItemRepository defines the interface for sync job data operations.
type WorkItemRepository interface {
	InsertIfAbsent(ctx context.Context, keys []model.WorkKey) (int, error)
	ListByStatus(ctx context.Context, status model.WorkStatus, filters data.ListFilters, limit int) ([]model.WorkItem, error)
	ListWindows(ctx context.Context, start, end time.Time, objectType *model.ObjectType) ([]model.WorkItem, error)
	GetByID(ctx context.Context, id string) (*model.WorkItem, error)
	ClaimPending(ctx context.Context, key model.WorkKey) (*model.WorkItem, error)
	MarkCompleted(ctx context.Context, id string, recordsProcessed int) (bool, error)
	MarkFailed(ctx context.Context, id, errMsg string) (model.WorkStatus, error)
	ResetFailed(ctx context.Context, filters data.ListFilters) (int, error)
	ResetDead(ctx context.Context, filters data.ListFilters) (int, error)
	ReclassifyEmpty(ctx context.Context, id string) (bool, error)
	CountByStatus(ctx context.Context, filters data.ListFilters) (*model.SyncStats, error)
}

// WatchdogRepository defines the interface for stale job reclamation.
type WatchdogRepository interface {
	// FailStaleRunning marks running jobs older than maxAge as failed.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the keys of the reclaimed jobs.
	FailStaleRunning(ctx context.Context, maxAge time.Duration, batchSize int) ([]model.WorkKey, error)

	// DeleteOldCompleted deletes completed jobs older than maxAge.
	// Processes up to batchSize jobs per call. Returns the number deleted.
	DeleteOldCompleted(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// SyncExecutor performs the actual record transfer for one sync job and
// reports how many records it processed. Implementations must be safe for
// concurrent use; the dispatcher fans out across shops.
type SyncExecutor interface {
	Execute(ctx context.Context, item model.WorkItem) (int, error)
}

// OrderSyncResult summarizes one order transfer slice.
type OrderSyncResult struct {
	Processed   int
	WithRefunds int
}

// OrderSyncer transfers order records for a slice of a shop window. A limit
// of zero or less means the whole window; otherwise offset and limit select
// one chunk of a chunked sync.
type OrderSyncer interface {
	SyncOrders(ctx context.Context, shop string, start, end time.Time, offset, limit int) (OrderSyncResult, error)
}

// OrderCounter answers how much work a shop window holds without syncing it.
type OrderCounter interface {
	// CountOrders returns the upstream order count for a shop window.
	CountOrders(ctx context.Context, shop string, start, end time.Time) (int, error)

	// ExpectedRecords returns the upstream record count for one job's window
	// and object type. Used to validate failed jobs against empty periods.
	ExpectedRecords(ctx context.Context, item model.WorkItem) (int, error)
}

// EstimateStore caches order-count estimates between strategy decisions.
type EstimateStore interface {
	Get(ctx context.Context, shop string, start, end time.Time) (int, bool, error)
	Set(ctx context.Context, shop string, start, end time.Time, estimate int) error
}

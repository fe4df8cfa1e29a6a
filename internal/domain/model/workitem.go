// Package model defines the core data types and structures used throughout the merchsync orchestrator.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ObjectType represents the kind of e-commerce record a sync job covers.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ObjectType string

// WorkStatus represents the current status of a sync job.
type WorkStatus string

const (
	// ObjectTypeOrders covers order records.
	ObjectTypeOrders ObjectType = "orders"
	// ObjectTypeSKUs covers product/SKU records.
	ObjectTypeSKUs ObjectType = "skus"
	// ObjectTypeRefunds covers refund records.
	ObjectTypeRefunds ObjectType = "refunds"
	// ObjectTypeShippingDiscounts covers shipping discount records.
	ObjectTypeShippingDiscounts ObjectType = "shipping_discounts"
	// ObjectTypeFulfillments covers fulfillment records.
	ObjectTypeFulfillments ObjectType = "fulfillments"

	// StatusPending indicates a job is waiting to be picked up.
	StatusPending WorkStatus = "pending"
	// StatusRunning indicates a job has been claimed and is executing.
	StatusRunning WorkStatus = "running"
	// StatusCompleted indicates a job finished successfully.
	StatusCompleted WorkStatus = "completed"
	// StatusFailed indicates a job failed and is eligible for retry.
	StatusFailed WorkStatus = "failed"
	// StatusDead indicates a job exhausted its retry budget.
	StatusDead WorkStatus = "dead"
)

// ErrNoItemsAvailable is returned when a claim finds no pending job to take.
var ErrNoItemsAvailable = errors.New("no pending items available")

// AllObjectTypes lists every object type in dispatch order.
var AllObjectTypes = []ObjectType{
	ObjectTypeOrders,
	ObjectTypeSKUs,
	ObjectTypeRefunds,
	ObjectTypeShippingDiscounts,
	ObjectTypeFulfillments,
}

// UnmarshalText implements encoding.TextUnmarshaler for ObjectType to allow env parsing.
func (t *ObjectType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	ot := ObjectType(v)
	if ot.Valid() {
		*t = ot
		return nil
	}
	return fmt.Errorf("invalid ObjectType: %q", v)
}

// Valid returns true if the ObjectType is valid.
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeOrders, ObjectTypeSKUs, ObjectTypeRefunds,
		ObjectTypeShippingDiscounts, ObjectTypeFulfillments:
		return true
	}
	return false
}

// Concurrency returns how many jobs of this type may execute in parallel.
// SKU syncs mutate shared product state upstream and must run one at a time.
func (t ObjectType) Concurrency() int {
	switch t {
	case ObjectTypeOrders, ObjectTypeRefunds:
		return 3
	case ObjectTypeSKUs:
		return 1
	default:
		return 2
	}
}

// Valid returns true if the WorkStatus is valid.
func (s WorkStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusDead:
		return true
	}
	return false
}

// Terminal reports whether a job in this status will never run again
// without an explicit reset.
func (s WorkStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDead
}

// WorkKey identifies a sync job by its natural unique key.
type WorkKey struct {
	Shop       string     `json:"shop"`
	StartDate  time.Time  `json:"start_date"`
	ObjectType ObjectType `json:"object_type"`
}

// String renders the key in log-friendly form.
func (k WorkKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Shop, k.StartDate.Format(DateLayout), k.ObjectType)
}

// DateLayout is the canonical date-only format for sync windows.
const DateLayout = "2006-01-02"

// WorkItem represents one sync job: a (shop, window, object type) unit of work.
type WorkItem struct {
	ID               string     `json:"id"                       db:"id"`
	Shop             string     `json:"shop"                     db:"shop"`
	ObjectType       ObjectType `json:"object_type"              db:"object_type"`
	StartDate        time.Time  `json:"start_date"               db:"start_date"`
	EndDate          time.Time  `json:"end_date"                 db:"end_date"`
	Status           WorkStatus `json:"status"                   db:"status"`
	Attempts         int        `json:"attempts"                 db:"attempts"`
	RecordsProcessed int        `json:"records_processed"        db:"records_processed"`
	ErrorMessage     *string    `json:"error_message,omitempty"  db:"error_message"`
	StartedAt        *time.Time `json:"started_at,omitempty"     db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"   db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"               db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"               db:"updated_at"`
}

// Key returns the natural unique key of the item.
func (w *WorkItem) Key() WorkKey {
	return WorkKey{Shop: w.Shop, StartDate: w.StartDate, ObjectType: w.ObjectType}
}

// NewWorkItem builds a pending single-day item for the given key.
func NewWorkItem(shop string, day time.Time, objectType ObjectType) WorkItem {
	d := day.UTC().Truncate(24 * time.Hour)
	return WorkItem{
		Shop:       shop,
		ObjectType: objectType,
		StartDate:  d,
		EndDate:    d,
		Status:     StatusPending,
	}
}

// CreateItemsRequest represents a request to backfill missing sync jobs.
type CreateItemsRequest struct {
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	ObjectType *ObjectType `json:"object_type,omitempty"`
	Shops      []string    `json:"shops,omitempty"`
}

// Validate validates the CreateItemsRequest fields.
func (r *CreateItemsRequest) Validate() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.New("end_date must not precede start_date")
	}
	if r.ObjectType != nil && !r.ObjectType.Valid() {
		return errors.New("invalid object type")
	}
	return nil
}

// SyncStats represents counts of sync jobs in each state.
type SyncStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Dead      int `json:"dead"`
}

// Total returns the number of jobs across all states.
func (s SyncStats) Total() int {
	return s.Pending + s.Running + s.Completed + s.Failed + s.Dead
}

// Complete reports whether no work remains to dispatch.
func (s SyncStats) Complete() bool {
	return s.Pending == 0
}

// GapStats summarizes a gap-fill pass.
type GapStats struct {
	Expected  int `json:"expected"`
	Existing  int `json:"existing"`
	Created   int `json:"created"`
	Remaining int `json:"remaining"`
}

// DispatchReport is the outcome of one dispatcher invocation.
type DispatchReport struct {
	Complete        bool      `json:"complete"`
	Message         string    `json:"message"`
	Stats           SyncStats `json:"stats"`
	Processed       int       `json:"processed"`
	Failed          int       `json:"failed"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// SweepReport is the outcome of one watchdog sweep.
type SweepReport struct {
	Cleaned   int       `json:"cleaned"`
	Items     []WorkKey `json:"jobs,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

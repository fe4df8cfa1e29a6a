package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/domain/model"
	domainsync "github.com/merchkit/merchsync/internal/domain/sync"
	"github.com/merchkit/merchsync/internal/observability/metrics"
	"github.com/merchkit/merchsync/internal/observability/statsd"
)

// GapFillServiceOptions groups dependencies for GapFillService.
type GapFillServiceOptions struct {
	Repo    core.WorkItemRepository // Required: sync job repository
	Config  config.GapFillConfig    // Required: gap-fill configuration
	Shops   []string                // Required: registered shop names
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// GapFillService detects missing sync windows and creates pending jobs for
// them. The expected matrix is shops × days × object types; anything in the
// matrix without a persisted job, whatever its status, is a gap.
type GapFillService struct {
	repo    core.WorkItemRepository
	config  config.GapFillConfig
	shops   []string
	logger  *slog.Logger
	metrics statsd.Sink
	retry   core.RetryPolicy
}

// NewGapFillService constructs a new GapFillService.
func NewGapFillService(opts GapFillServiceOptions) (*GapFillService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WorkItemRepository is required")
	}
	if len(opts.Shops) == 0 {
		return nil, errors.New("at least one shop is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "gapfill_service")
		logger.Debug("GapFillService initialized",
			"shops", len(opts.Shops),
			"lookback_days", opts.Config.LookbackDays,
			"insert_batch_size", opts.Config.InsertBatchSize,
		)
	}

	return &GapFillService{
		repo:    opts.Repo,
		config:  opts.Config,
		shops:   opts.Shops,
		logger:  logger,
		metrics: opts.Metrics,
		retry: core.RetryPolicy{
			InitialInterval: opts.Config.RetryInitialInterval,
			MaxInterval:     opts.Config.RetryMaxInterval,
			MaxTries:        opts.Config.RetryMaxTries,
		},
	}, nil
}

// FillRequest scopes a gap-fill pass. Zero dates default to the configured
// lookback window ending today; an empty object type covers all types; empty
// shops cover every registered shop.
type FillRequest struct {
	Start      time.Time        `json:"start,omitempty"`
	End        time.Time        `json:"end,omitempty"`
	ObjectType model.ObjectType `json:"object_type,omitempty"`
	Shops      []string         `json:"shops,omitempty"`
}

// Fill detects and creates missing sync jobs for the requested window.
// Creation is idempotent: jobs that appeared since detection are skipped by
// the conditional insert, never duplicated or reset.
func (s *GapFillService) Fill(ctx context.Context, req FillRequest) (*model.GapStats, error) {
	start, end, err := s.resolveWindow(req)
	if err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	shops, err := s.resolveShops(req.Shops)
	if err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	types := model.AllObjectTypes
	var typeFilter *model.ObjectType
	if req.ObjectType != "" {
		if !req.ObjectType.Valid() {
			return nil, fmt.Errorf("validate request: invalid object type %q", req.ObjectType)
		}
		types = []model.ObjectType{req.ObjectType}
		typeFilter = &req.ObjectType
	}

	days := domainsync.DaysInRange(start, end)
	expected := domainsync.ExpectedKeys(shops, days, types)

	existing, err := s.repo.ListWindows(ctx, start, end, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("list existing windows: %w", err)
	}

	missing := domainsync.MissingKeys(expected, existing)
	created, insertErr := s.insertMissing(ctx, missing)

	stats := &model.GapStats{
		Expected:  len(expected),
		Existing:  len(expected) - len(missing),
		Created:   created,
		Remaining: len(missing) - created,
	}

	s.emitFillMetrics(stats, insertErr)

	if insertErr != nil {
		return stats, fmt.Errorf("create missing jobs: %w", insertErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "gap-fill pass finished",
			"window_start", start.Format(model.DateLayout),
			"window_end", end.Format(model.DateLayout),
			"expected", stats.Expected,
			"created", stats.Created,
			"remaining", stats.Remaining,
		)
	}

	return stats, nil
}

// resolveWindow applies the lookback default and normalizes to UTC days.
func (s *GapFillService) resolveWindow(req FillRequest) (time.Time, time.Time, error) {
	start, end := req.Start, req.End
	if start.IsZero() && end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
		start = end.AddDate(0, 0, -(s.config.LookbackDays - 1))
		return start, end, nil
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, errors.New("start and end must be set together")
	}
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not be before start")
	}
	return start, end, nil
}

// resolveShops restricts the pass to requested shops, defaulting to every
// registered shop. Unknown shops are rejected rather than silently skipped.
func (s *GapFillService) resolveShops(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return s.shops, nil
	}

	known := make(map[string]struct{}, len(s.shops))
	for _, shop := range s.shops {
		known[shop] = struct{}{}
	}
	for _, shop := range requested {
		if _, ok := known[shop]; !ok {
			return nil, fmt.Errorf("unknown shop %q", shop)
		}
	}
	return requested, nil
}

// insertMissing creates the missing jobs in batches, retrying each batch on
// transient failure. A batch that exhausts its retries is skipped so one bad
// batch cannot block the rest; its keys stay missing for the next pass.
func (s *GapFillService) insertMissing(ctx context.Context, missing []model.WorkKey) (int, error) {
	var (
		created int
		errs    []error
	)

	for _, batch := range domainsync.Batch(missing, s.config.InsertBatchSize) {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		err := s.retry.Retry(ctx, func() error {
			n, insertErr := s.repo.InsertIfAbsent(ctx, batch)
			if insertErr != nil {
				return insertErr
			}
			created += n
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("insert batch of %d: %w", len(batch), err))
			if s.logger != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "gap-fill insert batch failed",
					"batch_size", len(batch),
					"error", err,
				)
			}
		}
	}

	if len(errs) > 0 {
		return created, errors.Join(errs...)
	}
	return created, nil
}

func (s *GapFillService) emitFillMetrics(stats *model.GapStats, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if suppressContextCancellation(err) != nil {
		result = metrics.ResultError
	} else if stats.Created == 0 {
		result = metrics.ResultNoop
	}

	s.metrics.Count("gapfill.pass", 1, map[string]string{"result": result})
	if stats.Created > 0 {
		s.metrics.Count("gapfill.created", int64(stats.Created), nil)
	}
	if stats.Remaining > 0 {
		s.metrics.Gauge("gapfill.remaining", float64(stats.Remaining), nil)
	}
}

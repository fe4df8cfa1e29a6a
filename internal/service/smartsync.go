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

// SmartSyncServiceOptions groups dependencies for SmartSyncService.
type SmartSyncServiceOptions struct {
	Counter   core.OrderCounter      // Required: upstream order counting
	Syncer    core.OrderSyncer       // Required: order record transfer
	Estimates core.EstimateStore     // Optional: estimate cache
	Config    config.SmartSyncConfig // Required: smart sync configuration
	Logger    *slog.Logger           // Optional: structured logger
	Metrics   statsd.Sink            // Optional: metrics sink (StatsD-compatible)
}

// SmartSyncService syncs a shop's orders for an arbitrary window, picking
// the transfer strategy from an upstream size estimate. Small windows run
// in one direct pass; large ones are split into fixed-size chunks processed
// strictly in sequence so the upstream rate limiter is never hammered.
type SmartSyncService struct {
	counter   core.OrderCounter
	syncer    core.OrderSyncer
	estimates core.EstimateStore
	config    config.SmartSyncConfig
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewSmartSyncService constructs a new SmartSyncService.
func NewSmartSyncService(opts SmartSyncServiceOptions) (*SmartSyncService, error) {
	if opts.Counter == nil {
		return nil, errors.New("OrderCounter is required")
	}
	if opts.Syncer == nil {
		return nil, errors.New("OrderSyncer is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "smartsync_service")
	}

	return &SmartSyncService{
		counter:   opts.Counter,
		syncer:    opts.Syncer,
		estimates: opts.Estimates,
		config:    opts.Config,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// SmartSyncRequest names the shop window to sync.
type SmartSyncRequest struct {
	Shop  string    `json:"shop"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the request window.
func (r SmartSyncRequest) Validate() error {
	if r.Shop == "" {
		return errors.New("shop is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("start and end are required")
	}
	if r.End.Before(r.Start) {
		return errors.New("end must not be before start")
	}
	return nil
}

// SmartSyncResult reports the outcome of one smart sync run.
type SmartSyncResult struct {
	Shop            string              `json:"shop"`
	Strategy        domainsync.Strategy `json:"strategy"`
	EstimatedUnits  int                 `json:"estimated_units"`
	ChunksPlanned   int                 `json:"chunks_planned"`
	ChunksFailed    int                 `json:"chunks_failed"`
	Processed       int                 `json:"processed"`
	WithRefunds     int                 `json:"with_refunds"`
	Errors          int                 `json:"errors"`
	DurationSeconds float64             `json:"duration_seconds"`
}

// Run estimates the window, picks a strategy, and executes the transfer.
// Chunk failures are counted and skipped rather than aborting the run, so
// one bad page cannot sink the rest of the window.
func (s *SmartSyncService) Run(ctx context.Context, req SmartSyncRequest) (*SmartSyncResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	start := time.Now()

	estimate, err := s.estimate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("estimate window: %w", err)
	}

	plan := domainsync.PlanFor(estimate, s.config.ChunkPause)
	result := &SmartSyncResult{
		Shop:           req.Shop,
		Strategy:       plan.Strategy,
		EstimatedUnits: plan.EstimatedUnits,
		ChunksPlanned:  len(plan.Chunks),
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "smart sync planned",
			"shop", req.Shop,
			"window_start", req.Start.Format(model.DateLayout),
			"window_end", req.End.Format(model.DateLayout),
			"strategy", plan.Strategy,
			"estimated", plan.EstimatedUnits,
			"chunks", len(plan.Chunks),
		)
	}

	var runErr error
	switch plan.Strategy {
	case domainsync.StrategyDirect:
		runErr = s.runDirect(ctx, req, result)
	case domainsync.StrategyChunked:
		runErr = s.runChunked(ctx, req, plan, result)
	}

	result.DurationSeconds = time.Since(start).Seconds()
	s.emitRunMetrics(result, runErr)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// estimate returns the upstream order count for the window, serving from the
// cache when fresh. Cache failures fall through to a live count; a stale or
// missing estimate is never an error.
func (s *SmartSyncService) estimate(ctx context.Context, req SmartSyncRequest) (int, error) {
	if s.estimates != nil {
		if cached, ok, err := s.estimates.Get(ctx, req.Shop, req.Start, req.End); err == nil && ok {
			return cached, nil
		} else if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "estimate cache read failed", "shop", req.Shop, "error", err)
		}
	}

	count, err := s.counter.CountOrders(ctx, req.Shop, req.Start, req.End)
	if err != nil {
		return 0, err
	}

	if s.estimates != nil {
		if err := s.estimates.Set(ctx, req.Shop, req.Start, req.End, count); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "estimate cache write failed", "shop", req.Shop, "error", err)
		}
	}
	return count, nil
}

func (s *SmartSyncService) runDirect(
	ctx context.Context,
	req SmartSyncRequest,
	result *SmartSyncResult,
) error {
	res, err := s.syncer.SyncOrders(ctx, req.Shop, req.Start, req.End, 0, 0)
	if err != nil {
		result.Errors++
		return fmt.Errorf("direct sync: %w", err)
	}
	result.Processed += res.Processed
	result.WithRefunds += res.WithRefunds
	return nil
}

func (s *SmartSyncService) runChunked(
	ctx context.Context,
	req SmartSyncRequest,
	plan domainsync.Plan,
	result *SmartSyncResult,
) error {
	var errs []error

	for i, chunk := range plan.Chunks {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		res, err := s.syncer.SyncOrders(ctx, req.Shop, req.Start, req.End, chunk.Offset, chunk.Limit)
		if err != nil {
			result.Errors++
			result.ChunksFailed++
			errs = append(errs, fmt.Errorf("chunk %d: %w", chunk.Index, err))
			if s.logger != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "smart sync chunk failed",
					"shop", req.Shop,
					"chunk", chunk.Index,
					"offset", chunk.Offset,
					"error", err,
				)
			}
		} else {
			result.Processed += res.Processed
			result.WithRefunds += res.WithRefunds
		}

		if i < len(plan.Chunks)-1 && plan.InterChunkWait > 0 {
			select {
			case <-time.After(plan.InterChunkWait):
			case <-ctx.Done():
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("chunked sync: %w", errors.Join(errs...))
	}
	return nil
}

func (s *SmartSyncService) emitRunMetrics(result *SmartSyncResult, err error) {
	if s.metrics == nil {
		return
	}

	outcome := metrics.ResultSuccess
	if suppressContextCancellation(err) != nil {
		outcome = metrics.ResultError
	} else if result.Processed == 0 {
		outcome = metrics.ResultNoop
	}

	tags := map[string]string{
		"shop":     result.Shop,
		"strategy": string(result.Strategy),
		"result":   outcome,
	}
	s.metrics.Count("smartsync.run", 1, tags)
	if result.Processed > 0 {
		s.metrics.Count("smartsync.records", int64(result.Processed), metrics.CloneTags(tags))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/domain/model"
	domainsync "github.com/merchkit/merchsync/internal/domain/sync"
	obserrors "github.com/merchkit/merchsync/internal/observability/errors"
	"github.com/merchkit/merchsync/internal/observability/metrics"
	"github.com/merchkit/merchsync/internal/observability/notify"
	"github.com/merchkit/merchsync/internal/observability/statsd"
)

// Sweeper reclaims stale running jobs before a dispatch pass so windows
// abandoned by a crashed worker re-enter the failed pool immediately.
type Sweeper interface {
	Sweep(ctx context.Context) (*model.SweepReport, error)
}

// Notifier fans out an alert when a job exhausts its retry budget.
type Notifier interface {
	Notify(ctx context.Context, payload notify.DeadLetterPayload)
}

// DispatcherServiceOptions groups dependencies for DispatcherService.
type DispatcherServiceOptions struct {
	Repo     core.WorkItemRepository // Required: sync job repository
	Executor core.SyncExecutor       // Required: performs the record transfer
	Config   config.DispatcherConfig // Required: dispatcher configuration
	Sweeper  Sweeper                 // Optional: pre-dispatch stale job sweep
	Notifier Notifier                // Optional: dead-letter alert fan-out
	Logger   *slog.Logger            // Optional: structured logger
	Metrics  statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// DispatcherService advances the sync backlog one bounded slice at a time.
//
// Each invocation selects a batch of pending jobs, partitions them into
// per-shop queues, and processes them in rounds. A round takes at most one
// job per shop and caps round width by the dominant object type's
// concurrency, so sequential types (SKUs) never run in parallel while
// order and refund syncs fan out. Invocations are idempotent: repeated
// calls drive the backlog toward completion and report Complete once
// nothing pending remains.
type DispatcherService struct {
	repo     core.WorkItemRepository
	executor core.SyncExecutor
	config   config.DispatcherConfig
	sweeper  Sweeper
	notifier Notifier
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewDispatcherService constructs a new DispatcherService.
func NewDispatcherService(opts DispatcherServiceOptions) (*DispatcherService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WorkItemRepository is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("SyncExecutor is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "dispatcher_service")
		logger.Debug("DispatcherService initialized",
			"batch_size", opts.Config.BatchSize,
			"round_pause", opts.Config.RoundPause,
			"max_wall_clock", opts.Config.MaxWallClock,
		)
	}

	return &DispatcherService{
		repo:     opts.Repo,
		executor: opts.Executor,
		config:   opts.Config,
		sweeper:  opts.Sweeper,
		notifier: opts.Notifier,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// ContinueRequest narrows a dispatch invocation to one shop or object type.
// Zero values dispatch everything.
type ContinueRequest struct {
	Shop       string           `json:"shop,omitempty"`
	ObjectType model.ObjectType `json:"object_type,omitempty"`
}

// Validate checks the optional filters.
func (r ContinueRequest) Validate() error {
	if r.ObjectType != "" && !r.ObjectType.Valid() {
		return fmt.Errorf("invalid object type %q", r.ObjectType)
	}
	return nil
}

func (r ContinueRequest) filters() data.ListFilters {
	return data.ListFilters{Shop: r.Shop, ObjectType: r.ObjectType}
}

// Continue runs one dispatch pass: sweep stale jobs, select a batch of
// pending jobs, and process them in concurrency-capped rounds until the
// batch or the wall-clock budget is exhausted. It returns a report with
// global queue stats; Complete is true once no pending jobs remain.
func (s *DispatcherService) Continue(
	ctx context.Context,
	req ContinueRequest,
) (*model.DispatchReport, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	start := time.Now()
	s.sweepStale(ctx)

	filters := req.filters()
	items, err := s.repo.ListByStatus(ctx, model.StatusPending, filters, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}

	var processed, failed int
	budgetExhausted := false

	groups := domainsync.GroupByShop(items)
	for len(groups) > 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if time.Since(start) >= s.config.MaxWallClock {
			budgetExhausted = true
			break
		}

		limit := domainsync.RoundLimit(groups)
		var round []model.WorkItem
		round, groups = domainsync.NextRound(groups, limit)
		if len(round) == 0 {
			break
		}

		roundProcessed, roundFailed := s.runRound(ctx, round)
		processed += roundProcessed
		failed += roundFailed

		if len(groups) > 0 && s.config.RoundPause > 0 {
			select {
			case <-time.After(s.config.RoundPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return s.buildReport(ctx, filters, processed, failed, budgetExhausted, time.Since(start))
}

// Status reports queue depth by status without dispatching anything.
func (s *DispatcherService) Status(
	ctx context.Context,
	req ContinueRequest,
) (*model.SyncStats, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}
	stats, err := s.repo.CountByStatus(ctx, req.filters())
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	return stats, nil
}

// sweepStale reclaims stale running jobs before dispatch. Failures here are
// logged but never block the pass; the background watchdog catches up.
func (s *DispatcherService) sweepStale(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	if _, err := s.sweeper.Sweep(ctx); err != nil && !isContextCancellation(err) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "pre-dispatch sweep failed", "error", err)
		}
	}
}

// runRound claims and executes one round of jobs concurrently. Individual
// job failures are recorded against the job and counted; they never abort
// the round.
func (s *DispatcherService) runRound(ctx context.Context, round []model.WorkItem) (int, int) {
	var (
		mu        sync.Mutex
		processed int
		failed    int
	)

	var g errgroup.Group
	for _, item := range round {
		g.Go(func() error {
			outcome := s.processItem(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			processed += outcome.processed
			failed += outcome.failed
			return nil
		})
	}
	_ = g.Wait()

	return processed, failed
}

type itemOutcome struct {
	processed int
	failed    int
}

// processItem claims one pending job, executes it, and records the terminal
// transition. The conditional claim makes concurrent dispatchers safe: a job
// already claimed elsewhere is skipped without error.
func (s *DispatcherService) processItem(ctx context.Context, item model.WorkItem) itemOutcome {
	start := time.Now()

	claimed, err := s.repo.ClaimPending(ctx, item.Key())
	if errors.Is(err, model.ErrNoItemsAvailable) {
		s.emitItemMetric(item, "claim", metrics.ResultNoop, 0, time.Since(start), nil)
		return itemOutcome{}
	}
	if err != nil {
		s.logItemError(ctx, item, "claim job", err)
		s.emitItemMetric(item, "claim", metrics.ResultError, 0, time.Since(start), err)
		return itemOutcome{failed: 1}
	}

	records, execErr := s.executor.Execute(ctx, *claimed)
	if execErr != nil {
		status, err := s.repo.MarkFailed(ctx, claimed.ID, execErr.Error())
		if err != nil {
			s.logItemError(ctx, item, "mark job failed", err)
		}
		if status == model.StatusDead {
			s.notifyDeadLetter(ctx, *claimed, execErr)
		}
		s.logItemError(ctx, item, "execute job", execErr)
		s.emitItemMetric(item, "failed", metrics.ResultError, 0, time.Since(start), execErr)
		return itemOutcome{failed: 1}
	}

	if _, err := s.repo.MarkCompleted(ctx, claimed.ID, records); err != nil {
		s.logItemError(ctx, item, "mark job completed", err)
		s.emitItemMetric(item, "completed", metrics.ResultError, records, time.Since(start), err)
		return itemOutcome{failed: 1}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "sync job completed",
			"shop", item.Shop,
			"object_type", item.ObjectType,
			"window", item.StartDate.Format(model.DateLayout),
			"records", records,
			"elapsed", time.Since(start),
		)
	}
	s.emitItemMetric(item, "completed", metrics.ResultSuccess, records, time.Since(start), nil)
	return itemOutcome{processed: 1}
}

// notifyDeadLetter alerts on a job that just burned its last attempt. The
// claimed row carries the pre-increment attempt count, so the exhausted
// budget is attempts+1.
func (s *DispatcherService) notifyDeadLetter(ctx context.Context, item model.WorkItem, execErr error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notify.DeadLetterPayload{
		JobID:      item.ID,
		Shop:       item.Shop,
		ObjectType: string(item.ObjectType),
		Window:     item.StartDate.Format(model.DateLayout),
		Attempts:   item.Attempts + 1,
		Error:      execErr.Error(),
		ErrorClass: obserrors.Classify(execErr),
		OccurredAt: time.Now().UTC(),
	})
}

func (s *DispatcherService) buildReport(
	ctx context.Context,
	filters data.ListFilters,
	processed, failed int,
	budgetExhausted bool,
	elapsed time.Duration,
) (*model.DispatchReport, error) {
	stats, err := s.repo.CountByStatus(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}

	report := &model.DispatchReport{
		Complete:        stats.Complete(),
		Stats:           *stats,
		Processed:       processed,
		Failed:          failed,
		DurationSeconds: elapsed.Seconds(),
	}

	switch {
	case budgetExhausted:
		report.Message = "wall-clock budget exhausted, invoke again to continue"
	case report.Complete:
		report.Message = "sync complete, no pending jobs remain"
	default:
		report.Message = fmt.Sprintf("%d pending jobs remain, invoke again to continue", stats.Pending)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "dispatch pass finished",
			"processed", processed,
			"failed", failed,
			"pending", stats.Pending,
			"complete", report.Complete,
			"elapsed", elapsed,
		)
	}

	return report, nil
}

func (s *DispatcherService) emitItemMetric(
	item model.WorkItem,
	transition, result string,
	records int,
	elapsed time.Duration,
	err error,
) {
	metrics.EmitSyncLifecycle(s.metrics, metrics.SyncMetric{
		ObjectType: string(item.ObjectType),
		Shop:       item.Shop,
		Transition: transition,
		Result:     result,
		Records:    records,
		Duration:   elapsed,
		Err:        err,
	})
}

func (s *DispatcherService) logItemError(
	ctx context.Context,
	item model.WorkItem,
	label string,
	err error,
) {
	if s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context",
			"shop", item.Shop,
			"object_type", item.ObjectType,
			"error", err,
		)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed",
		"shop", item.Shop,
		"object_type", item.ObjectType,
		"window", item.StartDate.Format(model.DateLayout),
		"error", err,
	)
}

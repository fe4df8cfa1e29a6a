package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/domain/model"
	"github.com/merchkit/merchsync/internal/observability/metrics"
	"github.com/merchkit/merchsync/internal/observability/statsd"
)

// WatchdogServiceOptions groups dependencies for WatchdogService.
type WatchdogServiceOptions struct {
	Repo    core.WatchdogRepository // Required: watchdog repository
	Config  config.WatchdogConfig   // Required: watchdog configuration
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// WatchdogService reclaims sync jobs abandoned by crashed or hung workers.
//
// This service manages:
// - Failing running jobs whose started_at exceeds the staleness threshold.
// - Deleting old completed jobs to prevent database bloat.
type WatchdogService struct {
	repo    core.WatchdogRepository
	config  config.WatchdogConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewWatchdogService constructs a new WatchdogService.
func NewWatchdogService(opts WatchdogServiceOptions) (*WatchdogService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WatchdogRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "watchdog_service")
		logger.Debug("WatchdogService initialized",
			"interval", opts.Config.Interval,
			"stale_after", opts.Config.StaleAfter,
			"completed_max_age", opts.Config.CompletedMaxAge,
		)
	}

	return &WatchdogService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the watchdog loop and runs until the context is cancelled.
// It sweeps at the configured interval.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *WatchdogService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting watchdog service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep immediately after jitter
	if _, err := s.Sweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *WatchdogService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the sweep loop until context is cancelled.
func (s *WatchdogService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "watchdog service stopping", "reason", ctx.Err())
			}
			// Return nil on graceful shutdown to avoid treating it as a failure
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
				// Continue running despite errors
			}
		}
	}
}

// Sweep performs one watchdog pass: reclaim stale running jobs, then prune
// old completed jobs. Reclaimed jobs go back through the normal failed-job
// retry path on the next dispatch.
//
// Sweep is safe to call from the HTTP layer and from the background loop at
// the same time; the repository serialises sweeps with an advisory lock.
func (s *WatchdogService) Sweep(ctx context.Context) (*model.SweepReport, error) {
	start := time.Now()

	reclaimed, reclaimErr := s.failStaleRunning(ctx)
	pruned, pruneErr := s.deleteOldCompleted(ctx)

	report := &model.SweepReport{
		Cleaned:   len(reclaimed),
		Items:     reclaimed,
		Timestamp: start,
	}

	s.emitSweepMetrics(report, firstError(reclaimErr, pruneErr))

	var errs []error
	if reclaimErr != nil {
		errs = append(errs, fmt.Errorf("fail stale running jobs: %w", reclaimErr))
	}
	if pruneErr != nil {
		errs = append(errs, fmt.Errorf("delete old completed jobs: %w", pruneErr))
	}
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if isContextCancellation(joined) {
			return report, context.Canceled
		}
		return report, fmt.Errorf("sweep failed: %w", joined)
	}

	if s.logger != nil && (report.Cleaned > 0 || pruned > 0) {
		s.logger.InfoContext(ctx, "watchdog sweep finished",
			"reclaimed", report.Cleaned,
			"pruned", pruned,
			"elapsed", time.Since(start),
		)
	}

	return report, nil
}

// failStaleRunning reclaims running jobs older than the staleness threshold.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *WatchdogService) failStaleRunning(ctx context.Context) ([]model.WorkKey, error) {
	var reclaimed []model.WorkKey
	for {
		keys, err := s.repo.FailStaleRunning(ctx, s.config.StaleAfter, s.config.BatchSize)
		if err != nil {
			return reclaimed, err
		}
		reclaimed = append(reclaimed, keys...)
		if len(keys) == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return reclaimed, ctx.Err()
		}
	}

	if len(reclaimed) > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "reclaimed stale running jobs",
			"count", len(reclaimed),
			"stale_after", s.config.StaleAfter,
		)
	}

	return reclaimed, nil
}

// deleteOldCompleted deletes completed jobs older than the configured max age.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *WatchdogService) deleteOldCompleted(ctx context.Context) (int64, error) {
	if s.config.CompletedMaxAge <= 0 {
		return 0, nil
	}

	var totalCount int64
	for {
		count, err := s.repo.DeleteOldCompleted(ctx, s.config.CompletedMaxAge, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old completed jobs",
			"count", totalCount,
			"max_age", s.config.CompletedMaxAge,
		)
	}

	return totalCount, nil
}

func (s *WatchdogService) emitSweepMetrics(report *model.SweepReport, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if suppressContextCancellation(err) != nil {
		result = metrics.ResultError
	} else if report.Cleaned == 0 {
		result = metrics.ResultNoop
	}

	metrics.EmitSweep(s.metrics, report.Cleaned, result)

	if err == nil {
		s.metrics.Gauge("watchdog.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *WatchdogService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}

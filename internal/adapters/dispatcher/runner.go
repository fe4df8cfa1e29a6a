// Package dispatcher provides adapters for running the sync dispatcher as a
// background service.
package dispatcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/observability/statsd"
	"github.com/merchkit/merchsync/internal/service"
)

// Runner provides a simple adapter to run dispatch passes in the background.
// Each trigger invokes one Continue pass; the drive-to-completion contract
// means repeated passes walk the backlog down without any coordination.
type Runner struct {
	dispatcher *service.DispatcherService
	interval   time.Duration
	schedule   string
	logger     *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB       *sql.DB
	Config   config.DispatcherConfig
	Executor core.SyncExecutor
	Logger   *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo     core.WorkItemRepository
	Sweeper  service.Sweeper
	Notifier service.Notifier
	Metrics  statsd.Sink
}

// NewRunner creates a new dispatcher runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	dispatcher, err := wireDispatcherService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire dispatcher service: %w", err)
	}

	return &Runner{
		dispatcher: dispatcher,
		interval:   opts.Config.Interval,
		schedule:   opts.Config.Schedule,
		logger:     opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Executor == nil {
		return errors.New("sync executor is required")
	}
	if opts.Config.Interval <= 0 {
		opts.Config.Interval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireDispatcherService wires up all dependencies for the dispatcher service.
func wireDispatcherService(opts RunnerOptions) (*service.DispatcherService, error) {
	var repo core.WorkItemRepository
	if opts.Repo != nil {
		repo = opts.Repo
	} else {
		repo = data.NewWorkItemRepo(opts.DB, data.RepoConfig{
			MaxAttempts: opts.Config.MaxAttempts,
			Logger:      opts.Logger,
		})
	}

	return service.NewDispatcherService(service.DispatcherServiceOptions{
		Repo:     repo,
		Executor: opts.Executor,
		Config:   opts.Config,
		Sweeper:  opts.Sweeper,
		Notifier: opts.Notifier,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
}

// Service exposes the wired dispatcher service for the HTTP layer.
func (r *Runner) Service() *service.DispatcherService {
	return r.dispatcher
}

// Run triggers dispatch passes until the context is cancelled. With a cron
// schedule configured, passes fire on the schedule; otherwise a fixed
// interval ticker drives them.
func (r *Runner) Run(ctx context.Context) error {
	if r.schedule != "" {
		return r.runScheduled(ctx)
	}

	r.logger.InfoContext(ctx, "starting dispatcher runner", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "dispatcher runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			r.dispatch(ctx)
		}
	}
}

func (r *Runner) runScheduled(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting dispatcher runner", "schedule", r.schedule)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		r.dispatch(ctx)
	}); err != nil {
		return fmt.Errorf("register dispatcher schedule: %w", err)
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (r *Runner) dispatch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	report, err := r.dispatcher.Continue(ctx, service.ContinueRequest{})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.logger.ErrorContext(ctx, "dispatch pass failed", "error", err)
		}
		return
	}

	if report.Processed > 0 || report.Failed > 0 {
		r.logger.InfoContext(ctx, "dispatch pass",
			"processed", report.Processed,
			"failed", report.Failed,
			"pending", report.Stats.Pending,
			"complete", report.Complete,
		)
	}
}

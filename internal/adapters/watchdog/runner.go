// Package watchdog provides adapters for running the stale-job watchdog.
package watchdog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/observability/statsd"
	"github.com/merchkit/merchsync/internal/service"
)

// Runner provides a simple adapter to run the watchdog loop.
// It constructs the watchdog service and runs the sweep loop, either on a
// fixed interval or on a cron schedule when one is configured.
type Runner struct {
	watchdog *service.WatchdogService
	schedule string
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.WatchdogConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo    core.WatchdogRepository
	Metrics statsd.Sink
}

// NewRunner creates a new watchdog runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	watchdog, err := wireWatchdogService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire watchdog service: %w", err)
	}

	return &Runner{
		watchdog: watchdog,
		schedule: opts.Config.Schedule,
		logger:   opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireWatchdogService wires up all dependencies for the watchdog service.
func wireWatchdogService(opts RunnerOptions) (*service.WatchdogService, error) {
	var repo core.WatchdogRepository
	if opts.Repo != nil {
		repo = opts.Repo
	} else {
		repo = data.NewWorkItemRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	return service.NewWatchdogService(service.WatchdogServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// Service exposes the wired watchdog service so the HTTP layer and the
// dispatcher can share the same sweep path.
func (r *Runner) Service() *service.WatchdogService {
	return r.watchdog
}

// Run starts the watchdog and runs until the context is cancelled. With a
// cron schedule configured, sweeps fire on the schedule; otherwise the
// service's own interval loop drives them.
func (r *Runner) Run(ctx context.Context) error {
	if r.schedule == "" {
		r.logger.InfoContext(ctx, "starting watchdog runner")
		return r.watchdog.Run(ctx)
	}

	r.logger.InfoContext(ctx, "starting watchdog runner", "schedule", r.schedule)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.watchdog.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register watchdog schedule: %w", err)
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

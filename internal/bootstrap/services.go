package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchkit/merchsync/config"
	dispatcheradapter "github.com/merchkit/merchsync/internal/adapters/dispatcher"
	"github.com/merchkit/merchsync/internal/adapters/upstream"
	watchdogadapter "github.com/merchkit/merchsync/internal/adapters/watchdog"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/observability/notify/pagerduty"
	"github.com/merchkit/merchsync/internal/observability/notify/slack"
	"github.com/merchkit/merchsync/internal/observability/statsd"
	"github.com/merchkit/merchsync/internal/service"
	"github.com/merchkit/merchsync/internal/service/deadletter"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Dispatcher    *service.DispatcherService
	GapFill       *service.GapFillService
	Watchdog      *service.WatchdogService
	Recovery      *service.RecoveryService
	SmartSync     *service.SmartSyncService
	Jobs          core.WorkItemRepository
	Upstream      *upstream.Client
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink        *statsd.Client
	MetricsConfig      config.ObservabilityMetricsConfig
	DeadLetterNotifier *deadletter.Service
	NotifierConfig     config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink as an interface, keeping a nil client nil.
//
//nolint:ireturn // callers take the statsd.Sink interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "merchsync",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:        metricsSink,
		MetricsConfig:      cfg.Metrics,
		DeadLetterNotifier: buildDeadLetterNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:     cfg.Notifications,
	}
}

func buildDeadLetterNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *deadletter.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return deadletter.NewService(deadletter.Options{
			Logger: baseLogger.With("component", "dead_letter_notifier"),
		})
	}

	sinks := make([]deadletter.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return deadletter.NewService(deadletter.Options{
		Logger: baseLogger.With("component", "dead_letter_notifier"),
		Sinks:  sinks,
	})
}

// NewServices wires repositories, the upstream client, and domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	sink := observability.Sink()

	repo := data.NewWorkItemRepo(deps.DB, data.RepoConfig{
		MaxAttempts: appCfg.Dispatcher.MaxAttempts,
		Logger:      logger,
	})

	upstreamClient, err := upstream.NewClient(upstream.ClientOptions{
		Shops:  appCfg.Shops,
		Config: appCfg.Upstream,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build upstream client: %w", err)
	}

	watchdog, err := service.NewWatchdogService(service.WatchdogServiceOptions{
		Repo:    repo,
		Config:  appCfg.Watchdog,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build watchdog service: %w", err)
	}

	dispatcher, err := service.NewDispatcherService(service.DispatcherServiceOptions{
		Repo:     repo,
		Executor: upstreamClient,
		Config:   appCfg.Dispatcher,
		Sweeper:  watchdog,
		Notifier: observability.DeadLetterNotifier,
		Logger:   logger,
		Metrics:  sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build dispatcher service: %w", err)
	}

	gapFill, err := service.NewGapFillService(service.GapFillServiceOptions{
		Repo:    repo,
		Config:  appCfg.GapFill,
		Shops:   appCfg.Shops.Names(),
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build gap-fill service: %w", err)
	}

	recovery, err := service.NewRecoveryService(service.RecoveryServiceOptions{
		Repo:    repo,
		Counter: upstreamClient,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build recovery service: %w", err)
	}

	var estimates core.EstimateStore
	if deps.RedisClient != nil {
		estimates = data.NewEstimateCache(deps.RedisClient, appCfg.SmartSync.EstimateTTL)
	}

	smartSync, err := service.NewSmartSyncService(service.SmartSyncServiceOptions{
		Counter:   upstreamClient,
		Syncer:    upstreamClient,
		Estimates: estimates,
		Config:    appCfg.SmartSync,
		Logger:    logger,
		Metrics:   sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build smart sync service: %w", err)
	}

	return ServiceContainer{
		Dispatcher:    dispatcher,
		GapFill:       gapFill,
		Watchdog:      watchdog,
		Recovery:      recovery,
		SmartSync:     smartSync,
		Jobs:          repo,
		Upstream:      upstreamClient,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				if deps.logger != nil {
					deps.logger.WarnContext(
						ctx,
						"dropping background service error",
						"service",
						descriptor.name,
						"error",
						errMsg,
					)
				} else {
					slog.Default().WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
				}
			}
		}
	}()

	if deps.logger != nil {
		deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	} else {
		slog.Default().InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	}

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newDispatcherBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeDispatcher,
		name: "dispatcher",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var dispatcherCfg config.DispatcherConfig
			if deps.cfg.Config != nil {
				dispatcherCfg = deps.cfg.Config.Dispatcher
			}
			runner, err := dispatcheradapter.NewRunner(dispatcheradapter.RunnerOptions{
				DB:       deps.cfg.DB,
				Config:   dispatcherCfg,
				Executor: deps.cfg.Services.Upstream,
				Logger:   deps.logger,
				Repo:     deps.cfg.Services.Jobs,
				Sweeper:  deps.cfg.Services.Watchdog,
				Notifier: deps.cfg.Services.Observability.DeadLetterNotifier,
				Metrics:  deps.cfg.Services.Observability.Sink(),
			})
			if err != nil {
				return fmt.Errorf("build dispatcher runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

func newWatchdogBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeWatchdog,
		name: "watchdog",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var watchdogCfg config.WatchdogConfig
			if deps.cfg.Config != nil {
				watchdogCfg = deps.cfg.Config.Watchdog
			}
			watchdogRepo, _ := deps.cfg.Services.Jobs.(core.WatchdogRepository)
			runner, err := watchdogadapter.NewRunner(watchdogadapter.RunnerOptions{
				DB:      deps.cfg.DB,
				Config:  watchdogCfg,
				Logger:  deps.logger,
				Repo:    watchdogRepo,
				Metrics: deps.cfg.Services.Observability.Sink(),
			})
			if err != nil {
				return fmt.Errorf("build watchdog runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newDispatcherBackgroundService(deps),
		newWatchdogBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	modes := []config.ServiceMode{
		config.ServiceModeHTTP,
		config.ServiceModeDispatcher,
		config.ServiceModeWatchdog,
	}

	count := 0
	for _, mode := range modes {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		// Create a timeout context for HTTP shutdown
		shutdownCtx, cancel := context.WithTimeout(cfg.ctx, shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

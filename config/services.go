package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the background sync dispatcher.
	ServiceModeDispatcher ServiceMode = "dispatcher"
	// ServiceModeWatchdog runs the stale-job watchdog.
	ServiceModeWatchdog ServiceMode = "watchdog"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDispatcher,
		ServiceModeWatchdog,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher, ServiceModeWatchdog:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, dispatcher, watchdog)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// DispatcherConfig contains dispatcher service configuration.
type DispatcherConfig struct {
	// BatchSize is the number of pending jobs to select per invocation.
	BatchSize int `env:"DISPATCHER_BATCH_SIZE" envDefault:"20"`

	// RoundPause is the fixed pause between dispatch rounds, giving the
	// upstream rate limiter room to breathe.
	RoundPause time.Duration `env:"DISPATCHER_ROUND_PAUSE" envDefault:"500ms"`

	// MaxWallClock is the per-invocation time budget. The dispatcher returns
	// partial progress when the budget runs out; the next invocation resumes.
	MaxWallClock time.Duration `env:"DISPATCHER_MAX_WALL_CLOCK" envDefault:"4m"`

	// Interval is the trigger interval when running as a background service.
	Interval time.Duration `env:"DISPATCHER_INTERVAL" envDefault:"5m"`

	// Schedule optionally replaces Interval with a cron expression.
	Schedule string `env:"DISPATCHER_SCHEDULE"`

	// MaxAttempts is the retry budget before a job goes to dead.
	MaxAttempts int `env:"DISPATCHER_MAX_ATTEMPTS" envDefault:"5"`
}

// Sanitize applies guardrails to dispatcher configuration values.
func (d *DispatcherConfig) Sanitize() {
	if d.BatchSize < 1 {
		d.BatchSize = 1
	}
	if d.BatchSize > 500 {
		d.BatchSize = 500
	}
	if d.RoundPause < 0 {
		d.RoundPause = 0
	}
	if d.MaxWallClock < 10*time.Second {
		d.MaxWallClock = 10 * time.Second
	}
	if d.Interval < 10*time.Second {
		d.Interval = 10 * time.Second
	}
	if d.MaxAttempts < 1 {
		d.MaxAttempts = 1
	}
	if !validSchedule(d.Schedule) {
		d.Schedule = ""
	}
}

// WatchdogConfig contains stale-job watchdog configuration.
type WatchdogConfig struct {
	// Interval is the watchdog tick interval.
	Interval time.Duration `env:"WATCHDOG_INTERVAL" envDefault:"1m"`

	// Schedule optionally replaces Interval with a cron expression.
	Schedule string `env:"WATCHDOG_SCHEDULE"`

	// StaleAfter is how long a job may sit in running before the watchdog
	// assumes its owner died and reclaims it.
	StaleAfter time.Duration `env:"WATCHDOG_STALE_AFTER" envDefault:"2m"`

	// CompletedMaxAge is the maximum age for completed jobs before deletion.
	CompletedMaxAge time.Duration `env:"WATCHDOG_COMPLETED_MAX_AGE" envDefault:"720h"` // 30 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"WATCHDOG_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to watchdog configuration values.
func (w *WatchdogConfig) Sanitize() {
	if w.Interval < 10*time.Second {
		w.Interval = 10 * time.Second
	}
	// The threshold must comfortably exceed a normal job execution so the
	// watchdog never reclaims live work.
	if w.StaleAfter < 30*time.Second {
		w.StaleAfter = 30 * time.Second
	}
	if w.CompletedMaxAge < 24*time.Hour {
		w.CompletedMaxAge = 24 * time.Hour
	}
	if w.BatchSize < 1 {
		w.BatchSize = 1
	}
	if w.BatchSize > 10000 {
		w.BatchSize = 10000
	}
	if !validSchedule(w.Schedule) {
		w.Schedule = ""
	}
}

// GapFillConfig contains gap detection and job creation configuration.
type GapFillConfig struct {
	// InsertBatchSize is the number of jobs inserted per batch.
	InsertBatchSize int `env:"GAPFILL_INSERT_BATCH_SIZE" envDefault:"100"`

	// LookbackDays is the default window when a gap-fill request carries no dates.
	LookbackDays int `env:"GAPFILL_LOOKBACK_DAYS" envDefault:"7"`

	// RetryInitialInterval is the first backoff delay for failed insert batches.
	RetryInitialInterval time.Duration `env:"GAPFILL_RETRY_INITIAL_INTERVAL" envDefault:"500ms"`

	// RetryMaxInterval caps the backoff delay.
	RetryMaxInterval time.Duration `env:"GAPFILL_RETRY_MAX_INTERVAL" envDefault:"10s"`

	// RetryMaxTries bounds attempts per insert batch.
	RetryMaxTries uint `env:"GAPFILL_RETRY_MAX_TRIES" envDefault:"4"`
}

// Sanitize applies guardrails to gap-fill configuration values.
func (g *GapFillConfig) Sanitize() {
	if g.InsertBatchSize < 1 {
		g.InsertBatchSize = 1
	}
	if g.InsertBatchSize > 1000 {
		g.InsertBatchSize = 1000
	}
	if g.LookbackDays < 1 {
		g.LookbackDays = 1
	}
	if g.RetryInitialInterval <= 0 {
		g.RetryInitialInterval = 500 * time.Millisecond
	}
	if g.RetryMaxInterval < g.RetryInitialInterval {
		g.RetryMaxInterval = 10 * time.Second
	}
	if g.RetryMaxTries == 0 {
		g.RetryMaxTries = 1
	}
}

// SmartSyncConfig contains chunk strategist configuration.
type SmartSyncConfig struct {
	// EstimateTTL is how long cached order-count estimates stay fresh.
	EstimateTTL time.Duration `env:"SMARTSYNC_ESTIMATE_TTL" envDefault:"10m"`

	// ChunkPause is the delay between sequential chunks of a chunked sync.
	ChunkPause time.Duration `env:"SMARTSYNC_CHUNK_PAUSE" envDefault:"1s"`
}

// Sanitize applies guardrails to smart sync configuration values.
func (s *SmartSyncConfig) Sanitize() {
	if s.EstimateTTL <= 0 {
		s.EstimateTTL = 10 * time.Minute
	}
	if s.ChunkPause < 0 {
		s.ChunkPause = 0
	}
}

func validSchedule(spec string) bool {
	if strings.TrimSpace(spec) == "" {
		return true
	}
	_, err := cron.ParseStandard(spec)
	return err == nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/data"
	"github.com/merchkit/merchsync/internal/domain/model"
	"github.com/merchkit/merchsync/internal/observability/metrics"
	"github.com/merchkit/merchsync/internal/observability/statsd"
)

// validateBatchSize caps how many failed jobs one validation pass inspects.
// Each inspected job costs an upstream count request, so passes stay bounded.
const validateBatchSize = 200

// RecoveryServiceOptions groups dependencies for RecoveryService.
type RecoveryServiceOptions struct {
	Repo    core.WorkItemRepository // Required: sync job repository
	Counter core.OrderCounter       // Optional: required only for ValidateFailed
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// RecoveryService returns stuck jobs to the pending pool and reconciles
// failed jobs against upstream reality.
type RecoveryService struct {
	repo    core.WorkItemRepository
	counter core.OrderCounter
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRecoveryService constructs a new RecoveryService.
func NewRecoveryService(opts RecoveryServiceOptions) (*RecoveryService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WorkItemRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "recovery_service")
	}

	return &RecoveryService{
		repo:    opts.Repo,
		counter: opts.Counter,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// ResetRequest scopes a reset pass. Zero values reset everything in the
// selected statuses; IncludeDead opts dead jobs back into the retry pool.
type ResetRequest struct {
	Shop        string           `json:"shop,omitempty"`
	ObjectType  model.ObjectType `json:"object_type,omitempty"`
	IncludeDead bool             `json:"include_dead,omitempty"`
}

// Validate checks the optional filters.
func (r ResetRequest) Validate() error {
	if r.ObjectType != "" && !r.ObjectType.Valid() {
		return fmt.Errorf("invalid object type %q", r.ObjectType)
	}
	return nil
}

// ResetResult reports how many jobs a reset pass returned to pending.
type ResetResult struct {
	FailedReset int `json:"failed_reset"`
	DeadReset   int `json:"dead_reset"`
}

// Reset returns failed jobs, and optionally dead jobs, to pending with a
// fresh attempt budget so the next dispatch pass picks them up.
func (s *RecoveryService) Reset(ctx context.Context, req ResetRequest) (*ResetResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}

	filters := data.ListFilters{Shop: req.Shop, ObjectType: req.ObjectType}

	failedReset, err := s.repo.ResetFailed(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("reset failed jobs: %w", err)
	}

	result := &ResetResult{FailedReset: failedReset}
	if req.IncludeDead {
		deadReset, err := s.repo.ResetDead(ctx, filters)
		if err != nil {
			return result, fmt.Errorf("reset dead jobs: %w", err)
		}
		result.DeadReset = deadReset
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "reset pass finished",
			"failed_reset", result.FailedReset,
			"dead_reset", result.DeadReset,
			"shop", req.Shop,
			"object_type", req.ObjectType,
		)
	}
	if s.metrics != nil && result.FailedReset+result.DeadReset > 0 {
		s.metrics.Count("recovery.reset", int64(result.FailedReset+result.DeadReset), nil)
	}

	return result, nil
}

// ValidateRequest scopes a validation pass.
type ValidateRequest struct {
	Shop       string           `json:"shop,omitempty"`
	ObjectType model.ObjectType `json:"object_type,omitempty"`
}

// ValidateResult reports the outcome of one validation pass.
type ValidateResult struct {
	Checked      int `json:"checked"`
	Reclassified int `json:"reclassified"`
	Errors       int `json:"errors"`
}

// ValidateFailed checks failed jobs against the upstream record count for
// their window. A job that failed against an empty window has nothing to
// sync and is reclassified as completed with zero records; jobs with real
// upstream data stay failed for the retry path.
func (s *RecoveryService) ValidateFailed(
	ctx context.Context,
	req ValidateRequest,
) (*ValidateResult, error) {
	if s.counter == nil {
		return nil, errors.New("OrderCounter is required for validation")
	}
	if req.ObjectType != "" && !req.ObjectType.Valid() {
		return nil, fmt.Errorf("validate request: invalid object type %q", req.ObjectType)
	}

	filters := data.ListFilters{Shop: req.Shop, ObjectType: req.ObjectType}
	items, err := s.repo.ListByStatus(ctx, model.StatusFailed, filters, validateBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}

	result := &ValidateResult{}
	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		expected, err := s.counter.ExpectedRecords(ctx, item)
		if err != nil {
			result.Errors++
			if s.logger != nil && !isContextCancellation(err) {
				s.logger.WarnContext(ctx, "upstream count failed during validation",
					"shop", item.Shop,
					"object_type", item.ObjectType,
					"window", item.StartDate.Format(model.DateLayout),
					"error", err,
				)
			}
			continue
		}
		if expected > 0 {
			continue
		}

		reclassified, err := s.repo.ReclassifyEmpty(ctx, item.ID)
		if err != nil {
			result.Errors++
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "reclassify empty window failed",
					"id", item.ID,
					"error", err,
				)
			}
			continue
		}
		if reclassified {
			result.Reclassified++
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "validation pass finished",
			"checked", result.Checked,
			"reclassified", result.Reclassified,
			"errors", result.Errors,
		)
	}
	if s.metrics != nil {
		outcome := metrics.ResultSuccess
		if result.Errors > 0 {
			outcome = metrics.ResultError
		} else if result.Reclassified == 0 {
			outcome = metrics.ResultNoop
		}
		s.metrics.Count("recovery.validate", 1, map[string]string{"result": outcome})
		if result.Reclassified > 0 {
			s.metrics.Count("recovery.reclassified", int64(result.Reclassified), nil)
		}
	}

	return result, nil
}

package core

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy describes how transient failures are retried. All retrying in
// the orchestrator goes through this one policy type so backoff behavior is
// declared, not hand-rolled at call sites.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxTries        uint
}

// DefaultRetryPolicy is used where a component does not configure its own.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
	MaxTries:        4,
}

func (p RetryPolicy) sanitized() RetryPolicy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = DefaultRetryPolicy.MaxInterval
	}
	if p.MaxTries == 0 {
		p.MaxTries = DefaultRetryPolicy.MaxTries
	}
	return p
}

// Retry runs op under the policy with exponential backoff, honoring context
// cancellation between attempts. Wrap an error with backoff.Permanent to stop
// retrying early.
func (p RetryPolicy) Retry(ctx context.Context, op func() error) error {
	p = p.sanitized()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(p.MaxTries))
	return err
}

// Permanent marks err as non-retryable for RetryPolicy.Retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

package deadletter

import (
	"context"
	"errors"
	"testing"

	"github.com/merchkit/merchsync/internal/observability/notify"
)

func TestServiceNotify(t *testing.T) {
	ctx := context.Background()

	var received []notify.DeadLetterPayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "capture",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.DeadLetterPayload) error {
					received = append(received, payload)
					return nil
				}),
			},
		},
	})

	svc.Notify(ctx, notify.DeadLetterPayload{
		JobID:      "123",
		Shop:       "alpha",
		ObjectType: "orders",
	})

	if len(received) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Fatalf("expected severity to default to critical, got %s", received[0].Severity)
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
}

func TestServiceLogsErrors(t *testing.T) {
	// Ensure we don't panic when sink returns an error.
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "fail",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.DeadLetterPayload) error {
					return errors.New("boom")
				}),
			},
		},
	})

	svc.Notify(context.Background(), notify.DeadLetterPayload{JobID: "123"})
}

func TestServiceFanOut(t *testing.T) {
	ctx := context.Background()
	var first, second bool
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "first",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.DeadLetterPayload) error {
					first = true
					return nil
				}),
			},
			{
				Name: "second",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.DeadLetterPayload) error {
					second = true
					return errors.New("delivery failed")
				}),
			},
		},
	})

	svc.Notify(ctx, notify.DeadLetterPayload{Shop: "alpha"})

	if !first || !second {
		t.Fatalf("expected both sinks invoked, got first=%v second=%v", first, second)
	}
}

package metrics

import (
	"time"

	obserrors "github.com/merchkit/merchsync/internal/observability/errors"
	"github.com/merchkit/merchsync/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// SyncMetric captures details about a sync job transition for metric emission.
type SyncMetric struct {
	ObjectType string
	Shop       string
	Transition string
	Result     string
	Records    int
	Duration   time.Duration
	Err        error
}

// EmitSyncLifecycle emits standardised sync job lifecycle metrics.
func EmitSyncLifecycle(sink statsd.Sink, in SyncMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"object_type": in.ObjectType,
		"transition":  in.Transition,
		"result":      in.Result,
	}
	if in.Shop != "" {
		tags["shop"] = in.Shop
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("sync.transition", 1, tags)

	if in.Records > 0 {
		sink.Count("sync.records", int64(in.Records), CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("sync.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSweep emits watchdog sweep metrics.
func EmitSweep(sink statsd.Sink, cleaned int, result string) {
	if sink == nil {
		return
	}
	sink.Count("watchdog.reclaimed", int64(cleaned), map[string]string{"result": result})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Package metrics standardises the metric names and tags emitted by the
// orchestration engine.
package metrics

import (
	"time"

	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultCompleted = "completed"
	ResultError     = "error"
	ResultDegraded  = "degraded"
)

// JobOutcome captures details about a finished job for metric emission.
type JobOutcome struct {
	Model    string
	Result   string
	Segments int
	Duration time.Duration
	Err      error
}

// EmitJobOutcome emits standardised job completion metrics.
func EmitJobOutcome(sink statsd.Sink, in JobOutcome) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"model":  in.Model,
		"result": in.Result,
	}
	if in.Err != nil {
		if code := apperrors.GetCode(in.Err); code != "" {
			tags["error_code"] = string(code)
		}
	}

	sink.Count("job.finished", 1, tags)
	sink.Gauge("job.segments", float64(in.Segments), cloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, cloneTags(tags))
	}
}

// EmitSegmentRetry counts one segment-level retry.
func EmitSegmentRetry(sink statsd.Sink, model string) {
	if sink == nil {
		return
	}
	sink.Count("segment.retry", 1, map[string]string{"model": model})
}

// EmitRecoverySweep emits the count of jobs reclaimed by one sweep pass.
func EmitRecoverySweep(sink statsd.Sink, reclaimed int) {
	if sink == nil {
		return
	}
	sink.Count("recovery.reclaimed", int64(reclaimed), nil)
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

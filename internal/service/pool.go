package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	"github.com/scribeflow/scribeflow/internal/domain/segment"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/observability/metrics"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
)

// SegmentPoolOptions groups dependencies for SegmentPool.
type SegmentPoolOptions struct {
	Engine  core.SegmentTranscriber // Required: speech-to-text engine
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// SegmentPool runs a plan's segments against the engine with bounded
// concurrency. Segments are dispatched in index order and at most the plan's
// parallelism are in flight at once. Each segment gets one local retry; a
// segment that fails twice aborts the whole run.
type SegmentPool struct {
	engine  core.SegmentTranscriber
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewSegmentPool constructs a new SegmentPool.
func NewSegmentPool(opts SegmentPoolOptions) (*SegmentPool, error) {
	if opts.Engine == nil {
		return nil, errors.New("SegmentTranscriber is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "segment_pool")
	}

	return &SegmentPool{engine: opts.Engine, logger: logger, metrics: opts.Metrics}, nil
}

// PoolRequest describes one pool run.
type PoolRequest struct {
	JobID    string
	AudioRef string
	Plan     segment.Plan
	Options  model.TranscribeOptions

	// CallTimeout bounds each engine call (including its retry attempt
	// individually). Zero means no per-call deadline beyond ctx.
	CallTimeout time.Duration

	// OnSegmentDone, if set, is invoked after each successful segment with
	// its index and audio length, in completion order.
	OnSegmentDone func(ctx context.Context, index int, processedSec float64)
}

// Run transcribes every window in the plan and returns results indexed by
// segment. On failure the returned error carries the index of the first
// segment that exhausted its retry; in-flight segments are cancelled.
func (p *SegmentPool) Run(ctx context.Context, req PoolRequest) ([]model.SegmentResult, error) {
	windows := req.Plan.Segments
	results := make([]model.SegmentResult, len(windows))
	for i, w := range windows {
		results[i] = model.SegmentResult{
			Index:       w.Index,
			Status:      model.SegmentPending,
			StartSec:    w.StartSec,
			DurationSec: w.LengthSec,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Plan.Parallelism)

	for i, w := range windows {
		i, w := i, w
		// SetLimit makes Go block until a slot frees, so iterating in
		// index order is what guarantees ordered dispatch.
		g.Go(func() error {
			results[i].Status = model.SegmentRunning
			res, err := p.transcribeWithRetry(gctx, req, w)
			if err != nil {
				results[i].Status = model.SegmentFailed
				results[i].Err = err.Error()
				return apperrors.SegmentFailure(w.Index, err)
			}

			results[i].Status = model.SegmentDone
			results[i].Text = res.Text
			results[i].Language = res.Language
			results[i].LanguageConfidence = res.LanguageConfidence

			if req.OnSegmentDone != nil {
				req.OnSegmentDone(gctx, w.Index, w.LengthSec)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// transcribeWithRetry calls the engine for one window, retrying once on
// failure. Cancellation is not retried.
func (p *SegmentPool) transcribeWithRetry(ctx context.Context, req PoolRequest, w segment.Window) (*core.SegmentTranscription, error) {
	engineReq := core.SegmentRequest{
		AudioRef:    req.AudioRef,
		StartSec:    w.StartSec,
		DurationSec: w.LengthSec,
		Model:       req.Options.Model,
		Language:    req.Options.Language,
	}

	res, err := p.transcribeOnce(ctx, engineReq, req.CallTimeout)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.WarnContext(ctx, "segment attempt failed, retrying",
			"job_id", req.JobID,
			"segment", w.Index,
			"error", err,
		)
	}
	metrics.EmitSegmentRetry(p.metrics, string(req.Options.Model))

	res, retryErr := p.transcribeOnce(ctx, engineReq, req.CallTimeout)
	if retryErr != nil {
		return nil, fmt.Errorf("retry exhausted: %w", retryErr)
	}
	return res, nil
}

// transcribeOnce performs a single engine call, bounded by the per-call
// timeout when one is set. Each attempt gets a fresh deadline so the retry is
// not charged for the first attempt's time.
func (p *SegmentPool) transcribeOnce(ctx context.Context, req core.SegmentRequest, timeout time.Duration) (*core.SegmentTranscription, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.engine.TranscribeSegment(ctx, req)
}

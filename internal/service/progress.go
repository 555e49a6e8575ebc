package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/data"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

// Progress milestones. The segment phase interpolates between SegmentsStart
// and SegmentsEnd; everything else is a fixed checkpoint.
const (
	PercentValidate  = 5
	PercentPlan      = 10
	SegmentsStart    = 10
	SegmentsEnd      = 70
	PercentReconcile = 75
	PercentSummarize = 85
	PercentComplete  = 100
)

// Stage names surfaced to polling clients.
const (
	StageValidate   = "validate"
	StagePlan       = "plan"
	StageTranscribe = "transcribe"
	StageReconcile  = "reconcile"
	StageSummarize  = "summarize"
	StageComplete   = "complete"
	StageError      = "error"
)

// DefaultProgressTTL bounds how long a progress record outlives its last
// update in the durable tier.
const DefaultProgressTTL = time.Hour

const progressKeyPrefix = "transcribe:progress:"

// ProgressKey returns the cache key for a job's progress record.
func ProgressKey(jobID string) string {
	return progressKeyPrefix + jobID
}

// ProgressTrackerOptions groups dependencies for ProgressTracker.
type ProgressTrackerOptions struct {
	Cache  core.CacheRepository // Required: durable cross-process tier
	Clock  data.TimeProvider    // Optional: defaults to real time
	TTL    time.Duration        // Optional: defaults to DefaultProgressTTL
	Logger *slog.Logger         // Optional: structured logger
}

// ProgressTracker is the two-tier progress store. The in-process tier serves
// same-process reads without a network hop; every update is written through
// to the cache so any process can answer a poll and records survive worker
// restarts. Updates never lower a job's percentage.
type ProgressTracker struct {
	cache  core.CacheRepository
	clock  data.TimeProvider
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.RWMutex
	local map[string]*model.ProgressRecord
}

// NewProgressTracker constructs a new ProgressTracker.
func NewProgressTracker(opts ProgressTrackerOptions) (*ProgressTracker, error) {
	if opts.Cache == nil {
		return nil, errors.New("CacheRepository is required")
	}
	if opts.Clock == nil {
		opts.Clock = data.RealTimeProvider{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultProgressTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "progress_tracker")
	}

	return &ProgressTracker{
		cache:  opts.Cache,
		clock:  opts.Clock,
		ttl:    opts.TTL,
		logger: logger,
		local:  make(map[string]*model.ProgressRecord),
	}, nil
}

// Start registers a fresh progress record for a job entering processing.
func (t *ProgressTracker) Start(ctx context.Context, jobID string, totalSec float64, segmentsTotal int) {
	rec := &model.ProgressRecord{
		JobID:         jobID,
		Percent:       PercentValidate,
		Stage:         StageValidate,
		SegmentsTotal: segmentsTotal,
		TotalSeconds:  totalSec,
		StartedAt:     t.clock.Now().UTC(),
	}

	t.mu.Lock()
	t.local[jobID] = rec
	snapshot := rec.Clone()
	t.mu.Unlock()

	t.writeThrough(ctx, snapshot)
}

// SetStage advances a job to a named stage and percentage checkpoint. A
// checkpoint below the current percentage keeps the higher value; only the
// stage label changes.
func (t *ProgressTracker) SetStage(ctx context.Context, jobID, stage string, percent int) {
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.Stage = stage
		if percent > rec.Percent {
			rec.Percent = percent
		}
	})
}

// SetSegments records the segmentation decision once planning completes.
func (t *ProgressTracker) SetSegments(ctx context.Context, jobID string, total int) {
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.SegmentsTotal = total
	})
}

// SetDegraded flags the record as coming from the degraded fallback path.
func (t *ProgressTracker) SetDegraded(ctx context.Context, jobID string) {
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.Degraded = true
	})
}

// SegmentDone records completion of one segment: it bumps the counters,
// interpolates the percentage across the segment phase, and refreshes the
// throughput estimates. The estimate fields stay nil until at least one
// wall-clock instant has elapsed, so a client never sees NaN or Inf.
func (t *ProgressTracker) SegmentDone(ctx context.Context, jobID string, index int, processedSec float64) {
	now := t.clock.Now().UTC()
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.SegmentsCompleted++
		rec.CurrentSegment = index
		rec.ProcessedSeconds += processedSec
		rec.Stage = StageTranscribe

		if rec.SegmentsTotal > 0 {
			pct := SegmentsStart + (SegmentsEnd-SegmentsStart)*rec.SegmentsCompleted/rec.SegmentsTotal
			if pct > rec.Percent {
				rec.Percent = pct
			}
		}

		elapsed := rec.Elapsed(now).Seconds()
		if elapsed <= 0 || rec.ProcessedSeconds <= 0 {
			return
		}
		speed := rec.ProcessedSeconds / elapsed
		rec.SpeedRatio = &speed
		if remaining := rec.TotalSeconds - rec.ProcessedSeconds; remaining > 0 {
			eta := remaining / speed
			rec.EstimatedRemainingSec = &eta
		} else {
			zero := 0.0
			rec.EstimatedRemainingSec = &zero
		}
	})
}

// Complete marks the record finished at 100 percent. The record is left to
// expire via TTL rather than deleted so late pollers still see the terminal
// snapshot.
func (t *ProgressTracker) Complete(ctx context.Context, jobID string) {
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.Stage = StageComplete
		rec.Percent = PercentComplete
		zero := 0.0
		rec.EstimatedRemainingSec = &zero
	})
}

// MarkError labels the record failed without moving the percentage.
func (t *ProgressTracker) MarkError(ctx context.Context, jobID string) {
	t.update(ctx, jobID, func(rec *model.ProgressRecord) {
		rec.Stage = StageError
		rec.EstimatedRemainingSec = nil
	})
}

// Get returns the current progress for a job. Same-process reads are served
// from the local tier; otherwise the durable tier is consulted, so any worker
// can answer a poll for a job owned by another process. Returns NotFound when
// neither tier has a record.
func (t *ProgressTracker) Get(ctx context.Context, jobID string) (*model.ProgressRecord, error) {
	t.mu.RLock()
	rec, ok := t.local[jobID]
	if ok {
		snapshot := rec.Clone()
		t.mu.RUnlock()
		return snapshot, nil
	}
	t.mu.RUnlock()

	raw, err := t.cache.Get(ctx, ProgressKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("read progress for job %s: %w", jobID, err)
	}
	if raw == nil {
		return nil, apperrors.NotFoundf("no progress for job %s", jobID)
	}

	var cached model.ProgressRecord
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode progress for job %s: %w", jobID, err)
	}
	return &cached, nil
}

// Clear drops both tiers for a job, for cancellation and recovery cleanup.
func (t *ProgressTracker) Clear(ctx context.Context, jobID string) error {
	t.mu.Lock()
	delete(t.local, jobID)
	t.mu.Unlock()

	if _, err := t.cache.Delete(ctx, ProgressKey(jobID)); err != nil {
		return fmt.Errorf("clear progress for job %s: %w", jobID, err)
	}
	return nil
}

// Forget drops only the in-process tier, leaving the cached record to expire
// on its TTL. Used when a job reaches a terminal state.
func (t *ProgressTracker) Forget(jobID string) {
	t.mu.Lock()
	delete(t.local, jobID)
	t.mu.Unlock()
}

// update applies a mutation under the lock and writes the result through to
// the durable tier. Unknown job ids are ignored.
func (t *ProgressTracker) update(ctx context.Context, jobID string, fn func(*model.ProgressRecord)) {
	t.mu.Lock()
	rec, ok := t.local[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(rec)
	snapshot := rec.Clone()
	t.mu.Unlock()

	t.writeThrough(ctx, snapshot)
}

// writeThrough persists a snapshot to the cache. Cache failures are logged
// and swallowed: the local tier still serves same-process reads, and losing a
// cross-process snapshot must not fail the job.
func (t *ProgressTracker) writeThrough(ctx context.Context, rec *model.ProgressRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		if t.logger != nil {
			t.logger.ErrorContext(ctx, "failed to encode progress record", "job_id", rec.JobID, "error", err)
		}
		return
	}
	if err := t.cache.Set(ctx, ProgressKey(rec.JobID), raw, t.ttl); err != nil {
		if t.logger != nil {
			t.logger.WarnContext(ctx, "failed to write progress to cache", "job_id", rec.JobID, "error", err)
		}
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/data"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	"github.com/scribeflow/scribeflow/internal/domain/segment"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/observability/metrics"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
)

// JobEngines groups the external engine boundaries used by JobService.
type JobEngines struct {
	Transcriber core.SegmentTranscriber // Required: speech-to-text engine
	Summarizer  core.Summarizer         // Optional: needed only for jobs that request a summary
}

// JobRuntime groups the planning and timing knobs for JobService.
type JobRuntime struct {
	Planner  segment.Planner
	Profile  segment.Profile
	Timeouts TimeoutPolicy
	Clock    data.TimeProvider
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo     core.JobRepository // Required: durable job store
	Engines  JobEngines         // Required: Transcriber must be set
	Progress *ProgressTracker   // Required: two-tier progress store
	Runtime  JobRuntime         // Optional: zero value applies defaults
	Logger   *slog.Logger       // Optional: structured logger
	Metrics  statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// Outcome is the terminal result delivered to Watch subscribers.
type Outcome struct {
	Job *model.Job
	Err error
}

// JobService orchestrates the full transcription lifecycle: validation,
// engine probing, segmentation, the bounded worker pool, transcript
// reconciliation, optional summarization, and the terminal transition.
//
// Each accepted job runs in its own goroutine detached from the submitter's
// context; cancellation happens through Cancel, not by the submitter hanging
// up.
type JobService struct {
	repo       core.JobRepository
	engine     core.SegmentTranscriber
	summarizer core.Summarizer
	progress   *ProgressTracker
	pool       *SegmentPool
	runtime    JobRuntime
	logger     *slog.Logger
	metrics    statsd.Sink

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	watchers map[string][]chan Outcome
	// done retains terminal outcomes so a Watch that arrives after the job
	// finished still gets an immediate notification.
	done map[string]Outcome

	wg sync.WaitGroup
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Engines.Transcriber == nil {
		return nil, errors.New("SegmentTranscriber is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressTracker is required")
	}
	if opts.Runtime.Clock == nil {
		opts.Runtime.Clock = data.RealTimeProvider{}
	}
	if opts.Runtime.Profile.SegmentLengthSec == 0 {
		opts.Runtime.Profile = segment.StandardProfile()
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	pool, err := NewSegmentPool(SegmentPoolOptions{
		Engine:  opts.Engines.Transcriber,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create segment pool: %w", err)
	}

	return &JobService{
		repo:       opts.Repo,
		engine:     opts.Engines.Transcriber,
		summarizer: opts.Engines.Summarizer,
		progress:   opts.Progress,
		pool:       pool,
		runtime:    opts.Runtime,
		logger:     logger,
		metrics:    opts.Metrics,
		cancels:    make(map[string]context.CancelFunc),
		watchers:   make(map[string][]chan Outcome),
		done:       make(map[string]Outcome),
	}, nil
}

// Create validates a submission, persists the job in processing state, and
// starts the transcription pipeline in the background. The returned job is
// already visible to GetJob and Progress.
func (s *JobService) Create(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.InvalidInputf("invalid submission: %v", err)
	}

	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// The pipeline outlives the submitting request; only Cancel or the
	// size-tier deadline stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job accepted",
			"job_id", job.ID,
			"filename", job.Filename,
			"model", job.Options.Model,
			"duration_seconds", req.DurationSeconds,
		)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, job, req)
	}()

	return job, nil
}

// GetJob fetches a job's durable record.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

// Progress returns the live progress for a job. When the transient record has
// expired, terminal jobs are answered from the durable store so a late poller
// still gets a coherent snapshot.
func (s *JobService) Progress(ctx context.Context, jobID string) (*model.ProgressRecord, error) {
	rec, err := s.progress.Get(ctx, jobID)
	if err == nil {
		return rec, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	job, repoErr := s.repo.GetByID(ctx, jobID)
	if repoErr != nil {
		return nil, repoErr
	}
	if !job.IsDone() {
		return nil, err
	}

	rec = &model.ProgressRecord{
		JobID:    job.ID,
		Degraded: job.Degraded,
	}
	if job.StartedAt != nil {
		rec.StartedAt = *job.StartedAt
	}
	if job.Status == model.JobStatusCompleted {
		rec.Percent = PercentComplete
		rec.Stage = StageComplete
	} else {
		rec.Stage = StageError
	}
	return rec, nil
}

// Cancel stops a job running in this process. Terminal jobs return Conflict;
// jobs owned by another process return NotFound.
func (s *JobService) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
		if s.logger != nil {
			s.logger.InfoContext(ctx, "job cancel requested", "job_id", jobID)
		}
		return nil
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsDone() {
		return apperrors.Conflict(fmt.Sprintf("job %s is already %s", jobID, job.Status))
	}
	return apperrors.NotFoundf("job %s is not running in this process", jobID)
}

// Watch subscribes to a job's terminal outcome. The channel receives exactly
// one Outcome; if the job already finished in this process the outcome is
// delivered immediately. The returned func unsubscribes.
func (s *JobService) Watch(jobID string) (<-chan Outcome, func()) {
	ch := make(chan Outcome, 1)

	s.mu.Lock()
	if out, ok := s.done[jobID]; ok {
		s.mu.Unlock()
		ch <- out
		return ch, func() {}
	}
	s.watchers[jobID] = append(s.watchers[jobID], ch)
	s.mu.Unlock()

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.watchers[jobID]
		for i, sub := range subs {
			if sub == ch {
				s.watchers[jobID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.watchers[jobID]) == 0 {
			delete(s.watchers, jobID)
		}
	}
	return ch, unsub
}

// Wait blocks until all in-flight pipelines finish. Used during shutdown and
// in tests.
func (s *JobService) Wait() {
	s.wg.Wait()
}

// run drives one job through the pipeline to a terminal state.
func (s *JobService) run(ctx context.Context, job *model.Job, req model.CreateJobRequest) {
	start := s.runtime.Clock.Now()
	jobTimeout := s.runtime.Timeouts.ForSize(req.SizeBytes)
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	s.progress.Start(ctx, job.ID, req.DurationSeconds, 0)

	// Liveness probe before any real work. An unreachable engine here takes
	// the degraded path instead of failing the job; mid-job engine loss is a
	// hard error handled below.
	probeCtx, probeCancel := context.WithTimeout(ctx, s.runtime.Timeouts.Probe())
	probeErr := s.engine.Health(probeCtx)
	probeCancel()
	if probeErr != nil {
		s.finishDegraded(ctx, job, probeErr)
		return
	}

	plan, err := s.runtime.Planner.Plan(req.DurationSeconds, s.runtime.Profile)
	if err != nil {
		s.finishFailed(ctx, job, start, err)
		return
	}
	s.progress.SetSegments(ctx, job.ID, len(plan.Segments))
	s.progress.SetStage(ctx, job.ID, StagePlan, PercentPlan)

	results, err := s.pool.Run(ctx, PoolRequest{
		JobID:       job.ID,
		AudioRef:    req.AudioRef,
		Plan:        plan,
		Options:     req.Options,
		CallTimeout: s.runtime.Timeouts.PerCall(jobTimeout, len(plan.Segments)),
		OnSegmentDone: func(ctx context.Context, index int, processedSec float64) {
			s.progress.SegmentDone(ctx, job.ID, index, processedSec)
		},
	})
	if err != nil {
		s.finishFailed(ctx, job, start, s.classifyRunError(ctx, err, jobTimeout))
		return
	}

	s.progress.SetStage(ctx, job.ID, StageReconcile, PercentReconcile)
	transcript := reconcileTranscript(results)

	var summary *string
	if req.Options.GenerateSummary {
		s.progress.SetStage(ctx, job.ID, StageSummarize, PercentSummarize)
		text, sumErr := s.summarize(ctx, transcript)
		if sumErr != nil {
			s.finishFailed(ctx, job, start, sumErr)
			return
		}
		summary = &text
	}

	s.finishCompleted(ctx, job, start, core.CompleteParams{
		Transcript: transcript,
		Summary:    summary,
	}, len(plan.Segments))
}

func (s *JobService) summarize(ctx context.Context, transcript string) (string, error) {
	if s.summarizer == nil {
		return "", apperrors.SummarizationFailure(errors.New("no summarizer configured"))
	}
	text, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		if apperrors.IsSummarizationFailure(err) {
			return "", err
		}
		return "", apperrors.SummarizationFailure(err)
	}
	return text, nil
}

// classifyRunError maps pool and context failures onto the error taxonomy.
// Typed errors pass through; a blown job deadline becomes Timeout and a user
// cancellation becomes Canceled even when the pool surfaced them as segment
// failures.
func (s *JobService) classifyRunError(ctx context.Context, err error, jobTimeout time.Duration) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Timeout(fmt.Sprintf("job exceeded its %s deadline", jobTimeout), err)
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.Canceled("job canceled")
	}
	if apperrors.GetCode(err) != "" {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "transcription failed")
}

// finishCompleted records a terminal success. Terminal writes run on a
// context detached from the pipeline's so a deadline or cancellation cannot
// block the state transition it caused.
func (s *JobService) finishCompleted(ctx context.Context, job *model.Job, start time.Time, params core.CompleteParams, segments int) {
	writeCtx := context.WithoutCancel(ctx)

	updated, err := s.repo.Complete(writeCtx, job.ID, params)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(writeCtx, "failed to record job completion", "job_id", job.ID, "error", err)
		}
		s.finishFailed(ctx, job, start, apperrors.Wrap(err, apperrors.ErrCodeInternal, "record completion"))
		return
	}

	s.progress.Complete(writeCtx, job.ID)
	s.progress.Forget(job.ID)

	result := metrics.ResultCompleted
	if params.Degraded {
		result = metrics.ResultDegraded
	}
	metrics.EmitJobOutcome(s.metrics, metrics.JobOutcome{
		Model:    string(job.Options.Model),
		Result:   result,
		Segments: segments,
		Duration: s.runtime.Clock.Now().Sub(start),
	})

	if s.logger != nil {
		s.logger.InfoContext(writeCtx, "job completed",
			"job_id", job.ID,
			"segments", segments,
			"degraded", params.Degraded,
		)
	}
	s.notify(job.ID, Outcome{Job: updated})
}

// finishFailed records a terminal failure with a detail naming the failure
// class.
func (s *JobService) finishFailed(ctx context.Context, job *model.Job, start time.Time, cause error) {
	writeCtx := context.WithoutCancel(ctx)

	detail := cause.Error()
	if code := apperrors.GetCode(cause); code != "" {
		detail = fmt.Sprintf("%s: %s", code, cause.Error())
	}

	updated, err := s.repo.Fail(writeCtx, job.ID, detail)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(writeCtx, "failed to record job failure", "job_id", job.ID, "error", err)
		}
		updated = job
	}

	s.progress.MarkError(writeCtx, job.ID)
	s.progress.Forget(job.ID)

	metrics.EmitJobOutcome(s.metrics, metrics.JobOutcome{
		Model:    string(job.Options.Model),
		Result:   metrics.ResultError,
		Duration: s.runtime.Clock.Now().Sub(start),
		Err:      cause,
	})

	if s.logger != nil {
		s.logger.WarnContext(writeCtx, "job failed",
			"job_id", job.ID,
			"error_code", string(apperrors.GetCode(cause)),
			"error", cause,
		)
	}
	s.notify(job.ID, Outcome{Job: updated, Err: cause})
}

// finishDegraded completes the job through the simulated fallback path when
// the engine is unreachable before transcription starts. The job succeeds
// with a clearly labeled placeholder transcript and the degraded flag set.
func (s *JobService) finishDegraded(ctx context.Context, job *model.Job, probeErr error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "engine unreachable, taking degraded path",
			"job_id", job.ID,
			"error", probeErr,
		)
	}

	s.progress.SetDegraded(ctx, job.ID)

	transcript := fmt.Sprintf(
		"[degraded] transcription engine was unavailable; no speech-to-text output was produced for %s",
		job.Filename,
	)
	s.finishCompleted(ctx, job, s.runtime.Clock.Now(), core.CompleteParams{
		Transcript: transcript,
		Degraded:   true,
	}, 0)
}

// notify delivers the terminal outcome to subscribers and retains it for late
// ones. The cancel registration is released here.
func (s *JobService) notify(jobID string, out Outcome) {
	s.mu.Lock()
	delete(s.cancels, jobID)
	s.done[jobID] = out
	subs := s.watchers[jobID]
	delete(s.watchers, jobID)
	s.mu.Unlock()

	for _, ch := range subs {
		// Buffered, one outcome per subscription, so this never blocks.
		ch <- out
	}
}

func reconcileTranscript(results []model.SegmentResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

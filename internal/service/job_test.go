package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/mocks"
)

// brokenEngine wraps a fakeEngine with a failing liveness probe.
type brokenEngine struct {
	*fakeEngine
	probeErr error
}

func (e *brokenEngine) Health(context.Context) error { return e.probeErr }

func processingJob(id string) *model.Job {
	return &model.Job{
		ID:       id,
		Filename: "meeting.mp3",
		Status:   model.JobStatusProcessing,
		Options:  model.TranscribeOptions{Model: model.DefaultModel, Language: model.LanguageAuto},
	}
}

func submission(durationSec float64) model.CreateJobRequest {
	return model.CreateJobRequest{
		Filename:        "meeting.mp3",
		AudioRef:        "uploads/meeting.mp3",
		DurationSeconds: durationSec,
		SizeBytes:       4 << 20,
	}
}

type jobServiceFixture struct {
	svc      *JobService
	repo     *mocks.MockJobRepository
	cache    *memCache
	clock    *stepClock
	progress *ProgressTracker
}

func newJobServiceFixture(t *testing.T, engine core.SegmentTranscriber, summ core.Summarizer) *jobServiceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	cache := newMemCache()
	clock := newStepClock()
	progress := newTestTracker(t, cache, clock)

	svc, err := NewJobService(JobServiceOptions{
		Repo:     repo,
		Engines:  JobEngines{Transcriber: engine, Summarizer: summ},
		Progress: progress,
		Runtime:  JobRuntime{Clock: clock},
	})
	require.NoError(t, err)

	return &jobServiceFixture{svc: svc, repo: repo, cache: cache, clock: clock, progress: progress}
}

func waitOutcome(t *testing.T, svc *JobService, jobID string) Outcome {
	t.Helper()
	ch, unsub := svc.Watch(jobID)
	defer unsub()
	select {
	case out := <-ch:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job outcome")
		return Outcome{}
	}
}

func TestJobService_CreateRejectsInvalidSubmission(t *testing.T) {
	fx := newJobServiceFixture(t, newFakeEngine(nil), nil)

	req := submission(120)
	req.Filename = "notes.txt"

	_, err := fx.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestJobService_HappyPathMultiSegment(t *testing.T) {
	engine := newFakeEngine(func(_ context.Context, index, _ int) (*core.SegmentTranscription, error) {
		return &core.SegmentTranscription{Text: fmt.Sprintf("part %d", index)}, nil
	})
	fx := newJobServiceFixture(t, engine, nil)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().
		Complete(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, params core.CompleteParams) (*model.Job, error) {
			assert.Equal(t, "part 0 part 1 part 2", params.Transcript)
			assert.Nil(t, params.Summary)
			assert.False(t, params.Degraded)
			done := processingJob(id)
			done.Status = model.JobStatusCompleted
			done.Transcript = &params.Transcript
			return done, nil
		})

	job, err := fx.svc.Create(context.Background(), submission(900))
	require.NoError(t, err)

	out := waitOutcome(t, fx.svc, job.ID)
	require.NoError(t, out.Err)
	assert.Equal(t, model.JobStatusCompleted, out.Job.Status)

	// Terminal progress stays readable from the durable tier.
	rec, err := fx.svc.Progress(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, PercentComplete, rec.Percent)
	assert.Equal(t, StageComplete, rec.Stage)
}

func TestJobService_SummaryRequested(t *testing.T) {
	ctrl := gomock.NewController(t)
	summ := mocks.NewMockSummarizer(ctrl)
	summ.EXPECT().Summarize(gomock.Any(), "hello world").Return("a short summary", nil)

	engine := newFakeEngine(func(context.Context, int, int) (*core.SegmentTranscription, error) {
		return &core.SegmentTranscription{Text: "hello world"}, nil
	})
	fx := newJobServiceFixture(t, engine, summ)

	created := processingJob("job-1")
	created.Options.GenerateSummary = true
	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(created, nil)
	fx.repo.EXPECT().
		Complete(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, params core.CompleteParams) (*model.Job, error) {
			require.NotNil(t, params.Summary)
			assert.Equal(t, "a short summary", *params.Summary)
			done := processingJob(id)
			done.Status = model.JobStatusCompleted
			return done, nil
		})

	req := submission(120)
	req.Options.GenerateSummary = true

	job, err := fx.svc.Create(context.Background(), req)
	require.NoError(t, err)

	out := waitOutcome(t, fx.svc, job.ID)
	require.NoError(t, out.Err)
}

func TestJobService_SummarizerFailureFailsJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	summ := mocks.NewMockSummarizer(ctrl)
	summ.EXPECT().Summarize(gomock.Any(), gomock.Any()).Return("", errors.New("llm offline"))

	engine := newFakeEngine(func(context.Context, int, int) (*core.SegmentTranscription, error) {
		return &core.SegmentTranscription{Text: "hello"}, nil
	})
	fx := newJobServiceFixture(t, engine, summ)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().
		Fail(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id, detail string) (*model.Job, error) {
			assert.True(t, strings.HasPrefix(detail, "summarization_failure:"), "detail=%q", detail)
			failed := processingJob(id)
			failed.Status = model.JobStatusError
			return failed, nil
		})

	req := submission(120)
	req.Options.GenerateSummary = true

	job, err := fx.svc.Create(context.Background(), req)
	require.NoError(t, err)

	out := waitOutcome(t, fx.svc, job.ID)
	require.Error(t, out.Err)
	assert.True(t, apperrors.IsSummarizationFailure(out.Err))
}

func TestJobService_DegradedPathWhenEngineUnreachable(t *testing.T) {
	engine := &brokenEngine{
		fakeEngine: newFakeEngine(nil),
		probeErr:   errors.New("connection refused"),
	}
	fx := newJobServiceFixture(t, engine, nil)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().
		Complete(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, params core.CompleteParams) (*model.Job, error) {
			assert.True(t, params.Degraded)
			assert.Contains(t, params.Transcript, "[degraded]")
			done := processingJob(id)
			done.Status = model.JobStatusCompleted
			done.Degraded = true
			return done, nil
		})

	job, err := fx.svc.Create(context.Background(), submission(120))
	require.NoError(t, err)

	out := waitOutcome(t, fx.svc, job.ID)
	require.NoError(t, out.Err)
	assert.True(t, out.Job.Degraded)

	// The engine was never asked to transcribe anything.
	assert.Empty(t, engine.calls)
}

func TestJobService_SegmentFailureNamesSegment(t *testing.T) {
	engine := newFakeEngine(func(_ context.Context, index, _ int) (*core.SegmentTranscription, error) {
		if index == 1 {
			return nil, errors.New("decode error")
		}
		return &core.SegmentTranscription{Text: "x"}, nil
	})
	fx := newJobServiceFixture(t, engine, nil)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().
		Fail(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id, detail string) (*model.Job, error) {
			assert.Contains(t, detail, "segment_failure")
			assert.Contains(t, detail, "segment 1")
			failed := processingJob(id)
			failed.Status = model.JobStatusError
			return failed, nil
		})

	job, err := fx.svc.Create(context.Background(), submission(900))
	require.NoError(t, err)

	out := waitOutcome(t, fx.svc, job.ID)
	require.Error(t, out.Err)
	assert.True(t, apperrors.IsSegmentFailure(out.Err))

	idx, ok := apperrors.GetSegment(out.Err)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestJobService_CancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	engine := newFakeEngine(func(ctx context.Context, _, _ int) (*core.SegmentTranscription, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	fx := newJobServiceFixture(t, engine, nil)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().
		Fail(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id, detail string) (*model.Job, error) {
			assert.True(t, strings.HasPrefix(detail, "canceled:"), "detail=%q", detail)
			failed := processingJob(id)
			failed.Status = model.JobStatusError
			return failed, nil
		})

	job, err := fx.svc.Create(context.Background(), submission(120))
	require.NoError(t, err)

	<-started
	require.NoError(t, fx.svc.Cancel(context.Background(), job.ID))

	out := waitOutcome(t, fx.svc, job.ID)
	require.Error(t, out.Err)
	assert.True(t, apperrors.IsCanceled(out.Err))
}

func TestJobService_CancelUnknownAndTerminalJobs(t *testing.T) {
	fx := newJobServiceFixture(t, newFakeEngine(nil), nil)

	fx.repo.EXPECT().GetByID(gomock.Any(), "missing").
		Return(nil, apperrors.NotFoundf("job missing not found"))
	err := fx.svc.Cancel(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	done := processingJob("done")
	done.Status = model.JobStatusCompleted
	fx.repo.EXPECT().GetByID(gomock.Any(), "done").Return(done, nil)
	err = fx.svc.Cancel(context.Background(), "done")
	assert.True(t, apperrors.IsConflict(err))
}

func TestJobService_WatchAfterCompletion(t *testing.T) {
	engine := newFakeEngine(func(context.Context, int, int) (*core.SegmentTranscription, error) {
		return &core.SegmentTranscription{Text: "x"}, nil
	})
	fx := newJobServiceFixture(t, engine, nil)

	fx.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(processingJob("job-1"), nil)
	fx.repo.EXPECT().Complete(gomock.Any(), "job-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, params core.CompleteParams) (*model.Job, error) {
			done := processingJob(id)
			done.Status = model.JobStatusCompleted
			return done, nil
		})

	job, err := fx.svc.Create(context.Background(), submission(120))
	require.NoError(t, err)
	fx.svc.Wait()

	// Late subscribers still get the outcome immediately.
	ch, unsub := fx.svc.Watch(job.ID)
	defer unsub()
	select {
	case out := <-ch:
		require.NoError(t, out.Err)
		assert.Equal(t, model.JobStatusCompleted, out.Job.Status)
	default:
		t.Fatal("expected immediate outcome for finished job")
	}
}

func TestJobService_ProgressFallsBackToDurableRecord(t *testing.T) {
	fx := newJobServiceFixture(t, newFakeEngine(nil), nil)

	done := processingJob("job-9")
	done.Status = model.JobStatusError
	fx.repo.EXPECT().GetByID(gomock.Any(), "job-9").Return(done, nil)

	rec, err := fx.svc.Progress(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, StageError, rec.Stage)
}

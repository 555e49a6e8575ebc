package data_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/data"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/testutil"
)

func testRequest() model.CreateJobRequest {
	req := model.CreateJobRequest{
		Filename:        "meeting.mp3",
		AudioRef:        "uploads/meeting.mp3",
		DurationSeconds: 900,
		SizeBytes:       8 << 20,
	}
	req.Options.Normalize()
	return req
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := data.NewJobRepo(db, nil)

		job, err := repo.Create(ctx, testRequest())
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		assert.Equal(t, "meeting.mp3", job.Filename)
		assert.Equal(t, model.DefaultModel, job.Options.Model)
		assert.Nil(t, job.Transcript)
		assert.False(t, job.Degraded)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Options, got.Options)
	})
}

func TestJobRepo_GetMissing(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := data.NewJobRepo(db, nil)

		_, err := repo.GetByID(context.Background(), "2d4f0a61-0000-4000-8000-000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_CompleteIsMonotonic(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := data.NewJobRepo(db, nil)

		job, err := repo.Create(ctx, testRequest())
		require.NoError(t, err)

		summary := "short summary"
		done, err := repo.Complete(ctx, job.ID, core.CompleteParams{
			Transcript: "hello world",
			Summary:    &summary,
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, done.Status)
		require.NotNil(t, done.Transcript)
		assert.Equal(t, "hello world", *done.Transcript)
		require.NotNil(t, done.Summary)
		assert.Equal(t, "short summary", *done.Summary)
		require.NotNil(t, done.CompletedAt)

		// A terminal job can never be rewritten.
		_, err = repo.Complete(ctx, job.ID, core.CompleteParams{Transcript: "other"})
		assert.True(t, apperrors.IsConflict(err))
		_, err = repo.Fail(ctx, job.ID, "too late")
		assert.True(t, apperrors.IsConflict(err))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello world", *got.Transcript)
	})
}

func TestJobRepo_Fail(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := data.NewJobRepo(db, nil)

		job, err := repo.Create(ctx, testRequest())
		require.NoError(t, err)

		failed, err := repo.Fail(ctx, job.ID, "segment_failure: segment 2 failed")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusError, failed.Status)
		require.NotNil(t, failed.ErrorDetail)
		assert.Contains(t, *failed.ErrorDetail, "segment 2")

		_, err = repo.Complete(ctx, job.ID, core.CompleteParams{Transcript: "x"})
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestJobRepo_FailStaleProcessing(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()

		stale := time.Now().UTC().Add(-3 * time.Hour)
		oldRepo := data.NewJobRepo(db, data.FixedTimeProvider{Fixed: stale})
		freshRepo := data.NewJobRepo(db, nil)

		a, err := oldRepo.Create(ctx, testRequest())
		require.NoError(t, err)
		b, err := oldRepo.Create(ctx, testRequest())
		require.NoError(t, err)
		fresh, err := freshRepo.Create(ctx, testRequest())
		require.NoError(t, err)

		ids, err := freshRepo.FailStaleProcessing(ctx, 2*time.Hour, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

		for _, id := range ids {
			got, gerr := freshRepo.GetByID(ctx, id)
			require.NoError(t, gerr)
			assert.Equal(t, model.JobStatusError, got.Status)
			require.NotNil(t, got.ErrorDetail)
			assert.Contains(t, *got.ErrorDetail, "abandoned")
		}

		got, err := freshRepo.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, got.Status)
	})
}

func TestJobRepo_FailStaleProcessingRespectsBatchSize(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()

		stale := time.Now().UTC().Add(-3 * time.Hour)
		oldRepo := data.NewJobRepo(db, data.FixedTimeProvider{Fixed: stale})
		for i := 0; i < 3; i++ {
			_, err := oldRepo.Create(ctx, testRequest())
			require.NoError(t, err)
		}

		repo := data.NewJobRepo(db, nil)
		ids, err := repo.FailStaleProcessing(ctx, 2*time.Hour, 2)
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		ids, err = repo.FailStaleProcessing(ctx, 2*time.Hour, 2)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

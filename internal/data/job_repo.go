// Package data contains the persistence layer: the Postgres job store and the
// Redis progress cache.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

// JobRepo implements core.JobRepository backed by Postgres.
//
// Terminal transitions are guarded in SQL: Complete and Fail only match rows
// still in processing, so a job that already finished can never be rewritten
// regardless of how many workers race on it.
type JobRepo struct {
	db    *sql.DB
	clock TimeProvider
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates a job repository. A nil clock uses real time.
func NewJobRepo(db *sql.DB, clock TimeProvider) *JobRepo {
	if clock == nil {
		clock = RealTimeProvider{}
	}
	return &JobRepo{db: db, clock: clock}
}

const jobColumns = `id, filename, status, options, transcript, summary, error_detail, degraded, created_at, started_at, completed_at, updated_at`

// Create inserts a new job in processing state and returns it.
func (r *JobRepo) Create(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	opts, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	now := r.clock.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, filename, status, options, created_at, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5, $5)
		RETURNING `+jobColumns,
		uuid.NewString(), req.Filename, model.JobStatusProcessing, opts, now,
	)
	return scanJob(row)
}

// GetByID fetches a job by its id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", id)
		}
		return nil, err
	}
	return job, nil
}

// Complete transitions a processing job to completed with its transcript.
// Returns Conflict if the job already reached a terminal state.
func (r *JobRepo) Complete(ctx context.Context, id string, result core.CompleteParams) (*model.Job, error) {
	now := r.clock.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $2, transcript = $3, summary = $4, degraded = $5, completed_at = $6, updated_at = $6
		WHERE id = $1 AND status = $7
		RETURNING `+jobColumns,
		id, model.JobStatusCompleted, result.Transcript, result.Summary, result.Degraded, now,
		model.JobStatusProcessing,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionConflict(ctx, id)
		}
		return nil, err
	}
	return job, nil
}

// Fail transitions a processing job to error with a failure detail.
// Returns Conflict if the job already reached a terminal state.
func (r *JobRepo) Fail(ctx context.Context, id string, detail string) (*model.Job, error) {
	now := r.clock.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $2, error_detail = $3, completed_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+jobColumns,
		id, model.JobStatusError, detail, now, model.JobStatusProcessing,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionConflict(ctx, id)
		}
		return nil, err
	}
	return job, nil
}

// transitionConflict distinguishes a missing job from an already-terminal one
// after a guarded UPDATE matched nothing.
func (r *JobRepo) transitionConflict(ctx context.Context, id string) error {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.Conflict(fmt.Sprintf("job %s is already %s", id, job.Status))
}

// FailStaleProcessing marks processing jobs older than maxAge as errored and
// returns their ids, up to batchSize per call. SKIP LOCKED lets concurrent
// sweepers partition the stale set instead of blocking on each other.
func (r *JobRepo) FailStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) ([]string, error) {
	now := r.clock.Now().UTC()
	cutoff := now.Add(-maxAge)

	rows, err := r.db.QueryContext(ctx, `
		UPDATE jobs
		SET status = $1, error_detail = $2, completed_at = $3, updated_at = $3
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = $4 AND updated_at < $5
			ORDER BY updated_at
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		model.JobStatusError, "abandoned: no progress before recovery deadline", now,
		model.JobStatusProcessing, cutoff, batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("fail stale processing: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale job ids: %w", err)
	}
	return ids, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job     model.Job
		optsRaw []byte
	)
	err := row.Scan(
		&job.ID, &job.Filename, &job.Status, &optsRaw,
		&job.Transcript, &job.Summary, &job.ErrorDetail, &job.Degraded,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if len(optsRaw) > 0 {
		if err := json.Unmarshal(optsRaw, &job.Options); err != nil {
			return nil, fmt.Errorf("unmarshal job options: %w", err)
		}
	}
	return &job, nil
}

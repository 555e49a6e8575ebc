// Package core defines the port interfaces the orchestration engine depends
// on. The core never imports internal/data or internal/adapters; those layers
// provide implementations.
package core

import (
	"context"
	"time"

	"github.com/scribeflow/scribeflow/internal/domain/model"
)

// JobRepository is the durable job store. The engine calls it at job creation
// and at every terminal transition; it does not own schema or query patterns
// beyond the monotonicity guarantee: Complete and Fail must refuse to rewrite
// a job that already reached a terminal state.
type JobRepository interface {
	Create(ctx context.Context, req model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// Complete transitions a processing job to completed with its
	// reconciled transcript and optional summary.
	Complete(ctx context.Context, id string, result CompleteParams) (*model.Job, error)

	// Fail transitions a processing job to error with a human-readable
	// detail naming the failure class (and segment index when applicable).
	Fail(ctx context.Context, id string, detail string) (*model.Job, error)

	// FailStaleProcessing marks processing jobs older than maxAge as
	// errored and returns their ids, up to batchSize per call. Used by the
	// recovery sweep for jobs orphaned by a crashed worker.
	FailStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) ([]string, error)
}

// CompleteParams carries the terminal result of a successful job.
type CompleteParams struct {
	Transcript string
	Summary    *string
	Degraded   bool
}

// CacheRepository is the cross-process cache used for progress records.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value, or nil if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the cache connection.
	Health(ctx context.Context) error
}

// SegmentRequest identifies one bounded audio window for the speech-to-text
// engine.
type SegmentRequest struct {
	AudioRef    string
	StartSec    float64
	DurationSec float64
	Model       model.ModelSize
	Language    string
}

// SegmentTranscription is the engine's result for one window.
type SegmentTranscription struct {
	Text               string
	Language           string
	LanguageConfidence float64
	DurationSec        float64
}

// SegmentTranscriber is the speech-to-text engine boundary. Calls are
// independent per segment with no ordering requirement.
type SegmentTranscriber interface {
	// Health is the lightweight liveness probe consulted before starting
	// real transcription.
	Health(ctx context.Context) error

	TranscribeSegment(ctx context.Context, req SegmentRequest) (*SegmentTranscription, error)
}

// Summarizer is the summarization engine boundary, called at most once per
// job after transcript reconciliation.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

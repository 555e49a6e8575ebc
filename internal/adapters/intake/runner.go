// Package intake consumes transcription submissions from a Redis list and
// feeds them into the job service.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scribeflow/scribeflow/config"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
	"github.com/scribeflow/scribeflow/internal/service"
)

// Queue is the minimal blocking-pop interface the runner needs. Satisfied by
// RedisQueue in production and by fakes in tests.
type Queue interface {
	// Pop blocks up to timeout for the next payload, returning (nil, nil)
	// when the queue stayed empty.
	Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// RedisQueue implements Queue over a Redis list with BRPOP.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue backed by the given client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Pop blocks up to timeout for the next submission payload.
func (q *RedisQueue) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// RunnerOptions groups dependencies for Runner.
type RunnerOptions struct {
	Jobs    *service.JobService // Required: job orchestrator
	Queue   Queue               // Required: submission source
	Config  config.IntakeConfig // Required: queue name and poll timeout
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// Runner is the submission intake loop. Malformed or invalid submissions are
// dropped with a log line and a counter; they never crash the loop.
type Runner struct {
	jobs    *service.JobService
	queue   Queue
	config  config.IntakeConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRunner constructs a new Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "intake_runner")
	}

	return &Runner{
		jobs:    opts.Jobs,
		queue:   opts.Queue,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run consumes submissions until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (r *Runner) Run(ctx context.Context) error {
	if r.logger != nil {
		r.logger.InfoContext(ctx, "starting intake runner", "queue", r.config.Queue)
	}

	for {
		if err := ctx.Err(); err != nil {
			if r.logger != nil {
				r.logger.InfoContext(ctx, "intake runner stopping", "reason", err)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		payload, err := r.queue.Pop(ctx, r.config.Queue, r.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "failed to pop submission", "error", err)
			}
			// Back off briefly so a broken Redis does not spin the loop.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		if payload == nil {
			continue
		}

		r.handle(ctx, payload)
	}
}

// handle decodes and submits one payload. Unknown fields are rejected so
// typos in a producer's option names fail loudly instead of being silently
// ignored.
func (r *Runner) handle(ctx context.Context, payload []byte) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var req model.CreateJobRequest
	if err := dec.Decode(&req); err != nil {
		r.reject(ctx, "malformed submission payload", err)
		return
	}

	job, err := r.jobs.Create(ctx, req)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			r.reject(ctx, "invalid submission", err)
			return
		}
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "failed to create job", "filename", req.Filename, "error", err)
		}
		return
	}

	if r.metrics != nil {
		r.metrics.Count("intake.accepted", 1, map[string]string{"model": string(job.Options.Model)})
	}
}

func (r *Runner) reject(ctx context.Context, msg string, err error) {
	if r.logger != nil {
		r.logger.WarnContext(ctx, msg, "error", err)
	}
	if r.metrics != nil {
		r.metrics.Count("intake.rejected", 1, nil)
	}
}

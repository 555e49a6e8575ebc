package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/scribeflow/scribeflow/config"
	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/observability/metrics"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
)

// RecoveryServiceOptions groups dependencies for RecoveryService.
type RecoveryServiceOptions struct {
	Repo     core.JobRepository    // Required: job repository
	Progress *ProgressTracker      // Required: progress store to clear reclaimed keys
	Config   config.RecoveryConfig // Required: sweep configuration
	Logger   *slog.Logger          // Optional: structured logger
	Metrics  statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// RecoveryService reclaims jobs orphaned by a crashed or restarted worker.
//
// A processing job whose row has not been touched for longer than the
// configured max age cannot still be making progress; the sweep fails it and
// clears its progress record so pollers stop seeing a live percentage for a
// dead job.
type RecoveryService struct {
	repo     core.JobRepository
	progress *ProgressTracker
	config   config.RecoveryConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRecoveryService constructs a new RecoveryService.
func NewRecoveryService(opts RecoveryServiceOptions) (*RecoveryService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Progress == nil {
		return nil, errors.New("ProgressTracker is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "recovery_service")
		logger.Debug("RecoveryService initialized",
			"interval", opts.Config.Interval,
			"max_age", opts.Config.MaxAge,
			"batch_size", opts.Config.BatchSize,
		)
	}

	return &RecoveryService{
		repo:     opts.Repo,
		progress: opts.Progress,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *RecoveryService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting recovery service", "interval", s.config.Interval)
	}

	// Jitter so multiple instances starting together do not sweep in
	// lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sweep(ctx); err != nil {
		s.logSweepError(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "recovery service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logSweepError(ctx, err)
			}
		}
	}
}

// Sweep reclaims one batch of abandoned jobs and clears their progress
// records.
func (s *RecoveryService) Sweep(ctx context.Context) error {
	ids, err := s.repo.FailStaleProcessing(ctx, s.config.MaxAge, s.config.BatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		if err := s.progress.Clear(ctx, id); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to clear progress for reclaimed job",
				"job_id", id, "error", err)
		}
	}

	metrics.EmitRecoverySweep(s.metrics, len(ids))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "reclaimed abandoned jobs", "count", len(ids))
	}
	return nil
}

// waitWithJitter delays up to 10% of the interval before the first sweep.
func (s *RecoveryService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *RecoveryService) logSweepError(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "recovery sweep failed", "error", err)
	}
}

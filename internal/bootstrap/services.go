package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/scribeflow/scribeflow/config"
	"github.com/scribeflow/scribeflow/internal/adapters/intake"
	"github.com/scribeflow/scribeflow/internal/adapters/summarizer"
	"github.com/scribeflow/scribeflow/internal/adapters/whisper"
	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/data"
	"github.com/scribeflow/scribeflow/internal/domain/segment"
	"github.com/scribeflow/scribeflow/internal/observability/statsd"
	"github.com/scribeflow/scribeflow/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     *service.JobService
	Progress *service.ProgressTracker
	Recovery *service.RecoveryService
	Intake   *intake.Runner
	Metrics  *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient *redis.Client
	Logger      *slog.Logger
}

// NewServices wires repositories, adapters, and services from shared
// infrastructure.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.StatsdEnabled,
		Address: cfg.Observability.StatsdAddress,
		Prefix:  cfg.Observability.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		// Metrics are optional; run without a sink rather than refusing to
		// start.
		logger.Error("failed to initialise statsd client", "error", err)
		metricsSink = nil
	}

	jobRepo := data.NewJobRepo(deps.DB, nil)
	cacheRepo := data.NewRedisCacheRepo(deps.RedisClient)

	progress, err := service.NewProgressTracker(service.ProgressTrackerOptions{
		Cache:  cacheRepo,
		TTL:    cfg.Progress.TTL,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create progress tracker: %w", err)
	}

	engine, err := whisper.NewClient(whisper.ClientOptions{
		BaseURL: cfg.Engine.URL,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create engine client: %w", err)
	}

	var summarizerClient core.Summarizer
	if cfg.Summarizer.URL != "" {
		client, serr := summarizer.NewClient(summarizer.ClientOptions{
			BaseURL: cfg.Summarizer.URL,
			Timeout: cfg.Summarizer.Timeout,
		})
		if serr != nil {
			return ServiceContainer{}, fmt.Errorf("create summarizer client: %w", serr)
		}
		summarizerClient = client
	}

	profile := segment.StandardProfile()
	if cfg.Planner.HighMemory {
		profile = segment.HighMemoryProfile()
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo: jobRepo,
		Engines: service.JobEngines{
			Transcriber: engine,
			Summarizer:  summarizerClient,
		},
		Progress: progress,
		Runtime: service.JobRuntime{
			Planner: segment.Planner{LongAudioThresholdSec: cfg.Planner.LongAudioThresholdSec},
			Profile: profile,
			Timeouts: service.TimeoutPolicy{
				MediumBytes:  cfg.Engine.MediumBytes,
				LargeBytes:   cfg.Engine.LargeBytes,
				Small:        cfg.Engine.SmallTimeout,
				Medium:       cfg.Engine.MediumTimeout,
				Large:        cfg.Engine.LargeTimeout,
				ProbeTimeout: cfg.Engine.ProbeTimeout,
			},
		},
		Logger:  logger,
		Metrics: metricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	recovery, err := service.NewRecoveryService(service.RecoveryServiceOptions{
		Repo:     jobRepo,
		Progress: progress,
		Config:   cfg.Recovery,
		Logger:   logger,
		Metrics:  metricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create recovery service: %w", err)
	}

	intakeRunner, err := intake.NewRunner(intake.RunnerOptions{
		Jobs:    jobs,
		Queue:   intake.NewRedisQueue(deps.RedisClient),
		Config:  cfg.Intake,
		Logger:  logger,
		Metrics: metricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create intake runner: %w", err)
	}

	return ServiceContainer{
		Jobs:     jobs,
		Progress: progress,
		Recovery: recovery,
		Intake:   intakeRunner,
		Metrics:  metricsSink,
	}, nil
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal is received or a service fails. In-flight jobs are drained
// before returning.
func RunServicesWithShutdown(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeWorker] {
		g.Go(func() error {
			return services.Intake.Run(gctx)
		})
	}
	if enabled[config.ServiceModeReaper] {
		g.Go(func() error {
			return services.Recovery.Run(gctx)
		})
	}

	err = g.Wait()

	// Let jobs accepted before the signal reach a terminal state.
	logger.Info("draining in-flight jobs")
	services.Jobs.Wait()

	if services.Metrics != nil {
		if cerr := services.Metrics.Close(); cerr != nil {
			logger.Error("close statsd client failed", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

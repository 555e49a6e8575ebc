package config

import (
	"time"

	"github.com/scribeflow/scribeflow/internal/domain/model"
)

// EngineConfig contains the speech-to-text engine endpoint and the
// size-tiered timeout policy.
type EngineConfig struct {
	// URL is the base URL of the transcription engine HTTP API.
	URL string `env:"URL" envDefault:"http://localhost:9090"`

	// DefaultModel is used when a submission does not name a model.
	DefaultModel model.ModelSize `env:"DEFAULT_MODEL" envDefault:"medium"`

	// ProbeTimeout bounds the liveness probe before a job starts.
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`

	// Timeout tiers. Uploads below MediumBytes get SmallTimeout, below
	// LargeBytes get MediumTimeout, everything else LargeTimeout.
	MediumBytes   int64         `env:"MEDIUM_BYTES"   envDefault:"104857600"`
	LargeBytes    int64         `env:"LARGE_BYTES"    envDefault:"314572800"`
	SmallTimeout  time.Duration `env:"SMALL_TIMEOUT"  envDefault:"10m"`
	MediumTimeout time.Duration `env:"MEDIUM_TIMEOUT" envDefault:"30m"`
	LargeTimeout  time.Duration `env:"LARGE_TIMEOUT"  envDefault:"60m"`
}

// Sanitize applies guardrails to engine configuration.
func (c *EngineConfig) Sanitize() {
	if !c.DefaultModel.Valid() {
		c.DefaultModel = model.DefaultModel
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.MediumBytes <= 0 {
		c.MediumBytes = 100 << 20
	}
	if c.LargeBytes <= c.MediumBytes {
		c.LargeBytes = 300 << 20
	}
	if c.SmallTimeout <= 0 {
		c.SmallTimeout = 10 * time.Minute
	}
	if c.MediumTimeout <= 0 {
		c.MediumTimeout = 30 * time.Minute
	}
	if c.LargeTimeout <= 0 {
		c.LargeTimeout = 60 * time.Minute
	}
}

// SummarizerConfig contains the summarization engine endpoint.
type SummarizerConfig struct {
	// URL is the base URL of the summarization HTTP API. Empty disables
	// summarization; jobs requesting a summary then fail.
	URL string `env:"URL" envDefault:""`

	// Timeout bounds one summarization call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"2m"`
}

// Sanitize applies guardrails to summarizer configuration.
func (c *SummarizerConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}

// PlannerConfig contains segmentation planner configuration.
type PlannerConfig struct {
	// LongAudioThresholdSec is the duration at or below which audio is
	// transcribed in a single call.
	LongAudioThresholdSec float64 `env:"LONG_AUDIO_THRESHOLD_SEC" envDefault:"600"`

	// HighMemory selects the high-memory profile (longer segments, more
	// parallel engine calls).
	HighMemory bool `env:"HIGH_MEMORY" envDefault:"false"`
}

// Sanitize applies guardrails to planner configuration.
func (c *PlannerConfig) Sanitize() {
	if c.LongAudioThresholdSec <= 0 {
		c.LongAudioThresholdSec = 600
	}
}

// ProgressConfig contains progress tracker configuration.
type ProgressConfig struct {
	// TTL bounds how long a progress record outlives its last update in
	// the cache.
	TTL time.Duration `env:"TTL" envDefault:"1h"`
}

// Sanitize applies guardrails to progress configuration.
func (c *ProgressConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
}

// RecoveryConfig contains recovery sweep configuration.
type RecoveryConfig struct {
	// Interval between sweep passes.
	Interval time.Duration `env:"INTERVAL" envDefault:"5m"`

	// MaxAge is how long a processing job may go without an update before
	// the sweep declares it abandoned.
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"2h"`

	// BatchSize caps how many stale jobs one sweep pass reclaims.
	BatchSize int `env:"BATCH_SIZE" envDefault:"100"`
}

// Sanitize applies guardrails to recovery configuration.
func (c *RecoveryConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 2 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

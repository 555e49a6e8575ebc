package service

import "time"

// Timeout tiers keyed on upload size. Larger files get proportionally more
// wall-clock budget before the job is declared hung.
const (
	DefaultSmallTimeout  = 10 * time.Minute
	DefaultMediumTimeout = 30 * time.Minute
	DefaultLargeTimeout  = 60 * time.Minute

	// Size boundaries between the tiers.
	DefaultMediumBytes = int64(100 << 20)
	DefaultLargeBytes  = int64(300 << 20)

	// DefaultProbeTimeout bounds the liveness probe before a job starts.
	DefaultProbeTimeout = 5 * time.Second
)

// TimeoutPolicy maps an upload's size to its job deadline. The zero value is
// usable and applies the defaults above.
type TimeoutPolicy struct {
	// MediumBytes is the exclusive upper bound of the small tier.
	MediumBytes int64
	// LargeBytes is the exclusive upper bound of the medium tier.
	LargeBytes int64

	Small  time.Duration
	Medium time.Duration
	Large  time.Duration

	ProbeTimeout time.Duration
}

func (p TimeoutPolicy) sanitize() TimeoutPolicy {
	if p.MediumBytes <= 0 {
		p.MediumBytes = DefaultMediumBytes
	}
	if p.LargeBytes <= p.MediumBytes {
		p.LargeBytes = DefaultLargeBytes
	}
	if p.Small <= 0 {
		p.Small = DefaultSmallTimeout
	}
	if p.Medium <= 0 {
		p.Medium = DefaultMediumTimeout
	}
	if p.Large <= 0 {
		p.Large = DefaultLargeTimeout
	}
	if p.ProbeTimeout <= 0 {
		p.ProbeTimeout = DefaultProbeTimeout
	}
	return p
}

// ForSize returns the end-to-end deadline for a job of the given upload size.
func (p TimeoutPolicy) ForSize(sizeBytes int64) time.Duration {
	p = p.sanitize()
	switch {
	case sizeBytes < p.MediumBytes:
		return p.Small
	case sizeBytes < p.LargeBytes:
		return p.Medium
	default:
		return p.Large
	}
}

// PerCall divides the job deadline across segment calls so a single hung
// engine call cannot consume the whole budget. Each call still gets at least
// the small-tier timeout since segments include a local retry.
func (p TimeoutPolicy) PerCall(jobTimeout time.Duration, segments int) time.Duration {
	p = p.sanitize()
	if segments < 1 {
		segments = 1
	}
	per := jobTimeout / time.Duration(segments)
	if per < p.Small {
		per = p.Small
	}
	if per > jobTimeout {
		per = jobTimeout
	}
	return per
}

// Probe returns the liveness probe timeout.
func (p TimeoutPolicy) Probe() time.Duration {
	return p.sanitize().ProbeTimeout
}

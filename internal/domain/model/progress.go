package model

import "time"

// ProgressRecord is the transient, TTL-bounded status snapshot for a job,
// distinct from the job's durable record. It is serialized to JSON for the
// cross-process cache and rendered directly by polling clients, so numeric
// estimates use pointers: a nil estimate means "not yet known", never NaN.
type ProgressRecord struct {
	JobID             string  `json:"job_id"`
	Percent           int     `json:"progress"`
	Stage             string  `json:"stage"`
	SegmentsTotal     int     `json:"total_segments"`
	SegmentsCompleted int     `json:"segments_completed"`
	CurrentSegment    int     `json:"current_segment"`
	ProcessedSeconds  float64 `json:"processed_duration"`
	TotalSeconds      float64 `json:"total_duration"`
	// EstimatedRemainingSec is the projected seconds until completion, or
	// nil while no segment has completed yet.
	EstimatedRemainingSec *float64 `json:"estimated_time_remaining,omitempty"`
	// SpeedRatio is processed-audio-seconds per wall-clock second, or nil
	// while elapsed time is zero.
	SpeedRatio *float64  `json:"speed_ratio,omitempty"`
	Degraded   bool      `json:"degraded,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// Elapsed returns wall-clock time since the job entered processing.
func (p *ProgressRecord) Elapsed(now time.Time) time.Duration {
	if p.StartedAt.IsZero() || now.Before(p.StartedAt) {
		return 0
	}
	return now.Sub(p.StartedAt)
}

// Clone returns a copy safe to hand to callers without exposing tracker
// internals.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	cp := *p
	if p.EstimatedRemainingSec != nil {
		v := *p.EstimatedRemainingSec
		cp.EstimatedRemainingSec = &v
	}
	if p.SpeedRatio != nil {
		v := *p.SpeedRatio
		cp.SpeedRatio = &v
	}
	return &cp
}

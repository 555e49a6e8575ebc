// Package segment decides whether and how to split long audio into bounded,
// independently transcribable windows.
package segment

import (
	"math"

	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

// Default planning parameters. Inputs at or below the long-audio threshold
// are transcribed in a single call with no pool.
const (
	DefaultLongAudioThresholdSec = 600

	standardSegmentSec    = 300
	standardParallelism   = 1
	highMemorySegmentSec  = 600
	highMemoryParallelism = 3
	profileNameStandard   = "standard"
	profileNameHighMemory = "high-memory"
)

// Profile is a named bundle of segment length and parallelism degree chosen
// according to available compute.
type Profile struct {
	Name             string
	SegmentLengthSec float64
	Parallelism      int
}

// StandardProfile returns the conservative profile: short segments, serial
// engine calls.
func StandardProfile() Profile {
	return Profile{
		Name:             profileNameStandard,
		SegmentLengthSec: standardSegmentSec,
		Parallelism:      standardParallelism,
	}
}

// HighMemoryProfile returns the profile for hosts that can keep several
// engine calls in flight.
func HighMemoryProfile() Profile {
	return Profile{
		Name:             profileNameHighMemory,
		SegmentLengthSec: highMemorySegmentSec,
		Parallelism:      highMemoryParallelism,
	}
}

// sanitize applies guardrails so a misconfigured profile cannot produce a
// degenerate plan.
func (p Profile) sanitize() Profile {
	if p.SegmentLengthSec <= 0 {
		p.SegmentLengthSec = standardSegmentSec
	}
	if p.Parallelism < 1 {
		p.Parallelism = 1
	}
	return p
}

// Window is one contiguous slice of the source audio.
type Window struct {
	Index     int
	StartSec  float64
	LengthSec float64
}

// EndSec returns the exclusive end offset of the window.
func (w Window) EndSec() float64 {
	return w.StartSec + w.LengthSec
}

// Plan is the segmentation decision for one job: how many windows, how long,
// and how many may run concurrently. Windows tile [0, TotalSec) exactly.
type Plan struct {
	TotalSec         float64
	SegmentLengthSec float64
	Parallelism      int
	Segments         []Window
}

// SingleSegment reports whether the plan bypasses the worker pool.
func (p Plan) SingleSegment() bool {
	return len(p.Segments) == 1
}

// Planner computes segment plans. The zero value uses the default long-audio
// threshold.
type Planner struct {
	// LongAudioThresholdSec is the duration at or below which no
	// segmentation happens.
	LongAudioThresholdSec float64
}

// Plan returns the segmentation decision for an input of the given duration.
// Durations that are zero, negative, or not finite fail with InvalidInput;
// callers must not attempt a pool run on error.
func (pl Planner) Plan(totalSec float64, profile Profile) (Plan, error) {
	if math.IsNaN(totalSec) || math.IsInf(totalSec, 0) {
		return Plan{}, apperrors.InvalidInput("audio duration is not a finite number")
	}
	if totalSec <= 0 {
		return Plan{}, apperrors.InvalidInputf("audio duration must be positive, got %.2fs", totalSec)
	}

	threshold := pl.LongAudioThresholdSec
	if threshold <= 0 {
		threshold = DefaultLongAudioThresholdSec
	}
	profile = profile.sanitize()

	if totalSec <= threshold {
		return Plan{
			TotalSec:         totalSec,
			SegmentLengthSec: totalSec,
			Parallelism:      1,
			Segments:         []Window{{Index: 0, StartSec: 0, LengthSec: totalSec}},
		}, nil
	}

	count := int(math.Ceil(totalSec / profile.SegmentLengthSec))
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * profile.SegmentLengthSec
		length := profile.SegmentLengthSec
		// The last window absorbs the remainder so the tiling is exact.
		if start+length > totalSec {
			length = totalSec - start
		}
		windows = append(windows, Window{Index: i, StartSec: start, LengthSec: length})
	}

	return Plan{
		TotalSec:         totalSec,
		SegmentLengthSec: profile.SegmentLengthSec,
		Parallelism:      profile.Parallelism,
		Segments:         windows,
	}, nil
}

package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

func TestPlan_ShortAudioSingleSegment(t *testing.T) {
	tests := []struct {
		name     string
		totalSec float64
	}{
		{name: "one second", totalSec: 1},
		{name: "seven minutes", totalSec: 420},
		{name: "exactly at threshold", totalSec: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Planner{}.Plan(tt.totalSec, StandardProfile())
			require.NoError(t, err)

			assert.True(t, plan.SingleSegment())
			require.Len(t, plan.Segments, 1)
			assert.Equal(t, 0, plan.Segments[0].Index)
			assert.Zero(t, plan.Segments[0].StartSec)
			assert.Equal(t, tt.totalSec, plan.Segments[0].LengthSec)
			assert.Equal(t, 1, plan.Parallelism)
		})
	}
}

func TestPlan_StandardProfileSplits(t *testing.T) {
	// 700s over 300s segments: 300 + 300 + 100.
	plan, err := Planner{}.Plan(700, StandardProfile())
	require.NoError(t, err)

	require.Len(t, plan.Segments, 3)
	assert.Equal(t, 1, plan.Parallelism)
	assert.Equal(t, Window{Index: 0, StartSec: 0, LengthSec: 300}, plan.Segments[0])
	assert.Equal(t, Window{Index: 1, StartSec: 300, LengthSec: 300}, plan.Segments[1])
	assert.Equal(t, Window{Index: 2, StartSec: 600, LengthSec: 100}, plan.Segments[2])
}

func TestPlan_HighMemoryProfileSplits(t *testing.T) {
	// 40 minutes over 600s segments: four full windows.
	plan, err := Planner{}.Plan(2400, HighMemoryProfile())
	require.NoError(t, err)

	require.Len(t, plan.Segments, 4)
	assert.Equal(t, 3, plan.Parallelism)
	for i, w := range plan.Segments {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, float64(i)*600, w.StartSec)
		assert.Equal(t, float64(600), w.LengthSec)
	}
}

func TestPlan_WindowsTileExactly(t *testing.T) {
	durations := []float64{601, 650.5, 900, 1234.56, 3599.9, 7200}

	for _, total := range durations {
		for _, profile := range []Profile{StandardProfile(), HighMemoryProfile()} {
			plan, err := Planner{}.Plan(total, profile)
			require.NoError(t, err)

			var covered float64
			for i, w := range plan.Segments {
				assert.Equal(t, i, w.Index)
				assert.InDelta(t, covered, w.StartSec, 1e-9, "window %d must start where the previous ended", i)
				assert.Greater(t, w.LengthSec, 0.0)
				covered += w.LengthSec
			}
			assert.InDelta(t, total, covered, 1e-9,
				"windows must cover the full duration for total=%v profile=%s", total, profile.Name)
		}
	}
}

func TestPlan_InvalidDurations(t *testing.T) {
	tests := []struct {
		name     string
		totalSec float64
	}{
		{name: "zero", totalSec: 0},
		{name: "negative", totalSec: -5},
		{name: "nan", totalSec: math.NaN()},
		{name: "positive inf", totalSec: math.Inf(1)},
		{name: "negative inf", totalSec: math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Planner{}.Plan(tt.totalSec, StandardProfile())
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}

func TestPlan_CustomThreshold(t *testing.T) {
	pl := Planner{LongAudioThresholdSec: 120}

	plan, err := pl.Plan(300, StandardProfile())
	require.NoError(t, err)
	assert.False(t, plan.SingleSegment())
}

func TestProfileSanitize(t *testing.T) {
	plan, err := Planner{}.Plan(900, Profile{Name: "broken", SegmentLengthSec: -1, Parallelism: 0})
	require.NoError(t, err)

	// Guardrails fall back to the standard segment length and serial calls.
	assert.Equal(t, float64(300), plan.SegmentLengthSec)
	assert.Equal(t, 1, plan.Parallelism)
}

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsAndPredicates(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		pred func(error) bool
	}{
		{"invalid input", InvalidInput("bad audio"), ErrCodeInvalidInput, IsInvalidInput},
		{"engine unavailable", EngineUnavailable("probe failed", cause), ErrCodeEngineUnavailable, IsEngineUnavailable},
		{"segment failure", SegmentFailure(3, cause), ErrCodeSegmentFailure, IsSegmentFailure},
		{"summarization failure", SummarizationFailure(cause), ErrCodeSummarizationFailure, IsSummarizationFailure},
		{"timeout", Timeout("too slow", cause), ErrCodeTimeout, IsTimeout},
		{"canceled", Canceled("stop"), ErrCodeCanceled, IsCanceled},
		{"conflict", Conflict("already done"), ErrCodeConflict, IsConflict},
		{"not found", NotFound("missing"), ErrCodeNotFound, IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.code, GetCode(tt.err))
			assert.True(t, tt.pred(tt.err))
			assert.True(t, tt.pred(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestSegmentFailureCarriesIndex(t *testing.T) {
	err := SegmentFailure(4, errors.New("engine hiccup"))

	assert.Contains(t, err.Error(), "segment 4 failed")

	idx, ok := GetSegment(err)
	require.True(t, ok)
	assert.Equal(t, 4, idx)

	idx, ok = GetSegment(fmt.Errorf("run: %w", err))
	require.True(t, ok)
	assert.Equal(t, 4, idx)
}

func TestGetSegmentNotSegmentScoped(t *testing.T) {
	_, ok := GetSegment(Timeout("slow", nil))
	assert.False(t, ok)

	_, ok = GetSegment(errors.New("plain"))
	assert.False(t, ok)
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(cause, ErrCodeInternal, "context")

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "context: root", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nope"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nope %d", 1))
}

func TestGetCodeNonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

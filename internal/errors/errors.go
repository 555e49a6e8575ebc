// Package errors provides the structured error taxonomy for the
// transcription orchestration engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates unreadable, zero-duration, oversized, or
	// otherwise unsupported audio input or options.
	ErrCodeInvalidInput ErrorCode = "invalid_input"
	// ErrCodeEngineUnavailable indicates the inference engine failed its
	// liveness probe before transcription started.
	ErrCodeEngineUnavailable ErrorCode = "engine_unavailable"
	// ErrCodeSegmentFailure indicates a segment transcription failed after
	// its local retry was exhausted.
	ErrCodeSegmentFailure ErrorCode = "segment_failure"
	// ErrCodeSummarizationFailure indicates summary generation failed for a
	// job that requested one.
	ErrCodeSummarizationFailure ErrorCode = "summarization_failure"
	// ErrCodeTimeout indicates a call exceeded its size-derived deadline.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the job was canceled before completion.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeConflict indicates an illegal state transition was attempted
	// (for example re-opening a terminal job).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeNotFound indicates a job or progress record was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// noSegment marks an AppError that is not tied to a specific segment.
const noSegment = -1

// AppError is a structured application error with a code, message, optional
// cause, and, for segment failures, the index of the failing segment.
// It supports errors.Is and errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Segment is the 0-based index of the failing segment, or -1 when the
	// error is not segment-scoped.
	Segment int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Segment: noSegment}
}

// InvalidInput creates a new InvalidInput error.
func InvalidInput(message string) *AppError {
	return newError(ErrCodeInvalidInput, message)
}

// InvalidInputf creates a new InvalidInput error with a formatted message.
func InvalidInputf(format string, args ...any) *AppError {
	return newError(ErrCodeInvalidInput, fmt.Sprintf(format, args...))
}

// EngineUnavailable creates a new EngineUnavailable error wrapping the probe
// failure.
func EngineUnavailable(message string, cause error) *AppError {
	err := newError(ErrCodeEngineUnavailable, message)
	err.Cause = cause
	return err
}

// SegmentFailure creates a new SegmentFailure error naming the failing
// segment index and its underlying cause.
func SegmentFailure(index int, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSegmentFailure,
		Message: fmt.Sprintf("segment %d failed", index),
		Cause:   cause,
		Segment: index,
	}
}

// SummarizationFailure creates a new SummarizationFailure error.
func SummarizationFailure(cause error) *AppError {
	err := newError(ErrCodeSummarizationFailure, "summary generation failed")
	err.Cause = cause
	return err
}

// Timeout creates a new Timeout error.
func Timeout(message string, cause error) *AppError {
	err := newError(ErrCodeTimeout, message)
	err.Cause = cause
	return err
}

// Canceled creates a new Canceled error.
func Canceled(message string) *AppError {
	return newError(ErrCodeCanceled, message)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return newError(ErrCodeConflict, message)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return newError(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return newError(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err, Segment: noSegment}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
		Segment: noSegment,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidInput checks if an error is an InvalidInput error.
func IsInvalidInput(err error) bool {
	return isCode(err, ErrCodeInvalidInput)
}

// IsEngineUnavailable checks if an error is an EngineUnavailable error.
func IsEngineUnavailable(err error) bool {
	return isCode(err, ErrCodeEngineUnavailable)
}

// IsSegmentFailure checks if an error is a SegmentFailure error.
func IsSegmentFailure(err error) bool {
	return isCode(err, ErrCodeSegmentFailure)
}

// IsSummarizationFailure checks if an error is a SummarizationFailure error.
func IsSummarizationFailure(err error) bool {
	return isCode(err, ErrCodeSummarizationFailure)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// GetCode returns the ErrorCode from an error, or empty string if the error
// is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetSegment returns the failing segment index carried by an error.
// The second return value is false when the error is not segment-scoped.
func GetSegment(err error) (int, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Segment >= 0 {
		return appErr.Segment, true
	}
	return 0, false
}

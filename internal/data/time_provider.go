package data

import "time"

// TimeProvider abstracts time access for testability.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider returns the actual current time.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider returns a fixed time, for tests.
type FixedTimeProvider struct {
	Fixed time.Time
}

func (f FixedTimeProvider) Now() time.Time {
	return f.Fixed
}

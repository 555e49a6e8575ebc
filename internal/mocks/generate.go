// Package mocks provides mock implementations for testing the scribeflow job
// system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core port interfaces. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/scribeflow/scribeflow/internal/core JobRepository

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/scribeflow/scribeflow/internal/core CacheRepository

// Generate mock for SegmentTranscriber interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=segment_transcriber_mock.go github.com/scribeflow/scribeflow/internal/core SegmentTranscriber

// Generate mock for Summarizer interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=summarizer_mock.go github.com/scribeflow/scribeflow/internal/core Summarizer

package model

// SegmentStatus tracks the execution state of one segment transcription.
type SegmentStatus string

const (
	SegmentPending SegmentStatus = "pending"
	SegmentRunning SegmentStatus = "running"
	SegmentDone    SegmentStatus = "done"
	SegmentFailed  SegmentStatus = "failed"
)

// SegmentResult holds the outcome of transcribing one audio window.
// Index is 0-based and defines reassembly order regardless of completion
// order. Text is set only when Status is done; Err only when failed.
type SegmentResult struct {
	Index              int           `json:"index"`
	Status             SegmentStatus `json:"status"`
	Text               string        `json:"text,omitempty"`
	Err                string        `json:"error,omitempty"`
	Language           string        `json:"language,omitempty"`
	LanguageConfidence float64       `json:"language_confidence,omitempty"`
	StartSec           float64       `json:"start_seconds"`
	DurationSec        float64       `json:"duration_seconds"`
}

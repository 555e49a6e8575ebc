// Package model defines the core data types for the transcription job
// orchestration engine.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// JobStatus represents the lifecycle status of a transcription job.
//
// The lifecycle is monotonic: once a job reaches completed or error it never
// returns to processing.
type JobStatus string

const (
	// JobStatusProcessing indicates a job is being transcribed.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job finished with a transcript.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError indicates a job failed terminally.
	JobStatusError JobStatus = "error"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	return s == JobStatusProcessing || s == JobStatusCompleted || s == JobStatusError
}

// Terminal returns true once the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// ModelSize identifies a Whisper model from the closed supported set.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ModelSize string

const (
	ModelTiny    ModelSize = "tiny"
	ModelBase    ModelSize = "base"
	ModelSmall   ModelSize = "small"
	ModelMedium  ModelSize = "medium"
	ModelLargeV1 ModelSize = "large-v1"
	ModelLargeV2 ModelSize = "large-v2"
	ModelLargeV3 ModelSize = "large-v3"
)

// DefaultModel is used when a submission does not name a model.
const DefaultModel = ModelMedium

// LanguageAuto requests engine-side language detection.
const LanguageAuto = "auto"

// Valid returns true if the ModelSize is in the supported set.
func (m ModelSize) Valid() bool {
	switch m {
	case ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLargeV1, ModelLargeV2, ModelLargeV3:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler so model sizes can be
// parsed from env and JSON with validation at the boundary.
func (m *ModelSize) UnmarshalText(text []byte) error {
	v := ModelSize(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid model size: %q", string(text))
	}
	*m = v
	return nil
}

// TranscribeOptions is the explicit, enumerated option set accepted at job
// submission. Unrecognized values are rejected up front instead of being
// passed through to the engine.
type TranscribeOptions struct {
	Model           ModelSize `json:"model"`
	Language        string    `json:"language"`
	GenerateSummary bool      `json:"generate_summary"`
}

// Normalize fills defaults for empty fields.
func (o *TranscribeOptions) Normalize() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if strings.TrimSpace(o.Language) == "" {
		o.Language = LanguageAuto
	}
}

// Validate checks the option set against the closed supported values.
func (o *TranscribeOptions) Validate() error {
	if !o.Model.Valid() {
		return fmt.Errorf("unsupported model %q", o.Model)
	}
	if !validLanguage(o.Language) {
		return fmt.Errorf("language must be %q or an ISO 639 code, got %q", LanguageAuto, o.Language)
	}
	return nil
}

// validLanguage accepts "auto" or a two/three letter lowercase ISO 639 code.
func validLanguage(lang string) bool {
	if lang == LanguageAuto {
		return true
	}
	if len(lang) < 2 || len(lang) > 3 {
		return false
	}
	for _, r := range lang {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// MaxFileSizeBytes caps submissions; long recordings are expected but not
// unbounded uploads.
const MaxFileSizeBytes = 500 << 20

// SupportedExtensions lists the accepted audio container formats.
var SupportedExtensions = []string{".mp3", ".wav", ".flac", ".m4a", ".ogg"}

// Job represents a transcription job with its metadata and results.
type Job struct {
	ID          string            `json:"id"            db:"id"`
	Filename    string            `json:"filename"      db:"filename"`
	Status      JobStatus         `json:"status"        db:"status"`
	Options     TranscribeOptions `json:"options"       db:"options"`
	Transcript  *string           `json:"transcript,omitempty"   db:"transcript"`
	Summary     *string           `json:"summary,omitempty"      db:"summary"`
	ErrorDetail *string           `json:"error_detail,omitempty" db:"error_detail"`
	Degraded    bool              `json:"degraded"      db:"degraded"`
	CreatedAt   time.Time         `json:"created_at"    db:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time         `json:"updated_at"    db:"updated_at"`
}

// IsDone reports whether the job reached a terminal state.
func (j *Job) IsDone() bool {
	return j.Status.Terminal()
}

// CreateJobRequest represents a submission to transcribe one audio file.
type CreateJobRequest struct {
	// Filename is the display name of the uploaded file; its extension
	// determines format acceptance.
	Filename string `json:"filename"`
	// AudioRef is the reference handed to the speech-to-text engine
	// (a path or object key the engine can resolve).
	AudioRef string `json:"audio_ref"`
	// DurationSeconds is the decoded audio duration as probed by the
	// upload surface.
	DurationSeconds float64 `json:"duration_seconds"`
	// SizeBytes is the upload size, used for timeout tiering.
	SizeBytes int64             `json:"size_bytes"`
	Options   TranscribeOptions `json:"options"`
}

// Validate validates the submission fields. Option defaults are applied
// before validation.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return errors.New("filename is required")
	}
	if strings.TrimSpace(r.AudioRef) == "" {
		return errors.New("audio ref is required")
	}
	if !supportedExtension(r.Filename) {
		return fmt.Errorf("unsupported audio format %q", filepath.Ext(r.Filename))
	}
	if r.SizeBytes < 0 {
		return errors.New("size must be >= 0")
	}
	if r.SizeBytes > MaxFileSizeBytes {
		return fmt.Errorf("file too large: %d bytes (max %d)", r.SizeBytes, MaxFileSizeBytes)
	}
	r.Options.Normalize()
	return r.Options.Validate()
}

func supportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

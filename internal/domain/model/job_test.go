package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus(t *testing.T) {
	assert.True(t, JobStatusProcessing.Valid())
	assert.True(t, JobStatusCompleted.Valid())
	assert.True(t, JobStatusError.Valid())
	assert.False(t, JobStatus("queued").Valid())

	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusError.Terminal())
}

func TestModelSizeUnmarshalText(t *testing.T) {
	var m ModelSize
	require.NoError(t, m.UnmarshalText([]byte("  Large-V3 ")))
	assert.Equal(t, ModelLargeV3, m)

	err := m.UnmarshalText([]byte("gigantic"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model size")
}

func TestTranscribeOptionsNormalize(t *testing.T) {
	var opts TranscribeOptions
	opts.Normalize()

	assert.Equal(t, DefaultModel, opts.Model)
	assert.Equal(t, LanguageAuto, opts.Language)
}

func TestTranscribeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    TranscribeOptions
		wantErr string
	}{
		{
			name: "valid defaults",
			opts: TranscribeOptions{Model: ModelMedium, Language: LanguageAuto},
		},
		{
			name: "valid explicit language",
			opts: TranscribeOptions{Model: ModelTiny, Language: "en"},
		},
		{
			name:    "unknown model",
			opts:    TranscribeOptions{Model: "huge", Language: LanguageAuto},
			wantErr: "unsupported model",
		},
		{
			name:    "uppercase language",
			opts:    TranscribeOptions{Model: ModelBase, Language: "EN"},
			wantErr: "language",
		},
		{
			name:    "too long language",
			opts:    TranscribeOptions{Model: ModelBase, Language: "english"},
			wantErr: "language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func validRequest() CreateJobRequest {
	return CreateJobRequest{
		Filename:        "meeting.mp3",
		AudioRef:        "uploads/meeting.mp3",
		DurationSeconds: 120,
		SizeBytes:       4 << 20,
	}
}

func TestCreateJobRequestValidate(t *testing.T) {
	t.Run("valid with defaults applied", func(t *testing.T) {
		req := validRequest()
		require.NoError(t, req.Validate())
		assert.Equal(t, DefaultModel, req.Options.Model)
		assert.Equal(t, LanguageAuto, req.Options.Language)
	})

	t.Run("missing filename", func(t *testing.T) {
		req := validRequest()
		req.Filename = "  "
		require.Error(t, req.Validate())
	})

	t.Run("missing audio ref", func(t *testing.T) {
		req := validRequest()
		req.AudioRef = ""
		require.Error(t, req.Validate())
	})

	t.Run("unsupported extension", func(t *testing.T) {
		req := validRequest()
		req.Filename = "notes.txt"
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported audio format")
	})

	t.Run("extension check is case insensitive", func(t *testing.T) {
		req := validRequest()
		req.Filename = "MEETING.WAV"
		require.NoError(t, req.Validate())
	})

	t.Run("over size cap", func(t *testing.T) {
		req := validRequest()
		req.SizeBytes = MaxFileSizeBytes + 1
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file too large")
	})

	t.Run("invalid options", func(t *testing.T) {
		req := validRequest()
		req.Options.Model = "xxl"
		require.Error(t, req.Validate())
	})
}

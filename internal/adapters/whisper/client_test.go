package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/core"
	"github.com/scribeflow/scribeflow/internal/domain/model"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	assert.NoError(t, client.Health(context.Background()))
}

func TestClient_HealthUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsEngineUnavailable(err))
}

func TestClient_HealthConnectionRefused(t *testing.T) {
	client, err := NewClient(ClientOptions{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	err = client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsEngineUnavailable(err))
}

func TestClient_TranscribeSegment(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req transcribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "uploads/a.mp3", req.AudioRef)
		assert.Equal(t, float64(300), req.StartSeconds)
		assert.Equal(t, float64(300), req.DurationSeconds)
		assert.Equal(t, "medium", req.Model)
		assert.Empty(t, req.Language, "auto must not be forwarded")

		require.NoError(t, json.NewEncoder(w).Encode(transcribeResponse{
			Text:                "hello there",
			Language:            "en",
			LanguageProbability: 0.97,
			DurationSeconds:     300,
		}))
	}))

	res, err := client.TranscribeSegment(context.Background(), core.SegmentRequest{
		AudioRef:    "uploads/a.mp3",
		StartSec:    300,
		DurationSec: 300,
		Model:       model.ModelMedium,
		Language:    model.LanguageAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, "en", res.Language)
	assert.InDelta(t, 0.97, res.LanguageConfidence, 1e-9)
}

func TestClient_TranscribeSegmentDeadlineBecomesTimeout(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.TranscribeSegment(ctx, core.SegmentRequest{
		AudioRef: "uploads/a.mp3", DurationSec: 10, Model: model.ModelTiny,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestClient_TranscribeSegmentEngineError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model load failed", http.StatusInternalServerError)
	}))

	_, err := client.TranscribeSegment(context.Background(), core.SegmentRequest{
		AudioRef: "uploads/a.mp3", DurationSec: 10, Model: model.ModelTiny,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model load failed")
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}

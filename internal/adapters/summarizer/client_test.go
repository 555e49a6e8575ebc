package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestClient_Summarize(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summarize", r.URL.Path)

		var req summarizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a long transcript", req.Text)

		require.NoError(t, json.NewEncoder(w).Encode(summarizeResponse{Summary: "short"}))
	}))

	summary, err := client.Summarize(context.Background(), "a long transcript")
	require.NoError(t, err)
	assert.Equal(t, "short", summary)
}

func TestClient_SummarizeServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	_, err := client.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_SummarizeEmptySummary(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(summarizeResponse{Summary: "  "}))
	}))

	_, err := client.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty summary")
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}

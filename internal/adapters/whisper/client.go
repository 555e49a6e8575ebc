// Package whisper is the HTTP adapter for the speech-to-text engine.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/core"
	apperrors "github.com/scribeflow/scribeflow/internal/errors"
)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	BaseURL    string       // Required: engine base URL
	HTTPClient *http.Client // Optional: defaults to a client with sane timeouts
	Logger     *slog.Logger // Optional: structured logger
}

// Client talks to the transcription engine over JSON-over-HTTP. Per-call
// deadlines come from the caller's context; the embedded http.Client timeout
// is only a backstop.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ core.SegmentTranscriber = (*Client)(nil)

// NewClient constructs a new engine client.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("engine base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Minute}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "whisper_client")
	}

	return &Client{baseURL: baseURL, http: httpClient, logger: logger}, nil
}

// Health probes the engine's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.EngineUnavailable("engine health probe failed", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return apperrors.EngineUnavailable(
			fmt.Sprintf("engine health probe returned %d", resp.StatusCode), nil)
	}
	return nil
}

type transcribeRequest struct {
	AudioRef        string  `json:"audio_ref"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Model           string  `json:"model"`
	Language        string  `json:"language,omitempty"`
}

type transcribeResponse struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	DurationSeconds     float64 `json:"duration_seconds"`
}

// TranscribeSegment transcribes one audio window. A deadline blown on the
// caller's context surfaces as a Timeout error so the orchestrator can
// distinguish a slow engine from a broken one.
func (c *Client) TranscribeSegment(ctx context.Context, req core.SegmentRequest) (*core.SegmentTranscription, error) {
	payload, err := json.Marshal(transcribeRequest{
		AudioRef:        req.AudioRef,
		StartSeconds:    req.StartSec,
		DurationSeconds: req.DurationSec,
		Model:           string(req.Model),
		Language:        normalizeLanguage(req.Language),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transcribe request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build transcribe request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Timeout("engine call exceeded its deadline", err)
		}
		return nil, fmt.Errorf("engine call failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transcribe response: %w", err)
	}

	return &core.SegmentTranscription{
		Text:               out.Text,
		Language:           out.Language,
		LanguageConfidence: out.LanguageProbability,
		DurationSec:        out.DurationSeconds,
	}, nil
}

// normalizeLanguage drops the auto sentinel; the engine detects language when
// none is sent.
func normalizeLanguage(lang string) string {
	if lang == "auto" {
		return ""
	}
	return lang
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}

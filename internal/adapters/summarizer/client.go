// Package summarizer is the HTTP adapter for the summarization engine.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/core"
)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	BaseURL    string        // Required: summarizer base URL
	Timeout    time.Duration // Optional: per-call timeout, defaults to 2m
	HTTPClient *http.Client  // Optional
}

// Client talks to the summarization engine over JSON-over-HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

var _ core.Summarizer = (*Client)(nil)

// NewClient constructs a new summarizer client.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("summarizer base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: opts.Timeout, http: opts.HTTPClient}, nil
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize generates a summary for a reconciled transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(summarizeRequest{Text: transcript})
	if err != nil {
		return "", fmt.Errorf("marshal summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/summarize", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer call failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", errors.New("summarizer returned an empty summary")
	}
	return out.Summary, nil
}

// Package stt provides speech-to-text for the audio analysis endpoint.
//
// [Client] talks to an external transcription gateway over REST: it submits
// the audio as a multipart upload, receives a job ID, and polls the job until
// it completes or the context is cancelled.
//
// Usage:
//
//	c, err := stt.NewClient("https://stt.example.com",
//	    stt.WithAPIKey(key),
//	    stt.WithModel("base.en"),
//	)
//	tr, err := c.Transcribe(ctx, audio, "audio/wav")
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultPollInterval = 250 * time.Millisecond

	// maxResponseBytes bounds how much of a gateway response body is read.
	maxResponseBytes = 1 << 20
)

// Transcript is the result of a transcription request.
type Transcript struct {
	// Text is the recognised utterance.
	Text string `json:"text"`

	// Confidence is the gateway's overall confidence in [0, 1]. Zero when
	// the gateway does not report one.
	Confidence float64 `json:"confidence"`
}

// Provider transcribes an audio payload. Implementations must be safe for
// concurrent use.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (*Transcript, error)
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every gateway request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithModel sets the model identifier forwarded to the gateway (e.g.
// "base.en"). When empty the gateway uses its default model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithPollInterval sets the delay between job status polls. Defaults to
// 250 ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHTTPClient replaces the underlying [http.Client]. Useful for tests and
// for callers that need custom timeouts or transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client is a REST [Provider] backed by an external transcription gateway.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
	http         *http.Client
}

// Compile-time interface check.
var _ Provider = (*Client)(nil)

// NewClient creates a [Client] for the gateway at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("stt: base URL is required")
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: defaultPollInterval,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// submitResponse is the gateway's reply to a job submission.
type submitResponse struct {
	ID string `json:"id"`
}

// jobResponse is the gateway's reply to a status poll.
type jobResponse struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"` // "queued", "processing", "completed", "failed"
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// Transcribe submits audio for transcription and polls until the job
// completes. It returns an error when the job fails, the gateway rejects the
// upload, or ctx is cancelled while waiting.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string) (*Transcript, error) {
	id, err := c.submit(ctx, audio, contentType)
	if err != nil {
		return nil, err
	}
	return c.poll(ctx, id)
}

// submit uploads the audio and returns the gateway-assigned job ID.
func (c *Client) submit(ctx context.Context, audio []byte, contentType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio"+extensionFor(contentType))
	if err != nil {
		return "", fmt.Errorf("stt: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("stt: write audio: %w", err)
	}
	if c.model != "" {
		if err := mw.WriteField("model", c.model); err != nil {
			return "", fmt.Errorf("stt: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("stt: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("stt: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("stt: submit: gateway returned %s", resp.Status)
	}

	var sub submitResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&sub); err != nil {
		return "", fmt.Errorf("stt: decode submit response: %w", err)
	}
	if sub.ID == "" {
		return "", fmt.Errorf("stt: gateway returned empty job id")
	}
	return sub.ID, nil
}

// poll queries the job status until it completes, fails, or ctx is done.
func (c *Client) poll(ctx context.Context, id string) (*Transcript, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.status(ctx, id)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			return &Transcript{Text: job.Text, Confidence: job.Confidence}, nil
		case "failed":
			if job.Error != "" {
				return nil, fmt.Errorf("stt: job %s failed: %s", id, job.Error)
			}
			return nil, fmt.Errorf("stt: job %s failed", id)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stt: waiting for job %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// status fetches the current state of a job.
func (c *Client) status(ctx context.Context, id string) (*jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transcriptions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("stt: build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stt: poll job %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stt: poll job %s: gateway returned %s", id, resp.Status)
	}

	var job jobResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&job); err != nil {
		return nil, fmt.Errorf("stt: decode job response: %w", err)
	}
	return &job, nil
}

// authorize adds the bearer token when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// extensionFor maps a MIME type to a filename extension for the multipart
// upload. The gateway uses the extension as a container format hint.
func extensionFor(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/flac":
		return ".flac"
	default:
		return ".bin"
	}
}

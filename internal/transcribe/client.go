package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"transcriber/internal/config"
)

// Request carries everything needed to transcribe one materialized file.
type Request struct {
	Path     string // absolute path in the run directory
	Filename string // original upload name, sent to the provider
	Language string
	APIKey   string // caller-supplied, never logged
}

// Transcriber turns one audio file into text. Implemented by Client against
// the real provider and by test doubles in handler and orchestrator tests.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Client calls the Whisper transcriptions endpoint over HTTP. No automatic
// retry: the enclosing platform bounds request latency, so a failed call is
// recorded as this file's outcome instead of being retried.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewClient builds the provider client from config.
func NewClient(cfg config.TranscriptionConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Transcribe uploads the file as multipart form data and returns the
// transcript text, or a classified ProviderError.
func (c *Client) Transcribe(ctx context.Context, req Request) (string, error) {
	file, err := os.Open(req.Path)
	if err != nil {
		return "", &ProviderError{Class: ClassInvalidRequest, Message: "audio file unreadable: " + err.Error()}
	}
	defer file.Close()

	// Pipe the multipart body so the audio streams from disk instead of
	// being buffered whole in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeForm(mw, file, c.model, req)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return "", &ProviderError{Class: ClassTransient, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport errors can quote the request URL but never the
		// Authorization header, so the message is safe to surface.
		return "", &ProviderError{Class: ClassTransient, Message: "request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ProviderError{Class: ClassTransient, Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classify(resp.StatusCode, body)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Class: ClassTransient, Status: resp.StatusCode, Message: "malformed provider response"}
	}
	return parsed.Text, nil
}

func writeForm(mw *multipart.Writer, file *os.File, model string, req Request) error {
	if err := mw.WriteField("model", model); err != nil {
		return err
	}
	if err := mw.WriteField("language", req.Language); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

// classify maps a provider HTTP status to the local failure taxonomy.
func classify(status int, body []byte) *ProviderError {
	msg := providerMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ProviderError{Class: ClassAuthentication, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &ProviderError{Class: ClassRateLimit, Status: status, Message: msg}
	case status >= 400 && status < 500:
		return &ProviderError{Class: ClassInvalidRequest, Status: status, Message: msg}
	default:
		return &ProviderError{Class: ClassTransient, Status: status, Message: msg}
	}
}

func providerMessage(body []byte) string {
	var parsed providerErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return "provider returned an error"
}

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/calmloop/voicejournal/internal/metrics"
)

// Transcriber converts one rendered audio window into text. An empty
// string means nothing recognizable was spoken.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// ASRClient sends audio as multipart WAV to a whisper-compatible HTTP
// endpoint.
type ASRClient struct {
	url    string
	client *http.Client
}

// NewASRClient creates a client for the speech-to-text collaborator.
func NewASRClient(url string, poolSize int) *ASRClient {
	return &ASRClient{
		url:    url,
		client: newPooledHTTPClient(poolSize, 30*time.Second),
	}
}

// Transcribe uploads the WAV file at wavPath and returns the transcript.
func (c *ASRClient) Transcribe(ctx context.Context, wavPath string) (string, error) {
	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("open window: %w", err)
	}
	defer f.Close()
	if _, err = io.Copy(part, f); err != nil {
		return "", fmt.Errorf("write wav data: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("create asr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("asr", "http").Inc()
		return "", fmt.Errorf("asr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("asr", "status").Inc()
		return "", fmt.Errorf("asr status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode asr response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("asr").Observe(time.Since(start).Seconds())
	return result.Text, nil
}

// newPooledHTTPClient creates an http.Client with connection pooling and a
// tuned transport.
func newPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

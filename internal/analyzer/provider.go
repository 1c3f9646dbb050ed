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
)

// JobStatus is the prosody provider's view of a batch job.
type JobStatus struct {
	Status  string
	Message string
}

// ProsodyProvider abstracts the external batch emotion provider: submit a
// whole recording, poll for status, fetch nested predictions.
type ProsodyProvider interface {
	SubmitJob(ctx context.Context, audioPath string) (string, error)
	GetStatus(ctx context.Context, jobID string) (*JobStatus, error)
	GetPredictions(ctx context.Context, jobID string) ([]byte, error)
}

// prosodyModelConfig is the job configuration submitted with every
// recording: prosody scoring at utterance granularity plus transcription
// with a permissive confidence threshold suited to informal speech.
var prosodyModelConfig = map[string]any{
	"models": map[string]any{
		"prosody": map[string]any{
			"granularity":       "utterance",
			"identify_speakers": false,
			"window": map[string]any{
				"length": 4,
				"step":   1,
			},
		},
	},
	"transcription": map[string]any{
		"language":             "en",
		"confidence_threshold": 0.1,
	},
}

// ProsodyClient is the HTTP implementation of ProsodyProvider against a
// Hume-style batch API.
type ProsodyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewProsodyClient creates a client for the batch prosody API. Credentials
// are carried explicitly; there is no implicit global configuration.
func NewProsodyClient(baseURL, apiKey string, poolSize int) *ProsodyClient {
	return &ProsodyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newPooledHTTPClient(poolSize, 60*time.Second),
	}
}

func (c *ProsodyClient) SubmitJob(ctx context.Context, audioPath string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	cfg, err := json.Marshal(prosodyModelConfig)
	if err != nil {
		return "", fmt.Errorf("marshal model config: %w", err)
	}
	if err = writer.WriteField("json", string(cfg)); err != nil {
		return "", fmt.Errorf("write config part: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()
	if _, err = io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("prosody submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("prosody submit status %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("prosody submit: no job_id in response")
	}
	return out.JobID, nil
}

func (c *ProsodyClient) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prosody status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prosody status %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		State struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"state"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &JobStatus{Status: out.State.Status, Message: out.State.Message}, nil
}

func (c *ProsodyClient) GetPredictions(ctx context.Context, jobID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/"+jobID+"/predictions", nil)
	if err != nil {
		return nil, fmt.Errorf("create predictions request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prosody predictions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prosody predictions status %d: %s", resp.StatusCode, respBody)
	}
	return io.ReadAll(resp.Body)
}

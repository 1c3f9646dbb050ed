package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calmloop/voicejournal/internal/metrics"
)

// TextScore is the emotion-scoring collaborator's output for one
// transcript: the six core emotions plus sentiment and lexical tags.
type TextScore struct {
	Emotions       map[string]float64 `json:"emotions"`
	SentimentScore float64            `json:"sentiment_score"`
	SentimentLabel string             `json:"sentiment_label"`
	Themes         []string           `json:"themes"`
	Keywords       []string           `json:"keywords"`
}

// TextScorer scores the emotional content of a transcript.
type TextScorer interface {
	Score(ctx context.Context, text string) (*TextScore, error)
}

// TextScoreClient calls the text-emotion HTTP collaborator.
type TextScoreClient struct {
	url    string
	client *http.Client
}

// NewTextScoreClient creates a client for the emotion-scoring collaborator.
func NewTextScoreClient(url string, poolSize int) *TextScoreClient {
	return &TextScoreClient{
		url:    url,
		client: newPooledHTTPClient(poolSize, 30*time.Second),
	}
}

func (c *TextScoreClient) Score(ctx context.Context, text string) (*TextScore, error) {
	start := time.Now()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("textscore", "http").Inc()
		return nil, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("textscore", "status").Inc()
		return nil, fmt.Errorf("score status %d: %s", resp.StatusCode, body)
	}

	var out TextScore
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	if out.Emotions == nil {
		out.Emotions = map[string]float64{}
	}

	metrics.StageDuration.WithLabelValues("textscore").Observe(time.Since(start).Seconds())
	return &out, nil
}

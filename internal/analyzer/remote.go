package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/calmloop/voicejournal/internal/audio"
	"github.com/calmloop/voicejournal/internal/emotion"
	"github.com/calmloop/voicejournal/internal/metrics"
	"github.com/calmloop/voicejournal/internal/models"
)

// lowConfidenceGuidance replaces raw provider diagnostics when the job
// failed because the speech was too quiet or unclear to transcribe.
const lowConfidenceGuidance = "The audio quality was too low to analyze reliably. " +
	"Please re-record in a quieter environment, speaking clearly and close to the microphone."

const (
	jobCompleted = "COMPLETED"
	jobFailed    = "FAILED"
)

// pollOutcome is the terminal result of waiting on a batch job.
type pollOutcome struct {
	done     bool
	timedOut bool
	reason   string
}

// RemoteAnalyzer scores a whole recording through an external prosody
// provider. The provider consumes the full audio file, so windowing is
// delegated to its job configuration rather than done locally.
type RemoteAnalyzer struct {
	provider     ProsodyProvider
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewRemoteAnalyzer(provider ProsodyProvider) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		provider:     provider,
		PollInterval: 3 * time.Second,
		PollTimeout:  300 * time.Second,
	}
}

func (a *RemoteAnalyzer) Name() string { return "remote" }

func (a *RemoteAnalyzer) Analyze(ctx context.Context, sessionID string, _ *audio.Clip, audioPath string) ([]models.SegmentEntry, error) {
	jobID, err := a.provider.SubmitJob(ctx, audioPath)
	if err != nil {
		metrics.Errors.WithLabelValues("remote_analyze", "submit").Inc()
		return nil, fmt.Errorf("submit prosody job: %w", err)
	}
	slog.Info("prosody job submitted", "session_id", sessionID, "job_id", jobID)

	outcome, err := a.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if outcome.timedOut {
		metrics.Errors.WithLabelValues("remote_analyze", "timeout").Inc()
		return nil, fmt.Errorf("prosody job %s did not complete within %s", jobID, a.PollTimeout)
	}
	if !outcome.done {
		metrics.Errors.WithLabelValues("remote_analyze", "job_failed").Inc()
		return nil, fmt.Errorf("prosody job %s failed: %s", jobID, outcome.reason)
	}

	raw, err := a.provider.GetPredictions(ctx, jobID)
	if err != nil {
		metrics.Errors.WithLabelValues("remote_analyze", "predictions").Inc()
		return nil, fmt.Errorf("fetch predictions: %w", err)
	}

	entries, err := flattenPredictions(raw, sessionID)
	if err != nil {
		return nil, err
	}
	metrics.SegmentsAnalyzed.WithLabelValues("remote").Add(float64(len(entries)))
	return entries, nil
}

// poll waits for the job to reach a terminal state. A failed job is an
// outcome, not an error; errors are reserved for transport problems.
func (a *RemoteAnalyzer) poll(ctx context.Context, jobID string) (pollOutcome, error) {
	deadline := time.Now().Add(a.PollTimeout)
	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()

	for {
		status, err := a.provider.GetStatus(ctx, jobID)
		if err != nil {
			metrics.Errors.WithLabelValues("remote_analyze", "status").Inc()
			return pollOutcome{}, fmt.Errorf("poll prosody job: %w", err)
		}
		metrics.RemotePolls.Inc()

		switch status.Status {
		case jobCompleted:
			return pollOutcome{done: true}, nil
		case jobFailed:
			return pollOutcome{reason: status.Message}, nil
		}

		if time.Now().After(deadline) {
			return pollOutcome{timedOut: true}, nil
		}
		select {
		case <-ctx.Done():
			return pollOutcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// flattenPredictions walks the provider's nested prediction document into
// flat per-utterance entries. Content-level errors reported inside an
// otherwise successful job are surfaced before any parsing.
func flattenPredictions(raw []byte, sessionID string) ([]models.SegmentEntry, error) {
	doc := gjson.ParseBytes(raw)

	var contentErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		item.Get("results.errors").ForEach(func(_, e gjson.Result) bool {
			msg := e.Get("message").String()
			if msg == "" {
				return true
			}
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "transcript confidence") && strings.Contains(lower, "below threshold") {
				contentErr = fmt.Errorf("%s", lowConfidenceGuidance)
			} else {
				contentErr = fmt.Errorf("prosody analysis error: %s", msg)
			}
			return false
		})
		return contentErr == nil
	})
	if contentErr != nil {
		metrics.Errors.WithLabelValues("remote_analyze", "content").Inc()
		return nil, contentErr
	}

	var entries []models.SegmentEntry
	now := time.Now().UTC()
	doc.ForEach(func(_, item gjson.Result) bool {
		item.Get("results.predictions").ForEach(func(_, pred gjson.Result) bool {
			pred.Get("models.prosody.grouped_predictions").ForEach(func(_, group gjson.Result) bool {
				group.Get("predictions").ForEach(func(_, utt gjson.Result) bool {
					entry := utteranceEntry(utt, sessionID, now)
					if entry != nil {
						entries = append(entries, *entry)
					}
					return true
				})
				return true
			})
			return true
		})
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries, nil
}

func utteranceEntry(utt gjson.Result, sessionID string, analyzedAt time.Time) *models.SegmentEntry {
	emotionList := utt.Get("emotions")
	if !emotionList.Exists() {
		return nil
	}

	scores := make(map[string]float64)
	emotionList.ForEach(func(_, e gjson.Result) bool {
		label := emotion.RemapLabel(e.Get("name").String())
		score := e.Get("score").Float()
		if score > scores[label] {
			scores[label] = score
		}
		return true
	})
	if len(scores) == 0 {
		return nil
	}

	begin := utt.Get("time.begin").Float()
	end := utt.Get("time.end").Float()
	sentiment := emotion.SentimentScore(scores)
	isSpike, spikeType := emotion.DetectSpike(scores)
	if isSpike {
		metrics.SpikesDetected.WithLabelValues(spikeType).Inc()
	}

	return &models.SegmentEntry{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		StartTime:      begin,
		Duration:       end - begin,
		Transcript:     utt.Get("text").String(),
		Emotions:       scores,
		SentimentScore: sentiment,
		SentimentLabel: sentimentLabel(sentiment),
		Intensity:      emotion.Intensity(scores),
		IsSpike:        isSpike,
		SpikeType:      spikeType,
		AnalyzedAt:     analyzedAt,
	}
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return "positive"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

// Package analyzer implements the two interchangeable analysis
// strategies: the local per-window transcription path and the remote
// prosody batch-job path. Both produce the same SegmentEntry shape so
// downstream aggregation is analyzer-agnostic.
package analyzer

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calmloop/voicejournal/internal/audio"
	"github.com/calmloop/voicejournal/internal/emotion"
	"github.com/calmloop/voicejournal/internal/metrics"
	"github.com/calmloop/voicejournal/internal/models"
)

// LocalAnalyzer transcribes and scores each audio window through the
// external speech-to-text and text-emotion collaborators. Windows are
// processed sequentially; a single window's failure is logged and
// skipped, never aborting the session.
type LocalAnalyzer struct {
	asr    Transcriber
	scorer TextScorer
}

// NewLocalAnalyzer creates the local strategy from explicitly injected
// collaborators.
func NewLocalAnalyzer(asr Transcriber, scorer TextScorer) *LocalAnalyzer {
	return &LocalAnalyzer{asr: asr, scorer: scorer}
}

func (a *LocalAnalyzer) Name() string { return "local" }

// Analyze splits the clip into windows and produces one entry per window
// with a non-empty transcript.
func (a *LocalAnalyzer) Analyze(ctx context.Context, sessionID string, clip *audio.Clip, _ string) ([]models.SegmentEntry, error) {
	windows := audio.Segment(clip)

	entries := make([]models.SegmentEntry, 0, len(windows))
	for _, w := range windows {
		entry, err := a.analyzeWindow(ctx, sessionID, clip.SampleRate, w)
		if err != nil {
			slog.Warn("window analysis failed, skipping",
				"session_id", sessionID, "offset", w.Offset, "error", err)
			metrics.SegmentsSkipped.Inc()
			continue
		}
		if entry == nil {
			metrics.SegmentsSkipped.Inc()
			continue
		}
		metrics.SegmentsAnalyzed.WithLabelValues("local").Inc()
		if entry.IsSpike {
			metrics.SpikesDetected.WithLabelValues(entry.SpikeType).Inc()
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// analyzeWindow renders a temp WAV for one window, transcribes and scores
// it. The temp rendering is removed on every exit path; a deletion
// failure is logged and never fails the window.
func (a *LocalAnalyzer) analyzeWindow(ctx context.Context, sessionID string, sampleRate int, w audio.Window) (*models.SegmentEntry, error) {
	wavPath, err := audio.WriteTempWAV(w.Samples, sampleRate)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(wavPath); rmErr != nil {
			slog.Warn("temp window cleanup failed", "path", wavPath, "error", rmErr)
		}
	}()

	text, err := a.asr.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	score, err := a.scorer.Score(ctx, text)
	if err != nil {
		return nil, err
	}

	isSpike, spikeType := emotion.DetectSpike(score.Emotions)
	return &models.SegmentEntry{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		StartTime:      w.Offset,
		Duration:       w.Duration,
		Transcript:     text,
		Emotions:       score.Emotions,
		SentimentScore: score.SentimentScore,
		SentimentLabel: score.SentimentLabel,
		Intensity:      emotion.Intensity(score.Emotions),
		Themes:         score.Themes,
		Keywords:       score.Keywords,
		IsSpike:        isSpike,
		SpikeType:      spikeType,
		AnalyzedAt:     time.Now().UTC(),
	}, nil
}

// Package timeline merges ordered segment entries into the session-level
// sentiment shape consumed by recommendation and analytics collaborators.
// It is analyzer-agnostic: entries from the local and remote strategies
// aggregate identically.
package timeline

import (
	"strings"

	"github.com/calmloop/voicejournal/internal/emotion"
	"github.com/calmloop/voicejournal/internal/models"
)

// Aggregate computes the overall sentiment across entries. Zero entries
// yield the neutral default; this never fails.
func Aggregate(entries []models.SegmentEntry) models.Overall {
	if len(entries) == 0 {
		return models.Overall{
			DominantEmotion:     "neutral",
			EmotionDistribution: map[string]float64{},
		}
	}

	totals := map[string]float64{}
	sentimentSum := 0.0
	intensitySum := 0.0
	for _, e := range entries {
		for name, score := range e.Emotions {
			totals[name] += score
		}
		sentimentSum += e.SentimentScore
		intensitySum += e.Intensity
	}

	n := float64(len(entries))
	dist := make(map[string]float64, len(totals))
	for name, total := range totals {
		dist[name] = total / n
	}

	meanIntensity := intensitySum / n
	return models.Overall{
		DominantEmotion:     dominant(dist),
		AverageSentiment:    sentimentSum / n,
		EmotionalIntensity:  meanIntensity,
		EmotionDistribution: dist,
		Confidence:          min(meanIntensity*1.2, 1.0),
	}
}

// dominant is the argmax over mean scores, with ties broken by the fixed
// taxonomy order so the result is deterministic.
func dominant(dist map[string]float64) string {
	if len(dist) == 0 {
		return "neutral"
	}
	best := ""
	bestScore := 0.0
	for _, name := range emotion.Core {
		if s, ok := dist[name]; ok && (best == "" || s > bestScore) {
			best, bestScore = name, s
		}
	}
	for name, s := range dist {
		if best == "" || s > bestScore {
			best, bestScore = name, s
		}
	}
	if best == "" {
		return "neutral"
	}
	return best
}

// Timeline projects entries onto the external sentiment_timeline shape.
func Timeline(entries []models.SegmentEntry) []models.TimelinePoint {
	out := make([]models.TimelinePoint, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.TimelinePoint{
			Timestamp:      e.StartTime,
			Emotions:       e.Emotions,
			SentimentScore: e.SentimentScore,
			Intensity:      e.Intensity,
		})
	}
	return out
}

// Spikes re-exposes every spiking entry with its timestamp, type,
// intensity, dominant emotion and transcript snippet.
func Spikes(entries []models.SegmentEntry) []models.SpikePoint {
	var out []models.SpikePoint
	for _, e := range entries {
		if !e.IsSpike {
			continue
		}
		out = append(out, models.SpikePoint{
			Timestamp:       e.StartTime,
			SpikeType:       e.SpikeType,
			Intensity:       e.Intensity,
			DominantEmotion: emotion.Dominant(e.Emotions),
			Text:            e.Transcript,
		})
	}
	return out
}

// JoinTranscript concatenates the non-empty segment transcripts.
func JoinTranscript(entries []models.SegmentEntry) string {
	var parts []string
	for _, e := range entries {
		if t := strings.TrimSpace(e.Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

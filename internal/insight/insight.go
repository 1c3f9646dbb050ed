// Package insight derives narrative insights and breathing-exercise
// recommendations from a session's segment entries. Everything here is
// best effort: a failed narrative collaborator degrades to a fixed
// supportive message and never blocks session completion.
package insight

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/calmloop/voicejournal/internal/emotion"
	"github.com/calmloop/voicejournal/internal/models"
	"github.com/calmloop/voicejournal/internal/timeline"
)

// fallbackNarrative is used whenever the narrative collaborator is
// unavailable or fails.
const fallbackNarrative = "Thank you for sharing your thoughts. Your willingness to express yourself is a positive step in your emotional journey."

// trendDelta is the half-to-half mean intensity difference that counts as
// an escalation or de-escalation.
const trendDelta = 0.3

var selfAwareKeywords = []string{"realize", "understand", "notice", "aware", "feel", "think"}

// Generator builds insights and recommendations. The zero value works
// without a narrator and always falls back to the fixed message.
type Generator struct {
	narrator Narrator
}

// NewGenerator creates a Generator. narrator may be nil.
func NewGenerator(narrator Narrator) *Generator {
	return &Generator{narrator: narrator}
}

// Build assembles the insights block and the recommended exercises for a
// completed analysis.
func (g *Generator) Build(ctx context.Context, entries []models.SegmentEntry, overall models.Overall) (models.Insights, []models.Recommendation) {
	themes := RecurringThemes(entries)

	narrative := fallbackNarrative
	if g.narrator != nil {
		text, err := g.narrator.Narrate(ctx, timeline.JoinTranscript(entries), themes, overall)
		if err != nil {
			slog.Warn("narrative generation failed, using fallback", "error", err)
		} else if strings.TrimSpace(text) != "" {
			narrative = text
		}
	}

	ins := models.Insights{
		KeyPatterns:         KeyPatterns(entries),
		SupportiveInsights:  narrative,
		EmotionalJourney:    Journey(entries),
		GrowthOpportunities: growthOpportunities(entries, overall),
	}

	spikeCount := 0
	for _, e := range entries {
		if e.IsSpike {
			spikeCount++
		}
	}
	return ins, Recommend(overall, spikeCount)
}

// RecurringThemes returns the lexical themes tagged on at least two
// entries, sorted for determinism. A theme counts once per entry.
func RecurringThemes(entries []models.SegmentEntry) []string {
	counts := map[string]int{}
	for _, e := range entries {
		seen := map[string]bool{}
		for _, t := range e.Themes {
			if !seen[t] {
				seen[t] = true
				counts[t]++
			}
		}
	}
	var out []string
	for t, n := range counts {
		if n >= 2 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Trend compares the mean intensity of the first ⌊N/2⌋ entries against
// the rest. It returns "escalation", "de-escalation", or "" when the
// difference stays within trendDelta or there are too few entries.
func Trend(entries []models.SegmentEntry) string {
	half := len(entries) / 2
	if half == 0 || half == len(entries) {
		return ""
	}
	first := meanIntensity(entries[:half])
	rest := meanIntensity(entries[half:])
	switch {
	case rest-first > trendDelta:
		return "escalation"
	case first-rest > trendDelta:
		return "de-escalation"
	default:
		return ""
	}
}

func meanIntensity(entries []models.SegmentEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Intensity
	}
	return sum / float64(len(entries))
}

// KeyPatterns summarizes the intensity trend and recurring themes as
// human-readable pattern strings.
func KeyPatterns(entries []models.SegmentEntry) []string {
	patterns := []string{}

	switch Trend(entries) {
	case "escalation":
		patterns = append(patterns, "Emotional intensity escalated during the session")
	case "de-escalation":
		patterns = append(patterns, "Emotional intensity de-escalated during the session")
	}

	if themes := RecurringThemes(entries); len(themes) > 0 {
		patterns = append(patterns, "Recurring themes: "+strings.Join(themes, ", "))
	}
	return patterns
}

// Journey maps each entry to a journey point with a short transcript
// snippet.
func Journey(entries []models.SegmentEntry) []models.JourneyPoint {
	out := make([]models.JourneyPoint, 0, len(entries))
	for i, e := range entries {
		out = append(out, models.JourneyPoint{
			Segment:         i + 1,
			Timestamp:       e.StartTime,
			DominantEmotion: emotion.Dominant(e.Emotions),
			Intensity:       e.Intensity,
			KeyPhrase:       snippet(e.Transcript, 50),
		})
	}
	return out
}

func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func growthOpportunities(entries []models.SegmentEntry, overall models.Overall) []string {
	var out []string

	for _, e := range entries {
		lower := strings.ToLower(e.Transcript)
		found := false
		for _, kw := range selfAwareKeywords {
			if strings.Contains(lower, kw) {
				found = true
				break
			}
		}
		if found {
			out = append(out, "Demonstrated self-awareness and emotional insight")
			break
		}
	}

	if overall.EmotionalIntensity > 0.5 {
		out = append(out, "Engaged in meaningful emotional processing")
	}
	if overall.EmotionDistribution["joy"] > 0.3 {
		out = append(out, "Maintained connection to positive emotions")
	}
	return out
}

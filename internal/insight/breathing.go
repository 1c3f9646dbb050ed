package insight

import (
	"fmt"

	"github.com/calmloop/voicejournal/internal/models"
)

// maxRecommendations caps how many exercises a session receives.
const maxRecommendations = 2

// Recommend evaluates the breathing-exercise rule table in priority order,
// appends every match, and truncates to the top two. The fallback rule
// guarantees at least one recommendation always exists.
func Recommend(overall models.Overall, spikeCount int) []models.Recommendation {
	var recs []models.Recommendation

	dominant := overall.DominantEmotion
	if dominant == "anger" || dominant == "fear" || overall.EmotionalIntensity > 0.7 {
		recs = append(recs, models.Recommendation{
			Type:            "4-7-8",
			Name:            "4-7-8 Calming Breath",
			Description:     "A powerful technique to reduce anxiety and promote calm",
			DurationMinutes: 5,
			Instructions: []string{
				"Inhale through your nose for 4 counts",
				"Hold your breath for 7 counts",
				"Exhale through your mouth for 8 counts",
				"Repeat 4-8 times",
			},
			Reason: fmt.Sprintf("Recommended for managing %s and high emotional intensity", dominant),
		})
	}

	if dominant == "sadness" || overall.AverageSentiment < -0.3 {
		recs = append(recs, models.Recommendation{
			Type:            "heart_coherence",
			Name:            "Heart Coherence Breathing",
			Description:     "Gentle breathing to lift mood and create emotional balance",
			DurationMinutes: 8,
			Instructions: []string{
				"Breathe slowly and deeply",
				"Focus on your heart area",
				"Inhale for 5 counts, exhale for 5 counts",
				"Think of something you appreciate",
			},
			Reason: "Recommended for emotional uplift and heart-centered healing",
		})
	}

	if spikeCount > 2 {
		recs = append(recs, models.Recommendation{
			Type:            "box_breathing",
			Name:            "Box Breathing for Stability",
			Description:     "Creates emotional stability and mental clarity",
			DurationMinutes: 6,
			Instructions: []string{
				"Inhale for 4 counts",
				"Hold for 4 counts",
				"Exhale for 4 counts",
				"Hold empty for 4 counts",
			},
			Reason: "Recommended for emotional regulation after intense feelings",
		})
	}

	if len(recs) == 0 {
		recs = append(recs, models.Recommendation{
			Type:            "calm_breathing",
			Name:            "Gentle Calm Breathing",
			Description:     "Simple, soothing breath work for general well-being",
			DurationMinutes: 5,
			Instructions: []string{
				"Breathe naturally and slowly",
				"Inhale for 4 counts",
				"Exhale for 6 counts",
				"Focus on the sensation of breathing",
			},
			Reason: "A gentle practice for overall emotional well-being",
		})
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

package emotion

import "strings"

// Core is the closed internal emotion set, in the fixed order used for
// deterministic tie-breaking and feature vectors.
var Core = []string{"joy", "sadness", "anger", "fear", "surprise", "disgust"}

// SpikeThreshold is the single-emotion score above which a segment counts
// as an emotional spike.
const SpikeThreshold = 0.7

// intensityWeights scale each core emotion's contribution to the weighted
// intensity sum.
var intensityWeights = map[string]float64{
	"sadness":  1.0,
	"anger":    1.2,
	"fear":     1.1,
	"joy":      0.8,
	"surprise": 0.6,
	"disgust":  0.9,
}

// Intensity computes the weighted emotional intensity of a score map,
// clamped to 1.0. Missing emotions count as zero.
func Intensity(scores map[string]float64) float64 {
	sum := 0.0
	for name, w := range intensityWeights {
		sum += w * scores[name]
	}
	if sum > 1.0 {
		return 1.0
	}
	return sum
}

// DetectSpike reports whether any core emotion exceeds SpikeThreshold and,
// if so, classifies the spike: "positive" when joy crosses, "negative"
// when any of sadness/anger/fear crosses, "mixed" otherwise.
func DetectSpike(scores map[string]float64) (bool, string) {
	peak := 0.0
	for _, name := range Core {
		if s := scores[name]; s > peak {
			peak = s
		}
	}
	if peak <= SpikeThreshold {
		return false, ""
	}
	if scores["joy"] > SpikeThreshold {
		return true, "positive"
	}
	for _, name := range []string{"sadness", "anger", "fear"} {
		if scores[name] > SpikeThreshold {
			return true, "negative"
		}
	}
	return true, "mixed"
}

// Dominant returns the emotion with the highest score, breaking ties by
// Core order. Emotions outside the core set are considered after it, in
// no particular order, so core labels win ties against pass-through ones.
func Dominant(scores map[string]float64) string {
	if len(scores) == 0 {
		return "neutral"
	}
	best := ""
	bestScore := 0.0
	for _, name := range Core {
		if s, ok := scores[name]; ok && (best == "" || s > bestScore) {
			best, bestScore = name, s
		}
	}
	for name, s := range scores {
		if s > bestScore || best == "" {
			best, bestScore = name, s
		}
	}
	if best == "" {
		return "neutral"
	}
	return best
}

// providerLabels remaps the prosody provider's open vocabulary onto the
// internal taxonomy. Labels not present here pass through lower-cased
// rather than being dropped.
var providerLabels = map[string]string{
	"Joy":            "joy",
	"Sadness":        "sadness",
	"Anger":          "anger",
	"Fear":           "fear",
	"Surprise":       "surprise",
	"Disgust":        "disgust",
	"Contempt":       "contempt",
	"Excitement":     "excitement",
	"Amusement":      "amusement",
	"Awe":            "awe",
	"Calmness":       "calm",
	"Concentration":  "focused",
	"Confusion":      "confused",
	"Determination":  "determined",
	"Disappointment": "disappointed",
	"Distress":       "distressed",
	"Embarrassment":  "embarrassed",
	"Empathic_Pain":  "empathic_pain",
	"Entrancement":   "entranced",
	"Envy":           "envious",
	"Guilt":          "guilty",
	"Horror":         "horrified",
	"Interest":       "interested",
	"Love":           "loving",
	"Nostalgia":      "nostalgic",
	"Pain":           "pain",
	"Pride":          "proud",
	"Realization":    "realization",
	"Relief":         "relief",
	"Romance":        "romantic",
	"Satisfaction":   "satisfied",
	"Shame":          "ashamed",
	"Sympathy":       "sympathetic",
	"Tiredness":      "tired",
	"Triumph":        "triumphant",
}

// RemapLabel translates a provider emotion label to the internal taxonomy.
func RemapLabel(provider string) string {
	if internal, ok := providerLabels[provider]; ok {
		return internal
	}
	return strings.ToLower(provider)
}

// positive and negative label sets used to derive a sentiment score from
// provider emotion maps that have no sentiment of their own.
var (
	positiveLabels = []string{"joy", "excitement", "amusement", "loving", "proud", "triumphant", "satisfied", "relief"}
	negativeLabels = []string{"sadness", "anger", "fear", "disgust", "distressed", "disappointed", "guilty", "ashamed"}
)

// SentimentScore derives a sentiment in [-1, 1] from an emotion score map
// as the positive-label mass minus the negative-label mass.
func SentimentScore(scores map[string]float64) float64 {
	pos, neg := 0.0, 0.0
	for _, name := range positiveLabels {
		pos += scores[name]
	}
	for _, name := range negativeLabels {
		neg += scores[name]
	}
	s := pos - neg
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

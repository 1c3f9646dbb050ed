package emotion

import (
	"math"
	"testing"
)

func TestIntensity(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   float64
	}{
		{"empty", map[string]float64{}, 0},
		{"single weighted", map[string]float64{"anger": 0.5}, 0.6},
		{"mixed", map[string]float64{"sadness": 0.2, "joy": 0.5}, 0.6},
		{"clamped to one", map[string]float64{"anger": 0.9, "fear": 0.9, "sadness": 0.9}, 1.0},
		{"non-core ignored", map[string]float64{"nostalgic": 0.9}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intensity(tt.scores); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Intensity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectSpike(t *testing.T) {
	tests := []struct {
		name     string
		scores   map[string]float64
		isSpike  bool
		spikeTyp string
	}{
		{"below threshold", map[string]float64{"joy": 0.7}, false, ""},
		{"joy is positive", map[string]float64{"joy": 0.9, "sadness": 0.2}, true, "positive"},
		{"sadness is negative", map[string]float64{"sadness": 0.8}, true, "negative"},
		{"anger is negative", map[string]float64{"anger": 0.75}, true, "negative"},
		{"surprise is mixed", map[string]float64{"surprise": 0.8}, true, "mixed"},
		{"disgust is mixed", map[string]float64{"disgust": 0.9}, true, "mixed"},
		{"joy wins over negative", map[string]float64{"joy": 0.8, "fear": 0.9}, true, "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, typ := DetectSpike(tt.scores)
			if got != tt.isSpike || typ != tt.spikeTyp {
				t.Errorf("DetectSpike = (%v, %q), want (%v, %q)", got, typ, tt.isSpike, tt.spikeTyp)
			}
		})
	}
}

func TestDominant(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   string
	}{
		{"empty is neutral", nil, "neutral"},
		{"clear winner", map[string]float64{"joy": 0.9, "sadness": 0.2}, "joy"},
		{"core tie breaks in taxonomy order", map[string]float64{"sadness": 0.5, "anger": 0.5}, "sadness"},
		{"core wins tie against pass-through", map[string]float64{"fear": 0.5, "nostalgic": 0.5}, "fear"},
		{"pass-through can win outright", map[string]float64{"joy": 0.2, "proud": 0.8}, "proud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dominant(tt.scores); got != tt.want {
				t.Errorf("Dominant = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemapLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Joy", "joy"},
		{"Calmness", "calm"},
		{"Empathic_Pain", "empathic_pain"},
		{"Triumph", "triumphant"},
		{"Boredom", "boredom"},
	}
	for _, tt := range tests {
		if got := RemapLabel(tt.in); got != tt.want {
			t.Errorf("RemapLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   float64
	}{
		{"empty", nil, 0},
		{"positive mass", map[string]float64{"joy": 0.6, "excitement": 0.2}, 0.8},
		{"negative mass", map[string]float64{"sadness": 0.5, "guilty": 0.3}, -0.8},
		{"balanced", map[string]float64{"joy": 0.4, "anger": 0.4}, 0},
		{"clamped low", map[string]float64{"sadness": 0.8, "anger": 0.8, "fear": 0.8}, -1.0},
		{"unknown labels ignored", map[string]float64{"calm": 0.9}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SentimentScore(tt.scores); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SentimentScore = %v, want %v", got, tt.want)
			}
		})
	}
}

package models

import "time"

// Status is the lifecycle state of a journal session. Transitions are
// monotonic: RECORDING → PROCESSING → COMPLETED or FAILED, and the two
// terminal states accept no further transitions.
type Status string

const (
	StatusRecording  Status = "RECORDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one voice journal recording and its analysis output.
type Session struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`

	AudioPath     string  `json:"-"`
	AudioFormat   string  `json:"audio_format,omitempty"`
	AudioDuration float64 `json:"audio_duration,omitempty"`

	Transcript        string           `json:"transcript,omitempty"`
	SentimentTimeline []TimelinePoint  `json:"sentiment_timeline,omitempty"`
	EmotionSpikes     []SpikePoint     `json:"emotion_spikes,omitempty"`
	OverallSentiment  *Overall         `json:"overall_sentiment,omitempty"`
	Insights          *Insights        `json:"ai_insights,omitempty"`
	Exercises         []Recommendation `json:"recommended_exercises,omitempty"`
	SuggestedExercise string           `json:"breathing_exercise_suggested,omitempty"`
	FailureReason     string           `json:"failure_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SegmentEntry is the per-window analysis result. Entries are ordered by
// StartTime, may cover overlapping audio, and are never mutated after
// creation.
type SegmentEntry struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"session_id"`
	StartTime      float64            `json:"start_time"`
	Duration       float64            `json:"duration"`
	Transcript     string             `json:"transcript,omitempty"`
	Emotions       map[string]float64 `json:"emotions"`
	SentimentScore float64            `json:"sentiment_score"`
	SentimentLabel string             `json:"sentiment_label,omitempty"`
	Intensity      float64            `json:"intensity"`
	Themes         []string           `json:"themes,omitempty"`
	Keywords       []string           `json:"keywords,omitempty"`
	IsSpike        bool               `json:"is_spike"`
	SpikeType      string             `json:"spike_type,omitempty"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
}

// TimelinePoint is one sample of the session's sentiment timeline, either
// derived from a SegmentEntry or appended verbatim by the live side channel.
type TimelinePoint struct {
	Timestamp      float64            `json:"timestamp"`
	Emotions       map[string]float64 `json:"emotions"`
	SentimentScore float64            `json:"sentiment_score"`
	Intensity      float64            `json:"intensity"`
}

// SpikePoint is one detected emotional spike on the timeline.
type SpikePoint struct {
	Timestamp       float64 `json:"timestamp"`
	SpikeType       string  `json:"spike_type"`
	Intensity       float64 `json:"intensity"`
	DominantEmotion string  `json:"dominant_emotion"`
	Text            string  `json:"text,omitempty"`
}

// Overall is the aggregate sentiment over all segment entries.
type Overall struct {
	DominantEmotion     string             `json:"dominant_emotion"`
	AverageSentiment    float64            `json:"average_sentiment"`
	EmotionalIntensity  float64            `json:"emotional_intensity"`
	EmotionDistribution map[string]float64 `json:"emotion_distribution"`
	Confidence          float64            `json:"confidence"`
}

// JourneyPoint is one step of the narrated emotional journey.
type JourneyPoint struct {
	Segment         int     `json:"segment"`
	Timestamp       float64 `json:"timestamp"`
	DominantEmotion string  `json:"dominant_emotion"`
	Intensity       float64 `json:"intensity"`
	KeyPhrase       string  `json:"key_phrase,omitempty"`
}

// Insights is the best-effort narrative output attached on completion.
type Insights struct {
	KeyPatterns         []string       `json:"key_patterns"`
	SupportiveInsights  string         `json:"supportive_insights"`
	EmotionalJourney    []JourneyPoint `json:"emotional_journey"`
	GrowthOpportunities []string       `json:"growth_opportunities"`
}

// Recommendation is one suggested breathing exercise.
type Recommendation struct {
	Type            string   `json:"type"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration_minutes"`
	Instructions    []string `json:"instructions"`
	Reason          string   `json:"reason"`
}

// LiveSnapshot is a client-computed sentiment frame accepted during
// RECORDING and appended to the timeline without re-analysis.
type LiveSnapshot struct {
	Timestamp      float64            `json:"timestamp"`
	Emotions       map[string]float64 `json:"emotions"`
	SentimentScore float64            `json:"sentiment_score"`
	SentimentLabel string             `json:"sentiment_label,omitempty"`
	Intensity      float64            `json:"intensity"`
	IsSpike        bool               `json:"is_spike"`
	SpikeType      string             `json:"spike_type,omitempty"`
}

// Aggregate bundles everything written to a session on completion.
type Aggregate struct {
	Transcript        string
	Timeline          []TimelinePoint
	Spikes            []SpikePoint
	Overall           Overall
	Insights          Insights
	Exercises         []Recommendation
	SuggestedExercise string
}

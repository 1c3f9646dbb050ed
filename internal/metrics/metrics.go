package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicejournal_sessions_processing",
		Help: "Sessions currently in PROCESSING",
	})

	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicejournal_sessions_total",
		Help: "Sessions by terminal outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicejournal_stage_duration_seconds",
		Help:    "Per-stage pipeline latency",
		Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 15.0, 60.0, 180.0, 300.0},
	}, []string{"stage"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicejournal_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	SegmentsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicejournal_segments_analyzed_total",
		Help: "Segment entries produced per analyzer",
	}, []string{"analyzer"})

	SegmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicejournal_segments_skipped_total",
		Help: "Windows skipped for empty transcripts or swallowed errors",
	})

	SpikesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicejournal_spikes_total",
		Help: "Emotional spikes by type",
	}, []string{"type"})

	RemotePolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicejournal_remote_polls_total",
		Help: "Status polls issued against the prosody provider",
	})

	LiveSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicejournal_live_snapshots_total",
		Help: "Live sentiment snapshots appended via the side channel",
	})
)

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calmloop/voicejournal/internal/audio"
	"github.com/calmloop/voicejournal/internal/metrics"
	"github.com/calmloop/voicejournal/internal/models"
	"github.com/calmloop/voicejournal/internal/timeline"
)

// Analyzer turns a decoded recording into per-window segment entries.
// Implementations either window locally or hand the whole file to an
// external batch provider.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, sessionID string, clip *audio.Clip, audioPath string) ([]models.SegmentEntry, error)
}

// InsightSource produces the narrative layer from finished entries. It is
// best-effort: implementations return usable output even when their
// upstream narrator is unavailable.
type InsightSource interface {
	Build(ctx context.Context, entries []models.SegmentEntry, overall models.Overall) (models.Insights, []models.Recommendation)
}

// Service orchestrates the session lifecycle: create, upload, analyze,
// aggregate, complete. Analysis failures are recorded on the session and
// never propagated to the caller.
type Service struct {
	store    Store
	analyzer Analyzer
	insights InsightSource
	audioDir string
}

func NewService(store Store, analyzer Analyzer, insights InsightSource, audioDir string) *Service {
	return &Service{store: store, analyzer: analyzer, insights: insights, audioDir: audioDir}
}

// Create opens a new session in RECORDING.
func (s *Service) Create(ctx context.Context, owner, title, description string) (*models.Session, error) {
	sess := &models.Session{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       title,
		Description: description,
		Status:      models.StatusRecording,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "session_id", sess.ID, "owner", owner)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *Service) List(ctx context.Context, owner string, limit, offset int) ([]*models.Session, error) {
	return s.store.ListSessions(ctx, owner, limit, offset)
}

func (s *Service) Entries(ctx context.Context, sessionID string) ([]models.SegmentEntry, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, sessionID)
}

// Upload validates and persists the recording, then moves the session to
// PROCESSING. Validation failures leave the session in RECORDING; the
// returned clip is ready for the asynchronous Process step.
func (s *Service) Upload(ctx context.Context, sessionID, contentType string, data []byte) (*audio.Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrValidation)
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}

	clip, err := audio.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Existence and state are probed before touching disk so a conflict
	// does not leave an orphaned file behind.
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusRecording {
		return nil, fmt.Errorf("%w: session is %s", ErrStateConflict, sess.Status)
	}

	path := filepath.Join(s.audioDir, sessionID+".wav")
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("persist audio: %w", err)
	}

	if err = s.store.MarkProcessing(ctx, sessionID, path, "wav", clip.Duration()); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("orphaned audio cleanup failed", "path", path, "error", rmErr)
		}
		return nil, err
	}
	metrics.SessionsActive.Inc()
	slog.Info("audio accepted", "session_id", sessionID, "duration", clip.Duration())
	return clip, nil
}

// Process runs analysis through to a terminal state. It is designed to run
// in its own goroutine after Upload; every failure path ends in FAILED
// rather than an error return, so nothing is silently left in PROCESSING.
func (s *Service) Process(ctx context.Context, sessionID string, clip *audio.Clip) {
	start := time.Now()
	defer metrics.SessionsActive.Dec()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		s.fail(ctx, sessionID, fmt.Sprintf("load session: %v", err))
		return
	}

	analyzeStart := time.Now()
	entries, err := s.analyzer.Analyze(ctx, sessionID, clip, sess.AudioPath)
	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(analyzeStart).Seconds())
	if err != nil {
		s.fail(ctx, sessionID, err.Error())
		return
	}

	if len(entries) > 0 {
		if err = s.store.InsertEntries(ctx, entries); err != nil {
			s.fail(ctx, sessionID, fmt.Sprintf("persist entries: %v", err))
			return
		}
	}

	overall := timeline.Aggregate(entries)
	insights, exercises := s.insights.Build(ctx, entries, overall)

	agg := &models.Aggregate{
		Transcript: timeline.JoinTranscript(entries),
		Timeline:   timeline.Timeline(entries),
		Spikes:     timeline.Spikes(entries),
		Overall:    overall,
		Insights:   insights,
		Exercises:  exercises,
	}
	if len(exercises) > 0 {
		agg.SuggestedExercise = exercises[0].Name
	}

	if err = s.store.CompleteSession(ctx, sessionID, agg); err != nil {
		s.fail(ctx, sessionID, fmt.Sprintf("complete session: %v", err))
		return
	}

	metrics.SessionsTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("process").Observe(time.Since(start).Seconds())
	slog.Info("session completed",
		"session_id", sessionID,
		"analyzer", s.analyzer.Name(),
		"entries", len(entries),
		"dominant", overall.DominantEmotion,
		"duration_ms", time.Since(start).Milliseconds())
}

// fail records the terminal failure. Store errors here are logged and
// swallowed; there is no further state to advance to.
func (s *Service) fail(ctx context.Context, sessionID, reason string) {
	metrics.SessionsTotal.WithLabelValues("failed").Inc()
	metrics.Errors.WithLabelValues("process", "terminal").Inc()
	slog.Error("session failed", "session_id", sessionID, "reason", reason)
	if err := s.store.FailSession(ctx, sessionID, reason); err != nil {
		slog.Error("record failure", "session_id", sessionID, "error", err)
	}
}

// AppendLiveSnapshot attaches a client-computed sentiment frame to a
// session still in RECORDING. Frames are stored verbatim, no re-analysis.
func (s *Service) AppendLiveSnapshot(ctx context.Context, sessionID string, snap models.LiveSnapshot) error {
	point := models.TimelinePoint{
		Timestamp:      snap.Timestamp,
		Emotions:       snap.Emotions,
		SentimentScore: snap.SentimentScore,
		Intensity:      snap.Intensity,
	}
	var spike *models.SpikePoint
	if snap.IsSpike {
		spike = &models.SpikePoint{
			Timestamp: snap.Timestamp,
			SpikeType: snap.SpikeType,
			Intensity: snap.Intensity,
		}
	}
	if err := s.store.AppendSnapshot(ctx, sessionID, point, spike); err != nil {
		return err
	}
	metrics.LiveSnapshots.Inc()
	return nil
}

// Delete removes the session, its entries, and best-effort the audio file.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err = s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if sess.AudioPath != "" {
		if err = os.Remove(sess.AudioPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("audio cleanup failed", "session_id", sessionID, "path", sess.AudioPath, "error", err)
		}
	}
	slog.Info("session deleted", "session_id", sessionID)
	return nil
}

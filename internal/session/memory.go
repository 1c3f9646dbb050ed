package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/calmloop/voicejournal/internal/models"
)

// MemoryStore is an in-memory Store used in dev mode and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	entries  map[string][]models.SegmentEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		entries:  make(map[string][]models.SegmentEntry),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListSessions(_ context.Context, owner string, limit, offset int) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if owner == "" || s.Owner == owner {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkProcessing(_ context.Context, id, audioPath, format string, duration float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != models.StatusRecording {
		return ErrStateConflict
	}
	s.Status = models.StatusProcessing
	s.AudioPath = audioPath
	s.AudioFormat = format
	s.AudioDuration = duration
	return nil
}

func (m *MemoryStore) CompleteSession(_ context.Context, id string, agg *models.Aggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != models.StatusProcessing {
		return ErrStateConflict
	}
	now := time.Now().UTC()
	s.Status = models.StatusCompleted
	s.Transcript = agg.Transcript
	s.SentimentTimeline = append(s.SentimentTimeline, agg.Timeline...)
	s.EmotionSpikes = append(s.EmotionSpikes, agg.Spikes...)
	overall := agg.Overall
	s.OverallSentiment = &overall
	insights := agg.Insights
	s.Insights = &insights
	s.Exercises = agg.Exercises
	s.SuggestedExercise = agg.SuggestedExercise
	s.CompletedAt = &now
	return nil
}

func (m *MemoryStore) FailSession(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != models.StatusProcessing {
		return ErrStateConflict
	}
	s.Status = models.StatusFailed
	s.FailureReason = reason
	return nil
}

func (m *MemoryStore) AppendSnapshot(_ context.Context, id string, point models.TimelinePoint, spike *models.SpikePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != models.StatusRecording {
		return ErrStateConflict
	}
	s.SentimentTimeline = append(s.SentimentTimeline, point)
	if spike != nil {
		s.EmotionSpikes = append(s.EmotionSpikes, *spike)
	}
	return nil
}

func (m *MemoryStore) InsertEntries(_ context.Context, entries []models.SegmentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.SessionID] = append(m.entries[e.SessionID], e)
	}
	return nil
}

func (m *MemoryStore) ListEntries(_ context.Context, sessionID string) ([]models.SegmentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.SegmentEntry(nil), m.entries[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.entries, id)
	return nil
}

package session

import (
	"context"
	"errors"

	"github.com/calmloop/voicejournal/internal/models"
)

var (
	// ErrNotFound means no session exists with the given id.
	ErrNotFound = errors.New("session not found")

	// ErrStateConflict means a guarded transition was attempted from the
	// wrong state, e.g. a second upload while PROCESSING or any transition
	// on a terminal session.
	ErrStateConflict = errors.New("session state conflict")

	// ErrValidation means the request payload was rejected before any
	// state change.
	ErrValidation = errors.New("invalid payload")
)

// Store persists sessions and their segment entries. Transition methods
// are guarded: they return ErrStateConflict when the session is not in the
// required source state, which is what enforces the monotonic lifecycle
// and the one-in-flight-job-per-session invariant.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, owner string, limit, offset int) ([]*models.Session, error)

	// MarkProcessing performs RECORDING → PROCESSING and records the audio
	// reference.
	MarkProcessing(ctx context.Context, id, audioPath, format string, duration float64) error

	// CompleteSession performs PROCESSING → COMPLETED and writes every
	// aggregate field plus completed_at.
	CompleteSession(ctx context.Context, id string, agg *models.Aggregate) error

	// FailSession performs PROCESSING → FAILED, retaining whatever partial
	// fields exist.
	FailSession(ctx context.Context, id, reason string) error

	// AppendSnapshot appends a live timeline point (and optional spike)
	// verbatim; only valid while RECORDING.
	AppendSnapshot(ctx context.Context, id string, point models.TimelinePoint, spike *models.SpikePoint) error

	InsertEntries(ctx context.Context, entries []models.SegmentEntry) error
	ListEntries(ctx context.Context, sessionID string) ([]models.SegmentEntry, error)

	// DeleteSession removes the session and cascades to its entries.
	DeleteSession(ctx context.Context, id string) error
}

package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver

	"github.com/calmloop/voicejournal/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PGStore persists sessions and segment entries to PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to the session database at connStr and applies pending
// migrations.
func OpenPG(connStr string) (*PGStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("session store open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session store ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("session store migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (p *PGStore) Close() error {
	return p.db.Close()
}

func (p *PGStore) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, title, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Owner, s.Title, s.Description, string(s.Status), s.CreatedAt.UTC(),
	)
	return err
}

func (p *PGStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, status, audio_path, audio_format,
		        audio_duration, transcript, sentiment_timeline, emotion_spikes,
		        overall_sentiment, ai_insights, recommended_exercises,
		        suggested_exercise, failure_reason, created_at, completed_at
		 FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s           models.Session
		status      string
		timeline    []byte
		spikes      []byte
		overall     []byte
		insights    []byte
		exercises   []byte
		completedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Owner, &s.Title, &s.Description, &status,
		&s.AudioPath, &s.AudioFormat, &s.AudioDuration, &s.Transcript,
		&timeline, &spikes, &overall, &insights, &exercises,
		&s.SuggestedExercise, &s.FailureReason, &s.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Status = models.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if err = json.Unmarshal(timeline, &s.SentimentTimeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if err = json.Unmarshal(spikes, &s.EmotionSpikes); err != nil {
		return nil, fmt.Errorf("decode spikes: %w", err)
	}
	if len(overall) > 0 {
		s.OverallSentiment = &models.Overall{}
		if err = json.Unmarshal(overall, s.OverallSentiment); err != nil {
			return nil, fmt.Errorf("decode overall: %w", err)
		}
	}
	if len(insights) > 0 {
		s.Insights = &models.Insights{}
		if err = json.Unmarshal(insights, s.Insights); err != nil {
			return nil, fmt.Errorf("decode insights: %w", err)
		}
	}
	if len(exercises) > 0 {
		if err = json.Unmarshal(exercises, &s.Exercises); err != nil {
			return nil, fmt.Errorf("decode exercises: %w", err)
		}
	}
	return &s, nil
}

func (p *PGStore) ListSessions(ctx context.Context, owner string, limit, offset int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, owner_id, title, description, status, audio_path, audio_format,
		        audio_duration, transcript, sentiment_timeline, emotion_spikes,
		        overall_sentiment, ai_insights, recommended_exercises,
		        suggested_exercise, failure_reason, created_at, completed_at
		 FROM sessions
		 WHERE ($1 = '' OR owner_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		s, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// transition runs a guarded update and maps zero affected rows to either
// ErrNotFound or ErrStateConflict.
func (p *PGStore) transition(ctx context.Context, id string, res sql.Result, execErr error) error {
	if execErr != nil {
		return execErr
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err = p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStateConflict
}

func (p *PGStore) MarkProcessing(ctx context.Context, id, audioPath, format string, duration float64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions
		 SET status = $2, audio_path = $3, audio_format = $4, audio_duration = $5
		 WHERE id = $1 AND status = $6`,
		id, string(models.StatusProcessing), audioPath, format, duration, string(models.StatusRecording))
	return p.transition(ctx, id, res, err)
}

func (p *PGStore) CompleteSession(ctx context.Context, id string, agg *models.Aggregate) error {
	timeline, err := json.Marshal(agg.Timeline)
	if err != nil {
		return err
	}
	spikes, err := json.Marshal(agg.Spikes)
	if err != nil {
		return err
	}
	overall, err := json.Marshal(agg.Overall)
	if err != nil {
		return err
	}
	insights, err := json.Marshal(agg.Insights)
	if err != nil {
		return err
	}
	exercises, err := json.Marshal(agg.Exercises)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions
		 SET status = $2, transcript = $3,
		     sentiment_timeline = sentiment_timeline || $4::jsonb,
		     emotion_spikes = emotion_spikes || $5::jsonb,
		     overall_sentiment = $6, ai_insights = $7,
		     recommended_exercises = $8, suggested_exercise = $9,
		     completed_at = $10
		 WHERE id = $1 AND status = $11`,
		id, string(models.StatusCompleted), agg.Transcript,
		timeline, spikes, overall, insights, exercises,
		agg.SuggestedExercise, time.Now().UTC(), string(models.StatusProcessing))
	return p.transition(ctx, id, res, err)
}

func (p *PGStore) FailSession(ctx context.Context, id, reason string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET status = $2, failure_reason = $3
		 WHERE id = $1 AND status = $4`,
		id, string(models.StatusFailed), reason, string(models.StatusProcessing))
	return p.transition(ctx, id, res, err)
}

func (p *PGStore) AppendSnapshot(ctx context.Context, id string, point models.TimelinePoint, spike *models.SpikePoint) error {
	pointJSON, err := json.Marshal([]models.TimelinePoint{point})
	if err != nil {
		return err
	}
	spikeJSON := []byte(`[]`)
	if spike != nil {
		if spikeJSON, err = json.Marshal([]models.SpikePoint{*spike}); err != nil {
			return err
		}
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions
		 SET sentiment_timeline = sentiment_timeline || $2::jsonb,
		     emotion_spikes = emotion_spikes || $3::jsonb
		 WHERE id = $1 AND status = $4`,
		id, pointJSON, spikeJSON, string(models.StatusRecording))
	return p.transition(ctx, id, res, err)
}

func (p *PGStore) InsertEntries(ctx context.Context, entries []models.SegmentEntry) error {
	for _, e := range entries {
		emotions, err := json.Marshal(e.Emotions)
		if err != nil {
			return err
		}
		themes, err := json.Marshal(e.Themes)
		if err != nil {
			return err
		}
		keywords, err := json.Marshal(e.Keywords)
		if err != nil {
			return err
		}
		_, err = p.db.ExecContext(ctx,
			`INSERT INTO segment_entries
			   (id, session_id, start_time, duration, transcript, emotions,
			    sentiment_score, sentiment_label, intensity, themes, keywords,
			    is_spike, spike_type, analyzed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			e.ID, e.SessionID, e.StartTime, e.Duration, e.Transcript, emotions,
			e.SentimentScore, e.SentimentLabel, e.Intensity, themes, keywords,
			e.IsSpike, e.SpikeType, e.AnalyzedAt.UTC())
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *PGStore) ListEntries(ctx context.Context, sessionID string) ([]models.SegmentEntry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, session_id, start_time, duration, transcript, emotions,
		        sentiment_score, sentiment_label, intensity, themes, keywords,
		        is_spike, spike_type, analyzed_at
		 FROM segment_entries WHERE session_id = $1 ORDER BY start_time`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SegmentEntry
	for rows.Next() {
		var (
			e        models.SegmentEntry
			emotions []byte
			themes   []byte
			keywords []byte
		)
		if err = rows.Scan(&e.ID, &e.SessionID, &e.StartTime, &e.Duration,
			&e.Transcript, &emotions, &e.SentimentScore, &e.SentimentLabel,
			&e.Intensity, &themes, &keywords, &e.IsSpike, &e.SpikeType,
			&e.AnalyzedAt); err != nil {
			return nil, err
		}
		if err = json.Unmarshal(emotions, &e.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions: %w", err)
		}
		if err = json.Unmarshal(themes, &e.Themes); err != nil {
			return nil, fmt.Errorf("decode themes: %w", err)
		}
		if err = json.Unmarshal(keywords, &e.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PGStore) DeleteSession(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

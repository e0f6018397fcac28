package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// ScoreStorage implements SQLite persistence for match scores
type ScoreStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewScoreStorage creates a new score storage instance
func NewScoreStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ScoreStorage {
	return &ScoreStorage{db: db, logger: logger}
}

// InsertScore inserts a score. Scores are never updated: a second insert for
// the same job is rejected so checkpoint-resumed runs keep stored scores
// byte-identical.
func (s *ScoreStorage) InsertScore(ctx context.Context, score *models.ScoredJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO scores (job_id, score, reasoning, provider, scored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		score.JobID, score.Score, score.Reasoning, score.Provider, score.ScoredAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert score for job %s: %w", score.JobID, err)
	}

	s.logger.Debug().Str("job_id", score.JobID).Int("score", score.Score).Msg("Score saved")
	return nil
}

// GetScore retrieves the score for a job, or nil when none exists
func (s *ScoreStorage) GetScore(ctx context.Context, jobID string) (*models.ScoredJob, error) {
	var score models.ScoredJob
	var scoredAt int64

	err := s.db.db.QueryRowContext(ctx, `
		SELECT job_id, score, reasoning, provider, scored_at
		FROM scores WHERE job_id = ?`, jobID).
		Scan(&score.JobID, &score.Score, &score.Reasoning, &score.Provider, &scoredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score for job %s: %w", jobID, err)
	}

	score.ScoredAt = time.Unix(scoredAt, 0).UTC()
	return &score, nil
}

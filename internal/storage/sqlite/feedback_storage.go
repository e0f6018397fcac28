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

// FeedbackStorage implements append-only feedback persistence
type FeedbackStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewFeedbackStorage creates a new feedback storage instance
func NewFeedbackStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.FeedbackStorage {
	return &FeedbackStorage{db: db, logger: logger}
}

// InsertFeedback appends a feedback record
func (s *FeedbackStorage) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO feedback (job_id, score, action, reason, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		fb.JobID, fb.Score, string(fb.Action), nullString(fb.Reason), fb.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert feedback for job %s: %w", fb.JobID, err)
	}

	s.logger.Debug().Str("job_id", fb.JobID).Str("action", string(fb.Action)).Msg("Feedback saved")
	return nil
}

// GetFeedbackByJob retrieves all feedback for a job, newest first
func (s *FeedbackStorage) GetFeedbackByJob(ctx context.Context, jobID string) ([]*models.Feedback, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT job_id, score, action, reason, timestamp
		FROM feedback WHERE job_id = ? ORDER BY timestamp DESC, id DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		var fb models.Feedback
		var reason sql.NullString
		var action string
		var ts int64
		if err := rows.Scan(&fb.JobID, &fb.Score, &action, &reason, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.Action = models.FeedbackAction(action)
		fb.Reason = reason.String
		fb.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, &fb)
	}
	return out, rows.Err()
}

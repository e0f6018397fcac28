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

// NotificationStorage implements SQLite persistence for routing outcomes
type NotificationStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewNotificationStorage creates a new notification storage instance
func NewNotificationStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.NotificationStorage {
	return &NotificationStorage{db: db, logger: logger}
}

// InsertNotification records the routing outcome for a job. Insert-once.
func (s *NotificationStorage) InsertNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := 0
	if n.TelegramSent {
		sent = 1
	}

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO notifications (job_id, channel, telegram_sent, sent_at, run_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		n.JobID, string(n.Channel), sent, n.SentAt.Unix(), n.RunID)
	if err != nil {
		return fmt.Errorf("failed to insert notification for job %s: %w", n.JobID, err)
	}

	s.logger.Debug().Str("job_id", n.JobID).Str("channel", string(n.Channel)).Msg("Notification saved")
	return nil
}

// GetNotification retrieves the routing outcome for a job, or nil
func (s *NotificationStorage) GetNotification(ctx context.Context, jobID string) (*models.Notification, error) {
	var n models.Notification
	var channel string
	var sent int
	var sentAt int64

	err := s.db.db.QueryRowContext(ctx, `
		SELECT job_id, channel, telegram_sent, sent_at, run_id
		FROM notifications WHERE job_id = ?`, jobID).
		Scan(&n.JobID, &channel, &sent, &sentAt, &n.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification for job %s: %w", jobID, err)
	}

	n.Channel = models.NotificationChannel(channel)
	n.TelegramSent = sent == 1
	n.SentAt = time.Unix(sentAt, 0).UTC()
	return &n, nil
}

package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/interfaces"
)

// SeenStorage implements the prior-seen hash set
type SeenStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewSeenStorage creates a new seen-hash storage instance
func NewSeenStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SeenStorage {
	return &SeenStorage{db: db, logger: logger}
}

// MarkSeen inserts the hash on first encounter. Returns true when the hash
// was newly inserted; later encounters are no-ops returning false.
func (s *SeenStorage) MarkSeen(ctx context.Context, hash string, firstSeen time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx, `
		INSERT INTO seen_jobs (hash, first_seen_at) VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING`, hash, firstSeen.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to mark hash seen: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// IsSeen reports whether the hash has been encountered before
func (s *SeenStorage) IsSeen(ctx context.Context, hash string) (bool, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM seen_jobs WHERE hash = ?`, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check seen hash: %w", err)
	}
	return count > 0, nil
}

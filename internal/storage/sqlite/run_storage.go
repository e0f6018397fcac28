package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// RunStorage implements SQLite persistence for pipeline run records.
// Key columns are stored relationally; the full statistics struct is kept as
// a JSON snapshot so the run record round-trips exactly.
type RunStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewRunStorage creates a new run storage instance
func NewRunStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{db: db, logger: logger}
}

// SaveRun creates or updates a run record
func (s *RunStorage) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statsJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", run.RunID, err)
	}

	var completedAt sql.NullInt64
	if run.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: run.CompletedAt.Unix(), Valid: true}
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (run_id, started_at, completed_at, status, stats_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			completed_at = excluded.completed_at,
			status = excluded.status,
			stats_json = excluded.stats_json`,
		run.RunID, run.StartedAt.Unix(), completedAt, string(run.Status), string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}

	s.logger.Debug().Str("run_id", run.RunID).Str("status", string(run.Status)).Msg("Run saved")
	return nil
}

// GetRun retrieves a run record by id, or nil when none exists
func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	var statsJSON string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT stats_json FROM pipeline_runs WHERE run_id = ?`, runID).Scan(&statsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	var run models.PipelineRun
	if err := json.Unmarshal([]byte(statsJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", runID, err)
	}
	return &run, nil
}

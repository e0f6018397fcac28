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

// JobStorage implements SQLite persistence for job listings
type JobStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new job storage instance
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{db: db, logger: logger}
}

// InsertJob inserts a job. Jobs are immutable: a duplicate id is a no-op so
// re-runs after a crash never overwrite the original record.
func (s *JobStorage) InsertJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs (
			id, site_id, title, company, location, country, url,
			salary, description, requirements, posted_date, scraped_at, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := s.db.db.ExecContext(ctx, query,
		job.ID, job.SiteID, job.Title, job.Company, job.Location, job.Country, job.URL,
		nullString(job.Salary), nullString(job.Description), nullString(job.Requirements),
		nullString(job.PostedDate), job.ScrapedAt.Unix(), job.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	s.logger.Debug().Str("job_id", job.ID).Str("site_id", job.SiteID).Msg("Job saved")
	return nil
}

// GetJob retrieves a job by id
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, site_id, title, company, location, country, url,
			salary, description, requirements, posted_date, scraped_at, run_id
		FROM jobs WHERE id = ?`, jobID)
	return scanJob(row)
}

// GetJobsByRun retrieves all jobs scraped in a given run, in insertion order
func (s *JobStorage) GetJobsByRun(ctx context.Context, runID string) ([]*models.Job, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, site_id, title, company, location, country, url,
			salary, description, requirements, posted_date, scraped_at, run_id
		FROM jobs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs for run %s: %w", runID, err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var salary, description, requirements, postedDate sql.NullString
	var scrapedAt int64

	err := row.Scan(&job.ID, &job.SiteID, &job.Title, &job.Company, &job.Location,
		&job.Country, &job.URL, &salary, &description, &requirements, &postedDate,
		&scrapedAt, &job.RunID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Salary = salary.String
	job.Description = description.String
	job.Requirements = requirements.String
	job.PostedDate = postedDate.String
	job.ScrapedAt = time.Unix(scrapedAt, 0).UTC()
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

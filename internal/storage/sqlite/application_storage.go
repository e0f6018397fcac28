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

// ApplicationStorage implements SQLite persistence for applications
type ApplicationStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewApplicationStorage creates a new application storage instance
func NewApplicationStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ApplicationStorage {
	return &ApplicationStorage{db: db, logger: logger}
}

// InsertApplication creates an application record. The job_id UNIQUE
// constraint keeps the pipeline to one application per job.
func (s *ApplicationStorage) InsertApplication(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var appliedDate sql.NullInt64
	if app.AppliedDate != nil {
		appliedDate = sql.NullInt64{Int64: app.AppliedDate.Unix(), Valid: true}
	}

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, job_id, company, role, country, applied_date, resume_version,
			status, status_updated, notes, source_site
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		app.ID, app.JobID, app.Company, app.Role, app.Country, appliedDate,
		nullString(app.ResumeVersion), string(app.Status), app.StatusUpdated.Unix(),
		nullString(app.Notes), app.SourceSite)
	if err != nil {
		return fmt.Errorf("failed to insert application for job %s: %w", app.JobID, err)
	}

	s.logger.Debug().Str("job_id", app.JobID).Str("company", app.Company).Msg("Application saved")
	return nil
}

// GetApplicationByJob retrieves the application for a job, or nil
func (s *ApplicationStorage) GetApplicationByJob(ctx context.Context, jobID string) (*models.Application, error) {
	row := s.db.db.QueryRowContext(ctx, applicationSelect+` WHERE job_id = ?`, jobID)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return app, err
}

// GetApplicationsByCompany retrieves all applications at a company,
// case-insensitively, most recently updated first.
func (s *ApplicationStorage) GetApplicationsByCompany(ctx context.Context, company string) ([]*models.Application, error) {
	rows, err := s.db.db.QueryContext(ctx,
		applicationSelect+` WHERE company = ? COLLATE NOCASE ORDER BY status_updated DESC`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications for %s: %w", company, err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateApplicationStatus transitions an application's status from feedback
func (s *ApplicationStorage) UpdateApplicationStatus(ctx context.Context, jobID string, status models.ApplicationStatus, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE applications SET status = ?, status_updated = ?, notes = COALESCE(NULLIF(?, ''), notes)`
	args := []interface{}{string(status), time.Now().Unix(), notes}
	if status == models.StatusApplied {
		query += `, applied_date = ?`
		args = append(args, time.Now().Unix())
	}
	query += ` WHERE job_id = ?`
	args = append(args, jobID)

	result, err := s.db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update application status for job %s: %w", jobID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no application found for job %s", jobID)
	}

	s.logger.Debug().Str("job_id", jobID).Str("status", string(status)).Msg("Application status updated")
	return nil
}

const applicationSelect = `
	SELECT id, job_id, company, role, country, applied_date, resume_version,
		status, status_updated, notes, source_site
	FROM applications`

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var appliedDate sql.NullInt64
	var resumeVersion, notes sql.NullString
	var statusUpdated int64
	var status string

	err := row.Scan(&app.ID, &app.JobID, &app.Company, &app.Role, &app.Country,
		&appliedDate, &resumeVersion, &status, &statusUpdated, &notes, &app.SourceSite)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}

	if appliedDate.Valid {
		t := time.Unix(appliedDate.Int64, 0).UTC()
		app.AppliedDate = &t
	}
	app.ResumeVersion = resumeVersion.String
	app.Notes = notes.String
	app.Status = models.ApplicationStatus(status)
	app.StatusUpdated = time.Unix(statusUpdated, 0).UTC()
	return &app, nil
}

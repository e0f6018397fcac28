package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// ResumeStorage implements SQLite persistence for tailored resume records
type ResumeStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewResumeStorage creates a new resume storage instance
func NewResumeStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ResumeStorage {
	return &ResumeStorage{db: db, logger: logger}
}

// InsertResume records a tailored resume. The DB row is inserted once per job;
// the PDF file itself may be rewritten on retry, the row carries the
// authoritative path.
func (s *ResumeStorage) InsertResume(ctx context.Context, resume *models.TailoredResume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issues := resume.VerificationIssues
	if issues == nil {
		issues = []string{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to serialize verification issues: %w", err)
	}

	verified := 0
	if resume.Verified {
		verified = 1
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO resumes (job_id, html_path, pdf_path, verified, verification_issues, generated_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		resume.JobID, resume.HTMLPath, resume.PDFPath, verified, string(issuesJSON),
		resume.GeneratedAt.Unix(), resume.RunID)
	if err != nil {
		return fmt.Errorf("failed to insert resume for job %s: %w", resume.JobID, err)
	}

	s.logger.Debug().Str("job_id", resume.JobID).Str("pdf_path", resume.PDFPath).Msg("Resume saved")
	return nil
}

// GetResume retrieves the resume record for a job, or nil when none exists
func (s *ResumeStorage) GetResume(ctx context.Context, jobID string) (*models.TailoredResume, error) {
	var resume models.TailoredResume
	var verified int
	var issuesJSON string
	var generatedAt int64

	err := s.db.db.QueryRowContext(ctx, `
		SELECT job_id, html_path, pdf_path, verified, verification_issues, generated_at, run_id
		FROM resumes WHERE job_id = ?`, jobID).
		Scan(&resume.JobID, &resume.HTMLPath, &resume.PDFPath, &verified, &issuesJSON,
			&generatedAt, &resume.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume for job %s: %w", jobID, err)
	}

	resume.Verified = verified == 1
	resume.GeneratedAt = time.Unix(generatedAt, 0).UTC()
	if err := json.Unmarshal([]byte(issuesJSON), &resume.VerificationIssues); err != nil {
		return nil, fmt.Errorf("failed to parse verification issues for job %s: %w", jobID, err)
	}
	return &resume, nil
}

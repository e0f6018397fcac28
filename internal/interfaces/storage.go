package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/jobhunter/internal/models"
)

// JobStorage persists normalized job listings
type JobStorage interface {
	InsertJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobsByRun(ctx context.Context, runID string) ([]*models.Job, error)
}

// SeenStorage tracks previously encountered job hashes
type SeenStorage interface {
	// MarkSeen inserts the hash if absent. Returns true when the hash was
	// newly inserted (first encounter), false when it already existed.
	MarkSeen(ctx context.Context, hash string, firstSeen time.Time) (bool, error)
	IsSeen(ctx context.Context, hash string) (bool, error)
}

// ScoreStorage persists LLM match scores. Insert-once per job.
type ScoreStorage interface {
	InsertScore(ctx context.Context, score *models.ScoredJob) error
	GetScore(ctx context.Context, jobID string) (*models.ScoredJob, error)
}

// ResumeStorage persists tailored resume records. Insert-once per job.
type ResumeStorage interface {
	InsertResume(ctx context.Context, resume *models.TailoredResume) error
	GetResume(ctx context.Context, jobID string) (*models.TailoredResume, error)
}

// ApplicationStorage persists applications and their status transitions
type ApplicationStorage interface {
	InsertApplication(ctx context.Context, app *models.Application) error
	GetApplicationByJob(ctx context.Context, jobID string) (*models.Application, error)
	GetApplicationsByCompany(ctx context.Context, company string) ([]*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, jobID string, status models.ApplicationStatus, notes string) error
}

// FeedbackStorage is append-only user feedback
type FeedbackStorage interface {
	InsertFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedbackByJob(ctx context.Context, jobID string) ([]*models.Feedback, error)
}

// RunStorage persists pipeline run records
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.PipelineRun) error
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)
}

// NotificationStorage records routing outcomes. Insert-once per job.
type NotificationStorage interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, jobID string) (*models.Notification, error)
}

// KeyValueStorage stores small operational state (e.g. the feedback cursor)
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// StorageManager bundles all storage interfaces behind one connection
type StorageManager interface {
	Jobs() JobStorage
	Seen() SeenStorage
	Scores() ScoreStorage
	Resumes() ResumeStorage
	Applications() ApplicationStorage
	Feedback() FeedbackStorage
	Runs() RunStorage
	Notifications() NotificationStorage
	KV() KeyValueStorage
	Close() error
}

package sqlite

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/interfaces"
)

// Manager implements the StorageManager interface
type Manager struct {
	db            *SQLiteDB
	jobs          interfaces.JobStorage
	seen          interfaces.SeenStorage
	scores        interfaces.ScoreStorage
	resumes       interfaces.ResumeStorage
	applications  interfaces.ApplicationStorage
	feedback      interfaces.FeedbackStorage
	runs          interfaces.RunStorage
	notifications interfaces.NotificationStorage
	kv            interfaces.KeyValueStorage
	logger        arbor.ILogger
}

// NewManager opens the database and wires all storage implementations
func NewManager(logger arbor.ILogger, dbPath string) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, dbPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:            db,
		jobs:          NewJobStorage(db, logger),
		seen:          NewSeenStorage(db, logger),
		scores:        NewScoreStorage(db, logger),
		resumes:       NewResumeStorage(db, logger),
		applications:  NewApplicationStorage(db, logger),
		feedback:      NewFeedbackStorage(db, logger),
		runs:          NewRunStorage(db, logger),
		notifications: NewNotificationStorage(db, logger),
		kv:            NewKVStorage(db, logger),
		logger:        logger,
	}, nil
}

func (m *Manager) Jobs() interfaces.JobStorage                   { return m.jobs }
func (m *Manager) Seen() interfaces.SeenStorage                  { return m.seen }
func (m *Manager) Scores() interfaces.ScoreStorage               { return m.scores }
func (m *Manager) Resumes() interfaces.ResumeStorage             { return m.resumes }
func (m *Manager) Applications() interfaces.ApplicationStorage   { return m.applications }
func (m *Manager) Feedback() interfaces.FeedbackStorage          { return m.feedback }
func (m *Manager) Runs() interfaces.RunStorage                   { return m.runs }
func (m *Manager) Notifications() interfaces.NotificationStorage { return m.notifications }
func (m *Manager) KV() interfaces.KeyValueStorage                { return m.kv }

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

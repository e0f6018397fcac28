package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	mgr, err := NewManager(common.GetLogger(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func testJob(runID string) *models.Job {
	return &models.Job{
		ID:          models.NewJobID("Go Engineer", "Acme", "Sydney"),
		SiteID:      "seek",
		Title:       "Go Engineer",
		Company:     "Acme",
		Location:    "Sydney",
		Country:     "AU",
		URL:         "https://example.com/jobs/1",
		Salary:      "$150k",
		Description: "Build services",
		ScrapedAt:   time.Now().UTC().Truncate(time.Second),
		RunID:       runID,
	}
}

func TestJobRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	got, err := mgr.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.Title, got.Title)
	assert.Equal(t, job.Company, got.Company)
	assert.Equal(t, job.Salary, got.Salary)
	assert.Equal(t, job.RunID, got.RunID)
}

func TestJobInsertOnce(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	// Re-insert with different payload: the original row must survive
	dup := *job
	dup.Title = "Changed Title"
	require.NoError(t, mgr.Jobs().InsertJob(ctx, &dup))

	got, err := mgr.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", got.Title)
}

func TestGetJobsByRun(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	a := testJob("run-1")
	b := testJob("run-1")
	b.ID = models.NewJobID("Platform Engineer", "Beta", "Melbourne")
	b.Title = "Platform Engineer"
	c := testJob("run-2")
	c.ID = models.NewJobID("SRE", "Gamma", "Brisbane")

	for _, job := range []*models.Job{a, b, c} {
		require.NoError(t, mgr.Jobs().InsertJob(ctx, job))
	}

	got, err := mgr.Jobs().GetJobsByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID, "insertion order preserved")
}

func TestMarkSeenIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := mgr.Seen().MarkSeen(ctx, "hash-1", now)
	require.NoError(t, err)
	assert.True(t, first, "first encounter inserts")

	second, err := mgr.Seen().MarkSeen(ctx, "hash-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, second, "second encounter is a no-op")

	seen, err := mgr.Seen().IsSeen(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestScoreInsertOnceKeepsOriginal(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	score := &models.ScoredJob{JobID: job.ID, Score: 85, Reasoning: "strong match", Provider: "local", ScoredAt: time.Now().UTC()}
	require.NoError(t, mgr.Scores().InsertScore(ctx, score))

	rescored := &models.ScoredJob{JobID: job.ID, Score: 40, Reasoning: "changed my mind", Provider: "fallback", ScoredAt: time.Now().UTC()}
	require.NoError(t, mgr.Scores().InsertScore(ctx, rescored))

	got, err := mgr.Scores().GetScore(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, "strong match", got.Reasoning)
}

func TestGetScoreMissing(t *testing.T) {
	mgr := newTestManager(t)

	got, err := mgr.Scores().GetScore(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResumeRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	record := &models.TailoredResume{
		JobID:       job.ID,
		HTMLPath:    "output/resumes/acme.html",
		PDFPath:     "output/resumes/acme.pdf",
		Verified:    true,
		GeneratedAt: time.Now().UTC(),
		RunID:       "run-1",
	}
	require.NoError(t, mgr.Resumes().InsertResume(ctx, record))

	got, err := mgr.Resumes().GetResume(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Verified)
	assert.Empty(t, got.VerificationIssues)
	assert.Equal(t, "output/resumes/acme.pdf", got.PDFPath)
}

func TestApplicationLifecycle(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	app := &models.Application{
		ID:            "app-1",
		JobID:         job.ID,
		Company:       "Acme",
		Role:          "Go Engineer",
		Country:       "AU",
		Status:        models.StatusMatched,
		StatusUpdated: time.Now().UTC(),
		SourceSite:    "seek",
	}
	require.NoError(t, mgr.Applications().InsertApplication(ctx, app))

	require.NoError(t, mgr.Applications().UpdateApplicationStatus(ctx, job.ID, models.StatusApplied, "applied via site"))

	got, err := mgr.Applications().GetApplicationByJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusApplied, got.Status)
	assert.NotNil(t, got.AppliedDate, "applied transition stamps the date")
	assert.Equal(t, "applied via site", got.Notes)
}

func TestGetApplicationsByCompanyCaseInsensitive(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))
	require.NoError(t, mgr.Applications().InsertApplication(ctx, &models.Application{
		ID: "app-1", JobID: job.ID, Company: "Acme", Role: "Go Engineer",
		Status: models.StatusMatched, StatusUpdated: time.Now().UTC(),
	}))

	got, err := mgr.Applications().GetApplicationsByCompany(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFeedbackAppendOnly(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	first := &models.Feedback{JobID: job.ID, Score: 85, Action: models.FeedbackSkipped, Timestamp: time.Now().UTC()}
	second := &models.Feedback{JobID: job.ID, Score: 85, Action: models.FeedbackApplied, Timestamp: time.Now().UTC().Add(time.Minute)}
	require.NoError(t, mgr.Feedback().InsertFeedback(ctx, first))
	require.NoError(t, mgr.Feedback().InsertFeedback(ctx, second))

	got, err := mgr.Feedback().GetFeedbackByJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.FeedbackApplied, got[0].Action, "newest first")
}

func TestRunRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	run := &models.PipelineRun{
		RunID:       "run-1",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		Status:      models.RunStatusRunning,
		JobsScraped: 42,
		SitesFailed: []models.SiteFailure{{Site: "indeed", Stage: "scrape", Error: "status 500"}},
		Errors:      []string{"score abc123: model failed"},
	}
	require.NoError(t, mgr.Runs().SaveRun(ctx, run))

	// Update and save again: SaveRun upserts
	run.Status = models.RunStatusCompleted
	run.JobsScored = 7
	require.NoError(t, mgr.Runs().SaveRun(ctx, run))

	got, err := mgr.Runs().GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 42, got.JobsScraped)
	assert.Equal(t, 7, got.JobsScored)
	require.Len(t, got.SitesFailed, 1)
	assert.Equal(t, "indeed", got.SitesFailed[0].Site)
}

func TestNotificationInsertOnce(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := testJob("run-1")
	require.NoError(t, mgr.Jobs().InsertJob(ctx, job))

	n := &models.Notification{JobID: job.ID, Channel: models.ChannelInstant, TelegramSent: true, SentAt: time.Now().UTC(), RunID: "run-1"}
	require.NoError(t, mgr.Notifications().InsertNotification(ctx, n))

	dup := &models.Notification{JobID: job.ID, Channel: models.ChannelDigest, SentAt: time.Now().UTC(), RunID: "run-2"}
	require.NoError(t, mgr.Notifications().InsertNotification(ctx, dup))

	got, err := mgr.Notifications().GetNotification(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ChannelInstant, got.Channel)
	assert.True(t, got.TelegramSent)
}

func TestKVStore(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	missing, err := mgr.KV().Get(ctx, "no-such-key")
	require.NoError(t, err)
	assert.Equal(t, "", missing)

	require.NoError(t, mgr.KV().Set(ctx, "telegram_update_offset", "42"))
	require.NoError(t, mgr.KV().Set(ctx, "telegram_update_offset", "43"))

	got, err := mgr.KV().Get(ctx, "telegram_update_offset")
	require.NoError(t, err)
	assert.Equal(t, "43", got)
}

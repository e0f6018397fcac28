package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// fakeMessenger records sent matches
type fakeMessenger struct {
	sent    []*interfaces.MatchMessage
	failOne bool
}

func (f *fakeMessenger) SendMatch(_ context.Context, msg *interfaces.MatchMessage) error {
	if f.failOne {
		f.failOne = false
		return errors.New("telegram unreachable")
	}
	f.sent = append(f.sent, msg)
	return nil
}
func (f *fakeMessenger) SendHealthAlert(context.Context, string) error { return nil }
func (f *fakeMessenger) PollFeedback(context.Context) ([]interfaces.FeedbackEvent, error) {
	return nil, nil
}
func (f *fakeMessenger) Enabled() bool { return true }

// fakeMailer records digests
type fakeMailer struct {
	digests [][]*interfaces.MatchMessage
}

func (f *fakeMailer) SendDigest(_ context.Context, matches []*interfaces.MatchMessage) error {
	f.digests = append(f.digests, matches)
	return nil
}
func (f *fakeMailer) Enabled() bool { return true }

// fakeApplications returns canned company matches
type fakeApplications struct {
	byCompany map[string][]*models.Application
}

func (f *fakeApplications) InsertApplication(context.Context, *models.Application) error { return nil }
func (f *fakeApplications) GetApplicationByJob(context.Context, string) (*models.Application, error) {
	return nil, nil
}
func (f *fakeApplications) GetApplicationsByCompany(_ context.Context, company string) ([]*models.Application, error) {
	return f.byCompany[company], nil
}
func (f *fakeApplications) UpdateApplicationStatus(context.Context, string, models.ApplicationStatus, string) error {
	return nil
}

// fakeNotifications records inserted rows
type fakeNotifications struct {
	rows []*models.Notification
}

func (f *fakeNotifications) InsertNotification(_ context.Context, n *models.Notification) error {
	f.rows = append(f.rows, n)
	return nil
}
func (f *fakeNotifications) GetNotification(context.Context, string) (*models.Notification, error) {
	return nil, nil
}

func defaultThresholds() *common.NotificationsConfig {
	return &common.NotificationsConfig{InstantThreshold: 80, DigestThreshold: 60, LogThreshold: 40}
}

func scoredJob(title string, score int) (*models.Job, *models.ScoredJob) {
	job := &models.Job{
		ID:      models.NewJobID(title, "Acme", "Sydney"),
		Title:   title,
		Company: "Acme",
	}
	return job, &models.ScoredJob{JobID: job.ID, Score: score, ScoredAt: time.Now().UTC()}
}

func TestRouteBands(t *testing.T) {
	messenger := &fakeMessenger{}
	mailer := &fakeMailer{}
	records := &fakeNotifications{}
	svc := NewService(defaultThresholds(), messenger, mailer, &fakeApplications{}, records, common.GetLogger())
	ctx := context.Background()

	instant, instantScore := scoredJob("Instant", 92)
	digest, digestScore := scoredJob("Digest", 71)
	logged, logScore := scoredJob("LogOnly", 52)
	discarded, discardScore := scoredJob("Discard", 30)

	record, err := svc.Route(ctx, instant, instantScore, "", "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelInstant, record.Channel)
	assert.True(t, record.TelegramSent)

	record, err = svc.Route(ctx, digest, digestScore, "", "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelDigest, record.Channel)

	record, err = svc.Route(ctx, logged, logScore, "", "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelLogOnly, record.Channel)

	record, err = svc.Route(ctx, discarded, discardScore, "", "run-1")
	require.NoError(t, err)
	assert.Nil(t, record, "below log threshold leaves no record")

	assert.Len(t, messenger.sent, 1, "exactly one instant message")
	assert.Equal(t, 1, svc.DigestCount())
	assert.Len(t, records.rows, 3, "discarded job not recorded")

	svc.FlushDigest(ctx)
	require.Len(t, mailer.digests, 1)
	assert.Len(t, mailer.digests[0], 1)
	assert.Equal(t, 0, svc.DigestCount(), "queue drained after flush")
}

func TestRouteInstantFailureStillRecorded(t *testing.T) {
	messenger := &fakeMessenger{failOne: true}
	records := &fakeNotifications{}
	svc := NewService(defaultThresholds(), messenger, &fakeMailer{}, &fakeApplications{}, records, common.GetLogger())

	job, score := scoredJob("Instant", 95)
	record, err := svc.Route(context.Background(), job, score, "", "run-1")
	require.NoError(t, err, "send failure is not a routing error")
	assert.Equal(t, models.ChannelInstant, record.Channel)
	assert.False(t, record.TelegramSent)
	assert.Len(t, records.rows, 1)
}

func TestRouteIncludesPriorApplications(t *testing.T) {
	prior := &models.Application{JobID: "other-job", Company: "Acme", Role: "Platform Engineer", Status: models.StatusApplied}
	apps := &fakeApplications{byCompany: map[string][]*models.Application{"Acme": {prior}}}
	messenger := &fakeMessenger{}
	svc := NewService(defaultThresholds(), messenger, &fakeMailer{}, apps, &fakeNotifications{}, common.GetLogger())

	job, score := scoredJob("Cloud Architect", 90)
	_, err := svc.Route(context.Background(), job, score, "", "run-1")
	require.NoError(t, err)

	require.Len(t, messenger.sent, 1)
	require.Len(t, messenger.sent[0].PriorApplications, 1)
	assert.Equal(t, "Platform Engineer", messenger.sent[0].PriorApplications[0].Role)
}

func TestRouteExcludesOwnApplication(t *testing.T) {
	job, score := scoredJob("Cloud Architect", 90)
	own := &models.Application{JobID: job.ID, Company: "Acme", Role: "Cloud Architect", Status: models.StatusMatched}
	apps := &fakeApplications{byCompany: map[string][]*models.Application{"Acme": {own}}}
	messenger := &fakeMessenger{}
	svc := NewService(defaultThresholds(), messenger, &fakeMailer{}, apps, &fakeNotifications{}, common.GetLogger())

	_, err := svc.Route(context.Background(), job, score, "", "run-1")
	require.NoError(t, err)

	require.Len(t, messenger.sent, 1)
	assert.Empty(t, messenger.sent[0].PriorApplications, "the job's own application is not a prior one")
}

package notify

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// Service routes scored matches into one of three bands: instant message,
// digest queue, or log-only. Below the log threshold a match is discarded
// without a record.
type Service struct {
	config       *common.NotificationsConfig
	messenger    interfaces.Messenger
	mailer       interfaces.DigestMailer
	applications interfaces.ApplicationStorage
	records      interfaces.NotificationStorage
	digestQueue  []*interfaces.MatchMessage
	logger       arbor.ILogger
}

// NewService creates the notification router
func NewService(cfg *common.NotificationsConfig, messenger interfaces.Messenger, mailer interfaces.DigestMailer,
	applications interfaces.ApplicationStorage, records interfaces.NotificationStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:       cfg,
		messenger:    messenger,
		mailer:       mailer,
		applications: applications,
		records:      records,
		logger:       logger,
	}
}

// Route dispatches one scored job. Returns the recorded notification, or nil
// when the score fell below the log threshold. A failed instant send is not
// an error: it is logged and recorded with telegram_sent=false.
func (s *Service) Route(ctx context.Context, job *models.Job, score *models.ScoredJob, pdfPath, runID string) (*models.Notification, error) {
	if score.Score < s.config.LogThreshold {
		s.logger.Debug().
			Str("job_id", models.ShortID(job.ID)).
			Int("score", score.Score).
			Msg("Score below log threshold, discarding")
		return nil, nil
	}

	msg := &interfaces.MatchMessage{
		Job:               job,
		Score:             score,
		PDFPath:           pdfPath,
		PriorApplications: s.priorApplications(ctx, job),
	}

	record := &models.Notification{
		JobID:  job.ID,
		SentAt: time.Now().UTC(),
		RunID:  runID,
	}

	switch {
	case score.Score >= s.config.InstantThreshold:
		record.Channel = models.ChannelInstant
		if err := s.messenger.SendMatch(ctx, msg); err != nil {
			s.logger.Warn().
				Str("job_id", models.ShortID(job.ID)).
				Err(err).
				Msg("Instant message failed, recording without send")
		} else {
			record.TelegramSent = s.messenger.Enabled()
		}

	case score.Score >= s.config.DigestThreshold:
		record.Channel = models.ChannelDigest
		s.digestQueue = append(s.digestQueue, msg)

	default:
		record.Channel = models.ChannelLogOnly
		s.logger.Info().
			Str("job_id", models.ShortID(job.ID)).
			Str("title", job.Title).
			Str("company", job.Company).
			Int("score", score.Score).
			Msg("Match logged without notification")
	}

	if err := s.records.InsertNotification(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// FlushDigest sends the queued digest-band matches. Best-effort: a mail
// failure is logged, never fatal.
func (s *Service) FlushDigest(ctx context.Context) {
	if len(s.digestQueue) == 0 {
		return
	}
	if err := s.mailer.SendDigest(ctx, s.digestQueue); err != nil {
		s.logger.Warn().Int("matches", len(s.digestQueue)).Err(err).Msg("Digest mail failed")
	}
	s.digestQueue = nil
}

// DigestCount returns the number of matches queued for the digest
func (s *Service) DigestCount() int {
	return len(s.digestQueue)
}

// priorApplications returns earlier applications at the same company,
// excluding the one created for this job
func (s *Service) priorApplications(ctx context.Context, job *models.Job) []*models.Application {
	apps, err := s.applications.GetApplicationsByCompany(ctx, job.Company)
	if err != nil {
		s.logger.Warn().Str("company", job.Company).Err(err).Msg("Prior-application lookup failed")
		return nil
	}

	var prior []*models.Application
	for _, app := range apps {
		if app.JobID != job.ID {
			prior = append(prior, app)
		}
	}
	return prior
}

// Package pipeline sequences the run: feedback poll, scrape, dedup, keyword
// filter, scoring, resume tailoring and notification, with checkpointed
// resume after a crash and per-site/per-job error quarantine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/checkpoint"
	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
	"github.com/ternarybob/jobhunter/internal/notify"
	"github.com/ternarybob/jobhunter/internal/resume"
	"github.com/ternarybob/jobhunter/internal/scorer"
	"github.com/ternarybob/jobhunter/internal/scraper"
)

// Orchestrator owns the stage graph and the run lifecycle
type Orchestrator struct {
	config    *common.Config
	sites     []*config.SiteConfig
	storage   interfaces.StorageManager
	ckpt      *checkpoint.Log
	scraper   *scraper.Service
	scorer    *scorer.Service
	tailor    *resume.Tailor
	notifier  *notify.Service
	messenger interfaces.Messenger
	logger    arbor.ILogger

	run     *models.PipelineRun
	siteMap map[string]*config.SiteConfig
}

// NewOrchestrator wires the pipeline stages together
func NewOrchestrator(cfg *common.Config, sites []*config.SiteConfig, storage interfaces.StorageManager,
	ckpt *checkpoint.Log, scraperSvc *scraper.Service, scorerSvc *scorer.Service, tailorSvc *resume.Tailor,
	notifier *notify.Service, messenger interfaces.Messenger, logger arbor.ILogger) *Orchestrator {

	siteMap := make(map[string]*config.SiteConfig, len(sites))
	for _, site := range sites {
		siteMap[site.SiteID] = site
	}

	return &Orchestrator{
		config:    cfg,
		sites:     sites,
		storage:   storage,
		ckpt:      ckpt,
		scraper:   scraperSvc,
		scorer:    scorerSvc,
		tailor:    tailorSvc,
		notifier:  notifier,
		messenger: messenger,
		logger:    logger,
		siteMap:   siteMap,
	}
}

// Run executes one pipeline invocation end to end. A crashed prior run is
// resumed under its original run id; completed work is skipped via the
// checkpoint. Only a catastrophic failure returns an error.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	runID, resumed, initErr := o.beginRun(ctx)
	if initErr != nil {
		return initErr
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
		if err != nil {
			o.recordCrash(err)
		}
	}()

	o.logger.Info().
		Str("run_id", runID).
		Bool("resumed", resumed).
		Int("sites", len(o.sites)).
		Msg("Pipeline run starting")

	o.pollFeedback(ctx)

	if err := o.scrapeStage(ctx, runID); err != nil {
		return err
	}

	jobs, err := o.storage.Jobs().GetJobsByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run jobs: %w", err)
	}
	o.markStage("dedup")

	filtered := o.keywordFilterStage(jobs)
	o.markStage("keyword-filter")
	o.saveRun(ctx)

	scored := o.scoreStage(ctx, filtered)
	o.markStage("score")
	o.saveRun(ctx)

	resumes := o.tailorStage(ctx, filtered, scored, runID)
	o.markStage("tailor")
	o.saveRun(ctx)

	o.notifyStage(ctx, filtered, scored, resumes, runID)
	o.markStage("notify")

	return o.finalize(ctx)
}

// beginRun resumes a crashed run or starts a fresh one
func (o *Orchestrator) beginRun(ctx context.Context) (string, bool, error) {
	if o.ckpt.Resumable() {
		runID := o.ckpt.State().RunID
		run, err := o.storage.Runs().GetRun(ctx, runID)
		if err != nil {
			return "", false, fmt.Errorf("failed to load run %s for resume: %w", runID, err)
		}
		if run == nil {
			run = &models.PipelineRun{RunID: runID, StartedAt: o.ckpt.State().StartedAt}
		}
		run.Status = models.RunStatusRunning
		o.run = run
		o.saveRun(ctx)
		return runID, true, nil
	}

	runID := uuid.New().String()
	if err := o.ckpt.Begin(runID); err != nil {
		return "", false, fmt.Errorf("failed to start checkpoint: %w", err)
	}
	o.run = &models.PipelineRun{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	o.saveRun(ctx)
	return runID, false, nil
}

// pollFeedback drains pending button presses before new work begins.
// Failures are logged and ignored; feedback is best-effort.
func (o *Orchestrator) pollFeedback(ctx context.Context) {
	defer o.markStage("poll-feedback")

	if o.ckpt.StageCompleted("poll-feedback") {
		return
	}

	events, err := o.messenger.PollFeedback(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Feedback poll failed, continuing")
		return
	}

	for _, event := range events {
		score := 0
		if stored, err := o.storage.Scores().GetScore(ctx, event.JobID); err == nil && stored != nil {
			score = stored.Score
		}

		fb := &models.Feedback{
			JobID:     event.JobID,
			Score:     score,
			Action:    event.Action,
			Timestamp: time.Now().UTC(),
		}
		if err := o.storage.Feedback().InsertFeedback(ctx, fb); err != nil {
			o.logger.Warn().Str("job_id", models.ShortID(event.JobID)).Err(err).Msg("Failed to record feedback")
			continue
		}

		if event.Action == models.FeedbackApplied {
			if err := o.storage.Applications().UpdateApplicationStatus(ctx, event.JobID, models.StatusApplied, ""); err != nil {
				o.logger.Warn().Str("job_id", models.ShortID(event.JobID)).Err(err).Msg("Failed to update application status")
			}
		}

		o.logger.Info().
			Str("job_id", models.ShortID(event.JobID)).
			Str("action", string(event.Action)).
			Msg("Feedback recorded")
	}
}

// scrapeStage runs the scraper over sites not yet checkpointed, then dedups
// and persists each site's listings before marking the site complete. A site
// marked scraped therefore has all its new jobs in the store.
func (o *Orchestrator) scrapeStage(ctx context.Context, runID string) error {
	if o.ckpt.StageCompleted("scrape") {
		o.logger.Info().Msg("Scrape stage already complete, skipping")
		return nil
	}

	// Site counters are recomputed on resume; quarantined sites get retried
	o.run.SitesSucceeded = 0
	o.run.SitesFailed = nil

	var pending []*config.SiteConfig
	for _, site := range o.sites {
		if o.ckpt.SiteScraped(site.SiteID) {
			o.logger.Info().Str("site_id", site.SiteID).Msg("Site already scraped this run, skipping")
			continue
		}
		pending = append(pending, site)
	}
	o.run.SitesAttempted = len(o.sites)

	outcomes := o.scraper.ScrapeAll(ctx, pending)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			o.quarantineSite(outcome.SiteID, "scrape", outcome.Err)
			continue
		}

		if err := o.ingestSite(ctx, outcome, runID); err != nil {
			o.quarantineSite(outcome.SiteID, "dedup", err)
			continue
		}

		o.run.SitesSucceeded++
		if err := o.ckpt.MarkSiteScraped(outcome.SiteID); err != nil {
			return fmt.Errorf("failed to checkpoint site %s: %w", outcome.SiteID, err)
		}
	}

	// Sites completed before a crash still count as succeeded
	if resumedSites := len(o.sites) - len(pending); resumedSites > 0 {
		o.run.SitesSucceeded += resumedSites
	}

	o.saveRun(ctx)
	o.markStage("scrape")
	return nil
}

// ingestSite normalizes one site's rows, drops previously seen listings and
// inserts the new ones
func (o *Orchestrator) ingestSite(ctx context.Context, outcome scraper.SiteOutcome, runID string) error {
	site := o.siteMap[outcome.SiteID]
	now := time.Now().UTC()

	newJobs := 0
	for _, row := range outcome.Jobs {
		o.run.JobsScraped++

		job := normalizeRow(site, row, runID, now)
		fresh, err := o.storage.Seen().MarkSeen(ctx, job.ID, now)
		if err != nil {
			return fmt.Errorf("seen-hash check failed: %w", err)
		}
		if !fresh {
			continue
		}

		if err := o.storage.Jobs().InsertJob(ctx, job); err != nil {
			return fmt.Errorf("failed to insert job %s: %w", models.ShortID(job.ID), err)
		}
		newJobs++
	}

	o.run.JobsNew += newJobs
	o.logger.Info().
		Str("site_id", outcome.SiteID).
		Int("listings", len(outcome.Jobs)).
		Int("new", newJobs).
		Msg("Site ingested")
	return nil
}

// normalizeRow converts a raw scraped row into the immutable Job entity
func normalizeRow(site *config.SiteConfig, row scraper.Row, runID string, now time.Time) *models.Job {
	country := row["country"]
	if country == "" && site != nil {
		country = site.Country
	}
	siteID := ""
	if site != nil {
		siteID = site.SiteID
	}

	return &models.Job{
		ID:           models.NewJobID(row["title"], row["company"], row["location"]),
		SiteID:       siteID,
		Title:        row["title"],
		Company:      row["company"],
		Location:     row["location"],
		Country:      country,
		URL:          row["url"],
		Salary:       row["salary"],
		Description:  row["description"],
		Requirements: row["requirements"],
		PostedDate:   row["posted_date"],
		ScrapedAt:    now,
		RunID:        runID,
	}
}

// keywordFilterStage drops jobs failing the three-rule keyword test.
// Recomputed on every run; rejection is cheap and deterministic.
func (o *Orchestrator) keywordFilterStage(jobs []*models.Job) []*models.Job {
	var accepted []*models.Job
	rejected := 0

	for _, job := range jobs {
		site := o.siteMap[job.SiteID]
		var siteKeywords *config.SiteKeywords
		if site != nil {
			siteKeywords = site.Keywords
		}

		keywords := config.EffectiveKeywords(o.config.Keywords, siteKeywords)
		ok, reason := FilterByKeywords(job, keywords)
		if !ok {
			rejected++
			o.logger.Debug().
				Str("job_id", models.ShortID(job.ID)).
				Str("title", job.Title).
				Str("reason", reason).
				Msg("Job rejected by keyword filter")
			continue
		}
		accepted = append(accepted, job)
	}

	o.run.JobsFilteredOut = rejected
	o.logger.Info().Int("accepted", len(accepted)).Int("rejected", rejected).Msg("Keyword filter applied")
	return accepted
}

// scoreStage scores every filtered job not already scored. Model failures
// quarantine the job for a later run; its score is simply absent.
func (o *Orchestrator) scoreStage(ctx context.Context, jobs []*models.Job) map[string]*models.ScoredJob {
	scored := make(map[string]*models.ScoredJob, len(jobs))

	for _, job := range jobs {
		if o.ckpt.JobScored(job.ID) {
			if stored, err := o.storage.Scores().GetScore(ctx, job.ID); err == nil && stored != nil {
				scored[job.ID] = stored
			}
			continue
		}

		result := o.scoreOne(ctx, job)
		if result == nil {
			continue
		}

		if err := o.storage.Scores().InsertScore(ctx, result); err != nil {
			o.quarantineJob(job.ID, "score", err)
			continue
		}
		if err := o.ckpt.MarkJobScored(job.ID); err != nil {
			o.quarantineJob(job.ID, "score", err)
			continue
		}

		scored[job.ID] = result
		o.run.JobsScored++
		o.run.AddProvider(result.Provider)

		o.logger.Info().
			Str("job_id", models.ShortID(job.ID)).
			Str("title", job.Title).
			Int("score", result.Score).
			Str("provider", result.Provider).
			Msg("Job scored")
	}
	return scored
}

// scoreOne isolates a single scoring call, including panics
func (o *Orchestrator) scoreOne(ctx context.Context, job *models.Job) (result *models.ScoredJob) {
	defer func() {
		if r := recover(); r != nil {
			o.quarantineJob(job.ID, "score", fmt.Errorf("panic: %v", r))
			result = nil
		}
	}()

	result, err := o.scorer.Score(ctx, job)
	if err != nil {
		o.quarantineJob(job.ID, "score", err)
		return nil
	}
	return result
}

// tailorStage generates resumes for jobs at or above the scoring threshold
func (o *Orchestrator) tailorStage(ctx context.Context, jobs []*models.Job, scored map[string]*models.ScoredJob, runID string) map[string]*models.TailoredResume {
	resumes := make(map[string]*models.TailoredResume)
	o.run.JobsAboveThreshold = 0

	for _, job := range jobs {
		score, ok := scored[job.ID]
		if !ok || score.Score < o.config.Scoring.Threshold {
			continue
		}
		o.run.JobsAboveThreshold++

		if o.ckpt.JobTailored(job.ID) {
			if stored, err := o.storage.Resumes().GetResume(ctx, job.ID); err == nil && stored != nil {
				resumes[job.ID] = stored
			}
			continue
		}

		record := o.tailorOne(ctx, job, runID)
		if record != nil {
			if err := o.storage.Resumes().InsertResume(ctx, record); err != nil {
				o.quarantineJob(job.ID, "tailor", err)
				continue
			}
			resumes[job.ID] = record
			o.run.ResumesGenerated++
		}

		// Marked even when tailoring failed: the job was handled, the
		// notification goes out without an attachment
		if err := o.ckpt.MarkJobTailored(job.ID); err != nil {
			o.quarantineJob(job.ID, "tailor", err)
		}
	}
	return resumes
}

// tailorOne isolates a single tailor+verify cycle. Returns nil when the job
// gets no resume.
func (o *Orchestrator) tailorOne(ctx context.Context, job *models.Job, runID string) (record *models.TailoredResume) {
	defer func() {
		if r := recover(); r != nil {
			o.quarantineJob(job.ID, "tailor", fmt.Errorf("panic: %v", r))
			record = nil
		}
	}()

	record, err := o.tailor.Tailor(ctx, job, runID)
	if err != nil {
		stage := "tailor"
		if errors.Is(err, resume.ErrVerificationFailed) {
			stage = "verify"
		}
		o.quarantineJob(job.ID, stage, err)
		return nil
	}
	return record
}

// notifyStage creates the Application record for each match and routes every
// scored job into its notification band
func (o *Orchestrator) notifyStage(ctx context.Context, jobs []*models.Job, scored map[string]*models.ScoredJob, resumes map[string]*models.TailoredResume, runID string) {
	for _, job := range jobs {
		score, ok := scored[job.ID]
		if !ok {
			continue
		}
		if o.ckpt.JobNotified(job.ID) {
			continue
		}

		if score.Score >= o.config.Scoring.Threshold {
			o.createApplication(ctx, job, resumes[job.ID])
		}

		pdfPath := ""
		if record := resumes[job.ID]; record != nil && record.Verified {
			pdfPath = record.PDFPath
		}

		record, err := o.notifier.Route(ctx, job, score, pdfPath, runID)
		if err != nil {
			o.quarantineJob(job.ID, "notify", err)
			continue
		}
		if record != nil && record.TelegramSent {
			o.run.NotificationsSent++
		}

		if err := o.ckpt.MarkJobNotified(job.ID); err != nil {
			o.quarantineJob(job.ID, "notify", err)
		}
	}

	o.notifier.FlushDigest(ctx)
}

// createApplication records the match in the application tracker. Insert-once
// per job; reruns are no-ops.
func (o *Orchestrator) createApplication(ctx context.Context, job *models.Job, resumeRecord *models.TailoredResume) {
	app := &models.Application{
		ID:            uuid.New().String(),
		JobID:         job.ID,
		Company:       job.Company,
		Role:          job.Title,
		Country:       job.Country,
		Status:        models.StatusMatched,
		StatusUpdated: time.Now().UTC(),
		SourceSite:    job.SiteID,
	}
	if resumeRecord != nil {
		app.ResumeVersion = resumeRecord.PDFPath
	}

	if err := o.storage.Applications().InsertApplication(ctx, app); err != nil {
		o.logger.Warn().Str("job_id", models.ShortID(job.ID)).Err(err).Msg("Failed to record application")
	}
}

// finalize completes the run record, sends the health alert when anything was
// quarantined, and flips the checkpoint to completed
func (o *Orchestrator) finalize(ctx context.Context) error {
	now := time.Now().UTC()
	o.run.CompletedAt = &now
	o.run.Status = models.RunStatusCompleted
	o.saveRun(ctx)

	if len(o.run.SitesFailed) > 0 || len(o.run.Errors) > 0 {
		if err := o.messenger.SendHealthAlert(ctx, o.healthSummary()); err != nil {
			o.logger.Warn().Err(err).Msg("Health alert failed")
		}
	}

	if err := o.ckpt.Complete(); err != nil {
		return fmt.Errorf("failed to complete checkpoint: %w", err)
	}

	o.logger.Info().
		Str("run_id", o.run.RunID).
		Int("jobs_scraped", o.run.JobsScraped).
		Int("jobs_new", o.run.JobsNew).
		Int("jobs_scored", o.run.JobsScored).
		Int("resumes", o.run.ResumesGenerated).
		Int("notified", o.run.NotificationsSent).
		Int("sites_failed", len(o.run.SitesFailed)).
		Int("errors", len(o.run.Errors)).
		Msg("Pipeline run completed")
	return nil
}

// healthSummary formats the end-of-run alert text
func (o *Orchestrator) healthSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished with problems.\n", models.ShortID(o.run.RunID))
	if len(o.run.SitesFailed) > 0 {
		fmt.Fprintf(&b, "\nSites failed (%d):\n", len(o.run.SitesFailed))
		for _, failure := range o.run.SitesFailed {
			fmt.Fprintf(&b, "- %s [%s]: %s\n", failure.Site, failure.Stage, failure.Error)
		}
	}
	if len(o.run.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(o.run.Errors))
		for _, msg := range o.run.Errors {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}
	return b.String()
}

// recordCrash marks the run crashed and fires an immediate alert
func (o *Orchestrator) recordCrash(cause error) {
	if o.run == nil {
		return
	}

	o.run.Status = models.RunStatusCrashed
	o.run.AddError(cause.Error())

	// Use a fresh context: the original may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	o.saveRun(ctx)
	alert := fmt.Sprintf("Pipeline run %s crashed: %v", models.ShortID(o.run.RunID), cause)
	if err := o.messenger.SendHealthAlert(ctx, alert); err != nil {
		o.logger.Warn().Err(err).Msg("Crash alert failed")
	}
}

// quarantineSite records a per-site failure without aborting the run
func (o *Orchestrator) quarantineSite(siteID, stage string, err error) {
	o.logger.Error().
		Str("site_id", siteID).
		Str("stage", stage).
		Err(err).
		Msg("Site quarantined")
	o.run.SitesFailed = append(o.run.SitesFailed, models.SiteFailure{
		Site:  siteID,
		Stage: stage,
		Error: err.Error(),
	})
}

// quarantineJob records a per-job failure without aborting the run
func (o *Orchestrator) quarantineJob(jobID, stage string, err error) {
	o.logger.Error().
		Str("job_id", models.ShortID(jobID)).
		Str("stage", stage).
		Err(err).
		Msg("Job quarantined")
	o.run.AddError(fmt.Sprintf("%s %s: %v", stage, models.ShortID(jobID), err))
}

// markStage checkpoints stage completion; a checkpoint write failure here is
// logged, not fatal, since per-item checkpoints carry the resume semantics
func (o *Orchestrator) markStage(stage string) {
	if err := o.ckpt.MarkStageCompleted(stage); err != nil {
		o.logger.Warn().Str("stage", stage).Err(err).Msg("Failed to checkpoint stage")
	}
}

// saveRun persists the current run snapshot
func (o *Orchestrator) saveRun(ctx context.Context) {
	if err := o.storage.Runs().SaveRun(ctx, o.run); err != nil {
		o.logger.Warn().Str("run_id", o.run.RunID).Err(err).Msg("Failed to save run record")
	}
}

// Package scorer asks the model chain to rate how well a job listing matches
// the master resume, producing a 0-100 score with reasoning.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/llm"
	"github.com/ternarybob/jobhunter/internal/models"
)

const defaultCharBudget = 8000

const scoreSystemPrompt = `You are a job-match evaluator. Given a candidate resume and a job listing, rate the match from 0 (no fit) to 100 (perfect fit). Respond with ONLY a JSON object of the form {"score": <int>, "reasoning": "<one short paragraph>", "concerns": "<optional, omit if none>"}.`

// scoreReply is the JSON shape the model is asked to return
type scoreReply struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	Concerns  string `json:"concerns"`
}

// Service scores jobs against the master resume
type Service struct {
	config     *common.ScoringConfig
	client     interfaces.ModelClient
	resumeText string
	logger     arbor.ILogger
}

// NewService creates the scoring service
func NewService(cfg *common.ScoringConfig, client interfaces.ModelClient, resumeText string, logger arbor.ILogger) *Service {
	return &Service{
		config:     cfg,
		client:     client,
		resumeText: resumeText,
		logger:     logger,
	}
}

// Score rates one job against the resume. Returns an error when every model
// provider failed or the reply could not be interpreted; the caller decides
// whether to quarantine the job for a later run.
func (s *Service) Score(ctx context.Context, job *models.Job) (*models.ScoredJob, error) {
	req := &interfaces.CompletionRequest{
		JSONMode: true,
		Messages: []interfaces.Message{
			{Role: "system", Content: scoreSystemPrompt},
			{Role: "user", Content: s.buildPrompt(job)},
		},
	}

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scoring %s: %w", models.ShortID(job.ID), err)
	}

	var reply scoreReply
	if err := json.Unmarshal([]byte(llm.StripFences(resp.Content)), &reply); err != nil {
		return nil, fmt.Errorf("scoring %s: failed to parse model reply: %w", models.ShortID(job.ID), err)
	}

	score, clamped := models.ClampScore(reply.Score)
	if clamped {
		s.logger.Warn().
			Str("job_id", models.ShortID(job.ID)).
			Int("raw_score", reply.Score).
			Int("score", score).
			Msg("Model score out of range, clamped")
	}

	reasoning := strings.TrimSpace(reply.Reasoning)
	if concerns := strings.TrimSpace(reply.Concerns); concerns != "" {
		reasoning += "\nConcerns: " + concerns
	}

	return &models.ScoredJob{
		JobID:     job.ID,
		Score:     score,
		Reasoning: reasoning,
		Provider:  resp.Provider,
		ScoredAt:  time.Now().UTC(),
	}, nil
}

// buildPrompt assembles the user message: resume, weight breakdown, then the
// job text truncated to the character budget.
func (s *Service) buildPrompt(job *models.Job) string {
	var b strings.Builder

	b.WriteString("CANDIDATE RESUME:\n")
	b.WriteString(s.resumeText)
	b.WriteString("\n\n")

	if len(s.config.Weights) > 0 {
		b.WriteString("Weight the evaluation as follows:\n")
		for name, weight := range s.config.Weights {
			fmt.Fprintf(&b, "- %s: %.0f%%\n", name, weight*100)
		}
		b.WriteString("\n")
	}

	b.WriteString("JOB LISTING:\n")
	b.WriteString(s.truncateJobText(job))
	return b.String()
}

// truncateJobText renders the job and cuts it to the configured budget so
// oversized descriptions cannot blow the model context.
func (s *Service) truncateJobText(job *models.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\nLocation: %s\n", job.Title, job.Company, job.Location)
	if job.Salary != "" {
		fmt.Fprintf(&b, "Salary: %s\n", job.Salary)
	}
	if job.PostedDate != "" {
		fmt.Fprintf(&b, "Posted: %s\n", job.PostedDate)
	}
	if job.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", job.Description)
	}
	if job.Requirements != "" {
		fmt.Fprintf(&b, "\nRequirements:\n%s\n", job.Requirements)
	}

	text := b.String()
	budget := s.config.CharBudget
	if budget <= 0 {
		budget = defaultCharBudget
	}
	if len(text) > budget {
		s.logger.Debug().
			Str("job_id", models.ShortID(job.ID)).
			Int("length", len(text)).
			Int("budget", budget).
			Msg("Job text truncated for scoring prompt")
		text = text[:budget]
	}
	return text
}

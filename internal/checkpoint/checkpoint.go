// Package checkpoint persists crash-resumable pipeline state as a single JSON
// document. Every mutation is an atomic rewrite (write to temp file, rename)
// so the last successful checkpoint always survives abrupt termination.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
)

// Status values for a checkpoint
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// State is the durable record of stage completion plus per-item progress
type State struct {
	RunID           string    `json:"run_id"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
	CompletedStages []string  `json:"completed_stages"`
	ScrapedSites    []string  `json:"scraped_sites"`
	ScoredJobs      []string  `json:"scored_jobs"`
	TailoredJobs    []string  `json:"tailored_jobs"`
	NotifiedJobs    []string  `json:"notified_jobs"`
}

// Log manages the checkpoint file. Written only from the orchestrator
// goroutine; not safe for concurrent writers.
type Log struct {
	path   string
	state  *State
	logger arbor.ILogger
}

// Open loads the checkpoint file at dir/last_run.json. A missing file yields
// a Log with no state; a corrupt file is treated the same with a warning.
func Open(dir string, logger arbor.ILogger) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	l := &Log{
		path:   filepath.Join(dir, "last_run.json"),
		logger: logger,
	}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn().Err(err).Str("path", l.path).Msg("Checkpoint file unreadable, starting fresh")
		return l, nil
	}

	l.state = &state
	return l, nil
}

// Resumable reports whether the previous run crashed mid-flight
func (l *Log) Resumable() bool {
	return l.state != nil && l.state.Status == StatusRunning
}

// State returns the loaded state, or nil when none exists
func (l *Log) State() *State {
	return l.state
}

// Begin starts a fresh checkpoint for runID, replacing any prior state
func (l *Log) Begin(runID string) error {
	now := time.Now().UTC()
	l.state = &State{
		RunID:           runID,
		Status:          StatusRunning,
		StartedAt:       now,
		UpdatedAt:       now,
		CompletedStages: []string{},
		ScrapedSites:    []string{},
		ScoredJobs:      []string{},
		TailoredJobs:    []string{},
		NotifiedJobs:    []string{},
	}
	return l.flush()
}

// StageCompleted reports whether the named stage finished in the current run
func (l *Log) StageCompleted(stage string) bool {
	return l.state != nil && contains(l.state.CompletedStages, stage)
}

// MarkStageCompleted records stage completion
func (l *Log) MarkStageCompleted(stage string) error {
	if !contains(l.state.CompletedStages, stage) {
		l.state.CompletedStages = append(l.state.CompletedStages, stage)
	}
	return l.flush()
}

// SiteScraped reports whether a site completed scraping this run
func (l *Log) SiteScraped(siteID string) bool {
	return l.state != nil && contains(l.state.ScrapedSites, siteID)
}

// MarkSiteScraped records per-site scrape completion
func (l *Log) MarkSiteScraped(siteID string) error {
	if !contains(l.state.ScrapedSites, siteID) {
		l.state.ScrapedSites = append(l.state.ScrapedSites, siteID)
	}
	return l.flush()
}

// JobScored reports whether a job was scored this run
func (l *Log) JobScored(jobID string) bool {
	return l.state != nil && contains(l.state.ScoredJobs, jobID)
}

// MarkJobScored records per-job scoring completion
func (l *Log) MarkJobScored(jobID string) error {
	if !contains(l.state.ScoredJobs, jobID) {
		l.state.ScoredJobs = append(l.state.ScoredJobs, jobID)
	}
	return l.flush()
}

// JobTailored reports whether a job's resume was handled this run
func (l *Log) JobTailored(jobID string) bool {
	return l.state != nil && contains(l.state.TailoredJobs, jobID)
}

// MarkJobTailored records per-job tailoring completion
func (l *Log) MarkJobTailored(jobID string) error {
	if !contains(l.state.TailoredJobs, jobID) {
		l.state.TailoredJobs = append(l.state.TailoredJobs, jobID)
	}
	return l.flush()
}

// JobNotified reports whether a job was notified this run
func (l *Log) JobNotified(jobID string) bool {
	return l.state != nil && contains(l.state.NotifiedJobs, jobID)
}

// MarkJobNotified records per-job notification completion
func (l *Log) MarkJobNotified(jobID string) error {
	if !contains(l.state.NotifiedJobs, jobID) {
		l.state.NotifiedJobs = append(l.state.NotifiedJobs, jobID)
	}
	return l.flush()
}

// Complete flips the checkpoint to completed
func (l *Log) Complete() error {
	l.state.Status = StatusCompleted
	l.state.CompletedAt = time.Now().UTC()
	return l.flush()
}

// flush atomically rewrites the checkpoint file
func (l *Log) flush() error {
	l.state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

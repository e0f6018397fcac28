package models

import "time"

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCrashed   RunStatus = "crashed"
)

// SiteFailure records a quarantined per-site error
type SiteFailure struct {
	Site  string `json:"site"`
	Error string `json:"error"`
	Stage string `json:"stage"`
}

// PipelineRun aggregates statistics and errors for one pipeline invocation
type PipelineRun struct {
	RunID              string        `json:"run_id"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	Status             RunStatus     `json:"status"`
	SitesAttempted     int           `json:"sites_attempted"`
	SitesSucceeded     int           `json:"sites_succeeded"`
	SitesFailed        []SiteFailure `json:"sites_failed"`
	JobsScraped        int           `json:"jobs_scraped"`
	JobsNew            int           `json:"jobs_new"`
	JobsFilteredOut    int           `json:"jobs_filtered_out"`
	JobsScored         int           `json:"jobs_scored"`
	JobsAboveThreshold int           `json:"jobs_above_threshold"`
	ResumesGenerated   int           `json:"resumes_generated"`
	NotificationsSent  int           `json:"notifications_sent"`
	Errors             []string      `json:"errors"`
	LLMProvidersUsed   []string      `json:"llm_providers_used"`
}

// AddError appends a quarantined error to the run
func (r *PipelineRun) AddError(err string) {
	r.Errors = append(r.Errors, err)
}

// AddProvider records an LLM provider tag once
func (r *PipelineRun) AddProvider(provider string) {
	if provider == "" {
		return
	}
	for _, p := range r.LLMProvidersUsed {
		if p == provider {
			return
		}
	}
	r.LLMProvidersUsed = append(r.LLMProvidersUsed, provider)
}

package models

import "time"

// ScoredJob records the LLM match score for a job. At most one per job.
type ScoredJob struct {
	JobID     string    `json:"job_id"`
	Score     int       `json:"score"` // Clamped to [0,100]
	Reasoning string    `json:"reasoning"`
	Provider  string    `json:"provider"` // Model endpoint that produced the score
	ScoredAt  time.Time `json:"scored_at"`
}

// ClampScore bounds a raw model score to the valid [0,100] range.
// Returns the clamped value and whether clamping was applied.
func ClampScore(raw int) (int, bool) {
	if raw < 0 {
		return 0, true
	}
	if raw > 100 {
		return 100, true
	}
	return raw, false
}

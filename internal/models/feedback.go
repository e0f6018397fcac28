package models

import "time"

// FeedbackAction is the user's reaction to a notified match
type FeedbackAction string

const (
	FeedbackApplied     FeedbackAction = "applied"
	FeedbackSkipped     FeedbackAction = "skipped"
	FeedbackNotRelevant FeedbackAction = "not_relevant"
)

// Feedback is an append-only record of a user reaction
type Feedback struct {
	JobID     string         `json:"job_id"`
	Score     int            `json:"score"`
	Action    FeedbackAction `json:"action"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

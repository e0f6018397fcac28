package models

import "time"

// NotificationChannel identifies how a match was routed
type NotificationChannel string

const (
	ChannelInstant NotificationChannel = "instant"
	ChannelDigest  NotificationChannel = "digest"
	ChannelLogOnly NotificationChannel = "log"
)

// Notification records the routing outcome for one scored job.
// At most one per job.
type Notification struct {
	JobID        string              `json:"job_id"`
	Channel      NotificationChannel `json:"channel"`
	TelegramSent bool                `json:"telegram_sent"`
	SentAt       time.Time           `json:"sent_at"`
	RunID        string              `json:"run_id"`
}

// SeenHash marks a job id as previously encountered. Inserted exactly once.
type SeenHash struct {
	Hash        string    `json:"hash"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

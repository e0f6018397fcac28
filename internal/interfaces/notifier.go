package interfaces

import (
	"context"

	"github.com/ternarybob/jobhunter/internal/models"
)

// MatchMessage is everything needed to notify the user about one match
type MatchMessage struct {
	Job               *models.Job
	Score             *models.ScoredJob
	PDFPath           string // Empty when no verified resume exists
	PriorApplications []*models.Application
}

// FeedbackEvent is one parsed button press from the messaging transport
type FeedbackEvent struct {
	Action models.FeedbackAction
	JobID  string
}

// Messenger is the synchronous facade over the chat-bot transport
type Messenger interface {
	SendMatch(ctx context.Context, msg *MatchMessage) error
	SendHealthAlert(ctx context.Context, text string) error
	PollFeedback(ctx context.Context) ([]FeedbackEvent, error)
	Enabled() bool
}

// DigestMailer sends the end-of-run digest mail. Best-effort.
type DigestMailer interface {
	SendDigest(ctx context.Context, matches []*MatchMessage) error
	Enabled() bool
}

package scraper

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// Transient page failures (network errors, non-2xx, page-level extraction
// failures) are retried on a fixed backoff schedule; after the last delay the
// site is aborted and quarantined.
var defaultRetrySchedule = []time.Duration{time.Second, 3 * time.Second, 10 * time.Second}

// withRetries runs fn up to len(schedule)+1 times, sleeping between attempts
func withRetries(ctx context.Context, logger arbor.ILogger, schedule []time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt >= len(schedule) {
			break
		}

		delay := schedule[attempt]
		logger.Debug().
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.Warn().
		Int("attempts", len(schedule)+1).
		Err(lastErr).
		Msg("All retry attempts exhausted")
	return lastErr
}

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Job represents a single normalized job listing. Immutable after insert.
type Job struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"site_id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	Country      string    `json:"country"`
	URL          string    `json:"url"`
	Salary       string    `json:"salary,omitempty"`
	Description  string    `json:"description,omitempty"`
	Requirements string    `json:"requirements,omitempty"`
	PostedDate   string    `json:"posted_date,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	RunID        string    `json:"run_id"`
}

// NewJobID derives the deterministic job identifier from title, company and
// location: lowercase, punctuation stripped, whitespace collapsed, then
// sha256-hashed. Stable across runs so previously seen listings hash to the
// same id regardless of casing or spacing.
func NewJobID(title, company, location string) string {
	key := normalizeIDPart(title) + "|" + normalizeIDPart(company) + "|" + normalizeIDPart(location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func normalizeIDPart(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ShortID returns the leading prefix of a job id used in filenames
func ShortID(jobID string) string {
	if len(jobID) <= 8 {
		return jobID
	}
	return jobID[:8]
}

package models

import "time"

// TailoredResume records a generated resume for a job. At most one per job;
// Verified implies VerificationIssues is empty.
type TailoredResume struct {
	JobID              string    `json:"job_id"`
	HTMLPath           string    `json:"html_path"`
	PDFPath            string    `json:"pdf_path"`
	Verified           bool      `json:"verified"`
	VerificationIssues []string  `json:"verification_issues"`
	GeneratedAt        time.Time `json:"generated_at"`
	RunID              string    `json:"run_id"`
}

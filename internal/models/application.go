package models

import "time"

// ApplicationStatus is the lifecycle state of a job application
type ApplicationStatus string

const (
	StatusMatched     ApplicationStatus = "matched"
	StatusApplied     ApplicationStatus = "applied"
	StatusPhoneScreen ApplicationStatus = "phone_screen"
	StatusInterview   ApplicationStatus = "interview"
	StatusOffer       ApplicationStatus = "offer"
	StatusRejected    ApplicationStatus = "rejected"
	StatusWithdrawn   ApplicationStatus = "withdrawn"
	StatusExpired     ApplicationStatus = "expired"
)

// Application tracks a pipeline match through the application lifecycle.
// Created in "matched" state by the pipeline; transitions come from user
// feedback or manual tooling.
type Application struct {
	ID            string            `json:"id"`
	JobID         string            `json:"job_id"`
	Company       string            `json:"company"`
	Role          string            `json:"role"`
	Country       string            `json:"country"`
	AppliedDate   *time.Time        `json:"applied_date,omitempty"`
	ResumeVersion string            `json:"resume_version,omitempty"`
	Status        ApplicationStatus `json:"status"`
	StatusUpdated time.Time         `json:"status_updated"`
	Notes         string            `json:"notes,omitempty"`
	SourceSite    string            `json:"source_site"`
}

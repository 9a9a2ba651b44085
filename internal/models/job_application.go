package models

import "time"

// Job application states.
const (
	ApplicationStatusPending  = "PENDING"
	ApplicationStatusAccepted = "ACCEPTED"
	ApplicationStatusRejected = "REJECTED"
)

// JobApplication represents a developer applying to a job posting.
// Unique per (posting, applicant).
type JobApplication struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	JobPostingID uint      `json:"job_posting_id" gorm:"index;uniqueIndex:idx_posting_applicant"`
	ApplicantID  uint      `json:"applicant_id" gorm:"index;uniqueIndex:idx_posting_applicant"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status" gorm:"size:20;default:PENDING"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateJobApplicationRequest defines the request body for applying to a job
type CreateJobApplicationRequest struct {
	Message string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

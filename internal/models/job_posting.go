package models

import "time"

// Job posting lifecycle states.
const (
	JobStatusOpen     = "OPEN"
	JobStatusDisabled = "DISABLED"
	JobStatusFilled   = "FILLED"
)

// JobPosting represents a job offer published by a recruiter
type JobPosting struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Budget       float64   `json:"budget"`
	Deadline     time.Time `json:"deadline"`
	TechRequired []string  `json:"tech_required" gorm:"serializer:json"`
	Category     string    `json:"category" gorm:"size:50;index"`
	Status       string    `json:"status" gorm:"size:20;index;default:OPEN"`
	JobAuthorID  uint      `json:"job_author_id" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Applicants []JobApplication `json:"applicants,omitempty" gorm:"foreignKey:JobPostingID"`
}

// CreateJobPostingRequest defines the request body for publishing a job
type CreateJobPostingRequest struct {
	Title        string    `json:"title" validate:"required,min=3,max=120"`
	Description  string    `json:"description" validate:"required,min=10,max=5000"`
	Budget       float64   `json:"budget" validate:"required,gt=0"`
	Deadline     time.Time `json:"deadline" validate:"required"`
	TechRequired []string  `json:"tech_required" validate:"required,min=1,dive,min=1"`
	Category     string    `json:"category" validate:"required,min=2,max=50"`
}

// UpdateJobPostingRequest defines the request body for editing a job
type UpdateJobPostingRequest struct {
	Title        string    `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	Description  string    `json:"description,omitempty" validate:"omitempty,min=10,max=5000"`
	Budget       float64   `json:"budget,omitempty" validate:"omitempty,gt=0"`
	Deadline     time.Time `json:"deadline,omitempty"`
	TechRequired []string  `json:"tech_required,omitempty" validate:"omitempty,min=1,dive,min=1"`
	Category     string    `json:"category,omitempty" validate:"omitempty,min=2,max=50"`
}

// JobPostingFilter carries the list-query parameters. Its canonical encoding
// doubles as the cache key suffix for the listing read.
type JobPostingFilter struct {
	Category  string
	Status    string
	Search    string
	SortBy    string // budget | created_at
	SortOrder string // asc | desc
	Page      int
	Limit     int
}

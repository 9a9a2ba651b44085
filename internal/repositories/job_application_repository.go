package repositories

import (
	"errors"

	"github.com/devlinkhq/backend/internal/apperrors"
	"github.com/devlinkhq/backend/internal/models"
	"gorm.io/gorm"
)

// JobApplicationRepository defines the interface for job application
// operations
type JobApplicationRepository interface {
	Apply(application *models.JobApplication) error
	GetApplicationByID(id uint) (*models.JobApplication, error)
	GetApplicantsByPosting(postingID uint) ([]models.JobApplication, error)
	GetApplicationsByApplicant(applicantID uint) ([]models.JobApplication, error)
	HasApplied(postingID, applicantID uint) (bool, error)
	UpdateStatus(id uint, status string) error
}

// PostgresJobApplicationRepository implements JobApplicationRepository for
// PostgreSQL
type PostgresJobApplicationRepository struct {
	db *gorm.DB
}

// NewPostgresJobApplicationRepository creates a new
// PostgresJobApplicationRepository
func NewPostgresJobApplicationRepository(db *gorm.DB) *PostgresJobApplicationRepository {
	return &PostgresJobApplicationRepository{db: db}
}

// Apply records a developer's application. The unique index on
// (job_posting_id, applicant_id) turns a duplicate apply into Conflict.
func (r *PostgresJobApplicationRepository) Apply(application *models.JobApplication) error {
	if err := r.db.Create(application).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("already applied to job posting %d", application.JobPostingID)
		}
		return err
	}
	return nil
}

func (r *PostgresJobApplicationRepository) GetApplicationByID(id uint) (*models.JobApplication, error) {
	var application models.JobApplication
	if err := r.db.First(&application, id).Error; err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *PostgresJobApplicationRepository) GetApplicantsByPosting(postingID uint) ([]models.JobApplication, error) {
	var applications []models.JobApplication
	err := r.db.Where("job_posting_id = ?", postingID).
		Order("created_at DESC").
		Find(&applications).Error
	return applications, err
}

// GetApplicationsByApplicant lists everything a developer has applied to,
// newest first
func (r *PostgresJobApplicationRepository) GetApplicationsByApplicant(applicantID uint) ([]models.JobApplication, error) {
	var applications []models.JobApplication
	err := r.db.Where("applicant_id = ?", applicantID).
		Order("created_at DESC").
		Find(&applications).Error
	return applications, err
}

func (r *PostgresJobApplicationRepository) HasApplied(postingID, applicantID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.JobApplication{}).
		Where("job_posting_id = ? AND applicant_id = ?", postingID, applicantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresJobApplicationRepository) UpdateStatus(id uint, status string) error {
	res := r.db.Model(&models.JobApplication{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("job application %d not found", id)
	}
	return nil
}

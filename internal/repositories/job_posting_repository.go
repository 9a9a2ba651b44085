package repositories

import (
	"github.com/devlinkhq/backend/internal/models"
	"gorm.io/gorm"
)

// JobPostingRepository defines the interface for job posting operations
type JobPostingRepository interface {
	CreateJobPosting(posting *models.JobPosting) error
	GetJobPostingByID(id uint) (*models.JobPosting, error)
	GetJobPostings(filter models.JobPostingFilter) ([]models.JobPosting, int64, error)
	GetJobPostingsByAuthor(authorID uint) ([]models.JobPosting, error)
	UpdateJobPosting(posting *models.JobPosting) error
	DeleteJobPosting(id uint) error
	SwitchStatus(id uint, status string) error
}

// PostgresJobPostingRepository implements JobPostingRepository for PostgreSQL
type PostgresJobPostingRepository struct {
	db *gorm.DB
}

// NewPostgresJobPostingRepository creates a new PostgresJobPostingRepository
func NewPostgresJobPostingRepository(db *gorm.DB) *PostgresJobPostingRepository {
	return &PostgresJobPostingRepository{db: db}
}

func (r *PostgresJobPostingRepository) CreateJobPosting(posting *models.JobPosting) error {
	return r.db.Create(posting).Error
}

func (r *PostgresJobPostingRepository) GetJobPostingByID(id uint) (*models.JobPosting, error) {
	var posting models.JobPosting
	if err := r.db.Preload("Applicants").First(&posting, id).Error; err != nil {
		return nil, err
	}
	return &posting, nil
}

// GetJobPostings lists postings matching the filter, with the total count
// before pagination.
func (r *PostgresJobPostingRepository) GetJobPostings(filter models.JobPostingFilter) ([]models.JobPosting, int64, error) {
	q := r.db.Model(&models.JobPosting{})

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "budget":
		q = q.Order("budget " + sortDirection(filter.SortOrder))
	default:
		q = q.Order("created_at " + sortDirection(filter.SortOrder))
	}

	if filter.Limit > 0 {
		offset := (filter.Page - 1) * filter.Limit
		if offset > 0 {
			q = q.Offset(offset)
		}
		q = q.Limit(filter.Limit)
	}

	var postings []models.JobPosting
	if err := q.Find(&postings).Error; err != nil {
		return nil, 0, err
	}
	return postings, total, nil
}

// GetJobPostingsByAuthor lists the postings published by a recruiter,
// newest first
func (r *PostgresJobPostingRepository) GetJobPostingsByAuthor(authorID uint) ([]models.JobPosting, error) {
	var postings []models.JobPosting
	err := r.db.Where("job_author_id = ?", authorID).
		Order("created_at DESC").
		Find(&postings).Error
	return postings, err
}

func (r *PostgresJobPostingRepository) UpdateJobPosting(posting *models.JobPosting) error {
	return r.db.Save(posting).Error
}

func (r *PostgresJobPostingRepository) DeleteJobPosting(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_posting_id = ?", id).Delete(&models.JobApplication{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.JobPosting{}, id).Error
	})
}

func (r *PostgresJobPostingRepository) SwitchStatus(id uint, status string) error {
	return r.db.Model(&models.JobPosting{}).Where("id = ?", id).Update("status", status).Error
}

func sortDirection(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}

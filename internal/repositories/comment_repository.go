package repositories

import (
	"github.com/devlinkhq/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentByID(id uint) (*models.Comment, error)
	GetCommentsByPostID(postID uint, page, limit int) ([]models.Comment, int64, error)
	GetCommentsByAuthor(authorID uint) ([]models.Comment, error)
	UpdateComment(comment *models.Comment) error
	DeleteComment(id uint) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *PostgresCommentRepository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) GetCommentsByPostID(postID uint, page, limit int) ([]models.Comment, int64, error) {
	var comments []models.Comment
	var total int64

	if err := r.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.Where("post_id = ?", postID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	return comments, total, err
}

// GetCommentsByAuthor lists a user's comments, newest first
func (r *PostgresCommentRepository) GetCommentsByAuthor(authorID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) UpdateComment(comment *models.Comment) error {
	return r.db.Save(comment).Error
}

func (r *PostgresCommentRepository) DeleteComment(id uint) error {
	return r.db.Delete(&models.Comment{}, id).Error
}

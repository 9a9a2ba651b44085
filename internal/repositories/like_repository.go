package repositories

import (
	"github.com/devlinkhq/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the read-side interface for likes. Mutations go
// through the engine package.
type LikeRepository interface {
	HasUserLikedPost(userID, postID uint) (bool, error)
	GetLikesCountByPostID(postID uint) (int64, error)
	GetUserLikedPosts(userID uint) ([]models.Post, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetLikesCountByPostID retrieves the count of likes for a specific post
func (r *PostgresLikeRepository) GetLikesCountByPostID(postID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetUserLikedPosts retrieves the posts a user has liked, newest like first
func (r *PostgresLikeRepository) GetUserLikedPosts(userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Where("id IN (?)",
		r.db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", userID),
	).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

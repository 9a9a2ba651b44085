package repositories

import (
	"context"
	"time"

	"github.com/devlinkhq/backend/internal/models"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Like counts
// are engine-owned; this repository never touches them.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetAllPosts(ctx context.Context, skip, limit int) ([]models.Post, int64, error)
	GetPostsByAuthor(ctx context.Context, authorID uint, skip, limit int) ([]models.Post, error)
	GetPostsByAuthors(ctx context.Context, authorIDs []uint, skip, limit int) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
	RecentSince(ctx context.Context, since time.Time, limit int) ([]models.Post, int64, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost creates a new post
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// GetPostByID retrieves a post by ID
func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetAllPosts retrieves a page of posts, newest first, with the total count
func (r *PostgresPostRepository) GetAllPosts(ctx context.Context, skip, limit int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&posts).Error
	return posts, total, err
}

// GetPostsByAuthor retrieves a page of posts by a specific author
func (r *PostgresPostRepository) GetPostsByAuthor(ctx context.Context, authorID uint, skip, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&posts).Error
	return posts, err
}

// GetPostsByAuthors retrieves a page of posts by any of the given authors,
// newest first, with the total count. An empty author set yields an empty
// page.
func (r *PostgresPostRepository) GetPostsByAuthors(ctx context.Context, authorIDs []uint, skip, limit int) ([]models.Post, int64, error) {
	if len(authorIDs) == 0 {
		return nil, 0, nil
	}

	var posts []models.Post
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("author_id IN ?", authorIDs).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).
		Where("author_id IN ?", authorIDs).
		Order("created_at DESC")
	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// UpdatePost updates an existing post
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// DeletePost deletes a post together with its likes and comments. The like
// rows die with the post, so no counter adjustment is needed.
func (r *PostgresPostRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// RecentSince retrieves the newest posts created after the given instant,
// plus how many there are in total. This feeds the notification batcher.
func (r *PostgresPostRepository) RecentSince(ctx context.Context, since time.Time, limit int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("created_at > ?", since).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("created_at > ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, total, err
}

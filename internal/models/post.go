package models

import "time"

// Post represents a feed post. LikeCount is denormalized from the like rows
// and maintained transactionally by the engine package.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uint      `json:"author_id" gorm:"index"`
	Content   string    `json:"content"`
	LikeCount int       `json:"like_count" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

package models

import "time"

// Like represents a like on a post. Unique per (user, post).
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_post"`
	PostID    uint      `json:"post_id" gorm:"index;uniqueIndex:idx_user_post"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import "time"

// Follow represents a directed follower->followee relationship. The composite
// unique index is what turns two concurrent follows of the same pair into a
// detectable conflict instead of a silent double-count.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}

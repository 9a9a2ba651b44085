package models

import "time"

// User roles mirror the two sides of the marketplace.
const (
	RoleDeveloper = "DEVELOPER"
	RoleRecruiter = "RECRUITER"
)

type User struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	ProfilePic  string `json:"profile_pic,omitempty"`
	Role        string `json:"role" gorm:"size:20;default:DEVELOPER"`
	Enabled     bool   `json:"enabled" gorm:"default:true"`

	// Denormalized counters mirroring the follow rows. Only the engine
	// package mutates them, inside the same transaction as the rows.
	FollowersCount int `json:"followers_count" gorm:"not null;default:0"`
	FollowingCount int `json:"following_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest defines the request body for registering a user profile.
// The Firebase UID comes from the verified token, not the body.
type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=50"`
	Email      string `json:"email" validate:"required,email"`
	ProfilePic string `json:"profile_pic,omitempty" validate:"omitempty,url"`
	Role       string `json:"role,omitempty" validate:"omitempty,oneof=DEVELOPER RECRUITER"`
}

// UpdateUserRequest defines the request body for updating a user profile
type UpdateUserRequest struct {
	Name       string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	ProfilePic string `json:"profile_pic,omitempty" validate:"omitempty,url"`
}

// SwitchRoleRequest defines the request body for switching a user's role
type SwitchRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=DEVELOPER RECRUITER"`
}

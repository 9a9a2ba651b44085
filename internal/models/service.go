package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service listing states.
const (
	ServiceStatusActive = "ACTIVE"
	ServiceStatusPaused = "PAUSED"
)

// Service represents a service listing offered by a developer, stored in
// MongoDB. AuthorID references the relational user record.
type Service struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Skills      []string           `json:"skills" bson:"skills"`
	Price       float64            `json:"price" bson:"price"`
	Status      string             `json:"status" bson:"status"`
	AuthorID    uint               `json:"author_id" bson:"author_id"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreateServiceRequest defines the request body for publishing a service
type CreateServiceRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"required,min=10,max=5000"`
	Skills      []string `json:"skills" validate:"required,min=1,dive,min=1"`
	Price       float64  `json:"price" validate:"required,gt=0"`
}

// UpdateServiceRequest defines the request body for editing a service
type UpdateServiceRequest struct {
	Title       string   `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	Description string   `json:"description,omitempty" validate:"omitempty,min=10,max=5000"`
	Skills      []string `json:"skills,omitempty" validate:"omitempty,min=1,dive,min=1"`
	Price       float64  `json:"price,omitempty" validate:"omitempty,gt=0"`
}

// ServiceFilter carries the list-query parameters for service listings.
type ServiceFilter struct {
	Search    string
	SortBy    string // price | created_at
	SortOrder string // asc | desc
	Offset    int
	Limit     int
}

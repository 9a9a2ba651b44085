package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/devlinkhq/backend/internal/apperrors"
	"github.com/devlinkhq/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ServiceRepository defines the interface for service listing operations
type ServiceRepository interface {
	CreateService(ctx context.Context, service *models.Service) error
	GetServiceByID(ctx context.Context, id string) (*models.Service, error)
	GetServices(ctx context.Context, filter models.ServiceFilter) ([]models.Service, int64, error)
	UpdateService(ctx context.Context, id string, service *models.Service) error
	SwitchStatus(ctx context.Context, id string, status string) error
	DeleteService(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID uint) error
}

// MongoServiceRepository implements ServiceRepository for MongoDB
type MongoServiceRepository struct {
	collection *mongo.Collection
}

// NewMongoServiceRepository creates a new MongoServiceRepository
func NewMongoServiceRepository(db *mongo.Database) *MongoServiceRepository {
	return &MongoServiceRepository{collection: db.Collection("services")}
}

// CreateService creates a new service listing in MongoDB
func (r *MongoServiceRepository) CreateService(ctx context.Context, service *models.Service) error {
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt
	if service.Status == "" {
		service.Status = models.ServiceStatusActive
	}

	res, err := r.collection.InsertOne(ctx, service)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		service.ID = oid
	}
	return nil
}

// GetServiceByID retrieves a service listing by its hex ID
func (r *MongoServiceRepository) GetServiceByID(ctx context.Context, id string) (*models.Service, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.InvalidOperation("invalid service id %q", id)
	}

	var service models.Service
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("service %s not found", id)
		}
		return nil, err
	}
	return &service, nil
}

// GetServices lists service listings matching the filter, with the total
// count before pagination
func (r *MongoServiceRepository) GetServices(ctx context.Context, filter models.ServiceFilter) ([]models.Service, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	sortField := "created_at"
	if filter.SortBy == "price" {
		sortField = "price"
	}
	sortDir := -1
	if filter.SortOrder == "asc" {
		sortDir = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: sortDir}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var services []models.Service
	if err := cursor.All(ctx, &services); err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

// UpdateService replaces the mutable fields of a service listing
func (r *MongoServiceRepository) UpdateService(ctx context.Context, id string, service *models.Service) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.InvalidOperation("invalid service id %q", id)
	}

	update := bson.M{"$set": bson.M{
		"title":       service.Title,
		"description": service.Description,
		"skills":      service.Skills,
		"price":       service.Price,
		"updated_at":  time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("service %s not found", id)
	}
	return nil
}

// SwitchStatus toggles a service listing between ACTIVE and PAUSED
func (r *MongoServiceRepository) SwitchStatus(ctx context.Context, id string, status string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.InvalidOperation("invalid service id %q", id)
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("service %s not found", id)
	}
	return nil
}

// DeleteService removes a service listing
func (r *MongoServiceRepository) DeleteService(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.InvalidOperation("invalid service id %q", id)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("service %s not found", id)
	}
	return nil
}

// DeleteByAuthor removes every service listing owned by a user. Called after
// the relational side of a user deletion commits.
func (r *MongoServiceRepository) DeleteByAuthor(ctx context.Context, authorID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"author_id": authorID})
	return err
}

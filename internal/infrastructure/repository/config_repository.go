package repository

import (
	"context"
	"fmt"
	"time"

	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfigRepository implements ConfigRepository using MongoDB. The
// configuration is a singleton: when multiple rows exist, the oldest
// non-deleted one wins.
type MongoConfigRepository struct {
	collection *mongo.Collection
}

// NewMongoConfigRepository creates a new MongoDB config repository.
func NewMongoConfigRepository(db *mongo.Database) ports.ConfigRepository {
	return &MongoConfigRepository{
		collection: db.Collection("klaviyo_config"),
	}
}

// Get retrieves the singleton configuration, or nil when none exists.
func (r *MongoConfigRepository) Get(ctx context.Context) (*domain.KlaviyoConfig, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	filter := bson.M{"deleted_at": nil}

	var config domain.KlaviyoConfig
	err := r.collection.FindOne(ctx, filter, opts).Decode(&config)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get klaviyo config: %w", err)
	}

	return &config, nil
}

// Create inserts a new configuration row.
func (r *MongoConfigRepository) Create(ctx context.Context, config *domain.KlaviyoConfig) error {
	if config.ID == "" {
		config.ID = primitive.NewObjectID().Hex()
	}
	config.CreatedAt = time.Now()
	config.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, config); err != nil {
		return fmt.Errorf("failed to create klaviyo config: %w", err)
	}
	return nil
}

// Update replaces the existing configuration row.
func (r *MongoConfigRepository) Update(ctx context.Context, config *domain.KlaviyoConfig) error {
	if config.ID == "" {
		return fmt.Errorf("cannot update klaviyo config without an id")
	}
	config.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": config.ID}, config)
	if err != nil {
		return fmt.Errorf("failed to update klaviyo config: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("klaviyo config not found: %s", config.ID)
	}
	return nil
}

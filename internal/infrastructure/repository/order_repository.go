package repository

import (
	"context"
	"fmt"

	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoOrderRepository implements OrderRepository using MongoDB. Orders
// are stored with their full relation graph (items, addresses,
// fulfillments, transactions) by the commerce platform sync.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository.
func NewMongoOrderRepository(db *mongo.Database) ports.OrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

// GetOrder retrieves an order by id.
func (r *MongoOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	return &order, nil
}

// GetOrderByFulfillment resolves the order a fulfillment belongs to.
func (r *MongoOrderRepository) GetOrderByFulfillment(ctx context.Context, fulfillmentID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"fulfillments.id": fulfillmentID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("no order found for fulfillment: %s", fulfillmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve order for fulfillment %s: %w", fulfillmentID, err)
	}

	return &order, nil
}

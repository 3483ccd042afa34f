package ports

import (
	"context"

	"commerce-klaviyo-layer/internal/domain"
)

// OrderRepository defines the interface for retrieving commerce orders
// with the nested relations the payload builders depend on.
type OrderRepository interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// GetOrderByFulfillment resolves the order a fulfillment belongs to.
	GetOrderByFulfillment(ctx context.Context, fulfillmentID string) (*domain.Order, error)
}

package event_handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"commerce-klaviyo-layer/internal/application"
	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/ports"

	"github.com/rs/zerolog"
)

// OrderTracker is the subset of the Klaviyo service the order handlers
// depend on.
type OrderTracker interface {
	TrackOrderPlaced(ctx context.Context, order *domain.Order) (map[string]interface{}, error)
	TrackOrderFulfilled(ctx context.Context, order *domain.Order) (map[string]interface{}, error)
}

// eventPayload is the {id} envelope carried by order lifecycle events.
type eventPayload struct {
	ID string `json:"id"`
}

// OrderHandler forwards order lifecycle events to Klaviyo. Tracking
// failures are logged and swallowed so the commerce operation itself is
// never affected.
type OrderHandler struct {
	orders  ports.OrderRepository
	tracker OrderTracker
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order event handler.
func NewOrderHandler(orders ports.OrderRepository, tracker OrderTracker, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		tracker: tracker,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given event name.
func (h *OrderHandler) CanHandle(name string) bool {
	return name == "order.placed" || name == "order.completed"
}

// Handle processes an order lifecycle event.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.CommerceEvent) error {
	var payload eventPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse order event payload: %w", err)
	}
	if payload.ID == "" {
		return fmt.Errorf("order event %s carries no order id", event.Name)
	}

	order, err := h.orders.GetOrder(ctx, payload.ID)
	if err != nil {
		return fmt.Errorf("failed to retrieve order %s: %w", payload.ID, err)
	}

	switch event.Name {
	case "order.placed":
		_, err = h.tracker.TrackOrderPlaced(ctx, order)
	case "order.completed":
		_, err = h.tracker.TrackOrderFulfilled(ctx, order)
	}

	if err != nil {
		if errors.Is(err, application.ErrNotEnabled) {
			h.logger.Debug().Str("event", event.Name).Str("orderId", order.ID).Msg("Klaviyo disabled, event not tracked")
			return nil
		}
		h.logger.Error().Err(err).
			Str("event", event.Name).
			Str("orderId", order.ID).
			Msg("Failed to track order event")
		return nil
	}

	return nil
}

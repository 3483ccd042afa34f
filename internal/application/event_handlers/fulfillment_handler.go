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

// FulfillmentHandler forwards shipment events to Klaviyo. The event
// carries a fulfillment id, which is resolved to its order before
// tracking.
type FulfillmentHandler struct {
	orders  ports.OrderRepository
	tracker OrderTracker
	logger  zerolog.Logger
}

// NewFulfillmentHandler creates a new fulfillment event handler.
func NewFulfillmentHandler(orders ports.OrderRepository, tracker OrderTracker, logger zerolog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		orders:  orders,
		tracker: tracker,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given event name.
func (h *FulfillmentHandler) CanHandle(name string) bool {
	return name == "shipment.created"
}

// Handle processes a shipment event.
func (h *FulfillmentHandler) Handle(ctx context.Context, event *domain.CommerceEvent) error {
	var payload eventPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("failed to parse shipment event payload: %w", err)
	}
	if payload.ID == "" {
		return fmt.Errorf("shipment event carries no fulfillment id")
	}

	order, err := h.orders.GetOrderByFulfillment(ctx, payload.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve order for fulfillment %s: %w", payload.ID, err)
	}

	if _, err := h.tracker.TrackOrderFulfilled(ctx, order); err != nil {
		if errors.Is(err, application.ErrNotEnabled) {
			h.logger.Debug().Str("fulfillmentId", payload.ID).Msg("Klaviyo disabled, shipment not tracked")
			return nil
		}
		h.logger.Error().Err(err).
			Str("fulfillmentId", payload.ID).
			Str("orderId", order.ID).
			Msg("Failed to track fulfillment event")
	}

	return nil
}

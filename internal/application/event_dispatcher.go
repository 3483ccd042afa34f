package application

import (
	"context"

	"commerce-klaviyo-layer/internal/domain"

	"github.com/rs/zerolog"
)

// EventHandler processes commerce lifecycle events.
type EventHandler interface {
	// CanHandle returns true if this handler processes the given event name.
	CanHandle(name string) bool

	// Handle processes a commerce event.
	Handle(ctx context.Context, event *domain.CommerceEvent) error
}

// EventDispatcher fans commerce events out to registered handlers.
// Handler failures are logged and discarded: a tracking failure must
// never fail the commerce operation that triggered it.
type EventDispatcher struct {
	handlers []EventHandler
	logger   zerolog.Logger
}

// NewEventDispatcher creates a new event dispatcher.
func NewEventDispatcher(logger zerolog.Logger) *EventDispatcher {
	return &EventDispatcher{logger: logger}
}

// RegisterHandler registers a handler for dispatch.
func (d *EventDispatcher) RegisterHandler(handler EventHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch routes an event to every handler that can process it.
func (d *EventDispatcher) Dispatch(ctx context.Context, event *domain.CommerceEvent) {
	handled := 0
	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Name) {
			continue
		}
		handled++
		if err := handler.Handle(ctx, event); err != nil {
			d.logger.Error().Err(err).
				Str("event", event.Name).
				Msg("Failed to process commerce event")
		}
	}

	if handled == 0 {
		d.logger.Debug().Str("event", event.Name).Msg("No handler for commerce event")
	}
}

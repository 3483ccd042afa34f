package pubsub

import (
	"context"
	"fmt"
	"sync"

	"commerce-klaviyo-layer/internal/domain"

	"github.com/rs/zerolog"
)

// EventChannel represents a subscription channel for commerce events.
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.CommerceEvent
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter filters commerce events by name.
type EventFilter struct {
	Names []string
}

// EventPubSub is the in-process commerce event bus. Event intake
// publishes here; the dispatcher consumes from a subscription, which
// decouples tracking from the commerce operation that produced the event.
type EventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewEventPubSub creates a new commerce event bus.
func NewEventPubSub(logger zerolog.Logger) *EventPubSub {
	return &EventPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription channel. The channel is removed when
// the context is cancelled.
func (ps *EventPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &EventChannel{
		ID:     fmt.Sprintf("channel-%d", ps.nextID),
		Filter: filter,
		Events: make(chan *domain.CommerceEvent, 32),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().Str("channelId", channel.ID).Msg("Commerce event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel.
func (ps *EventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().Str("channelId", channelID).Msg("Commerce event subscription removed")
}

// Publish broadcasts a commerce event to all matching subscribers.
// Delivery is non-blocking; a full channel drops the event.
func (ps *EventPubSub) Publish(event *domain.CommerceEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("event", event.Name).
				Msg("Channel buffer full, dropping event")
		}
	}
}

func matchesFilter(event *domain.CommerceEvent, filter *EventFilter) bool {
	if filter == nil || len(filter.Names) == 0 {
		return true
	}
	for _, name := range filter.Names {
		if event.Name == name {
			return true
		}
	}
	return false
}

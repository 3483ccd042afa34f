package ports

import (
	"context"

	"commerce-klaviyo-layer/internal/domain"
)

// KlaviyoClient defines the interface for Klaviyo API operations.
type KlaviyoClient interface {
	// IsConfigured returns true if an API key is set.
	IsConfigured() bool

	// TrackEvent posts an event to the events endpoint and returns the
	// normalized response body.
	TrackEvent(ctx context.Context, event domain.EventData) (map[string]interface{}, error)

	// UpsertProfile creates the profile, retrying as a PATCH of the
	// existing profile when the create conflicts with a duplicate.
	UpsertProfile(ctx context.Context, profile domain.Profile) (*domain.SubscriptionResult, error)

	// AddProfileToList subscribes a profile to a list via a bulk
	// subscription job.
	AddProfileToList(ctx context.Context, profileID, listID, email string) error
}

// KlaviyoClientFactory builds clients from resolved credentials. Each
// operation resolves credentials from the current configuration and
// constructs a client once.
type KlaviyoClientFactory interface {
	ClientFor(creds domain.Credentials) KlaviyoClient
}

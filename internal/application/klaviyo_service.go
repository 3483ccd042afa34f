package application

import (
	"context"
	"errors"
	"fmt"

	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/infrastructure/klaviyo"
	"commerce-klaviyo-layer/internal/infrastructure/metrics"
	"commerce-klaviyo-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ErrNotEnabled is returned by every tracking and subscription operation
// when the integration is disabled or no API key is resolvable. It is an
// expected state, not an integration defect; callers check it with
// errors.Is and decide whether to log and continue.
var ErrNotEnabled = errors.New("klaviyo is not enabled or API key is missing")

// Metric names attributed to order lifecycle events.
const (
	EventOrderPlaced    = "Placed Order"
	EventOrderFulfilled = "Fulfilled Order"
)

// KlaviyoService implements the integration business logic. It depends on
// ports (interfaces), not concrete implementations; the environment API
// key fallback is resolved once at construction.
type KlaviyoService struct {
	configRepo ports.ConfigRepository
	clients    ports.KlaviyoClientFactory
	envAPIKey  string
	metrics    *metrics.Collector
	logger     zerolog.Logger
}

// NewKlaviyoService creates a new Klaviyo application service.
func NewKlaviyoService(
	configRepo ports.ConfigRepository,
	clients ports.KlaviyoClientFactory,
	envAPIKey string,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *KlaviyoService {
	return &KlaviyoService{
		configRepo: configRepo,
		clients:    clients,
		envAPIKey:  envAPIKey,
		metrics:    collector,
		logger:     logger,
	}
}

// GetConfig returns the singleton configuration, or nil when none has
// been created yet.
func (s *KlaviyoService) GetConfig(ctx context.Context) (*domain.KlaviyoConfig, error) {
	return s.configRepo.Get(ctx)
}

// UpdateConfig applies a partial update to the singleton configuration,
// creating it with defaults when absent.
func (s *KlaviyoService) UpdateConfig(ctx context.Context, update domain.ConfigUpdate) (*domain.KlaviyoConfig, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = domain.NewKlaviyoConfig()
		config.Apply(update)
		if err := s.configRepo.Create(ctx, config); err != nil {
			return nil, fmt.Errorf("failed to create klaviyo config: %w", err)
		}
		s.logger.Info().Str("configId", config.ID).Msg("Klaviyo configuration created")
		return config, nil
	}

	config.Apply(update)
	if err := s.configRepo.Update(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to update klaviyo config: %w", err)
	}
	s.logger.Info().Str("configId", config.ID).Msg("Klaviyo configuration updated")
	return config, nil
}

// HasAPIKey reports whether an API key is resolvable from the
// configuration or the environment fallback.
func (s *KlaviyoService) HasAPIKey(ctx context.Context) (bool, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return false, err
	}
	return domain.ResolveCredentials(config, s.envAPIKey).APIKey != "", nil
}

// IsEnabled reports whether outbound calls are admitted: the enabled flag
// is set and an API key is resolvable.
func (s *KlaviyoService) IsEnabled(ctx context.Context) (bool, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return false, err
	}
	return config.Enabled(s.envAPIKey), nil
}

// gate is the single admission-control check for all outbound calls. It
// loads the configuration and returns a client bound to the resolved
// credentials, or ErrNotEnabled.
func (s *KlaviyoService) gate(ctx context.Context) (*domain.KlaviyoConfig, ports.KlaviyoClient, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !config.Enabled(s.envAPIKey) {
		return nil, nil, ErrNotEnabled
	}

	client := s.clients.ClientFor(domain.ResolveCredentials(config, s.envAPIKey))
	return config, client, nil
}

// TrackEvent forwards a tracking event to Klaviyo.
func (s *KlaviyoService) TrackEvent(ctx context.Context, data domain.EventData) (map[string]interface{}, error) {
	_, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	return s.trackEvent(ctx, client, data)
}

func (s *KlaviyoService) trackEvent(ctx context.Context, client ports.KlaviyoClient, data domain.EventData) (map[string]interface{}, error) {
	result, err := client.TrackEvent(ctx, data)
	if err != nil {
		s.metrics.EventsForwarded.WithLabelValues(data.Event, metrics.StatusError).Inc()
		s.logger.Error().Err(err).Str("event", data.Event).Msg("Failed to track event")
		return nil, err
	}

	s.metrics.EventsForwarded.WithLabelValues(data.Event, metrics.StatusOK).Inc()
	s.logger.Info().Str("event", data.Event).Msg("Tracked event")
	return result, nil
}

// TrackOrderPlaced tracks a Placed Order event. A disabled
// track_order_events toggle is a silent no-op, not an error.
func (s *KlaviyoService) TrackOrderPlaced(ctx context.Context, order *domain.Order) (map[string]interface{}, error) {
	return s.trackOrderEvent(ctx, EventOrderPlaced, order)
}

// TrackOrderFulfilled tracks a Fulfilled Order event under the same
// toggle as TrackOrderPlaced.
func (s *KlaviyoService) TrackOrderFulfilled(ctx context.Context, order *domain.Order) (map[string]interface{}, error) {
	return s.trackOrderEvent(ctx, EventOrderFulfilled, order)
}

func (s *KlaviyoService) trackOrderEvent(ctx context.Context, event string, order *domain.Order) (map[string]interface{}, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if config == nil || !config.TrackOrderEvents {
		s.metrics.EventsForwarded.WithLabelValues(event, metrics.StatusSkipped).Inc()
		s.logger.Debug().Str("event", event).Str("orderId", order.ID).Msg("Order event tracking disabled, skipping")
		return nil, nil
	}
	if !config.Enabled(s.envAPIKey) {
		return nil, ErrNotEnabled
	}

	client := s.clients.ClientFor(domain.ResolveCredentials(config, s.envAPIKey))
	return s.trackEvent(ctx, client, domain.EventData{
		Event:              event,
		CustomerProperties: klaviyo.BuildOrderCustomerProperties(order, config.PhoneCountryCode),
		Properties:         klaviyo.BuildOrderProperties(order),
	})
}

// SubscribeToNewsletter upserts a profile with email marketing consent
// and, when a newsletter list is configured, attaches the profile to it.
// A failed list attach does not fail the operation: the upsert success
// stands, with a message naming the list that failed.
func (s *KlaviyoService) SubscribeToNewsletter(ctx context.Context, sub domain.NewsletterSubscription) (*domain.SubscriptionResult, error) {
	config, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}

	profile := klaviyo.BuildProfilePayload(domain.ProfileAttributes{
		Email:      sub.Email,
		FirstName:  sub.FirstName,
		LastName:   sub.LastName,
		ExternalID: sub.ExternalID,
		Properties: sub.Properties,
	}, "email")

	result, err := s.upsertProfile(ctx, client, profile)
	if err != nil {
		return nil, err
	}

	listID := config.NewsletterListID
	if result.Success && result.ProfileID != "" && listID != "" {
		if err := client.AddProfileToList(ctx, result.ProfileID, listID, sub.Email); err != nil {
			s.logger.Error().Err(err).
				Str("profileId", result.ProfileID).
				Str("listId", listID).
				Str("email", sub.Email).
				Msg("Failed to add profile to newsletter list")
			result.Message += fmt.Sprintf(" Profile created/updated, but failed to add to list %s.", listID)
		}
	}

	return result, nil
}

// SubscribeToSMS upserts a profile with SMS marketing consent.
func (s *KlaviyoService) SubscribeToSMS(ctx context.Context, sub domain.SMSSubscription) (*domain.SubscriptionResult, error) {
	_, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}

	profile := klaviyo.BuildProfilePayload(domain.ProfileAttributes{
		PhoneNumber: sub.PhoneNumber,
		Email:       sub.Email,
		FirstName:   sub.FirstName,
		LastName:    sub.LastName,
		ExternalID:  sub.ExternalID,
		Properties:  sub.Properties,
	}, "sms")

	return s.upsertProfile(ctx, client, profile)
}

// UnsubscribeFromNewsletter revokes email marketing consent by patching
// the consent flag away rather than deleting the profile.
func (s *KlaviyoService) UnsubscribeFromNewsletter(ctx context.Context, email string) (*domain.SubscriptionResult, error) {
	_, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}

	return s.upsertProfile(ctx, client, domain.Profile{
		Type: "profile",
		Attributes: domain.ProfileAttributes{
			Email: email,
			Meta: &domain.ProfileMeta{
				PatchProperties: &domain.PatchProperties{
					Unset: "email_marketing.can_receive_email_marketing",
				},
			},
		},
	})
}

// UnsubscribeFromSMS revokes SMS marketing consent.
func (s *KlaviyoService) UnsubscribeFromSMS(ctx context.Context, phoneNumber string) (*domain.SubscriptionResult, error) {
	_, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}

	return s.upsertProfile(ctx, client, domain.Profile{
		Type: "profile",
		Attributes: domain.ProfileAttributes{
			PhoneNumber: phoneNumber,
			Meta: &domain.ProfileMeta{
				PatchProperties: &domain.PatchProperties{
					Unset: "sms_marketing.can_receive_sms_marketing",
				},
			},
		},
	})
}

// UpdateSubscription upserts arbitrary profile attribute updates for an
// existing email without touching consent.
func (s *KlaviyoService) UpdateSubscription(ctx context.Context, email string, updates domain.ProfileAttributes) (*domain.SubscriptionResult, error) {
	_, client, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}

	updates.Email = email
	return s.upsertProfile(ctx, client, klaviyo.BuildProfilePayload(updates, ""))
}

func (s *KlaviyoService) upsertProfile(ctx context.Context, client ports.KlaviyoClient, profile domain.Profile) (*domain.SubscriptionResult, error) {
	result, err := client.UpsertProfile(ctx, profile)
	if err != nil {
		s.metrics.ProfileUpserts.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}

	s.metrics.ProfileUpserts.WithLabelValues(metrics.StatusOK).Inc()
	s.logger.Info().Str("profileId", result.ProfileID).Msg("Profile upserted")
	return result, nil
}

package ports

import (
	"context"

	"commerce-klaviyo-layer/internal/domain"
)

// ConfigRepository defines the interface for integration configuration
// persistence. The configuration is a singleton: Get returns the first
// non-deleted row or nil when none exists.
type ConfigRepository interface {
	Get(ctx context.Context) (*domain.KlaviyoConfig, error)
	Create(ctx context.Context, config *domain.KlaviyoConfig) error
	Update(ctx context.Context, config *domain.KlaviyoConfig) error
}

package domain

import "time"

// DefaultServerPrefix is the Klaviyo region endpoint used when no
// server_prefix is configured.
const DefaultServerPrefix = "https://a.klaviyo.com"

// DefaultPhoneCountryCode is prepended to national phone numbers taken
// from shipping addresses.
const DefaultPhoneCountryCode = "+45"

// KlaviyoConfig is the singleton integration configuration. At most one
// non-deleted row exists; it is created lazily on first update.
type KlaviyoConfig struct {
	ID                  string     `json:"id" bson:"_id,omitempty"`
	PublicKey           string     `json:"public_key" bson:"public_key"`
	ServerPrefix        string     `json:"server_prefix" bson:"server_prefix"`
	IsEnabled           bool       `json:"is_enabled" bson:"is_enabled"`
	TrackOrderEvents    bool       `json:"track_order_events" bson:"track_order_events"`
	TrackCustomerEvents bool       `json:"track_customer_events" bson:"track_customer_events"`
	TrackProductEvents  bool       `json:"track_product_events" bson:"track_product_events"`
	NewsletterListID    string     `json:"newsletter_list_id" bson:"newsletter_list_id"`
	PhoneCountryCode    string     `json:"phone_country_code" bson:"phone_country_code"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" bson:"updated_at"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}

// NewKlaviyoConfig returns a configuration populated with defaults.
func NewKlaviyoConfig() *KlaviyoConfig {
	return &KlaviyoConfig{
		ServerPrefix:        DefaultServerPrefix,
		TrackOrderEvents:    true,
		TrackCustomerEvents: true,
		TrackProductEvents:  false,
		PhoneCountryCode:    DefaultPhoneCountryCode,
	}
}

// ConfigUpdate is a partial configuration update. Nil fields are left
// untouched.
type ConfigUpdate struct {
	PublicKey           *string `json:"public_key,omitempty"`
	ServerPrefix        *string `json:"server_prefix,omitempty" validate:"omitempty,url"`
	IsEnabled           *bool   `json:"is_enabled,omitempty"`
	TrackOrderEvents    *bool   `json:"track_order_events,omitempty"`
	TrackCustomerEvents *bool   `json:"track_customer_events,omitempty"`
	TrackProductEvents  *bool   `json:"track_product_events,omitempty"`
	NewsletterListID    *string `json:"newsletter_list_id,omitempty"`
	PhoneCountryCode    *string `json:"phone_country_code,omitempty" validate:"omitempty,startswith=+,max=5"`
}

// Apply merges the update into the configuration.
func (c *KlaviyoConfig) Apply(update ConfigUpdate) {
	if update.PublicKey != nil {
		c.PublicKey = *update.PublicKey
	}
	if update.ServerPrefix != nil {
		c.ServerPrefix = *update.ServerPrefix
	}
	if update.IsEnabled != nil {
		c.IsEnabled = *update.IsEnabled
	}
	if update.TrackOrderEvents != nil {
		c.TrackOrderEvents = *update.TrackOrderEvents
	}
	if update.TrackCustomerEvents != nil {
		c.TrackCustomerEvents = *update.TrackCustomerEvents
	}
	if update.TrackProductEvents != nil {
		c.TrackProductEvents = *update.TrackProductEvents
	}
	if update.NewsletterListID != nil {
		c.NewsletterListID = *update.NewsletterListID
	}
	if update.PhoneCountryCode != nil {
		c.PhoneCountryCode = *update.PhoneCountryCode
	}
}

// Credentials is the resolved credential set handed to the Klaviyo client
// at construction. Precedence: config public_key, then the environment
// fallback, then none.
type Credentials struct {
	APIKey       string
	ServerPrefix string
}

// ResolveCredentials resolves credentials from the configuration with
// envAPIKey as fallback. A nil config resolves to the environment key and
// the default server prefix.
func ResolveCredentials(config *KlaviyoConfig, envAPIKey string) Credentials {
	creds := Credentials{
		APIKey:       envAPIKey,
		ServerPrefix: DefaultServerPrefix,
	}
	if config == nil {
		return creds
	}
	if config.PublicKey != "" {
		creds.APIKey = config.PublicKey
	}
	if config.ServerPrefix != "" {
		creds.ServerPrefix = config.ServerPrefix
	}
	return creds
}

// Enabled reports whether tracking is allowed: the enabled flag is set and
// an API key is resolvable.
func (c *KlaviyoConfig) Enabled(envAPIKey string) bool {
	if c == nil || !c.IsEnabled {
		return false
	}
	return ResolveCredentials(c, envAPIKey).APIKey != ""
}

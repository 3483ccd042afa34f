package domain

import "encoding/json"

// EventData is the input to event tracking: a metric name, the profile
// the event is attributed to, and free-form event properties. Transient,
// never persisted.
type EventData struct {
	Event              string                 `json:"event"`
	CustomerProperties ProfileAttributes      `json:"customer_properties"`
	Properties         map[string]interface{} `json:"properties,omitempty"`
	Time               string                 `json:"time,omitempty"`
	Value              *float64               `json:"value,omitempty"`
	ValueCurrency      string                 `json:"value_currency,omitempty"`
	UniqueID           string                 `json:"unique_id,omitempty"`
}

// ProfileAttributes identifies and describes a Klaviyo profile. Used both
// for event attribution and for profile upserts.
type ProfileAttributes struct {
	Email       string                 `json:"email,omitempty"`
	PhoneNumber string                 `json:"phone_number,omitempty"`
	ExternalID  string                 `json:"external_id,omitempty"`
	FirstName   string                 `json:"first_name,omitempty"`
	LastName    string                 `json:"last_name,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Meta        *ProfileMeta           `json:"meta,omitempty"`
}

// ProfileMeta carries patch instructions understood by the profile PATCH
// endpoint, used to unset consent flags without deleting the profile.
type ProfileMeta struct {
	PatchProperties *PatchProperties `json:"patch_properties,omitempty"`
}

// PatchProperties mirrors Klaviyo's meta.patch_properties block.
type PatchProperties struct {
	Append   map[string]interface{} `json:"append,omitempty"`
	Unappend map[string]interface{} `json:"unappend,omitempty"`
	Unset    string                 `json:"unset,omitempty"`
}

// Profile is the profile wire object sent to the profiles endpoints.
type Profile struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Attributes ProfileAttributes `json:"attributes"`
}

// SubscriptionResult is returned to callers instead of an error for
// partial-failure cases: the profile upsert may succeed while the list
// attach fails, and Success stays true.
type SubscriptionResult struct {
	Success   bool                   `json:"success"`
	ProfileID string                 `json:"profile_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

// NewsletterSubscription is a newsletter opt-in request.
type NewsletterSubscription struct {
	Email      string                 `json:"email"`
	FirstName  string                 `json:"first_name,omitempty"`
	LastName   string                 `json:"last_name,omitempty"`
	ExternalID string                 `json:"external_id,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// SMSSubscription is an SMS opt-in request.
type SMSSubscription struct {
	PhoneNumber string                 `json:"phone_number"`
	Email       string                 `json:"email,omitempty"`
	FirstName   string                 `json:"first_name,omitempty"`
	LastName    string                 `json:"last_name,omitempty"`
	ExternalID  string                 `json:"external_id,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// CommerceEvent is a lifecycle event envelope received from the commerce
// platform and dispatched to tracking handlers.
type CommerceEvent struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"commerce-klaviyo-layer/internal/domain"
	"commerce-klaviyo-layer/internal/ports"

	"github.com/rs/zerolog"
)

// APIRevision is the fixed revision header sent on every request.
const APIRevision = "2024-07-15"

type client struct {
	creds      domain.Credentials
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Klaviyo client bound to the given credentials.
func NewClient(creds domain.Credentials, logger zerolog.Logger) ports.KlaviyoClient {
	return NewClientWithHTTPClient(creds, &http.Client{Timeout: 30 * time.Second}, logger)
}

// NewClientWithHTTPClient creates a client with a custom HTTP client.
func NewClientWithHTTPClient(creds domain.Credentials, httpClient *http.Client, logger zerolog.Logger) ports.KlaviyoClient {
	if creds.ServerPrefix == "" {
		creds.ServerPrefix = domain.DefaultServerPrefix
	}
	return &client{
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Factory builds clients from resolved credentials.
type Factory struct {
	logger zerolog.Logger
}

// NewFactory creates a client factory.
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{logger: logger}
}

// ClientFor returns a client bound to the given credentials.
func (f *Factory) ClientFor(creds domain.Credentials) ports.KlaviyoClient {
	return NewClient(creds, f.logger)
}

// IsConfigured returns true if the API key is set.
func (c *client) IsConfigured() bool {
	return c.creds.APIKey != ""
}

// sendRequest issues an authenticated request and returns the status code
// and raw body. Transport failures are the only errors; HTTP error
// statuses are classified by handleResponse.
func (c *client) sendRequest(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.creds.ServerPrefix+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("revision", APIRevision)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("klaviyo request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// handleResponse normalizes a Klaviyo response. Non-2xx statuses become
// errors carrying the status and body text. Empty bodies are success; a
// body that fails to parse as JSON is tolerated and returned raw rather
// than surfaced as an error.
func (c *client) handleResponse(status int, body []byte) (map[string]interface{}, error) {
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("klaviyo API error: %d %s", status, string(body))
	}

	if status == http.StatusNoContent || len(body) == 0 {
		return map[string]interface{}{"success": true}, nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Error().Str("body", string(body)).Msg("Failed to parse Klaviyo response")
		return map[string]interface{}{"success": true, "raw": string(body)}, nil
	}

	return parsed, nil
}

// TrackEvent posts an event to the events endpoint.
func (c *client) TrackEvent(ctx context.Context, event domain.EventData) (map[string]interface{}, error) {
	payload := map[string]interface{}{"data": BuildEventPayload(event)}

	status, body, err := c.sendRequest(ctx, http.MethodPost, "/api/events/", payload)
	if err != nil {
		return nil, err
	}

	return c.handleResponse(status, body)
}

// conflictBody is the 409 error body shape carrying the duplicate profile
// identifier.
type conflictBody struct {
	Errors []struct {
		Meta struct {
			DuplicateProfileID string `json:"duplicate_profile_id"`
		} `json:"meta"`
	} `json:"errors"`
}

// UpsertProfile creates a profile, falling back to a PATCH of the
// existing profile when the create returns a 409 conflict with a
// resolvable duplicate id. A 409 without a duplicate id is a terminal
// failure like any other non-2xx.
func (c *client) UpsertProfile(ctx context.Context, profile domain.Profile) (*domain.SubscriptionResult, error) {
	status, body, err := c.sendRequest(ctx, http.MethodPost, "/api/profiles/", map[string]interface{}{"data": profile})
	if err != nil {
		return nil, err
	}

	if status == http.StatusConflict {
		if existingID := duplicateProfileID(body); existingID != "" {
			c.logger.Debug().
				Str("profileId", existingID).
				Msg("Profile already exists, retrying as patch")

			patch := map[string]interface{}{
				"data": map[string]interface{}{
					"type":       "profile",
					"id":         existingID,
					"attributes": profile.Attributes,
				},
			}
			status, body, err = c.sendRequest(ctx, http.MethodPatch, "/api/profiles/"+existingID+"/", patch)
			if err != nil {
				return nil, err
			}
		}
	}

	parsed, err := c.handleResponse(status, body)
	if err != nil {
		return nil, err
	}

	result := &domain.SubscriptionResult{
		Success:   true,
		ProfileID: profileIDFromResponse(parsed),
		Raw:       parsed,
	}
	if msg, ok := parsed["message"].(string); ok {
		result.Message = msg
	}
	return result, nil
}

func duplicateProfileID(body []byte) string {
	var conflict conflictBody
	if err := json.Unmarshal(body, &conflict); err != nil {
		return ""
	}
	if len(conflict.Errors) == 0 {
		return ""
	}
	return conflict.Errors[0].Meta.DuplicateProfileID
}

func profileIDFromResponse(parsed map[string]interface{}) string {
	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := data["id"].(string)
	return id
}

// AddProfileToList subscribes a profile to a list via a bulk subscription
// job. A missing API key skips with a warning instead of failing the
// subscription flow; request failures propagate so the caller can apply
// the partial-failure policy.
func (c *client) AddProfileToList(ctx context.Context, profileID, listID, email string) error {
	if !c.IsConfigured() {
		c.logger.Warn().
			Str("profileId", profileID).
			Str("listId", listID).
			Msg("Klaviyo API key is missing when trying to subscribe profile to list")
		return nil
	}

	payload := BuildListSubscriptionPayload(profileID, listID, email)

	status, body, err := c.sendRequest(ctx, http.MethodPost, "/api/profile-subscription-bulk-create-jobs", payload)
	if err != nil {
		return fmt.Errorf("failed to subscribe profile %s to list %s: %w", profileID, listID, err)
	}
	if _, err := c.handleResponse(status, body); err != nil {
		return fmt.Errorf("failed to subscribe profile %s to list %s: %w", profileID, listID, err)
	}

	return nil
}

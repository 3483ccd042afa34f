package klaviyo

import (
	"testing"
	"time"

	"commerce-klaviyo-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           "order_01",
		DisplayID:    1042,
		Email:        "jane@example.com",
		CustomerID:   "cus_01",
		Status:       "completed",
		CurrencyCode: "dkk",
		Total:        249.5,
		Subtotal:     199.5,
		CreatedAt:    time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
		Items: []domain.LineItem{
			{VariantSKU: "TSHIRT-M", ProductTitle: "T-Shirt", UnitPrice: 99.75, Quantity: 2, Thumbnail: "https://cdn.example.com/tshirt.png"},
			{VariantSKU: "MUG-01", ProductTitle: "Mug", UnitPrice: 50, Quantity: 1},
		},
		ShippingAddress: &domain.Address{
			FirstName:   "Jane",
			LastName:    "Doe",
			CountryCode: "dk",
			Phone:       "12345678",
		},
		ShippingMethods: []domain.ShippingMethod{
			{ID: "sm_01", Name: "Standard", Amount: 50},
			{ID: "sm_02", Name: "Express", Amount: 100},
		},
		Transactions: []domain.Transaction{
			{ID: "tx_01", Amount: 249.5, CurrencyCode: "dkk"},
		},
	}
}

func TestBuildEventPayload_Defaults(t *testing.T) {
	payload := BuildEventPayload(domain.EventData{
		Event:              "Placed Order",
		CustomerProperties: domain.ProfileAttributes{Email: "jane@example.com"},
	})

	assert.Equal(t, "event", payload["type"])

	attrs := payload["attributes"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{}, attrs["properties"])
	assert.NotEmpty(t, attrs["time"])

	metric := attrs["metric"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "metric", metric["type"])
	metricAttrs := metric["attributes"].(map[string]interface{})
	assert.Equal(t, "Placed Order", metricAttrs["name"])
	assert.Equal(t, "medusa", metricAttrs["service"])

	// Absent optional fields stay absent rather than zero-valued.
	assert.NotContains(t, attrs, "value")
	assert.NotContains(t, attrs, "value_currency")
	assert.NotContains(t, attrs, "unique_id")
}

func TestBuildEventPayload_PassesThroughOptionalFields(t *testing.T) {
	value := 249.5
	payload := BuildEventPayload(domain.EventData{
		Event:              "Placed Order",
		CustomerProperties: domain.ProfileAttributes{Email: "jane@example.com"},
		Properties:         map[string]interface{}{"order_id": "order_01"},
		Time:               "2025-06-05T10:00:00Z",
		Value:              &value,
		ValueCurrency:      "dkk",
		UniqueID:           "order_01",
	})

	attrs := payload["attributes"].(map[string]interface{})
	assert.Equal(t, "2025-06-05T10:00:00Z", attrs["time"])
	assert.Equal(t, 249.5, attrs["value"])
	assert.Equal(t, "dkk", attrs["value_currency"])
	assert.Equal(t, "order_01", attrs["unique_id"])
	assert.Equal(t, map[string]interface{}{"order_id": "order_01"}, attrs["properties"])
}

func TestBuildOrderProperties_PreservesLineItems(t *testing.T) {
	order := testOrder()
	properties := BuildOrderProperties(order)

	products := properties["products"].([]map[string]interface{})
	require.Len(t, products, len(order.Items))
	assert.Equal(t, "TSHIRT-M", products[0]["variant_sku"])
	assert.Equal(t, "T-Shirt", products[0]["title"])
	assert.Equal(t, 2, products[0]["quantity"])
	assert.Equal(t, "MUG-01", products[1]["variant_sku"])

	assert.Equal(t, "order_01", properties["$event_id"])
	assert.Equal(t, 249.5, properties["$value"])
	assert.Equal(t, int64(1042), properties["order_id"])
	assert.Equal(t, "cus_01", properties["external_id"])
	assert.Equal(t, "dkk", properties["currency"])
	assert.Equal(t, "dk", properties["country"])

	// First shipping method only; transactions pass through untouched.
	shipping := properties["shipping"].(domain.ShippingMethod)
	assert.Equal(t, "sm_01", shipping.ID)
	assert.Equal(t, order.Transactions, properties["payment"])
}

func TestBuildOrderProperties_NoShippingAddress(t *testing.T) {
	order := testOrder()
	order.ShippingAddress = nil
	order.ShippingMethods = nil

	properties := BuildOrderProperties(order)
	assert.NotContains(t, properties, "country")
	assert.NotContains(t, properties, "shipping")
}

func TestBuildOrderCustomerProperties(t *testing.T) {
	tests := []struct {
		name        string
		phone       string
		callingCode string
		wantPhone   string
	}{
		{"national number gets prefixed", "12345678", "+45", "+4512345678"},
		{"already international passes through", "+4712345678", "+45", "+4712345678"},
		{"empty phone stays empty", "", "+45", ""},
		{"empty calling code falls back to default", "12345678", "", "+4512345678"},
		{"custom calling code", "5551234", "+1", "+15551234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder()
			order.ShippingAddress.Phone = tt.phone

			attrs := BuildOrderCustomerProperties(order, tt.callingCode)
			assert.Equal(t, "jane@example.com", attrs.Email)
			assert.Equal(t, "Jane", attrs.FirstName)
			assert.Equal(t, "Doe", attrs.LastName)
			assert.Equal(t, tt.wantPhone, attrs.PhoneNumber)
		})
	}
}

func TestBuildOrderCustomerProperties_NoShippingAddress(t *testing.T) {
	order := testOrder()
	order.ShippingAddress = nil

	attrs := BuildOrderCustomerProperties(order, "+45")
	assert.Equal(t, "jane@example.com", attrs.Email)
	assert.Empty(t, attrs.FirstName)
	assert.Empty(t, attrs.PhoneNumber)
}

func TestBuildProfilePayload_EmailConsent(t *testing.T) {
	profile := BuildProfilePayload(domain.ProfileAttributes{Email: "jane@example.com"}, "email")

	assert.Equal(t, "profile", profile.Type)
	require.NotNil(t, profile.Attributes.Properties)

	consent := profile.Attributes.Properties["email_marketing"].(map[string]interface{})
	assert.Equal(t, true, consent["can_receive_email_marketing"])
	assert.Equal(t, "subscribed", consent["consent"])
	assert.NotEmpty(t, consent["consent_timestamp"])
}

func TestBuildProfilePayload_SMSConsent(t *testing.T) {
	profile := BuildProfilePayload(domain.ProfileAttributes{PhoneNumber: "+4512345678"}, "sms")

	consent := profile.Attributes.Properties["sms_marketing"].(map[string]interface{})
	assert.Equal(t, true, consent["can_receive_sms_marketing"])
	assert.Equal(t, "subscribed", consent["consent"])
}

func TestBuildProfilePayload_NoSubscriptionType(t *testing.T) {
	original := map[string]interface{}{"plan": "gold"}
	profile := BuildProfilePayload(domain.ProfileAttributes{
		Email:      "jane@example.com",
		Properties: original,
	}, "")

	assert.Equal(t, original, profile.Attributes.Properties)
	assert.NotContains(t, profile.Attributes.Properties, "email_marketing")
	assert.NotContains(t, profile.Attributes.Properties, "sms_marketing")
}

func TestBuildProfilePayload_ConsentDoesNotMutateInput(t *testing.T) {
	original := map[string]interface{}{"plan": "gold"}
	profile := BuildProfilePayload(domain.ProfileAttributes{
		Email:      "jane@example.com",
		Properties: original,
	}, "email")

	assert.NotContains(t, original, "email_marketing")
	assert.Contains(t, profile.Attributes.Properties, "email_marketing")
	assert.Equal(t, "gold", profile.Attributes.Properties["plan"])
}

func TestBuildListSubscriptionPayload(t *testing.T) {
	payload := BuildListSubscriptionPayload("P1", "L9", "jane@example.com")

	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "profile-subscription-bulk-create-job", data["type"])

	list := data["relationships"].(map[string]interface{})["list"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "list", list["type"])
	assert.Equal(t, "L9", list["id"])

	profiles := data["attributes"].(map[string]interface{})["profiles"].(map[string]interface{})["data"].([]map[string]interface{})
	require.Len(t, profiles, 1)
	assert.Equal(t, "P1", profiles[0]["id"])
	profileAttrs := profiles[0]["attributes"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", profileAttrs["email"])
}

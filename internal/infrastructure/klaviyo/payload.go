package klaviyo

import (
	"strings"
	"time"

	"commerce-klaviyo-layer/internal/domain"
)

// serviceTag identifies the source platform on every metric.
const serviceTag = "medusa"

// BuildEventPayload maps event data onto the Klaviyo event wire shape.
// Absent optional fields are omitted; time defaults to now.
func BuildEventPayload(data domain.EventData) map[string]interface{} {
	properties := data.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}

	eventTime := data.Time
	if eventTime == "" {
		eventTime = time.Now().UTC().Format(time.RFC3339)
	}

	attributes := map[string]interface{}{
		"properties": properties,
		"metric": map[string]interface{}{
			"data": map[string]interface{}{
				"type": "metric",
				"attributes": map[string]interface{}{
					"name":    data.Event,
					"service": serviceTag,
				},
			},
		},
		"profile": map[string]interface{}{
			"data": map[string]interface{}{
				"type":       "profile",
				"attributes": data.CustomerProperties,
			},
		},
		"time": eventTime,
	}

	if data.Value != nil {
		attributes["value"] = *data.Value
	}
	if data.ValueCurrency != "" {
		attributes["value_currency"] = data.ValueCurrency
	}
	if data.UniqueID != "" {
		attributes["unique_id"] = data.UniqueID
	}

	return map[string]interface{}{
		"type":       "event",
		"attributes": attributes,
	}
}

// BuildOrderCustomerProperties extracts the profile identity block from an
// order. The shipping address phone is prefixed with the configured
// calling code; numbers that already carry one are passed through.
func BuildOrderCustomerProperties(order *domain.Order, callingCode string) domain.ProfileAttributes {
	attrs := domain.ProfileAttributes{Email: order.Email}
	if order.ShippingAddress == nil {
		return attrs
	}

	attrs.FirstName = order.ShippingAddress.FirstName
	attrs.LastName = order.ShippingAddress.LastName
	attrs.PhoneNumber = normalizePhone(order.ShippingAddress.Phone, callingCode)
	return attrs
}

func normalizePhone(phone, callingCode string) string {
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if callingCode == "" {
		callingCode = domain.DefaultPhoneCountryCode
	}
	return callingCode + phone
}

// BuildOrderProperties flattens an order into event properties: totals,
// status, ordered products, first shipping method and the raw
// transactions list.
func BuildOrderProperties(order *domain.Order) map[string]interface{} {
	products := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, map[string]interface{}{
			"variant_sku": item.VariantSKU,
			"title":       item.ProductTitle,
			"value":       item.UnitPrice,
			"quantity":    item.Quantity,
			"thumbnail":   item.Thumbnail,
		})
	}

	properties := map[string]interface{}{
		"$event_id":        order.ID,
		"$value":           order.Total,
		"order_id":         order.DisplayID,
		"external_id":      order.CustomerID,
		"order_status":     order.Status,
		"order_created_at": order.CreatedAt,
		"subtotal":         order.Subtotal,
		"total":            order.Total,
		"currency":         order.CurrencyCode,
		"products":         products,
		"payment":          order.Transactions,
	}

	if order.ShippingAddress != nil {
		properties["country"] = order.ShippingAddress.CountryCode
	}
	if len(order.ShippingMethods) > 0 {
		properties["shipping"] = order.ShippingMethods[0]
	}

	return properties
}

// BuildProfilePayload wraps attributes into a profile wire object. For a
// subscription type of "email" or "sms" a consent block is injected into
// the profile properties; otherwise the attributes pass through untouched.
func BuildProfilePayload(attrs domain.ProfileAttributes, subscriptionType string) domain.Profile {
	profile := domain.Profile{
		Type:       "profile",
		Attributes: attrs,
	}

	if subscriptionType != "email" && subscriptionType != "sms" {
		return profile
	}

	properties := map[string]interface{}{}
	for k, v := range attrs.Properties {
		properties[k] = v
	}
	properties[subscriptionType+"_marketing"] = map[string]interface{}{
		"can_receive_" + subscriptionType + "_marketing": true,
		"consent":           "subscribed",
		"consent_timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	profile.Attributes.Properties = properties

	return profile
}

// BuildListSubscriptionPayload builds the profile-subscription bulk
// create job body that attaches a profile to a list with email consent.
func BuildListSubscriptionPayload(profileID, listID, email string) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"type": "profile-subscription-bulk-create-job",
			"attributes": map[string]interface{}{
				"profiles": map[string]interface{}{
					"data": []map[string]interface{}{
						{
							"type": "profile",
							"id":   profileID,
							"attributes": map[string]interface{}{
								"email": email,
								"subscriptions": map[string]interface{}{
									"email": map[string]interface{}{
										"marketing": map[string]interface{}{
											"consent": "SUBSCRIBED",
										},
									},
								},
							},
						},
					},
				},
			},
			"relationships": map[string]interface{}{
				"list": map[string]interface{}{
					"data": map[string]interface{}{
						"type": "list",
						"id":   listID,
					},
				},
			},
		},
	}
}

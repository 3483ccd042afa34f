package domain

import "time"

// Order is the commerce order graph the payload builders depend on:
// totals, line items, addresses, shipping methods and payment
// transactions.
type Order struct {
	ID              string           `json:"id" bson:"_id"`
	DisplayID       int64            `json:"display_id" bson:"display_id"`
	Email           string           `json:"email" bson:"email"`
	CustomerID      string           `json:"customer_id" bson:"customer_id"`
	Status          string           `json:"status" bson:"status"`
	CurrencyCode    string           `json:"currency_code" bson:"currency_code"`
	Total           float64          `json:"total" bson:"total"`
	Subtotal        float64          `json:"subtotal" bson:"subtotal"`
	Items           []LineItem       `json:"items" bson:"items"`
	ShippingAddress *Address         `json:"shipping_address,omitempty" bson:"shipping_address,omitempty"`
	BillingAddress  *Address         `json:"billing_address,omitempty" bson:"billing_address,omitempty"`
	ShippingMethods []ShippingMethod `json:"shipping_methods" bson:"shipping_methods"`
	Transactions    []Transaction    `json:"transactions" bson:"transactions"`
	Fulfillments    []Fulfillment    `json:"fulfillments" bson:"fulfillments"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at"`
}

// LineItem is a purchased order line.
type LineItem struct {
	ID           string  `json:"id" bson:"id"`
	VariantSKU   string  `json:"variant_sku" bson:"variant_sku"`
	ProductTitle string  `json:"product_title" bson:"product_title"`
	UnitPrice    float64 `json:"unit_price" bson:"unit_price"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	Thumbnail    string  `json:"thumbnail" bson:"thumbnail"`
}

// Address is a shipping or billing address.
type Address struct {
	FirstName   string `json:"first_name" bson:"first_name"`
	LastName    string `json:"last_name" bson:"last_name"`
	Address1    string `json:"address_1" bson:"address_1"`
	Address2    string `json:"address_2" bson:"address_2"`
	City        string `json:"city" bson:"city"`
	CountryCode string `json:"country_code" bson:"country_code"`
	PostalCode  string `json:"postal_code" bson:"postal_code"`
	Phone       string `json:"phone" bson:"phone"`
}

// ShippingMethod is a selected shipping option on an order.
type ShippingMethod struct {
	ID     string  `json:"id" bson:"id"`
	Name   string  `json:"name" bson:"name"`
	Amount float64 `json:"amount" bson:"amount"`
}

// Transaction is a payment transaction attached to an order.
type Transaction struct {
	ID           string  `json:"id" bson:"id"`
	Amount       float64 `json:"amount" bson:"amount"`
	CurrencyCode string  `json:"currency_code" bson:"currency_code"`
	Reference    string  `json:"reference" bson:"reference"`
}

// Fulfillment links a shipment back to its order.
type Fulfillment struct {
	ID          string     `json:"id" bson:"id"`
	ProviderID  string     `json:"provider_id" bson:"provider_id"`
	PackedAt    *time.Time `json:"packed_at,omitempty" bson:"packed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty" bson:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

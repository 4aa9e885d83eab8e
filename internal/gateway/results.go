package gateway

import "encoding/json"

// NotAvailable marks a field the gateway omitted where the demo shows a placeholder.
const NotAvailable = "N/A"

// Customer is the normalised result of a customer creation.
type Customer struct {
	CustomerID string          `json:"customer_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	CreatedAt  string          `json:"created_at"`
	Raw        json.RawMessage `json:"raw"`
}

// PaymentIntent is the normalised result of a payment intent creation.
type PaymentIntent struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	OutTradeNo      string          `json:"out_trade_no"`
	Amount          string          `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Expiry          string          `json:"intent_expiry,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Raw             json.RawMessage `json:"raw"`
}

// TokenIntent is the normalised result of a token intent creation.
type TokenIntent struct {
	TokenIntentID string          `json:"token_intent_id"`
	CustomerID    string          `json:"customer_id"`
	Expiry        string          `json:"intent_expiry"`
	Raw           json.RawMessage `json:"raw"`
}

// Product is the normalised result of a product creation.
type Product struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Amount        string          `json:"amount"`
	Currency      string          `json:"currency"`
	Type          string          `json:"type,omitempty"`
	Interval      string          `json:"interval,omitempty"`
	IntervalCount string          `json:"interval_count,omitempty"`
	Raw           json.RawMessage `json:"raw"`
}

// Subscription is the normalised view of one subscription.
type Subscription struct {
	SubscriptionID     string          `json:"subscription_id"`
	CustomerID         string          `json:"customer_id"`
	State              string          `json:"state"`
	StartTime          string          `json:"start_time,omitempty"`
	TotalBillingCycles string          `json:"total_billing_cycles,omitempty"`
	Products           []ProductLine   `json:"products,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// SubscriptionPage is the normalised result of a subscription query.
type SubscriptionPage struct {
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	Total         int             `json:"total"`
	Subscriptions []Subscription  `json:"subscriptions"`
	Raw           json.RawMessage `json:"raw"`
}

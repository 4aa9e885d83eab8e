package gateway

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Number is a string field that also accepts a bare JSON number, so callers
// may send either "500" or 500 for amounts and counts.
type Number string

// UnmarshalJSON accepts a JSON string, a JSON number or null. Anything else
// is a *json.UnmarshalTypeError, which the decoder tags with the field path.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = ""
		return nil
	}
	if len(trimmed) == 0 {
		return &json.UnmarshalTypeError{Value: "empty", Type: reflect.TypeOf(*n)}
	}
	switch trimmed[0] {
	case '{':
		return &json.UnmarshalTypeError{Value: "object", Type: reflect.TypeOf(*n)}
	case '[':
		return &json.UnmarshalTypeError{Value: "array", Type: reflect.TypeOf(*n)}
	case 't', 'f':
		return &json.UnmarshalTypeError{Value: "bool", Type: reflect.TypeOf(*n)}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return err
	}
	*n = Number(num.String())
	return nil
}

// CustomerRequest creates a customer record. Blank fields fall back to demo values.
type CustomerRequest struct {
	Name  string `json:"name" validate:"omitempty,max=128"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (r CustomerRequest) values() map[string]string {
	return map[string]string{
		"name":  strings.TrimSpace(r.Name),
		"phone": strings.TrimSpace(r.Phone),
		"email": strings.TrimSpace(r.Email),
	}
}

// PaymentIntentRequest opens a one-time payment. Amount is in minor currency
// units. Expiry is forwarded verbatim.
type PaymentIntentRequest struct {
	Amount     Number `json:"amount" validate:"required,minor_units"`
	Currency   string `json:"currency" validate:"required,alpha,len=3"`
	CustomerID string `json:"customer_id" validate:"omitempty,max=64"`
	Expiry     string `json:"intent_expiry"`
	OutTradeNo string `json:"out_trade_no" validate:"omitempty,max=64"`
}

func (r PaymentIntentRequest) values() map[string]string {
	return map[string]string{
		"txamt":         string(r.Amount),
		"txcurrcd":      strings.ToUpper(strings.TrimSpace(r.Currency)),
		"customer_id":   strings.TrimSpace(r.CustomerID),
		"intent_expiry": r.Expiry,
		"out_trade_no":  strings.TrimSpace(r.OutTradeNo),
	}
}

// TokenIntentRequest opens a card tokenization session for a customer.
type TokenIntentRequest struct {
	CustomerID string `json:"customer_id" validate:"required,max=64"`
	Expiry     string `json:"intent_expiry"`
}

func (r TokenIntentRequest) values() map[string]string {
	return map[string]string{
		"customer_id":   strings.TrimSpace(r.CustomerID),
		"intent_expiry": r.Expiry,
	}
}

// ProductRequest creates a catalogue product, optionally with a billing plan.
type ProductRequest struct {
	Name          string `json:"name" validate:"required,max=128"`
	Amount        Number `json:"amount" validate:"required,minor_units"`
	Currency      string `json:"currency" validate:"required,alpha,len=3"`
	Type          string `json:"type"`
	Description   string `json:"description" validate:"omitempty,max=512"`
	Interval      string `json:"interval"`
	IntervalCount Number `json:"interval_count" validate:"omitempty,count"`
	UsageType     string `json:"usage_type"`
}

func (r ProductRequest) values() map[string]string {
	return map[string]string{
		"name":           strings.TrimSpace(r.Name),
		"amount":         string(r.Amount),
		"currency":       strings.ToUpper(strings.TrimSpace(r.Currency)),
		"type":           strings.TrimSpace(r.Type),
		"description":    r.Description,
		"interval":       strings.TrimSpace(r.Interval),
		"interval_count": string(r.IntervalCount),
		"usage_type":     strings.TrimSpace(r.UsageType),
	}
}

// ProductLine is one entry of a subscription's product list.
type ProductLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  Number `json:"quantity" validate:"required,count"`
}

// SubscriptionRequest subscribes a tokenized customer to one or more products.
type SubscriptionRequest struct {
	CustomerID         string        `json:"customer_id" validate:"required"`
	TokenID            string        `json:"token_id" validate:"required"`
	Products           []ProductLine `json:"products" validate:"required,min=1,dive"`
	TotalBillingCycles Number        `json:"total_billing_cycles" validate:"omitempty,count"`
	StartTime          string        `json:"start_time"`
}

func (r SubscriptionRequest) values() (map[string]string, error) {
	products, err := encodeProducts(r.Products)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"customer_id":          strings.TrimSpace(r.CustomerID),
		"token_id":             strings.TrimSpace(r.TokenID),
		"products":             products,
		"total_billing_cycles": string(r.TotalBillingCycles),
		"start_time":           r.StartTime,
	}, nil
}

type productLineWire struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
}

// encodeProducts serialises the product list in caller order. HTML escaping
// is disabled so the signed string matches what the gateway re-serialises.
func encodeProducts(lines []ProductLine) (string, error) {
	wire := make([]productLineWire, len(lines))
	for i, l := range lines {
		wire[i] = productLineWire{ProductID: l.ProductID, Quantity: json.Number(l.Quantity)}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// SubscriptionQuery filters and pages the merchant's subscriptions.
type SubscriptionQuery struct {
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
	State          string `json:"state"`
	Page           Number `json:"page" validate:"omitempty,count"`
	PageSize       Number `json:"page_size" validate:"omitempty,count"`
}

func (q SubscriptionQuery) values() map[string]string {
	return map[string]string{
		"subscription_id": strings.TrimSpace(q.SubscriptionID),
		"customer_id":     strings.TrimSpace(q.CustomerID),
		"state":           strings.TrimSpace(q.State),
		"page":            string(q.Page),
		"page_size":       string(q.PageSize),
	}
}

package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/noah-isme/gateway-demo/internal/signing"
)

// SuccessCode is the response_code the gateway returns on success.
const SuccessCode = "0000"

const maxBodyInError = 2048

// checkResponse applies the status and response_code rules shared by every
// operation and returns the parsed document on success.
func checkResponse(status int, raw []byte) (gjson.Result, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return gjson.Result{}, &Error{
			Kind:    KindTransport,
			Status:  status,
			Message: http.StatusText(status),
			Body:    truncate(string(raw)),
		}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Error{
			Kind:    KindTransport,
			Status:  status,
			Message: "malformed gateway response",
			Body:    truncate(string(raw)),
		}
	}
	root := gjson.ParseBytes(raw)
	code := root.Get("response_code")
	if !code.Exists() || code.String() != SuccessCode {
		msg := root.Get("response_message").String()
		if msg == "" {
			msg = "unknown"
		}
		return gjson.Result{}, &Error{
			Kind:    KindApplication,
			Code:    code.String(),
			Message: msg,
			Status:  status,
			Body:    truncate(string(raw)),
		}
	}
	return root, nil
}

func truncate(s string) string {
	if len(s) <= maxBodyInError {
		return s
	}
	return s[:maxBodyInError]
}

// lookup returns the first non-null value among keys, checking the nested
// data payload before the top level of doc.
func lookup(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		for _, path := range [...]string{"data." + k, k} {
			if r := doc.Get(path); r.Exists() && r.Type != gjson.Null {
				return r.String()
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func rawCopy(raw []byte) json.RawMessage {
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func mapCustomer(doc gjson.Result, raw []byte, sent signing.Params, now time.Time) Customer {
	return Customer{
		CustomerID: lookup(doc, "customer_id", "id"),
		Name:       firstNonEmpty(lookup(doc, "name"), sent["name"]),
		Email:      firstNonEmpty(lookup(doc, "email"), sent["email"]),
		Phone:      firstNonEmpty(lookup(doc, "phone"), sent["phone"]),
		CreatedAt: firstNonEmpty(
			lookup(doc, "created_at", "create_time"),
			doc.Get("server_datetime").String(),
			now.UTC().Format(TimestampLayout),
		),
		Raw: rawCopy(raw),
	}
}

func mapPaymentIntent(doc gjson.Result, raw []byte, sent signing.Params) PaymentIntent {
	return PaymentIntent{
		PaymentIntentID: lookup(doc, "payment_intent", "payment_intent_id", "id"),
		OutTradeNo:      firstNonEmpty(lookup(doc, "out_trade_no"), sent["out_trade_no"]),
		Amount:          firstNonEmpty(lookup(doc, "txamt"), sent["txamt"]),
		Currency:        firstNonEmpty(lookup(doc, "txcurrcd"), sent["txcurrcd"]),
		Status:          lookup(doc, "status", "state"),
		Expiry:          firstNonEmpty(lookup(doc, "intent_expiry"), sent["intent_expiry"]),
		CustomerID:      firstNonEmpty(lookup(doc, "customer_id"), sent["customer_id"]),
		Raw:             rawCopy(raw),
	}
}

func mapTokenIntent(doc gjson.Result, raw []byte, sent signing.Params) TokenIntent {
	return TokenIntent{
		TokenIntentID: firstNonEmpty(lookup(doc, "token_intent", "token_intent_id", "id"), NotAvailable),
		CustomerID:    firstNonEmpty(lookup(doc, "customer_id"), sent["customer_id"]),
		Expiry:        firstNonEmpty(lookup(doc, "intent_expiry", "expiry"), NotAvailable),
		Raw:           rawCopy(raw),
	}
}

func mapProduct(doc gjson.Result, raw []byte, sent signing.Params) Product {
	return Product{
		ProductID:     lookup(doc, "product_id", "id"),
		Name:          firstNonEmpty(lookup(doc, "name"), sent["name"]),
		Amount:        firstNonEmpty(lookup(doc, "amount"), sent["amount"]),
		Currency:      firstNonEmpty(lookup(doc, "currency"), sent["currency"]),
		Type:          firstNonEmpty(lookup(doc, "type"), sent["type"]),
		Interval:      firstNonEmpty(lookup(doc, "interval"), sent["interval"]),
		IntervalCount: firstNonEmpty(lookup(doc, "interval_count"), sent["interval_count"]),
		Raw:           rawCopy(raw),
	}
}

func mapSubscription(doc gjson.Result, raw []byte, sent signing.Params, lines []ProductLine) Subscription {
	return Subscription{
		SubscriptionID:     lookup(doc, "subscription_id", "id"),
		CustomerID:         firstNonEmpty(lookup(doc, "customer_id"), sent["customer_id"]),
		State:              lookup(doc, "state", "status"),
		StartTime:          firstNonEmpty(lookup(doc, "start_time"), sent["start_time"]),
		TotalBillingCycles: firstNonEmpty(lookup(doc, "total_billing_cycles"), sent["total_billing_cycles"]),
		Products:           lines,
		Raw:                rawCopy(raw),
	}
}

func mapSubscriptionPage(doc gjson.Result, raw []byte, sent signing.Params) SubscriptionPage {
	page := SubscriptionPage{
		Page:          atoiOr(lookup(doc, "page"), atoiOr(sent["page"], 1)),
		PageSize:      atoiOr(lookup(doc, "page_size"), atoiOr(sent["page_size"], 10)),
		Subscriptions: []Subscription{},
		Raw:           rawCopy(raw),
	}
	items := subscriptionItems(doc)
	for _, item := range items {
		page.Subscriptions = append(page.Subscriptions, Subscription{
			SubscriptionID:     lookup(item, "subscription_id", "id"),
			CustomerID:         lookup(item, "customer_id"),
			State:              lookup(item, "state", "status"),
			StartTime:          lookup(item, "start_time"),
			TotalBillingCycles: lookup(item, "total_billing_cycles"),
		})
	}
	page.Total = atoiOr(lookup(doc, "total", "total_count"), len(items))
	return page
}

func subscriptionItems(doc gjson.Result) []gjson.Result {
	for _, path := range [...]string{"data.subscriptions", "subscriptions", "data.list", "data"} {
		if r := doc.Get(path); r.IsArray() {
			return r.Array()
		}
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return fallback
}

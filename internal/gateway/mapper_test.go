package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-demo/internal/signing"
)

func TestCheckResponse(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		doc, err := checkResponse(http.StatusOK, []byte(`{"response_code":"0000","data":{"customer_id":"c1"}}`))
		require.NoError(t, err)
		require.Equal(t, "c1", lookup(doc, "customer_id"))
	})

	t.Run("application failure", func(t *testing.T) {
		_, err := checkResponse(http.StatusOK, []byte(`{"response_code":"1001","response_message":"bad sign"}`))
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		require.Equal(t, KindApplication, gerr.Kind)
		require.Equal(t, "1001", gerr.Code)
		require.Equal(t, "bad sign", gerr.Message)
		require.Equal(t, http.StatusUnprocessableEntity, gerr.HTTPStatus())
	})

	t.Run("missing response code", func(t *testing.T) {
		_, err := checkResponse(http.StatusOK, []byte(`{"data":{}}`))
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		require.Equal(t, KindApplication, gerr.Kind)
		require.Equal(t, "unknown", gerr.Message)
	})

	t.Run("http failure", func(t *testing.T) {
		_, err := checkResponse(http.StatusInternalServerError, []byte(`oops`))
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		require.Equal(t, KindTransport, gerr.Kind)
		require.Equal(t, http.StatusInternalServerError, gerr.Status)
		require.Equal(t, "oops", gerr.Body)
		require.Equal(t, http.StatusBadGateway, gerr.HTTPStatus())
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := checkResponse(http.StatusOK, []byte(`<html>`))
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		require.Equal(t, KindTransport, gerr.Kind)
		require.Equal(t, "malformed gateway response", gerr.Message)
	})

	t.Run("body truncated", func(t *testing.T) {
		_, err := checkResponse(http.StatusBadGateway, []byte(strings.Repeat("x", 5000)))
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		require.Len(t, gerr.Body, maxBodyInError)
	})
}

func TestLookupPrefersData(t *testing.T) {
	doc, err := checkResponse(http.StatusOK, []byte(`{"response_code":"0000","id":"top","data":{"id":"nested"},"name":"n"}`))
	require.NoError(t, err)
	require.Equal(t, "nested", lookup(doc, "id"))
	require.Equal(t, "n", lookup(doc, "name"))
	require.Equal(t, "", lookup(doc, "missing"))
}

func TestMapCustomerCreatedAtFallbacks(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sent := signing.Params{"name": "Ada", "email": "a@x.io", "phone": "1"}

	raw := []byte(`{"response_code":"0000","server_datetime":"2024-01-01 00:00:00","data":{"customer_id":"c9"}}`)
	doc, err := checkResponse(http.StatusOK, raw)
	require.NoError(t, err)
	c := mapCustomer(doc, raw, sent, now)
	require.Equal(t, "c9", c.CustomerID)
	require.Equal(t, "Ada", c.Name)
	require.Equal(t, "2024-01-01 00:00:00", c.CreatedAt)
	require.JSONEq(t, string(raw), string(c.Raw))

	raw = []byte(`{"response_code":"0000"}`)
	doc, err = checkResponse(http.StatusOK, raw)
	require.NoError(t, err)
	require.Equal(t, "2024-01-02 03:04:05", mapCustomer(doc, raw, sent, now).CreatedAt)
}

func TestMapTokenIntentPlaceholders(t *testing.T) {
	raw := []byte(`{"response_code":"0000"}`)
	doc, err := checkResponse(http.StatusOK, raw)
	require.NoError(t, err)
	ti := mapTokenIntent(doc, raw, signing.Params{"customer_id": "c1"})
	require.Equal(t, NotAvailable, ti.TokenIntentID)
	require.Equal(t, NotAvailable, ti.Expiry)
	require.Equal(t, "c1", ti.CustomerID)
}

func TestMapPaymentIntentFallsBackToSent(t *testing.T) {
	raw := []byte(`{"response_code":"0000","data":{"payment_intent":"pi_1","status":"created"}}`)
	doc, err := checkResponse(http.StatusOK, raw)
	require.NoError(t, err)
	pi := mapPaymentIntent(doc, raw, signing.Params{"txamt": "500", "txcurrcd": "HKD", "out_trade_no": "t1"})
	require.Equal(t, "pi_1", pi.PaymentIntentID)
	require.Equal(t, "500", pi.Amount)
	require.Equal(t, "HKD", pi.Currency)
	require.Equal(t, "t1", pi.OutTradeNo)
	require.Equal(t, "created", pi.Status)
	require.Empty(t, pi.Expiry)
}

func TestMapSubscriptionPage(t *testing.T) {
	t.Run("defaults reflected", func(t *testing.T) {
		raw := []byte(`{"response_code":"0000","data":{}}`)
		doc, err := checkResponse(http.StatusOK, raw)
		require.NoError(t, err)
		page := mapSubscriptionPage(doc, raw, signing.Params{"page": "1", "page_size": "10"})
		require.Equal(t, 1, page.Page)
		require.Equal(t, 10, page.PageSize)
		require.Equal(t, 0, page.Total)
		require.NotNil(t, page.Subscriptions)

		out, err := json.Marshal(page)
		require.NoError(t, err)
		require.Contains(t, string(out), `"subscriptions":[]`)
	})

	t.Run("items", func(t *testing.T) {
		raw := []byte(`{"response_code":"0000","data":{"page":2,"page_size":5,"total":7,"subscriptions":[
			{"subscription_id":"s1","customer_id":"c1","state":"active"},
			{"id":"s2","status":"canceled"}]}}`)
		doc, err := checkResponse(http.StatusOK, raw)
		require.NoError(t, err)
		page := mapSubscriptionPage(doc, raw, signing.Params{"page": "1", "page_size": "10"})
		require.Equal(t, 2, page.Page)
		require.Equal(t, 5, page.PageSize)
		require.Equal(t, 7, page.Total)
		require.Len(t, page.Subscriptions, 2)
		require.Equal(t, "s1", page.Subscriptions[0].SubscriptionID)
		require.Equal(t, "active", page.Subscriptions[0].State)
		require.Equal(t, "s2", page.Subscriptions[1].SubscriptionID)
		require.Equal(t, "canceled", page.Subscriptions[1].State)
	})

	t.Run("total falls back to item count", func(t *testing.T) {
		raw := []byte(`{"response_code":"0000","data":[{"id":"s1"}]}`)
		doc, err := checkResponse(http.StatusOK, raw)
		require.NoError(t, err)
		page := mapSubscriptionPage(doc, raw, signing.Params{})
		require.Equal(t, 1, page.Total)
		require.Equal(t, 1, page.Page)
		require.Equal(t, 10, page.PageSize)
	})
}

package common_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-demo/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}, mr
}

func TestIdemRejectsReplay(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	send := func(path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(common.IdempotencyHeader, key)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, send("/api/payment-intents", "abc").Code)
	replay := send("/api/payment-intents", "abc")
	require.Equal(t, http.StatusConflict, replay.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(replay.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "duplicate request", body.Error)
	require.Equal(t, "IDEMPOTENT_REPLAY", body.Details.Code)
	require.Equal(t, http.StatusConflict, body.Details.Status)

	require.Equal(t, http.StatusOK, send("/api/customers", "abc").Code, "keys are scoped per route")
	require.Equal(t, 2, calls)
}

func TestIdemKeyExpires(t *testing.T) {
	idem, mr := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set(common.IdempotencyHeader, "k1")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr.Code)

	mr.FastForward(2 * time.Minute)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestIdemPassThroughWithoutHeader(t *testing.T) {
	handler := common.Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/customers", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestIdemIgnoresSafeMethods(t *testing.T) {
	idem, _ := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/environment", nil)
		req.Header.Set(common.IdempotencyHeader, "same")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestIdemFailedAttemptReleasesKey(t *testing.T) {
	idem, mr := newIdem(t)
	statuses := []int{http.StatusBadGateway, http.StatusOK, http.StatusOK}
	calls := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/payment-intents", nil)
		req.Header.Set(common.IdempotencyHeader, "retry-me")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusBadGateway, send())
	require.Empty(t, mr.Keys(), "failed attempt must not hold the key")

	require.Equal(t, http.StatusOK, send(), "retry with the same key after a gateway failure")
	require.Len(t, mr.Keys(), 1)

	require.Equal(t, http.StatusConflict, send(), "succeeded attempt keeps the key")
	require.Equal(t, 2, calls)
}

func TestIdemReleasesKeyOnClientErrorAndPanic(t *testing.T) {
	idem, mr := newIdem(t)

	unprocessable := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		common.Failure(w, http.StatusUnprocessableEntity, "declined", nil)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/customers", nil)
	req.Header.Set(common.IdempotencyHeader, "k")
	unprocessable.ServeHTTP(httptest.NewRecorder(), req)
	require.Empty(t, mr.Keys())

	panicking := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req = httptest.NewRequest(http.MethodPost, "/api/customers", nil)
	req.Header.Set(common.IdempotencyHeader, "k")
	require.PanicsWithValue(t, "boom", func() {
		panicking.ServeHTTP(httptest.NewRecorder(), req)
	})
	require.Empty(t, mr.Keys())
}

func TestIdemHandlerWithoutWriteHoldsKey(t *testing.T) {
	idem, mr := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set(common.IdempotencyHeader, "quiet")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, mr.Keys(), 1)
}

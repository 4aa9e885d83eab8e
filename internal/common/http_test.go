package common_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-demo/internal/common"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "192.0.2.10", common.ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	require.Equal(t, "198.51.100.7", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	require.Equal(t, "203.0.113.1", common.ClientIP(req))
}

func TestEnvelopes(t *testing.T) {
	rr := httptest.NewRecorder()
	common.Success(rr, http.StatusCreated, map[string]any{"customer": map[string]string{"customer_id": "c1"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"success":true,"customer":{"customer_id":"c1"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.Failure(rr, http.StatusBadRequest, "amount: is required", map[string]string{"kind": "validation"})
	require.JSONEq(t, `{"success":false,"error":"amount: is required","details":{"kind":"validation"}}`, rr.Body.String())
}

func TestWriteAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteAppError(rr, common.NewAppError("IDEMPOTENT_REPLAY", "duplicate request", http.StatusConflict, nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.JSONEq(t, `{"success":false,"error":"duplicate request","details":{"code":"IDEMPOTENT_REPLAY","status":409}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	common.WriteAppError(rr, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"success":false,"error":"internal error","details":{"code":"INTERNAL","status":500}}`, rr.Body.String())
}

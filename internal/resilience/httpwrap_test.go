package resilience_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-demo/internal/resilience"
)

func TestHTTPClientSingleAttempt(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{Client: srv.Client()}
	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)

	resp, cancel, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer cancel()
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "boom", string(body))
	require.EqualValues(t, 1, atomic.LoadInt32(&hits), "5xx must not be retried")
}

func TestHTTPClientOpenBreakerSkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	cl := resilience.HTTPClient{Client: srv.Client(), Breaker: breaker}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, cancel, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	cancel()

	_, _, err = cl.Do(context.Background(), req)
	require.True(t, errors.Is(err, resilience.ErrOpenCircuit))
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestHTTPClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{Client: srv.Client(), Timeout: 20 * time.Millisecond}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, _, err = cl.Do(context.Background(), req)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTPClientRequiresClient(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)
	_, _, err = resilience.HTTPClient{}.Do(context.Background(), req)
	require.Error(t, err)
}

func TestHTTPClientCanceledCallDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	cl := resilience.HTTPClient{Client: srv.Client(), Breaker: breaker, Timeout: time.Second}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = cl.Do(ctx, req)
	require.Error(t, err)
	require.Equal(t, resilience.Closed, breaker.State())
	require.Equal(t, resilience.Counts{}, breaker.Counts())
}

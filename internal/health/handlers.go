package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotConfigured reports a dependency that was never wired.
var ErrNotConfigured = errors.New("not configured")

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness; the server flips it off while draining.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	CheckGateway(ctx context.Context) error
}

// Deps is the production Checker. Redis is optional; when nil it is reported
// as disabled rather than failing readiness.
type Deps struct {
	Redis             *redis.Client
	GatewayConfigured bool
}

// PingRedis pings Redis within timeout.
func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// CheckGateway reports whether default merchant credentials are present.
func (d Deps) CheckGateway(context.Context) error {
	if !d.GatewayConfigured {
		return errors.New("gateway credentials missing")
	}
	return nil
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil || !ready.Load() {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	healthy := true
	redisStatus := "ok"
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			redisStatus = "disabled"
		} else {
			redisStatus = err.Error()
			healthy = false
		}
	}
	gatewayStatus := "ok"
	if err := h.Checker.CheckGateway(ctx); err != nil {
		gatewayStatus = err.Error()
		healthy = false
	}
	status := map[string]string{
		"redis":   redisStatus,
		"gateway": gatewayStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

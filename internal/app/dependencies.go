package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gateway-demo/internal/config"
	"github.com/noah-isme/gateway-demo/internal/gateway"
	"github.com/noah-isme/gateway-demo/internal/ratelimit"
	"github.com/noah-isme/gateway-demo/internal/resilience"
	"github.com/noah-isme/gateway-demo/internal/signing"
)

// Dependencies enumerates the services shared by the HTTP layer.
type Dependencies struct {
	Redis   *redis.Client
	Limiter ratelimit.Limiter
	Breaker *resilience.Breaker
	Gateway *gateway.Client
}

// Options tunes optional instrumentation.
type Options struct {
	RedisMetrics bool
}

// New wires dependencies from cfg. Redis is optional; without it the rate
// limiter falls back to process memory and idempotency keys are not enforced.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.RedisURL != "" {
		rdb, err := NewRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = rdb
	}
	deps.Limiter = NewLimiter(deps.Redis)

	if cfg.Gateway.BreakerEnabled {
		deps.Breaker = resilience.NewBreaker(5, 0.5, 30*time.Second).
			WithTarget("gateway").
			WithLogger(logger)
	}

	client, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		AppCode:   cfg.Gateway.AppCode,
		Secret:    cfg.Gateway.SecretKey,
		Algorithm: signing.Algorithm(cfg.Gateway.SignatureType),
		Timeout:   cfg.Gateway.Timeout,
		Breaker:   deps.Breaker,
		Logger:    logger.With().Str("component", "gateway").Logger(),
	})
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("initialise gateway client: %w", err)
	}
	deps.Gateway = client
	return deps, nil
}

// NewRedis connects to url, instruments the client and verifies it answers.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewLimiter prefers the shared Redis sliding window and falls back to an
// in-process fixed window.
func NewLimiter(rdb *redis.Client) ratelimit.Limiter {
	if rdb != nil {
		return ratelimit.SlidingWindow{Client: rdb, Prefix: "ratelimit:"}
	}
	return ratelimit.NewMemoryFixedWindow("ratelimit", time.Minute)
}

// Close releases held connections.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	if err := d.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

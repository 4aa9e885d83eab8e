package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Gateway environments selectable through GATEWAY_ENV.
const (
	GatewayEnvTest    = "test"
	GatewayEnvSandbox = "sandbox"
	GatewayEnvLive    = "live"
)

// gatewayURLKeys maps each gateway environment to the variable holding its endpoint.
var gatewayURLKeys = map[string]string{
	GatewayEnvTest:    "GATEWAY_TEST_URL",
	GatewayEnvSandbox: "GATEWAY_SANDBOX_URL",
	GatewayEnvLive:    "GATEWAY_LIVE_URL",
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string
	RedisURL           string

	Gateway GatewayConfig

	IdempotencyTTL         time.Duration
	RateLimitMax           int
	RateLimitWindow        time.Duration
	BodyLimitBytes         int64
	SecurityHeadersEnabled bool
}

// GatewayConfig describes the payment gateway endpoint and merchant credentials.
type GatewayConfig struct {
	Env            string
	BaseURL        string
	AppCode        string
	SecretKey      string
	SignatureType  string
	Timeout        time.Duration
	BreakerEnabled bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		Gateway: GatewayConfig{
			Env:            strings.ToLower(valueOrDefault(k.String("GATEWAY_ENV"), GatewayEnvSandbox)),
			AppCode:        strings.TrimSpace(k.String("GATEWAY_APP_CODE")),
			SecretKey:      k.String("GATEWAY_SECRET_KEY"),
			SignatureType:  strings.ToUpper(valueOrDefault(k.String("GATEWAY_SIGNATURE_TYPE"), "SHA256")),
			Timeout:        parseDuration(k.String("GATEWAY_TIMEOUT"), "15s"),
			BreakerEnabled: parseBool(k.String("GATEWAY_BREAKER_ENABLED"), true),
		},
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitMax:           parseInt(k.String("RATE_LIMIT_MAX"), 60),
		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
	}

	urlKey, ok := gatewayURLKeys[cfg.Gateway.Env]
	if !ok {
		return nil, fmt.Errorf("GATEWAY_ENV must be one of test, sandbox, live (got %q)", cfg.Gateway.Env)
	}
	cfg.Gateway.BaseURL = strings.TrimSpace(k.String("GATEWAY_BASE_URL"))
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = strings.TrimSpace(k.String(urlKey))
	}
	if cfg.Gateway.BaseURL == "" {
		return nil, fmt.Errorf("GATEWAY_BASE_URL or %s is required", urlKey)
	}
	switch cfg.Gateway.SignatureType {
	case "MD5", "SHA256":
	default:
		return nil, errors.New("GATEWAY_SIGNATURE_TYPE must be MD5 or SHA256")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// GatewayCredentialsConfigured reports whether server-side signing can work
// without per-request credentials.
func (c *Config) GatewayCredentialsConfigured() bool {
	return c.Gateway.AppCode != "" && c.Gateway.SecretKey != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header carrying the caller's idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// Idem rejects replays of write requests that carry an Idempotency-Key header.
// Gateway calls are not retried internally, so this is the caller-facing guard
// against double submission of the same payment attempt. A key is held only
// by an attempt that answered 2xx; failed or panicking attempts release it so
// the caller can retry with the same key.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(path, key string) string {
	sum := sha256.Sum256([]byte(path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if header == "" || i.R == nil || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		key := hashKey(r.URL.Path, header)
		ok, err := i.R.SetNX(r.Context(), key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
		if err != nil {
			WriteAppError(w, NewAppError("INTERNAL", "idempotency store error", http.StatusInternalServerError, err))
			return
		}
		if !ok {
			WriteAppError(w, NewAppError("IDEMPOTENT_REPLAY", "duplicate request", http.StatusConflict, nil))
			return
		}

		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				i.release(r.Context(), key)
				panic(p)
			}
			if status := sw.Status(); status < 200 || status > 299 {
				i.release(r.Context(), key)
			}
		}()
		next.ServeHTTP(sw, r)
	})
}

// release drops a claimed key. It runs even when the request context has
// already been canceled.
func (i Idem) release(ctx context.Context, key string) {
	_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
}

// statusWriter records the first status written.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(p)
}

// Status reports the answered status; a handler that wrote nothing answered 200.
func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

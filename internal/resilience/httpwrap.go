package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPClient performs exactly one attempt per request, bounded by Timeout and
// guarded by an optional circuit breaker. It never retries; callers own their
// retry policy.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do sends req once. When the breaker is open ErrOpenCircuit is returned
// without touching the network. Transport errors, timeouts and 5xx responses
// count as breaker failures; any other response counts as a success. A call
// abandoned through ctx is not counted.
//
// The caller must close the response body. The timeout covers the whole
// exchange, so the body has to be read before Do's context deadline fires;
// the returned cancel func releases it once the body is consumed.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, context.CancelFunc, error) {
	if cl.Client == nil {
		return nil, nil, errors.New("resilience: http client not configured")
	}
	if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
		return nil, nil, ErrOpenCircuit
	}

	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if cl.Breaker != nil {
		if err != nil && ctx.Err() != nil {
			// the caller gave up; nothing was learned about the upstream
			cl.Breaker.Release(ctx)
		} else {
			cl.Breaker.Report(ctx, err == nil && resp.StatusCode < http.StatusInternalServerError)
		}
	}
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

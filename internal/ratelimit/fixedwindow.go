package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// FixedWindow adapts a ulule limiter store to Limiter. Counters reset at the
// end of each window instead of sliding.
type FixedWindow struct {
	Store limiter.Store
}

// NewMemoryFixedWindow returns a process-local FixedWindow whose expired
// counters are swept every cleanup.
func NewMemoryFixedWindow(prefix string, cleanup time.Duration) FixedWindow {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return FixedWindow{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: cleanup,
	})}
}

// Allow counts one event for key in the current window.
func (f FixedWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if f.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	lim := limiter.New(f.Store, limiter.Rate{Period: window, Limit: int64(max)})
	res, err := lim.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}

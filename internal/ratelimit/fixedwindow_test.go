package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedWindowCountsPerKey(t *testing.T) {
	lim := NewMemoryFixedWindow("fw", time.Minute)
	ctx := context.Background()

	allowed, remaining, reset, err := lim.Allow(ctx, "a", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, remaining, _, err = lim.Allow(ctx, "a", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 0, remaining)

	allowed, _, _, err = lim.Allow(ctx, "a", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, _, _, err = lim.Allow(ctx, "b", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestFixedWindowDisabled(t *testing.T) {
	allowed, remaining, _, err := FixedWindow{}.Allow(context.Background(), "a", time.Minute, 5)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 5, remaining)
}

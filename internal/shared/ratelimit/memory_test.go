package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	rule := Rule{Limit: 2, Window: time.Minute}
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	d, err := l.Allow(ctx, "u1|chat", rule, start)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, _ = l.Allow(ctx, "u1|chat", rule, start.Add(10*time.Second))
	assert.True(t, d.Allowed)

	d, _ = l.Allow(ctx, "u1|chat", rule, start.Add(20*time.Second))
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	// First hit leaves the window.
	d, _ = l.Allow(ctx, "u1|chat", rule, start.Add(61*time.Second))
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	rule := Rule{Limit: 1, Window: time.Minute}
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	d, _ := l.Allow(ctx, "u1|chat", rule, now)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "u2|chat", rule, now)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "u1|generate", rule, now)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "u1|chat", rule, now)
	assert.False(t, d.Allowed)
}

func TestMemoryLimiterSweepEvictsIdleKeys(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	rule := Rule{Limit: 5, Window: time.Minute}
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, _ = l.Allow(ctx, "old", rule, now)
	_, _ = l.Allow(ctx, "fresh", rule, now.Add(50*time.Second))
	require.Equal(t, 2, l.Len())

	removed := l.Sweep(now.Add(90 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())

	removed = l.Sweep(now.Add(5 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLimiterDisabledRule(t *testing.T) {
	l := NewMemoryLimiter()
	for i := 0; i < 10; i++ {
		d, err := l.Allow(context.Background(), "k", Rule{}, time.Now())
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.Equal(t, 0, l.Len())
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter is a per-process sliding-window limiter. Idle keys are only
// evicted by Sweep; no background janitor runs.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *cache.Cache
}

type window struct {
	stamps []time.Time
	span   time.Duration
}

// NewMemoryLimiter constructs an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: cache.New(cache.NoExpiration, 0)}
}

// Allow records a hit for key when it fits in the window.
func (l *MemoryLimiter) Allow(ctx context.Context, key string, rule Rule, now time.Time) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if !rule.Enabled() {
		return Decision{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := &window{span: rule.Window}
	if raw, ok := l.windows.Get(key); ok {
		w = raw.(*window)
		w.span = rule.Window
	}
	w.stamps = trimBefore(w.stamps, now.Add(-rule.Window))

	if len(w.stamps) >= rule.Limit {
		retry := rule.Window - now.Sub(w.stamps[0])
		if retry < 0 {
			retry = 0
		}
		l.windows.Set(key, w, cache.NoExpiration)
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	w.stamps = append(w.stamps, now)
	l.windows.Set(key, w, cache.NoExpiration)
	return Decision{Allowed: true}, nil
}

// Sweep drops keys with no hits inside their window as of now and returns
// how many were removed.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, item := range l.windows.Items() {
		w, ok := item.Object.(*window)
		if !ok {
			l.windows.Delete(key)
			removed++
			continue
		}
		w.stamps = trimBefore(w.stamps, now.Add(-w.span))
		if len(w.stamps) == 0 {
			l.windows.Delete(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	return l.windows.ItemCount()
}

// trimBefore drops stamps at or before cutoff; stamps are kept in ascending order.
func trimBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

var _ Limiter = (*MemoryLimiter)(nil)

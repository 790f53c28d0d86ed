package ratelimit

import (
	"context"
	"time"
)

// Rule caps a key at Limit requests per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed at now.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule, now time.Time) (Decision, error)
}

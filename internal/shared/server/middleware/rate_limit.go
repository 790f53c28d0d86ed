package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/ratelimit"
	"resumegen-api/internal/shared/telemetry"
)

const (
	RateGroupChat     = "CHAT"
	RateGroupGenerate = "GENERATE"
	RateGroupUpload   = "UPLOAD"
)

// RateLimitConfig selects a rule group per request and checks it against Limiter.
// Requests whose group has no rule pass through.
type RateLimitConfig struct {
	Rules    map[string]ratelimit.Rule
	GroupFor func(*gin.Context) string
	Limiter  ratelimit.Limiter
	Now      func() time.Time
}

// DefaultRateRules are the per-user limits for the expensive routes.
func DefaultRateRules() map[string]ratelimit.Rule {
	return map[string]ratelimit.Rule{
		RateGroupChat:     {Limit: 20, Window: time.Minute},
		RateGroupGenerate: {Limit: 5, Window: time.Minute},
		RateGroupUpload:   {Limit: 10, Window: time.Minute},
	}
}

// RateGroupForRoute maps the matched route to its rate group.
func RateGroupForRoute(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/resumes/:id/chat"):
		return RateGroupChat
	case strings.HasSuffix(path, "/resumes/:id/generate"):
		return RateGroupGenerate
	case strings.HasSuffix(path, "/upload"):
		return RateGroupUpload
	default:
		return ""
	}
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewMemoryLimiter()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GroupFor == nil {
		cfg.GroupFor = RateGroupForRoute
	}
	return func(c *gin.Context) {
		group := strings.TrimSpace(cfg.GroupFor(c))
		rule, ok := cfg.Rules[group]
		if group == "" || !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group

		decision, err := cfg.Limiter.Allow(c.Request.Context(), key, rule, cfg.Now())
		if err != nil {
			// Limiter backend outage must not take the API down.
			telemetry.Warn("ratelimit.unavailable", map[string]any{
				"request_id": RequestIDFromContext(c),
				"group":      group,
				"error":      err,
			})
			c.Next()
			return
		}
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfterMs := int(decision.RetryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"message":      fmt.Sprintf("Too many requests. Please wait %d seconds before trying again.", retryAfterSeconds),
			"retryAfterMs": retryAfterMs,
		})
		c.Abort()
	}
}

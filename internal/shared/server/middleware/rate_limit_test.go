package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/ratelimit"
)

func newRateLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "guest:test-guest")
		c.Next()
	})
	r.Use(RateLimit(cfg))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.POST("/api/v1/resumes/:id/chat", ok)
	r.POST("/api/v1/resumes/:id/generate", ok)
	r.GET("/api/v1/resumes/:id", ok)
	return r
}

func TestRateLimitGroupsAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := newRateLimitedRouter(RateLimitConfig{
		Limiter: ratelimit.NewMemoryLimiter(),
		Now:     func() time.Time { return now },
		Rules: map[string]ratelimit.Rule{
			RateGroupChat:     {Limit: 3, Window: time.Minute},
			RateGroupGenerate: {Limit: 1, Window: time.Minute},
		},
	})

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/chat", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("chat request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/generate", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("generate expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/chat", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("chat request 4 expected 429, got %d", resp.Code)
	}

	// Unlimited routes are not affected.
	for i := 0; i < 10; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/r1", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("read request %d expected 200, got %d", i+1, resp.Code)
		}
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := newRateLimitedRouter(RateLimitConfig{
		Limiter: ratelimit.NewMemoryLimiter(),
		Now:     func() time.Time { return now },
		Rules: map[string]ratelimit.Rule{
			RateGroupGenerate: {Limit: 1, Window: time.Minute},
		},
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/generate", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/generate", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if got := resp2.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "rate_limited" {
		t.Fatalf("expected error=rate_limited")
	}
	if payload["retryAfterMs"] != float64(60000) {
		t.Fatalf("expected retryAfterMs 60000, got %v", payload["retryAfterMs"])
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, ratelimit.Rule, time.Time) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis down")
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRateLimitedRouter(RateLimitConfig{
		Limiter: failingLimiter{},
		Rules:   DefaultRateRules(),
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/chat", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 when limiter fails, got %d", resp.Code)
	}
}

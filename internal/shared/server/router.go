package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	googleauth "resumegen-api/internal/auth"
	"resumegen-api/internal/chat"
	"resumegen-api/internal/credits"
	"resumegen-api/internal/documents"
	"resumegen-api/internal/resumes"
	"resumegen-api/internal/shared/config"
	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/ratelimit"
	"resumegen-api/internal/shared/server/middleware"
	"resumegen-api/internal/shared/server/respond"
	"resumegen-api/internal/shared/telemetry"
	"resumegen-api/internal/users"
)

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	ResumeHandler   *resumes.Handler
	ChatHandler     *chat.Handler
	CreditHandler   *credits.Handler
	DocumentHandler *documents.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	Limiter         ratelimit.Limiter
	// Ready backs /health/ready; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	// Probes and metrics sit outside auth.
	r.GET("/health", health)
	r.GET("/health/ready", ready(deps.Ready))
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:   middleware.DefaultRateRules(),
			Limiter: deps.Limiter,
		}),
	)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api)
	}
	if deps.CreditHandler != nil {
		deps.CreditHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.Config.IsDevLike() && deps.CreditHandler != nil {
		dev := api.Group("/dev")
		deps.CreditHandler.RegisterDevRoutes(dev)
	}

	return r
}

func health(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"ok": true})
}

func ready(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				telemetry.Warn("health.not_ready", map[string]any{"error": err})
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable", nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

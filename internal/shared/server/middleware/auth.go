package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/auth"
	"resumegen-api/internal/shared/server/respond"
	"resumegen-api/internal/shared/telemetry"
)

const (
	userIDKey   = "userId"
	isGuestKey  = "isGuest"
	identityKey = "identity"

	guestPrefix = "guest:"
)

// Identity is the caller resolved by Auth. Guests carry only an id.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
	Guest   bool
}

// Auth resolves the caller from a Bearer JWT, or failing that from the
// X-Guest-Id header as "guest:<id>". OAuth routes and preflights pass through.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		id, reason := resolveIdentity(c)
		if reason != "" {
			telemetry.Warn("auth.rejected", map[string]any{
				"request_id": RequestIDFromContext(c),
				"reason":     reason,
				"env":        env,
			})
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID)
		c.Set(isGuestKey, id.Guest)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context) (Identity, string) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return Identity{}, "malformed_authorization"
		}
		claims, err := auth.VerifyJWT(token)
		if err != nil {
			return Identity{}, "invalid_token"
		}
		// Signed tokens never name a guest principal.
		if strings.HasPrefix(claims.Subject, guestPrefix) {
			return Identity{}, "guest_subject"
		}
		return Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, ""
	}

	guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	if guestID == "" {
		return Identity{}, "missing_identity"
	}
	if !validRequestID(guestID) {
		return Identity{}, "invalid_guest_id"
	}
	return Identity{UserID: guestPrefix + guestID, Guest: true}, ""
}

// IdentityFromContext returns the caller stored by Auth.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := val.(Identity)
	return id, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

func UserEmailFromContext(c *gin.Context) string {
	id, _ := IdentityFromContext(c)
	return id.Email
}

func UserNameFromContext(c *gin.Context) string {
	id, _ := IdentityFromContext(c)
	return id.Name
}

func UserPictureFromContext(c *gin.Context) string {
	id, _ := IdentityFromContext(c)
	return id.Picture
}

// IsGuest reports whether the request was identified by a guest header.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

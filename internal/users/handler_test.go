package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/credits"
	sharedauth "resumegen-api/internal/shared/auth"
	"resumegen-api/internal/shared/server/middleware"
)

func TestMeHandlerWithBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(NewService(NewMemoryRepo(), credits.NewService(3))).RegisterRoutes(r.Group("/api/v1"))

	token, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            "jane@example.com",
		Name:             "Jane Doe",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:42"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "google:42", profile.ID)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, 3, profile.Credits)
}

func TestMeHandlerRejectsMissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(NewService(NewMemoryRepo(), credits.NewService(3))).RegisterRoutes(r.Group("/api/v1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/healthz", func(c *gin.Context) {
		*seen = RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	var seen string
	r := requestIDRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "edge-7f3a.01")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, "edge-7f3a.01", resp.Header().Get("X-Request-Id"))
	assert.Equal(t, "edge-7f3a.01", seen)
}

func TestRequestIDReplacesMissingOrUnsafeHeader(t *testing.T) {
	for name, header := range map[string]string{
		"missing":  "",
		"newline":  "abc\r\nSet-Cookie: x",
		"too long": strings.Repeat("a", maxRequestIDLen+1),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			r := requestIDRouter(&seen)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if header != "" {
				req.Header["X-Request-Id"] = []string{header}
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			_, err := uuid.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, got, seen)
		})
	}
}

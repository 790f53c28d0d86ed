package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"resumegen-api/internal/shared/telemetry"
)

func TestRecoveryWritesInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/api/v1/resumes", func(*gin.Context) { panic("nil repo") })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"error":{"code":"internal_error","message":"Unexpected server error"}}`, resp.Body.String())
	assert.Contains(t, buf.String(), `"msg":"panic"`)
	assert.Contains(t, buf.String(), `"response_started":false`)
}

func TestRecoveryLeavesStartedStreamAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	r := gin.New()
	r.Use(Recovery())
	r.POST("/api/v1/resumes/:id/chat", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
		_, _ = c.Writer.Write([]byte("data: {\"type\":\"text\",\"content\":\"Hi\"}\n\n"))
		panic("encoder broke")
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/resumes/r1/chat", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "data: {\"type\":\"text\",\"content\":\"Hi\"}\n\n", resp.Body.String())
	assert.Contains(t, buf.String(), `"response_started":true`)
}

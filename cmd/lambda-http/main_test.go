package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/shared/server/middleware"
)

func gatewayRequest(path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		Version:  "2.0",
		RouteKey: "GET " + path,
		RawPath:  path,
		Headers:  map[string]string{"accept": "application/json"},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: "Kx3a9gHBoAMEbXw=",
			Stage:     "$default",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: http.MethodGet,
				Path:   path,
			},
		},
	}
}

func TestHandleProxiesWithGatewayRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builds := 0
	h := &apiHandler{build: func() (*gin.Engine, error) {
		builds++
		r := gin.New()
		r.Use(middleware.RequestID())
		r.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"requestId": middleware.RequestIDFromContext(c)})
		})
		return r, nil
	}}

	for i := 0; i < 2; i++ {
		resp, err := h.Handle(context.Background(), gatewayRequest("/healthz"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"requestId":"Kx3a9gHBoAMEbXw="}`, resp.Body)
	}
	assert.Equal(t, 1, builds)
}

func TestHandleReportsFailedBuild(t *testing.T) {
	builds := 0
	h := &apiHandler{build: func() (*gin.Engine, error) {
		builds++
		return nil, errors.New("DATABASE_URL unreachable")
	}}

	for i := 0; i < 2; i++ {
		resp, err := h.Handle(context.Background(), gatewayRequest("/api/v1/resumes"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.JSONEq(t, `{"error":{"code":"unavailable","message":"Service is starting up; try again shortly"}}`, resp.Body)
	}
	assert.Equal(t, 1, builds)
}

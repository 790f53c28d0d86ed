package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"resumegen-api/internal/bootstrap"
	"resumegen-api/internal/shared/config"
	"resumegen-api/internal/shared/server/respond"
	"resumegen-api/internal/shared/telemetry"
)

type proxyFunc func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// apiHandler builds the router on the first invocation and reuses it for
// the life of the execution environment. A failed build is not retried.
type apiHandler struct {
	build func() (*gin.Engine, error)

	once  sync.Once
	proxy proxyFunc
	err   error
}

func (h *apiHandler) init() {
	router, err := h.build()
	if err != nil {
		h.err = err
		return
	}
	h.proxy = ginadapter.NewV2(router).ProxyWithContext
}

func (h *apiHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	h.once.Do(h.init)
	if h.err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":            h.err,
			"apigw_request_id": req.RequestContext.RequestID,
			"route":            req.RouteKey,
		})
		return errorResponse(http.StatusServiceUnavailable, "unavailable", "Service is starting up; try again shortly"), nil
	}
	// Reuse the gateway id so API Gateway and application logs line up.
	if req.RequestContext.RequestID != "" && headerValue(req.Headers, "x-request-id") == "" {
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers["x-request-id"] = req.RequestContext.RequestID
	}
	return h.proxy(ctx, req)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(name) {
			return v
		}
	}
	return ""
}

func errorResponse(status int, code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{Code: code, Message: message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogOptions())
	h := &apiHandler{build: func() (*gin.Engine, error) {
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return nil, err
		}
		return app.Router, nil
	}}
	lambda.Start(h.Handle)
}

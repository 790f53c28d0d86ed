package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/server/respond"
	"resumegen-api/internal/shared/telemetry"
)

// Recovery turns a handler panic into a logged 500. Once a response has
// started, as with an open chat stream, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			written := c.Writer.Written()
			telemetry.Error("panic", map[string]any{
				"request_id":       RequestIDFromContext(c),
				"user_id":          UserIDFromContext(c),
				"error":            rec,
				"stack":            string(debug.Stack()),
				"route":            c.FullPath(),
				"method":           c.Request.Method,
				"response_started": written,
			})
			if written {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}

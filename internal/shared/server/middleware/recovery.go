package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/shared/server/respond"
	"reflection-backend/internal/shared/telemetry"
)

// Recovery recovers from panics and answers 500 UNKNOWN_ERROR.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				c.Set(ErrorCodeKey, "UNKNOWN_ERROR")
				respond.Error(c, http.StatusInternalServerError, "UNKNOWN_ERROR", "Unexpected server error", nil)
			}
		}()
		c.Next()
	}
}

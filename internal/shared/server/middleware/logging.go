package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can report them.
const (
	KindKey      = "generationKind"
	OutcomeKey   = "generationOutcome"
	ErrorCodeKey = "errorCode"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"is_guest":    IsGuest(c),
			"kind":        c.GetString(KindKey),
			"outcome":     c.GetString(OutcomeKey),
			"error_code":  c.GetString(ErrorCodeKey),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}

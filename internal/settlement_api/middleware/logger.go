package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger emits one structured line per request. The correlation ID is read
// after the chain has run, so it is present regardless of where the
// correlation middleware sits relative to this one.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		reqLogger := logger
		if id := GetCorrelationID(c); id != "" {
			reqLogger = logger.With("correlation_id", id)
		}

		if query != "" {
			path = path + "?" + query
		}

		reqLogger.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}

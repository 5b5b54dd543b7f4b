package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs method, path, status
// and duration once the handler chain has run.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = cuid.New()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		dur := time.Since(start)
		log.Infow("http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(dur.Microseconds())/1000.0,
			"request_id", reqID,
			"user_id", c.GetString(UserIDKey),
		)
	}
}

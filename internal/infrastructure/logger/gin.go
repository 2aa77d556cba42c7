package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// syncJobHeader is set by the streaming bulk handlers; folding it into
// the request line links an HTTP request to its NDJSON job stream.
const syncJobHeader = "X-Sync-Job-ID"

// RequestLogger returns gin middleware that writes one structured line
// per request and seeds a request-scoped logger into the gin context.
// Health probes are logged at debug to keep them out of normal output.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	log := base.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID, _ := c.Get("request_id")
		requestIDStr, _ := requestID.(string)

		reqLogger := log.With(
			zap.String("request_id", requestIDStr),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set("logger", reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if jobID := c.Writer.Header().Get(syncJobHeader); jobID != "" {
			fields = append(fields, zap.String("sync_job_id", jobID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request completed", fields...)
		case path == "/health":
			reqLogger.Debug("request completed", fields...)
		default:
			reqLogger.Info("request completed", fields...)
		}
	}
}

// Recovery returns gin middleware that turns a handler panic into a
// logged 500 response instead of tearing the connection down.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	log := base.Named("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Get("request_id")
				requestIDStr, _ := requestID.(string)
				log.Error("panic recovered",
					zap.String("request_id", requestIDStr),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const loggerGinKey = "slogLogger"

// quietPaths are probed constantly and never logged on success.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AccessLog puts a request-scoped logger on the context and writes one record per
// finished request. It must run after RequestID.
func AccessLog(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		log := base.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		)
		c.Set(loggerGinKey, log)

		started := time.Now()
		c.Next()
		status := c.Writer.Status()
		if quietPaths[route] && status < 400 {
			return
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(started)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("bytes", c.Writer.Size()),
		}
		if session, ok := SessionFromContext(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", uint64(session.UserID)))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		log.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

// LoggerFromContext returns the request logger, or slog.Default outside a request.
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if log, ok := c.Value(loggerGinKey).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

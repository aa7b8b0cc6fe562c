package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys a handler sets so the request log can say which codec
// answered and how large the request was.
const (
	KeyCodec        = "armdeck.codec"
	KeyRequestBytes = "armdeck.request_bytes"
)

// RequestLogger logs one line per gateway request. Command exchanges are
// logged with the codec that answered them; everything else with codec "-".
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		codec := c.GetString(KeyCodec)
		if codec == "" {
			codec = "-"
		}

		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case codec != "-":
			event = logger.Info()
		}

		event.
			Str("route", route).
			Str("codec", codec).
			Int("status", status).
			Int("req_bytes", c.GetInt(KeyRequestBytes)).
			Int("resp_bytes", c.Writer.Size()).
			Dur("took", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msgf("transport.gateway %s %s", c.Request.Method, route)
	}
}

// RequestMetricsMiddleware records by route pattern so /button/3 and
// /button/4 share a series.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

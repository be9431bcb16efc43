package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
)

// MetricsMiddleware registra contadores por rota e o log de acesso.
// Deve rodar depois da resolução de sessão para o log levar o client_id.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.Get().IncrementRequests(status < 400, elapsed.Milliseconds())
		metrics.Get().TrackEndpoint(route, c.Request.Method, status, elapsed.Milliseconds())

		log := logger.FromGin(c)
		accessEvent(log, route, status).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Float64("latency_ms", float64(elapsed.Microseconds())/1000).
			Msg("Request completed")
	}
}

// accessEvent escolhe o nível: probes em debug, 4xx warn, 5xx error
func accessEvent(log *zerolog.Logger, route string, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	case strings.HasPrefix(route, "/health") || strings.HasPrefix(route, "/metrics"):
		return log.Debug()
	default:
		return log.Info()
	}
}

// auditedRoutes são as rotas que alteram estado e entram na trilha de auditoria
var auditedRoutes = map[string]string{
	"POST /api/auth/signup":            "user",
	"POST /api/auth/login":             "session",
	"POST /api/auth/logout":            "session",
	"POST /api/quotes":                 "quote",
	"DELETE /api/quotes/:index":        "quote",
	"POST /api/reports/latest/webhook": "webhook",
}

// AuditMiddleware grava um evento de auditoria para cada rota em auditedRoutes
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		resource, ok := auditedRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		userID := ""
		if user := CurrentUser(c); user != nil {
			userID = user.Identity
		}

		logger.AuditRequest(
			c.Request.Context(),
			resource,
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			userID,
			c.ClientIP(),
		)
	}
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

const (
	// maxWSConnections acima disso o hub é reportado como degradado
	maxWSConnections = 100
	// maxHeapMB acima disso o processo é reportado como unhealthy
	maxHeapMB = 512
	// queueDegradedRatio: fila de webhooks acima desta ocupação é degradada
	queueDegradedRatio = 0.8
)

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	store      metrics.Pinger
	auth       *service.AuthService
	hub        *websocket.Hub
	estimates  *service.EstimateService
	deliveries *service.DeliveryQueue
	version    string
	startTime  time.Time
}

// NewHealthHandler monta o handler a partir das dependências do router;
// hub, estimates e deliveries podem ser nil
func NewHealthHandler(deps RouterDeps) *HealthHandler {
	return &HealthHandler{
		store:      deps.Store,
		auth:       deps.Auth,
		hub:        deps.Hub,
		estimates:  deps.Estimates,
		deliveries: deps.Deliveries,
		version:    deps.Version,
		startTime:  time.Now(),
	}
}

// LivenessCheck returns basic liveness status
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DetailedHealthCheck verifica armazenamento, memória, websocket e fila de webhooks
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	components := map[string]metrics.HealthStatus{
		"store":  metrics.CheckStoreHealth(c.Request.Context(), h.store),
		"memory": metrics.CheckMemoryHealth(maxHeapMB),
	}
	if h.hub != nil {
		components["websocket"] = h.websocketHealth()
	}
	if h.deliveries != nil {
		components["deliveries"] = h.deliveryHealth()
	}

	overallStatus := metrics.DetermineOverallStatus(components)

	statusCode := http.StatusOK
	if overallStatus == metrics.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

func (h *HealthHandler) websocketHealth() metrics.HealthStatus {
	if n := h.hub.GetConnectionCount(); n > maxWSConnections {
		return metrics.HealthStatus{
			Status:  metrics.StatusDegraded,
			Message: fmt.Sprintf("%d websocket connections (limit %d)", n, maxWSConnections),
		}
	}
	return metrics.HealthStatus{Status: metrics.StatusHealthy}
}

func (h *HealthHandler) deliveryHealth() metrics.HealthStatus {
	pending, capacity := h.deliveries.Pending(), h.deliveries.Capacity()
	if float64(pending) >= float64(capacity)*queueDegradedRatio {
		return metrics.HealthStatus{
			Status:  metrics.StatusDegraded,
			Message: fmt.Sprintf("%d of %d webhook deliveries waiting", pending, capacity),
		}
	}
	return metrics.HealthStatus{Status: metrics.StatusHealthy}
}

// GetMetrics returns application metrics
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot())
}

// GetMetricsSummary resume as métricas de negócio: estimativas, comandos, quotes e entregas
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	snapshot := metrics.Get().Snapshot()

	totalCommands := snapshot.Commands.Estimate + snapshot.Commands.Save +
		snapshot.Commands.Download + snapshot.Commands.Unrecognized

	summary := gin.H{
		"uptime_seconds": snapshot.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        snapshot.Requests.Total,
			"success_rate": percent(snapshot.Requests.Successful, snapshot.Requests.Total),
			"avg_latency":  snapshot.Requests.AvgLatencyMs,
		},
		"estimates": snapshot.Estimates,
		"commands": gin.H{
			"total":           totalCommands,
			"recognized_rate": percent(totalCommands-snapshot.Commands.Unrecognized, totalCommands),
			"rate_limited":    snapshot.Commands.RateLimited,
		},
		"quotes": gin.H{
			"saved":   snapshot.Quotes.Saved,
			"deleted": snapshot.Quotes.Deleted,
		},
		"auth": gin.H{
			"signups":        snapshot.Auth.Signups,
			"login_attempts": snapshot.Auth.LoginAttempts,
			"success_rate":   percent(snapshot.Auth.LoginSuccesses, snapshot.Auth.LoginAttempts),
		},
		"deliveries": gin.H{
			"queued":       snapshot.Deliveries.Queued,
			"completed":    snapshot.Deliveries.Completed,
			"failed":       snapshot.Deliveries.Failed,
			"retries":      snapshot.Deliveries.Retries,
			"success_rate": percent(snapshot.Deliveries.Completed, snapshot.Deliveries.Completed+snapshot.Deliveries.Failed),
		},
		"websocket": gin.H{
			"connections": snapshot.WebSocket.Connections,
		},
		"system": gin.H{
			"goroutines":  snapshot.System.Goroutines,
			"heap_mb":     snapshot.System.HeapAllocMB,
			"heap_use_mb": snapshot.System.HeapInUseMB,
		},
	}
	if h.estimates != nil {
		summary["working_state"] = h.estimates.StateStats()
	}
	if h.deliveries != nil {
		summary["deliveries"].(gin.H)["pending"] = h.deliveries.Pending()
	}
	if h.auth != nil {
		if n, err := h.auth.UserCount(c.Request.Context()); err == nil {
			summary["auth"].(gin.H)["registered_users"] = n
		} else {
			logger.FromGin(c).Warn().Err(err).Msg("Erro ao contar usuários")
		}
	}

	c.JSON(http.StatusOK, summary)
}

// GetEndpointMetrics returns metrics for specific endpoints
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoints": metrics.Get().Snapshot().Endpoints,
	})
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

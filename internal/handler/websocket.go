package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

// ErrRateLimited é devolvido ao cliente websocket quando excede o limite de comandos
var ErrRateLimited = errors.New("rate limit exceeded")

// WebSocketHandler handles WebSocket-related HTTP requests
type WebSocketHandler struct {
	hub      *websocket.Hub
	sessions *middleware.SessionMiddleware
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, sessions *middleware.SessionMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
	}
}

// HandleConnection handles WebSocket connection upgrades
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	sessionID := ""
	identity := ""
	if user := middleware.CurrentUser(c); user != nil {
		sessionID = h.sessions.SessionID(c)
		identity = user.Identity
	}

	h.hub.ServeWS(c, middleware.ClientID(c), sessionID, identity)
}

// GetConnectionStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	clientID := middleware.ClientID(c)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_connections":  h.hub.GetConnectionCount(),
			"connected_clients":  len(h.hub.GetConnectedClients()),
			"client_connections": h.hub.GetClientConnectionCount(clientID),
			"connections":        h.hub.ClientConnections(clientID),
		},
	})
}

// NewCommandHandler liga os comandos recebidos no websocket ao EstimateService.
// A sessão é revalidada a cada comando; sessão expirada vira anônimo.
func NewCommandHandler(estimates *service.EstimateService, auth *service.AuthService, limiter *middleware.RateLimiter) websocket.CommandHandler {
	return func(ctx context.Context, client *websocket.Client, text string) (interface{}, error) {
		if limiter != nil && !limiter.Allow(client.ClientID) {
			metrics.Get().IncrementRateLimited()
			return nil, ErrRateLimited
		}

		text = middleware.SanitizeUtterance(text)
		if text == "" {
			return nil, errors.New("command text required")
		}

		var user *service.User
		if client.SessionID != "" {
			u, err := auth.CurrentUser(ctx, client.SessionID)
			switch {
			case err == nil:
				user = u
				ctx = logger.WithUser(ctx, u.Identity)
			case errors.Is(err, model.ErrSessionNotFound):
			default:
				return nil, err
			}
		}

		result, err := estimates.Command(ctx, client.ClientID, user, text)
		if err != nil {
			return nil, err
		}

		logger.Audit(ctx, logger.AuditEvent{
			Action:   logger.AuditActionCommand,
			Resource: "websocket_command",
			Success:  result.Intent.Kind != model.IntentUnrecognized,
			Details: map[string]interface{}{
				"intent": string(result.Intent.Kind),
			},
		})

		return commandResponse(result), nil
	}
}

// NewDeliveryNotifier envia o status das entregas de webhook às conexões do cliente
func NewDeliveryNotifier(hub *websocket.Hub) service.DeliveryNotifier {
	return func(clientID string, job service.DeliveryJob) {
		hub.SendToClient(clientID, websocket.Message{
			Type:      websocket.TypeDelivery,
			Data:      job,
			Timestamp: time.Now(),
		})
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
)

// ServeWS faz o upgrade da conexão; identidade do cliente vem do SessionMiddleware
func (h *Hub) ServeWS(c *gin.Context, clientID, sessionID, identity string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("client_id", clientID).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		conn:        conn,
		Send:        make(chan []byte, 256),
		ClientID:    clientID,
		SessionID:   sessionID,
		Identity:    identity,
		Hub:         h,
		ConnectedAt: time.Now(),
	}
	client.touch()

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionWSConnect,
		UserID:   identity,
		ClientID: clientID,
		Resource: "websocket",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	select {
	case client.Hub.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.Close()
		logger.Audit(context.Background(), logger.AuditEvent{
			Action:   logger.AuditActionWSDisconnect,
			UserID:   c.Identity,
			ClientID: c.ClientID,
			Resource: "websocket",
			Success:  true,
		})
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error().
					Err(err).
					Str("client_id", c.ClientID).
					Msg("WebSocket connection closed unexpectedly")
			}
			break
		}

		metrics.Get().IncrementWSMessageIn()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Uma mensagem JSON por frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Error().
			Err(err).
			Str("client_id", c.ClientID).
			Msg("Failed to unmarshal client message")
		c.sendError("invalid message")
		return
	}

	switch msg.Type {
	case TypePing:
		c.SendMessage(Message{
			Type:      TypePong,
			Timestamp: time.Now(),
		})

	case TypeCommand:
		var payload CommandPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || strings.TrimSpace(payload.Text) == "" {
			c.sendError("command text required")
			return
		}
		c.runCommand(payload.Text)

	default:
		c.Hub.logger.Debug().
			Str("client_id", c.ClientID).
			Str("message_type", msg.Type).
			Msg("Unknown message type received from client")
	}
}

func (c *Client) runCommand(text string) {
	if c.Hub.commands == nil {
		c.sendError("commands not available")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ctx = logger.WithClientID(ctx, c.ClientID)

	result, err := c.Hub.commands(ctx, c, text)
	if err != nil {
		c.Hub.logger.Warn().Err(err).Str("client_id", c.ClientID).Msg("Comando via websocket falhou")
		c.sendError(err.Error())
		return
	}

	c.SendMessage(Message{
		Type:      TypeResult,
		Data:      result,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendError(msg string) {
	c.SendMessage(Message{
		Type:      TypeError,
		Data:      map[string]string{"error": msg},
		Timestamp: time.Now(),
	})
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		c.Hub.logger.Error().
			Err(err).
			Str("client_id", c.ClientID).
			Msg("Failed to marshal message for client")
		return
	}

	defer func() {
		// Send pode ter sido fechado pelo hub entre a checagem e o envio
		if recover() != nil {
			c.Hub.logger.Debug().Str("client_id", c.ClientID).Msg("Send on closed client channel")
		}
	}()

	select {
	case c.Send <- data:
		metrics.Get().IncrementWSMessageOut()
	default:
		c.Hub.logger.Warn().
			Str("client_id", c.ClientID).
			Msg("Client send channel is full, dropping message")
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// GetConnectionInfo returns information about this client connection
func (c *Client) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"client_id":    c.ClientID,
		"identity":     c.Identity,
		"connected_at": c.ConnectedAt,
		"last_ping":    c.LastPing(),
	}
}

// LastPing retorna o horário do último pong recebido
func (c *Client) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&c.lastPing))
}

func (c *Client) touch() {
	atomic.StoreInt64(&c.lastPing, time.Now().UnixNano())
}

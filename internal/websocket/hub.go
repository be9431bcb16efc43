package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
)

// Tipos de mensagem trocados com o cliente
const (
	TypeConnection    = "connection"
	TypeCommand       = "command"
	TypeResult        = "result"
	TypeError         = "error"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeQuotesChanged = "quotes_changed"
	TypeDelivery      = "delivery"
)

// CommandHandler executa um comando de voz recebido pelo websocket
type CommandHandler func(ctx context.Context, client *Client, text string) (interface{}, error)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients by client ID
	clients map[string]map[*Client]bool

	// Outbound messages to every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Executa os comandos "command"
	commands CommandHandler

	// Fechado quando Run termina
	done chan struct{}

	mutex sync.RWMutex

	logger *zerolog.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	// Identificação: ClientID agrupa as conexões; SessionID vazio = anônimo
	ClientID  string
	SessionID string
	Identity  string

	Hub *Hub

	ConnectedAt time.Time
	lastPing    int64 // UnixNano; escrito pelo readPump

	closeOnce sync.Once
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// CommandPayload é o conteúdo de uma mensagem "command"
type CommandPayload struct {
	Text string `json:"text"`
}

// inboundMessage mantém o data cru para decodificar conforme o tipo
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Tempo máximo de execução de um comando
	commandTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub(commands CommandHandler) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   commands,
		done:       make(chan struct{}),
		logger:     logger.Global(),
	}
}

// Run starts the hub's main loop; returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.ClientID] == nil {
		h.clients[client.ClientID] = make(map[*Client]bool)
	}
	h.clients[client.ClientID][client] = true

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("client_id", client.ClientID).
		Str("identity", client.Identity).
		Int("client_connections", len(h.clients[client.ClientID])).
		Msg("WebSocket client registered")

	client.SendMessage(Message{
		Type:      TypeConnection,
		Data:      map[string]string{"status": "connected"},
		Timestamp: time.Now(),
	})
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeLocked(client)
}

// removeLocked remove o cliente; chamado com o lock de escrita
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.ClientID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.closeSend()
	metrics.Get().DecrementWSConnection()

	if len(clients) == 0 {
		delete(h.clients, client.ClientID)
	}

	h.logger.Info().
		Str("client_id", client.ClientID).
		Int("remaining_connections", len(clients)).
		Msg("WebSocket client unregistered")
}

// broadcastMessage envia a mensagem a todos os clientes conectados
func (h *Hub) broadcastMessage(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for clientID, clients := range h.clients {
		for client := range clients {
			select {
			case client.Send <- message:
				metrics.Get().IncrementWSMessageOut()
			default:
				h.logger.Warn().
					Str("client_id", clientID).
					Msg("Failed to send message to client, closing connection")
				h.removeLocked(client)
			}
		}
	}
}

// Broadcast enfileira uma mensagem para todos os clientes
func (h *Hub) Broadcast(message Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Str("type", message.Type).Msg("Broadcast queue full, dropping message")
	}
}

// NotifyQuotesChanged avisa os clientes que a lista de quotes mudou
func (h *Hub) NotifyQuotesChanged(count int) {
	h.Broadcast(Message{
		Type: TypeQuotesChanged,
		Data: map[string]int{"count": count},
	})
}

// SendToClient sends a message to all connections of a client
func (h *Hub) SendToClient(clientID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("client_id", clientID).
			Msg("Failed to marshal message for client")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, exists := h.clients[clientID]
	if !exists {
		h.logger.Debug().
			Str("client_id", clientID).
			Msg("No WebSocket connections found for client")
		return
	}

	for client := range clients {
		select {
		case client.Send <- data:
			metrics.Get().IncrementWSMessageOut()
		default:
			h.logger.Warn().
				Str("client_id", clientID).
				Msg("Failed to send message to client, closing connection")
			h.removeLocked(client)
		}
	}
}

// GetConnectedClients returns a list of currently connected client IDs
func (h *Hub) GetConnectedClients() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetClientConnectionCount returns the number of connections for a specific client
func (h *Hub) GetClientConnectionCount(clientID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients[clientID])
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// ClientConnections descreve as conexões abertas de um cliente
func (h *Hub) ClientConnections(clientID string) []map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	infos := make([]map[string]interface{}, 0, len(h.clients[clientID]))
	for client := range h.clients[clientID] {
		infos = append(infos, client.GetConnectionInfo())
	}
	return infos
}

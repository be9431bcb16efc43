package websocket

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func newTestClient(hub *Hub, clientID string) *Client {
	client := &Client{
		ClientID:    clientID,
		Send:        make(chan []byte, 256),
		Hub:         hub,
		ConnectedAt: time.Now(),
	}
	client.touch()
	return client
}

// TestWebSocketConnectionLimits registra várias conexões e entrega mensagens a todas
func TestWebSocketConnectionLimits(t *testing.T) {
	hub := NewHub(nil)

	maxConnections := 10
	clients := make([]*Client, maxConnections)
	for i := 0; i < maxConnections; i++ {
		clients[i] = newTestClient(hub, "client:"+strconv.Itoa(i))
		hub.registerClient(clients[i])
	}

	if hub.GetConnectionCount() != maxConnections {
		t.Errorf("Expected %d connections, got %d", maxConnections, hub.GetConnectionCount())
	}
	for i := 0; i < maxConnections; i++ {
		id := "client:" + strconv.Itoa(i)
		if hub.GetClientConnectionCount(id) != 1 {
			t.Errorf("Expected 1 connection for %s, got %d", id, hub.GetClientConnectionCount(id))
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < maxConnections; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.SendToClient("client:"+strconv.Itoa(idx), Message{Type: TypeResult, Timestamp: time.Now()})
		}(i)
	}
	wg.Wait()

	for i, client := range clients {
		drainWelcomeMessage(client)
		select {
		case <-client.Send:
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Client %d did not receive result message", i)
		}
	}

	for _, client := range clients {
		hub.unregisterClient(client)
	}
	if hub.GetConnectionCount() != 0 {
		t.Errorf("Expected 0 connections after cleanup, got %d", hub.GetConnectionCount())
	}
}

// TestConcurrentClientRegistration várias abas do mesmo cliente entrando e saindo ao mesmo tempo
func TestConcurrentClientRegistration(t *testing.T) {
	hub := NewHub(nil)

	numClients := 10
	clients := make([]*Client, numClients)
	for i := range clients {
		clients[i] = newTestClient(hub, "session:shared")
	}

	var wg sync.WaitGroup
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.registerClient(clients[idx])
		}(i)
	}
	wg.Wait()

	if hub.GetClientConnectionCount("session:shared") != numClients {
		t.Errorf("Expected %d connections for session:shared, got %d",
			numClients, hub.GetClientConnectionCount("session:shared"))
	}
	if len(hub.GetConnectedClients()) != 1 {
		t.Errorf("Expected 1 distinct client, got %d", len(hub.GetConnectedClients()))
	}

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.unregisterClient(clients[idx])
		}(i)
	}
	wg.Wait()

	if hub.GetConnectionCount() != 0 {
		t.Errorf("Expected 0 connections after concurrent unregister, got %d", hub.GetConnectionCount())
	}

	// unregister repetido não deve entrar em pânico nem decrementar de novo
	hub.unregisterClient(clients[0])
}

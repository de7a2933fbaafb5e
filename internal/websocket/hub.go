// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte  // Channel for messages to broadcast
	register   chan *Client // Channel for registering clients
	unregister chan *Client // Channel for unregistering clients
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.log.Info().Str("remote", client.Conn.RemoteAddr().String()).Msg("websocket client registered")
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Info().Str("remote", client.Conn.RemoteAddr().String()).Msg("websocket client unregistered")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Assume client is blocked or gone, unregister
					h.log.Warn().Str("remote", client.Conn.RemoteAddr().String()).Msg("websocket send buffer full, removing client")
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient safely registers a new client to the hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastResult sends a batch analysis result to all clients
func (h *Hub) BroadcastResult(result interface{}) {
	h.send("result", result)
}

// BroadcastAlert sends an alert message to all clients
func (h *Hub) BroadcastAlert(alert interface{}) {
	h.send("alert", alert)
}

func (h *Hub) send(kind string, payload interface{}) {
	messageBytes, err := json.Marshal(map[string]interface{}{"type": kind, "payload": payload})
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("marshalling broadcast message")
		return
	}
	h.broadcast <- messageBytes
}

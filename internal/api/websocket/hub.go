// Package websocket broadcasts freshly persisted readings to dashboard
// clients over /ws/readings.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
)

// readingMessage is the envelope broadcast for every persisted reading.
type readingMessage struct {
	Type      string      `json:"type"`
	Reading   interface{} `json:"reading"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains active WebSocket connections and broadcasts persisted
// readings to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHub returns a Hub whose lifetime is bound to ctx.
func NewHub(ctx context.Context) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		ctx:        hubCtx,
		cancel:     cancel,
	}
}

// Run services register/unregister/broadcast until ctx is cancelled. Call
// it from its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			sent := 0
			for client := range h.clients {
				select {
				case client.send <- message:
					sent++
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
			if sent > 0 {
				metrics.WebSocketMessagesSentTotal.Add(float64(sent))
			}
		}
	}
}

// Stop cancels the hub and closes every client connection.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastReading encodes r and enqueues it for every connected client.
// Intended as the Engine.SetOnPersisted hook.
func (h *Hub) BroadcastReading(r models.Reading) {
	msg := readingMessage{
		Type:      "reading",
		Reading:   models.ToReadingJSON(r),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

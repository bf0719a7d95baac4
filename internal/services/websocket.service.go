package services

import (
	"context"
	"sync"
	"time"

	"twinconsole/internal/logger"
	"twinconsole/internal/models"
	"twinconsole/internal/observability"

	"github.com/gorilla/websocket"
)

// Message types pushed to and read from renderers.
const (
	MessageSnapshot = "snapshot"
	MessagePlayback = "playback"
	MessagePing     = "ping"
	MessagePong     = "pong"
	MessageError    = "error"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// SnapshotSource is the view-model owner the hub reads from.
type SnapshotSource interface {
	Snapshot() models.Snapshot
	Version() uint64
}

// ClientConnection represents a connected renderer
type ClientConnection struct {
	ID       string
	Operator string
	Conn     *websocket.Conn
	Send     chan WebSocketMessage
	Close    chan bool
}

// WebSocketHub fans console snapshots out to every connected renderer
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex

	source      SnapshotSource
	interval    time.Duration
	metrics     *observability.Metrics
	lastVersion uint64
	pushed      bool
	done        chan struct{}
}

// NewWebSocketHub creates a hub; call Run to start it.
func NewWebSocketHub(source SnapshotSource, interval time.Duration, metrics *observability.Metrics) *WebSocketHub {
	if interval <= 0 {
		interval = time.Second
	}
	return &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		source:     source,
		interval:   interval,
		metrics:    metrics,
		done:       make(chan struct{}),
	}
}

// Run manages the hub's event loop until ctx is cancelled
func (h *WebSocketHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			h.metrics.SetGauge(observability.RendererClients, 0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetGauge(observability.RendererClients, float64(total))
			logger.Infof("[WS] Client connected: %s (total: %d)", client.ID, total)

			// new renderers get the current state without waiting for a tick
			select {
			case client.Send <- h.snapshotMessage():
			default:
			}

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetGauge(observability.RendererClients, float64(total))
			logger.Infof("[WS] Client disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ticker.C:
			version := h.source.Version()
			if h.pushed && version == h.lastVersion {
				continue
			}
			h.lastVersion = version
			h.pushed = true
			h.fanOut(h.snapshotMessage())
		}
	}
}

func (h *WebSocketHub) fanOut(msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// Client's send channel is full, skip this message
		}
	}
}

func (h *WebSocketHub) snapshotMessage() WebSocketMessage {
	return WebSocketMessage{
		Type:      MessageSnapshot,
		Timestamp: time.Now(),
		Data:      h.source.Snapshot(),
	}
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast queues a message for every client; it is dropped when the
// queue is full.
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warnf("[WS] Broadcast queue full, dropping %s message", msg.Type)
	}
}

// ClientCount returns the number of connected renderers
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendMessage sends a message to a specific client
func (h *WebSocketHub) SendMessage(clientID string, msg WebSocketMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[clientID]
	if !exists {
		return false
	}
	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

package controllers

import (
	"net/http"
	"time"

	"twinconsole/internal/logger"
	"twinconsole/internal/middleware"
	"twinconsole/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxInboundSize = 4096
	sendBuffer     = 256
)

// clientMessage is what renderers may send
type clientMessage struct {
	Type string `json:"type"`
}

func (h *Handlers) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(origin, h.AllowedOrigins)
		},
	}
}

// HandleWebSocket upgrades a renderer connection and registers it with the hub
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	var operator string
	if h.Auth != nil {
		token := c.Query("token")
		if token == "" {
			middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := h.Auth.ValidateToken(token)
		if err != nil {
			middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		operator = claims.Operator
	}

	ws, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[WS] Upgrade error: %v", err)
		return
	}

	buffer := h.SendBuffer
	if buffer <= 0 {
		buffer = sendBuffer
	}
	client := &services.ClientConnection{
		ID:       uuid.New().String(),
		Operator: operator,
		Conn:     ws,
		Send:     make(chan services.WebSocketMessage, buffer),
		Close:    make(chan bool),
	}
	if !h.Hub.Register(client) {
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		ws.Close()
		return
	}
	middleware.GlobalSecurityLogger.LogWebSocketConnected(c.ClientIP(), client.ID)

	go h.writePump(client)
	go h.readPump(client, c.ClientIP())
}

// readPump reads messages from the renderer
func (h *Handlers) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		close(client.Close)
		h.Hub.Unregister(client.ID)
		client.Conn.Close()
		middleware.GlobalSecurityLogger.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(maxInboundSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warnf("[WS] WebSocket error: %v", err)
			}
			return
		}

		switch msg.Type {
		case services.MessagePing:
			h.Hub.SendMessage(client.ID, services.WebSocketMessage{
				Type:      services.MessagePong,
				Timestamp: time.Now(),
			})

		case "unsubscribe":
			return

		default:
			logger.Debugf("[WS] Unknown message type from %s: %s", client.ID, msg.Type)
			h.Hub.SendMessage(client.ID, services.WebSocketMessage{
				Type:      services.MessageError,
				Timestamp: time.Now(),
				Error:     "unknown message type: " + msg.Type,
			})
		}
	}
}

// writePump writes queued messages and keepalive pings to the renderer
func (h *Handlers) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warnf("[WS] Write error: %v", err)
				}
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Close:
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

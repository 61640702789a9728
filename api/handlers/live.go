package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// cross-origin policy is handled by the CORS middleware for the rest
	// of the API; the upgrade request carries the token instead
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans bin events out to connected websocket clients
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan models.BinEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewHub creates an empty hub; call Run in a goroutine to start it
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan models.BinEvent, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set. All membership changes and writes go through
// the hub goroutine so connections are never written concurrently.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				zap.S().Errorw("failed to marshal bin event", "error", err)
				continue
			}
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Broadcast queues a bin event for delivery. Safe on a nil hub so
// handlers under test need no websocket plumbing. Events are dropped when
// the queue is full rather than blocking a request.
func (h *Hub) Broadcast(event models.BinEvent) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		zap.S().Debugw("dropping bin event, broadcast queue full", "event", event.Event)
	}
}

// Live upgrades authenticated clients onto the bin event feed
type Live struct {
	Hub    *Hub
	Secret []byte
}

// ServeWS authenticates via the token query parameter, since browser
// websocket clients cannot set an Authorization header, then upgrades the
// connection and parks it on the hub.
func (l Live) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := api.VerifyCredential(token, l.Secret); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "unauthenticated"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}
	l.Hub.register <- conn

	// drain control frames; client messages are ignored
	go func() {
		defer func() { l.Hub.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Package notify fans session events out to WebSocket subscribers. The
// hub owns all connections; producers hand it events through Publish and
// never touch sockets directly.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/louisbranch/luckymoney/internal/envelope/domain"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// message is the wire envelope pushed to subscribers.
type message struct {
	Type      domain.EventType `json:"type"`
	Data      any              `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// clientRequest is the only inbound message shape the hub accepts.
type clientRequest struct {
	Action string `json:"action"`
}

// client pairs one WebSocket connection with its outbound queue.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts session events to every connected subscriber. A slow
// subscriber whose queue fills up is dropped rather than allowed to
// stall the others.
type Hub struct {
	status func() domain.Status
	clock  func() time.Time

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewHub creates a hub that serves the given status snapshot to new and
// asking subscribers. The clock is injectable for tests; nil means
// time.Now.
func NewHub(status func() domain.Status, clock func() time.Time) *Hub {
	if clock == nil {
		clock = time.Now
	}
	return &Hub{
		status:     status,
		clock:      clock,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled,
// then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case payload := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts a session event to all subscribers. Invalid events
// and marshal failures are logged and dropped; event delivery is
// best-effort by contract.
func (h *Hub) Publish(event domain.Event) {
	if !event.Type.IsValid() {
		log.Printf("notify: dropping event with unknown type %q", event.Type)
		return
	}
	payload, err := json.Marshal(message{
		Type:      event.Type,
		Data:      event.Payload,
		Timestamp: h.clock().UTC(),
	})
	if err != nil {
		log.Printf("notify: marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		log.Printf("notify: broadcast queue full, dropping %s event", event.Type)
	}
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket subscription. Every new
// subscriber immediately receives a GAME_STATUS snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: upgrade: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	c.queueStatus()

	go c.writePump()
	go c.readPump()
}

// queueStatus puts a GAME_STATUS snapshot on the client's own queue so
// it is not broadcast to everyone.
func (c *client) queueStatus() {
	payload, err := json.Marshal(message{
		Type:      domain.EventTypeGameStatus,
		Data:      c.hub.status(),
		Timestamp: c.hub.clock().UTC(),
	})
	if err != nil {
		log.Printf("notify: marshal status for client %s: %v", c.id, err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("notify: client %s: %v", c.id, err)
			}
			return
		}

		var req clientRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}
		if req.Action == "status" {
			c.queueStatus()
		}
	}
}

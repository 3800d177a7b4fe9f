package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSeatsUpdated MessageType = "seats_updated"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// SeatUpdate represents a seat status change
type SeatUpdate struct {
	SeatID     string `json:"seatId"`
	Section    string `json:"section"`
	Status     string `json:"status"` // available, booked
	ReservedBy int    `json:"reservedBy,omitempty"`
}

// Message represents a WebSocket message
type Message struct {
	Type      MessageType  `json:"type"`
	Seats     []SeatUpdate `json:"seats"`
	Timestamp int64        `json:"timestamp"`
}

// Client represents a WebSocket client connection. An empty section
// receives updates for every section.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	section string
}

// Hub fans seat updates out to connected clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the hub's main loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", "section", client.section, "total", total)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("websocket client unregistered", "section", client.section, "remaining", len(h.clients))
	}
}

func (h *Hub) deliver(message *Message) {
	encoded := make(map[string][]byte)

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		data, ok := encoded[client.section]
		if !ok {
			data = h.encodeFor(message, client.section)
			encoded[client.section] = data
		}
		if data == nil {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", "section", client.section)
			h.remove(client)
		}
	}
}

// encodeFor returns the message restricted to section, or nil when no
// seat in it belongs there.
func (h *Hub) encodeFor(message *Message, section string) []byte {
	msg := *message
	if section != "" {
		msg.Seats = nil
		for _, s := range message.Seats {
			if s.Section == section {
				msg.Seats = append(msg.Seats, s)
			}
		}
		if len(msg.Seats) == 0 {
			return nil
		}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "error", err)
		return nil
	}
	return data
}

// BroadcastSeatUpdate queues seat changes for every interested client.
// It never blocks; updates are dropped when the queue is full.
func (h *Hub) BroadcastSeatUpdate(seats ...SeatUpdate) {
	if len(seats) == 0 {
		return
	}
	msg := &Message{
		Type:      MessageTypeSeatsUpdated,
		Seats:     seats,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping update", "seats", len(seats))
	}
}

// ClientCount returns the number of clients watching section
func (h *Hub) ClientCount(section string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.section == section {
			n++
		}
	}
	return n
}

// ServeWS upgrades the request and streams seat updates. The optional
// section query parameter restricts updates to one section.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		section: r.URL.Query().Get("section"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client messages and unregisters on disconnect
func (c *Client) readPump() {
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
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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

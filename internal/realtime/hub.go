// Package realtime pushes notifications to connected browsers and turns
// change-feed events into notifications.
package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
)

const (
	MessageTypeNotification = "notification"
	MessageTypePong         = "pong"
)

// Message is the frame written to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Time int64  `json:"time"`
}

type delivery struct {
	userID uuid.UUID
	msg    Message
}

// Hub tracks websocket clients per user. A user may have several tabs open;
// every push goes to all of them. Missed pushes are not replayed.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	done       chan struct{}

	upgrader       websocket.Upgrader
	allowedOrigins []string
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:        make(map[uuid.UUID]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		deliveries:     make(chan delivery, 256),
		done:           make(chan struct{}),
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run owns client registration and delivery until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

// Push queues msg for every connection the user has open. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Push(userID uuid.UUID, msg Message) {
	if msg.Time == 0 {
		msg.Time = time.Now().Unix()
	}
	select {
	case h.deliveries <- delivery{userID: userID, msg: msg}:
	default:
		logging.Warn("Realtime queue full, dropping push", logging.Fields{"user_id": userID.String(), "type": msg.Type})
	}
}

// ClientCount returns the number of open connections for a user.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS upgrades the request and attaches the connection to userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", logging.Fields{"error": err})
		return
	}

	c := &Client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]bool)
	}
	h.clients[c.userID][c] = true
	total := h.countLocked()
	h.mu.Unlock()

	metrics.SetWebsocketClients(total)
	logging.Debug("WebSocket client registered", logging.Fields{"client_id": c.id, "user_id": c.userID.String()})
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	h.dropLocked(c)
	total := h.countLocked()
	h.mu.Unlock()

	metrics.SetWebsocketClients(total)
}

// dropLocked detaches c and closes its send channel. Safe to call twice.
func (h *Hub) dropLocked(c *Client) {
	clients, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[d.userID] {
		select {
		case c.send <- d.msg:
		default:
			// Slow consumer; its pumps exit once send is closed.
			h.dropLocked(c)
		}
	}
	metrics.SetWebsocketClients(h.countLocked())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for c := range clients {
			h.dropLocked(c)
		}
	}
	metrics.SetWebsocketClients(0)
}

func (h *Hub) countLocked() int {
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

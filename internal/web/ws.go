package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 2 * time.Second

	// sendQueue is how many messages a client may fall behind before it is dropped.
	sendQueue = 16
)

// client is one websocket connection. Messages are queued on send and
// written by the client's own goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes status updates to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	initial  func() []byte

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a Hub. initial, if non-nil, supplies the message each new
// client receives on connect.
func NewHub(initial func() []byte) *Hub {
	return &Hub{
		initial: initial,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failure: %v", err)
		return
	}
	cl := &client{conn: c, send: make(chan []byte, sendQueue)}

	// Queued under the lock so no broadcast can reach the client before it.
	h.mu.Lock()
	if h.initial != nil {
		cl.send <- h.initial()
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go h.write(cl)

	// Clients only listen; reading detects the close.
	go func() {
		for {
			if _, _, err := c.NextReader(); err != nil {
				break
			}
		}
		h.remove(cl)
	}()
}

// write drains the client's queue until it is closed or a write fails.
func (h *Hub) write(cl *client) {
	defer cl.conn.Close()

	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(cl)
			return
		}
	}
	cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
		time.Now().Add(writeWait))
}

// Broadcast queues msg for every client. A client whose queue is full is
// dropped rather than waited on.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			log.Printf("websocket client fell %d messages behind, dropping it", sendQueue)
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

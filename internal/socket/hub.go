// server/internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"farmwise-api-server/internal/session"

	"github.com/gorilla/websocket"
)

const (
	// WriteWait bounds a single frame write to the peer.
	WriteWait = 10 * time.Second
	// sendBuffer is how many frames may wait for a client before it is
	// considered too slow and dropped.
	sendBuffer = 64
)

// Client is one websocket connection. Frames are queued and written by a
// single goroutine, so queueing never waits on the network.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	finished  chan struct{}
}

// NewClient starts the client's writer.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues a text frame. It reports false when the client is closed or
// its queue is full.
func (c *Client) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// SendJSON queues v as a text frame.
func (c *Client) SendJSON(v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("WebSocket: could not encode frame: %v", err)
		return false
	}
	return c.Send(payload)
}

// Close stops the writer after it has flushed what is already queued, then
// closes the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the connection has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.finished
}

func (c *Client) writePump() {
	defer close(c.finished)
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write failed: %v", err)
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks the websocket clients watching each session.
type Hub struct {
	// clients is keyed by session id. A session may be open on several
	// screens at once.
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client for sessionID.
func (h *Hub) Register(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	log.Printf("WebSocket client registered for session %s (%d open)", sessionID, len(set))
}

// Unregister removes a client.
func (h *Hub) Unregister(sessionID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		log.Printf("WebSocket client unregistered for session %s", sessionID)
	}
	if len(set) == 0 {
		delete(h.clients, sessionID)
	}
}

// Count returns how many clients watch sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Broadcast queues message for every client of sessionID. A session nobody is
// watching is not an error. Clients that cannot keep up are dropped; they get
// a fresh snapshot when they reconnect.
func (h *Hub) Broadcast(sessionID string, message []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Send(message) {
			log.Printf("WebSocket client for session %s is too slow, dropping it", sessionID)
			h.Unregister(sessionID, c)
			c.Close()
		}
	}
}

// Notify is a session.Store subscriber that pushes every event to the
// session's clients. It never blocks on a connection.
func (h *Hub) Notify(ev session.Event) {
	if h.Count(ev.SessionID) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("WebSocket: could not encode %s event: %v", ev.Kind, err)
		return
	}
	h.Broadcast(ev.SessionID, payload)

	if ev.Kind == session.EventSessionClosed {
		h.closeAll(ev.SessionID)
	}
}

func (h *Hub) closeAll(sessionID string) {
	h.mu.Lock()
	set := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	for c := range set {
		c.Close()
	}
}

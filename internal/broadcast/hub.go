// Package broadcast streams a shared podcast session to WebSocket listeners.
//
// The hub fans JSON status frames and binary audio chunks out to every connected
// listener. The station owns one playback sequencer whose player paces audio
// through the hub instead of a local audio device.
package broadcast

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 1024
	sendBuffer     = 64
)

// frame is one queued websocket message
type frame struct {
	kind int
	data []byte
}

type client struct {
	conn *websocket.Conn
	send chan frame
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans frames out to websocket listeners. Slow listeners are disconnected
// rather than allowed to hold back the others.
type Hub struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[*client]struct{}
	lastStatus []byte
	closed     bool
}

// NewHub creates a hub, allowedOrigins empty accepts any origin
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[*client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeHTTP upgrades the request and keeps the listener attached until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan frame, sendBuffer), done: make(chan struct{})}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		c.close()
		return
	}
	slog.Debug("listener connected", "remote", r.RemoteAddr, "listeners", h.Listeners())

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	slog.Debug("listener disconnected", "remote", r.RemoteAddr)
}

// BroadcastJSON sends v as a text frame to every listener
func (h *Hub) BroadcastJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	h.broadcast(frame{kind: websocket.TextMessage, data: data}, false)
	return nil
}

// BroadcastStatus sends v as a text frame and replays it to listeners joining later
func (h *Hub) BroadcastStatus(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	h.broadcast(frame{kind: websocket.TextMessage, data: data}, true)
	return nil
}

// BroadcastBinary sends raw audio bytes to every listener
func (h *Hub) BroadcastBinary(data []byte) {
	h.broadcast(frame{kind: websocket.BinaryMessage, data: data}, false)
}

// Listeners returns the number of connected listeners
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every listener and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.lastStatus != nil {
		c.send <- frame{kind: websocket.TextMessage, data: h.lastStatus}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) broadcast(f frame, status bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if status {
		h.lastStatus = f.data
	}
	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			slog.Warn("dropping slow listener", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards inbound messages, it only keeps the connection alive
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

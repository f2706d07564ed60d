package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

const (
	writeWait     = 10 * time.Second
	pollInterval  = time.Second
	clientBacklog = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// hub pushes state snapshots to websocket clients. A snapshot is sent when
// the generation moves, when the wallet changes, and when pending loads
// resolve; identical snapshots are suppressed by fingerprint.
type hub struct {
	snapshot     func() contract.Snapshot
	gen          *contract.Generation
	pingInterval time.Duration
	logger       *zap.Logger
	metrics      *metrics.ServerMetrics

	kick chan struct{}

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    uint64
	latest  []byte
}

func newHub(snapshot func() contract.Snapshot, gen *contract.Generation, pingInterval time.Duration, logger *zap.Logger, m *metrics.ServerMetrics) *hub {
	return &hub{
		snapshot:     snapshot,
		gen:          gen,
		pingInterval: pingInterval,
		logger:       logger,
		metrics:      m,
		kick:         make(chan struct{}, 1),
		clients:      make(map[*wsClient]struct{}),
	}
}

// notify requests a push at the next opportunity.
func (h *hub) notify() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func (h *hub) run(ctx context.Context) {
	updates, cancel := h.gen.Subscribe()
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-updates:
		case <-h.kick:
		case <-ticker.C:
		}
		h.broadcast()
	}
}

func (h *hub) encode() ([]byte, bool) {
	snap := h.snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()
	if snap.Fingerprint == h.last && h.latest != nil {
		return h.latest, false
	}
	data, err := json.Marshal(wsMessage{Type: "state", Data: snap})
	if err != nil {
		h.logger.Error("Failed to encode snapshot", zap.Error(err))
		return nil, false
	}
	h.last = snap.Fingerprint
	h.latest = data
	return data, true
}

func (h *hub) broadcast() {
	if data, changed := h.encode(); changed {
		h.send(data, nil)
	}
}

// send delivers data to only, or to every client when only is nil.
func (h *hub) send(data []byte, only *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if only != nil && c != only {
			continue
		}
		if !c.enqueue(data) {
			h.logger.Warn("Dropping slow websocket client", zap.String("remote", c.remote))
			h.removeLocked(c)
			continue
		}
		h.metrics.WSPushes.Inc()
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		conn:   conn,
		send:   make(chan []byte, clientBacklog),
		remote: r.RemoteAddr,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.WSClients.Inc()

	// a changed snapshot goes to everyone, otherwise only the newcomer needs it
	if data, changed := h.encode(); changed {
		h.send(data, nil)
	} else if data != nil {
		h.send(data, c)
	}

	go c.writePump(h.pingInterval)
	go c.readPump(h.pingInterval, func() { h.remove(c) })
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.WSClients.Dec()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// enqueue must be called with the hub lock held, since removal closes send.
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and keeps the read deadline alive on
// pongs. done runs when the connection goes away.
func (c *wsClient) readPump(pingInterval time.Duration, done func()) {
	defer func() {
		done()
		c.conn.Close()
	}()

	pongWait := pingInterval * 10 / 9
	c.conn.SetReadLimit(512)
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

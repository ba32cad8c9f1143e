package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stock_go/internal/domain"
	"stock_go/internal/infra"
)

const (
	sendBuffer   = 256
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string // empty = all symbols
}

// Hub streams settled trades to websocket subscribers.
// Clients may pass ?symbol=XYZ to receive a single instrument.
// A client whose buffer is full misses messages instead of stalling settlement.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *infra.Metrics
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infra.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		symbol: r.URL.Query().Get("symbol"),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncrementConnections()
	}
	h.logger.Debug("feed client connected", slog.String("remote", r.RemoteAddr), slog.String("symbol", c.symbol))

	go h.writePump(c)
	go h.readPump(c)
}

// HandleTrades implements domain.TradeSink.
func (h *Hub) HandleTrades(_ context.Context, trades []domain.SettledTrade) error {
	for _, t := range trades {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		h.broadcast(t.Symbol, data)
	}
	return nil
}

func (h *Hub) broadcast(symbol string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.symbol != "" && c.symbol != symbol {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.DecrementConnections()
	}
}

// readPump only services control frames; client payloads are ignored.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
	return nil
}

var _ domain.TradeSink = (*Hub)(nil)

// Package stream pushes simulation events to websocket clients.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/observability"
)

// Event types.
const (
	EventStep      = "step"
	EventReset     = "reset"
	EventProduct   = "product"
	EventAutopilot = "autopilot"
)

// Event is one message sent to every connected client.
type Event struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"session_id"`
	ProductID string                  `json:"product_id"`
	Step      *domain.StepResult      `json:"step,omitempty"`
	State     *domain.SimulationState `json:"state,omitempty"`
	Autopilot *bool                   `json:"autopilot,omitempty"`
	At        time.Time               `json:"at"`
}

// HubConfig configures websocket behavior.
type HubConfig struct {
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the interval for sending ping frames. Must be below PongWait.
	PingInterval time.Duration
	// PongWait is how long a client may stay silent before it is dropped.
	PongWait time.Duration
	// SendBuffer is the per-client queue length; a full queue drops messages.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		SendBuffer:   32,
	}
}

// Hub fans events out to websocket clients.
type Hub struct {
	config   HubConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a hub. A nil config uses DefaultHubConfig; logger and metrics may be nil.
func NewHub(config *HubConfig, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	defaults := DefaultHubConfig()
	cfg := defaults
	if config != nil {
		cfg = *config
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 1
	}
	// zero durations would panic in NewTicker or expire every deadline
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			// read-only public feed
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.wg.Add(2)
	h.mu.Unlock()

	h.metrics.SetStreamClients(n)
	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Publish queues ev for every client. Slow clients lose the message instead of
// blocking the publisher.
func (h *Hub) Publish(ev Event) error {
	if h.closed.Load() {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.metrics.RecordStreamDropped()
			h.logger.Warn("dropping event for slow websocket client", zap.String("type", ev.Type))
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines.
// Publish becomes a no-op afterwards.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
	h.wg.Wait()
}

// remove unregisters c and closes its connection. Safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})

	if ok {
		h.metrics.SetStreamClients(n)
	}
}

// readLoop discards client frames; it exists to process control frames and
// notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

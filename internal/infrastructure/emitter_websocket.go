package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

const (
	hubSendBuffer   = 256
	hubPingInterval = 30 * time.Second
	hubWriteTimeout = 10 * time.Second
)

// hubClient is one websocket subscriber. jobID filters notifications when set.
type hubClient struct {
	conn  *websocket.Conn
	send  chan []byte
	jobID string
	once  sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

// EventHub broadcasts notifications to websocket subscribers. A subscriber
// that cannot keep up is disconnected instead of blocking the publisher.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

// NewEventHub creates an empty hub
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool; served on localhost
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Emit queues n for every matching subscriber
func (h *EventHub) Emit(_ context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.jobID != "" && n.JobID != "" && c.jobID != n.JobID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow websocket subscriber")
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// ClientCount returns the number of connected subscribers
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams notifications until the client
// disconnects. The optional job_id query parameter limits the stream to one job.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}

	client := &hubClient{
		conn:  conn,
		send:  make(chan []byte, hubSendBuffer),
		jobID: r.URL.Query().Get("job_id"),
	}
	h.register(client)

	h.logger.Info("WebSocket client connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("job_id", client.jobID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.writeLoop(client, done)

	h.unregister(client)
	conn.Close()
	h.logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

func (h *EventHub) writeLoop(client *hubClient, done <-chan struct{}) {
	ticker := time.NewTicker(hubPingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *EventHub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *EventHub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Close disconnects every subscriber
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/pkg/contracts/events"
)

const broadcastBuffer = 64

// Hub tracks connected subscribers and fans run events out to them.
// Start must be called before clients register.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	quit     chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	running  bool
	stopOnce sync.Once

	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *infrastructure.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
	}
}

// Start runs the hub loop in the background. Extra calls are no-ops.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop closes every client and ends the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if running {
		<-h.done
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Publish queues event for every subscriber. It never blocks: events are
// dropped while the broadcast queue is full.
func (h *Hub) Publish(event events.RunEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal run event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast queue full, dropping run event",
			slog.String("type", string(event.Type)),
			slog.String("run_id", event.RunID))
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			closed := len(h.clients)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			if h.metrics != nil && closed > 0 {
				h.metrics.RecordWSConnection(ctx, -int64(closed))
			}
			h.logger.Info("Hub shut down")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.RecordWSConnection(ctx, 1)
			}
			h.logger.InfoContext(c.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr))
			h.greet(c)

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				if h.metrics != nil {
					h.metrics.RecordWSConnection(ctx, -1)
				}
				h.logger.InfoContext(c.context(), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", c.id),
					slog.Duration("connection_duration", time.Since(c.connectedAt)))
			}

		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

// greet tells a new subscriber its client ID
func (h *Hub) greet(c *Client) {
	data, err := json.Marshal(events.RunEvent{
		Type:      events.TypeConnection,
		Status:    "connected",
		ClientID:  c.id,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// fanOut delivers message to every client. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered, dropped := 0, 0
	for c := range h.clients {
		select {
		case c.send <- message:
			delivered++
		default:
			dropped++
			close(c.send)
			delete(h.clients, c)
			h.logger.WarnContext(c.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", c.id))
		}
	}

	if h.metrics != nil {
		h.metrics.RecordWSBroadcast(ctx, delivered, dropped)
		if dropped > 0 {
			h.metrics.RecordWSConnection(ctx, -int64(dropped))
		}
	}
	h.logger.Debug("Broadcast run event",
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped),
		slog.Int("message_size", len(message)))
}

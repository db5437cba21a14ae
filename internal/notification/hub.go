package notification

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks the live WebSocket clients and fans notifications out to them.
// It is stateless with respect to content: no history is kept.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.Named("hub"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a client. Idempotent: only a definitive disconnect
// signal (the read pump exiting) calls this, never a failed send.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	c.closeSend()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast delivers n to every registered client. It iterates a snapshot of
// the registry so registration changes during the broadcast are safe. A
// client whose send buffer is full is skipped for this broadcast only; a
// slow client is not assumed gone.
func (h *Hub) Broadcast(n Notification) {
	h.mu.Lock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	for _, c := range snapshot {
		if !c.trySend(n) {
			h.logger.Warn("Dropping notification for slow client",
				zap.String("kind", n.Kind),
				zap.String("remote_addr", c.RemoteAddr()),
			)
		}
	}
}

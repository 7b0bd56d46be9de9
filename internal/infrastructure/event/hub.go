package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultClientBuffer is the per-client queue length of a Hub
const DefaultClientBuffer = 64

// Hub fans bus events out to connected stream clients.
// A client that falls behind loses events rather than stalling publishers.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]chan shared.DomainEvent
	buffer  int
	logger  *zap.Logger
}

// NewHub creates a hub; buffer <= 0 uses DefaultClientBuffer
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Hub{
		clients: make(map[uuid.UUID]chan shared.DomainEvent),
		buffer:  buffer,
		logger:  logger,
	}
}

// Join registers a client. The returned func removes it and closes the channel.
func (h *Hub) Join() (<-chan shared.DomainEvent, func()) {
	id := uuid.New()
	ch := make(chan shared.DomainEvent, h.buffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle implements shared.EventHandler
func (h *Hub) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- evt:
		default:
			h.logger.Debug("Stream client lagging, event dropped",
				zap.String("client_id", id.String()),
				zap.String("event_type", evt.EventType()))
		}
	}
	return nil
}

// EventTypes implements shared.EventHandler; the hub receives every event
func (h *Hub) EventTypes() []string { return nil }

var _ shared.EventHandler = (*Hub)(nil)

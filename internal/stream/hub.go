// Package stream provides fan-out distribution of engine lifecycle events.
package stream

import (
	"sync"
	"time"

	"tradebot/internal/models"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventProposalRejected EventType = "proposal_rejected"
	EventPositionOpened   EventType = "position_opened"
	EventPositionClosed   EventType = "position_closed"
	EventOrderFailed      EventType = "order_failed"
)

// Event is a lifecycle notification emitted by the engine. Delivery is
// fire-and-forget; the engine never waits on consumers.
type Event struct {
	Type      EventType
	Symbol    string
	Reason    string
	Position  *models.Position
	Trade     *models.Trade
	Timestamp time.Time
}

// HubConfig holds configuration for the event hub.
type HubConfig struct {
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
	// SlowConsumerDropThreshold is the number of consecutive drops before
	// a subscriber is considered slow (surfaced via Stats).
	SlowConsumerDropThreshold int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SubscriberBufferSize:      100,
		SlowConsumerDropThreshold: 10,
	}
}

// Hub distributes events to multiple subscribers via channels. Publishing
// never blocks: a subscriber whose buffer is full drops the event.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	published   uint64
	dropped     uint64
	closed      bool
}

type subscriber struct {
	ch      chan Event
	dropped int
}

// NewHub creates an event hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates an event hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	if config.SubscriberBufferSize <= 0 {
		config.SubscriberBufferSize = 1
	}
	return &Hub{
		config:      config,
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a consumer and returns its event channel.
func (h *Hub) Subscribe(id string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &subscriber{ch: make(chan Event, h.config.SubscriberBufferSize)}
	h.subscribers[id] = sub
	return sub.ch
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Publish delivers the event to all subscribers without blocking.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.published++
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- event:
			sub.dropped = 0
		default:
			sub.dropped++
			h.dropped++
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Stats reports publish/drop counters and slow subscribers.
func (h *Hub) Stats() (published, dropped uint64, slow []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, sub := range h.subscribers {
		if sub.dropped >= h.config.SlowConsumerDropThreshold {
			slow = append(slow, id)
		}
	}
	return h.published, h.dropped, slow
}

// Package events fans pipeline events out to operational subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Type labels a pipeline event.
type Type string

const (
	TypeRenderStarted   Type = "render_started"
	TypeRenderCompleted Type = "render_completed"
	TypeRenderFailed    Type = "render_failed"
	TypeCacheHit        Type = "cache_hit"
)

// Event is one occurrence in the card pipeline.
type Event struct {
	Type     Type      `json:"type"`
	Nickname string    `json:"nickname,omitempty"`
	Template string    `json:"template,omitempty"`
	Key      string    `json:"key,omitempty"`
	At       time.Time `json:"at"`
}

// Hub broadcasts events to every subscriber. Slow subscribers drop events
// rather than blocking the pipeline.
type Hub struct {
	register    chan chan []byte
	unregister  chan chan []byte
	broadcast   chan Event
	subscribers map[chan []byte]struct{}
	logger      zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewHub creates an idle hub; call Run to start dispatching.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:    make(chan chan []byte),
		unregister:  make(chan chan []byte),
		broadcast:   make(chan Event, 64),
		subscribers: make(map[chan []byte]struct{}),
		logger:      logger,
	}
}

// Run dispatches events until the broadcast channel is closed via Stop.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub)
			}
		case event, ok := <-h.broadcast:
			if !ok {
				for sub := range h.subscribers {
					close(sub)
				}
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Msg("encoding event")
				continue
			}
			for sub := range h.subscribers {
				select {
				case sub <- payload:
				default:
					// Subscriber is not keeping up; drop the event.
				}
			}
		}
	}
}

// Stop shuts the hub down and closes every subscriber channel. Publishes
// after Stop are dropped; in-flight requests may still publish during
// shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	close(h.broadcast)
}

// Publish queues an event for broadcast without blocking the caller.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("type", string(event.Type)).Msg("event dropped, hub backlog full")
	}
}

// Subscribe registers a new subscriber channel.
func (h *Hub) Subscribe() chan []byte {
	sub := make(chan []byte, 16)
	h.register <- sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub chan []byte) {
	h.unregister <- sub
}

package service

import (
	"sync"

	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/pkg/logger"
)

// EventHub fans committed registry events out to subscribers.
// A subscriber that falls behind loses events instead of blocking the registry.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan model.Event
	nextID int
	buffer int
}

func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventHub{
		subs:   make(map[int]chan model.Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *EventHub) Subscribe() (<-chan model.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan model.Event, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *EventHub) Publish(e model.Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			logger.Warn("Event subscriber lagging, dropping event", "subscriber", id, "type", e.Type)
		}
	}
}

func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

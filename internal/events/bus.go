// Package events fans the engine's committed event stream out to downstream
// consumers: the discovery mirror, the journal, the websocket feed and the
// optional Kafka sink.
package events

import (
	"sync"

	"github.com/agora-market/agora/internal/market/types"
	"github.com/agora-market/agora/pkg/logger"
)

// Bus is a non-blocking fan-out of engine events. Publishers never wait: a
// subscriber that falls behind its buffer loses events and is expected to
// resynchronize through the engine's read operations (the collaborator
// contract makes notifications a refresh signal, not a source of truth).
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan types.Event
	nextID int
	buffer int
	closed bool
	log    *logger.Logger
}

// NewBus creates a bus whose subscribers each get a buffer of the given size.
func NewBus(buffer int, log *logger.Logger) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		subs:   make(map[int]chan types.Event),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a consumer. The returned cancel func must be called to
// release the subscription; the channel is closed on cancel or bus close.
func (b *Bus) Subscribe() (<-chan types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan types.Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan types.Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers events to every subscriber, dropping for any whose buffer
// is full.
func (b *Bus) Publish(events ...types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, event := range events {
		for _, ch := range b.subs {
			select {
			case ch <- event:
			default:
				if b.log != nil {
					b.log.Warn("event dropped for slow subscriber", "type", event.Type)
				}
			}
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

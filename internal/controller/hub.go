package controller

import (
	"encoding/json"
	"sync"

	"github.com/philipparndt/meshdash/internal/metrics"
)

const (
	EventScene  = "scene"
	EventCamera = "camera"
	EventLayout = "layout"
)

// Event is one server-sent message with its JSON body already encoded
type Event struct {
	Type string
	Data []byte
}

// Hub fans events out to subscribers. Slow subscribers lose their oldest
// queued events; each new subscriber first receives the latest event of
// every type.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan Event]struct{}
	last    map[string]Event
	order   []string
	buffer  int
	metrics *metrics.Dashboard
}

func NewHub(buffer int, m *metrics.Dashboard) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:    make(map[chan Event]struct{}),
		last:    make(map[string]Event),
		buffer:  buffer,
		metrics: m,
	}
}

// Publish encodes v and sends it to every subscriber
func (h *Hub) Publish(typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ev := Event{Type: typ, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, seen := h.last[typ]; !seen {
		h.order = append(h.order, typ)
	}
	h.last[typ] = ev
	for ch := range h.subs {
		send(ch, ev)
	}
	return nil
}

// send never blocks: a full channel drops its oldest event
func send(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns an event channel and a cancel func that closes it
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	// sized under the lock so the replay below can never block
	ch := make(chan Event, h.buffer+len(h.order))
	for _, typ := range h.order {
		ch <- h.last[typ]
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
			h.metrics.ClientDisconnected()
		})
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

package store

import "sync"

// Op identifies what changed in the store.
type Op string

const (
	OpPut    Op = "put"
	OpMeta   Op = "meta"
	OpDelete Op = "delete"
)

// Event is a change notification. Origin is empty for locally produced
// events and names the producing process for events injected by a relay,
// which keeps a relay from echoing foreign events back out.
type Event struct {
	Op        Op     `json:"op"`
	SessionID string `json:"session_id"`
	Origin    string `json:"origin,omitempty"`
}

// Bus is an in-process publish/subscribe channel for store change events.
// Subscribers with a full buffer miss events rather than block a writer;
// a refresh re-reads the whole store anyway, so dropped events only delay
// a refresh that the next event triggers.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the subscription; the channel is closed by cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

package playback

import (
	"sync"

	"github.com/desertthunder/spindle/internal/models"
)

// EventKind identifies a notification published by the [Store].
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventProgressChanged
	EventLocalityChanged
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventProgressChanged:
		return "progress_changed"
	case EventLocalityChanged:
		return "locality_changed"
	default:
		return ""
	}
}

// Event is a notification delivered to subscribers.
//
// Snapshot is set for [EventStateChanged], ProgressMS for [EventProgressChanged]
// and Local for [EventLocalityChanged].
type Event struct {
	Kind       EventKind
	Snapshot   *models.Snapshot
	ProgressMS int
	Local      bool
}

// Broadcaster fans events out to every subscriber.
//
// Sends never block: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
}

// NewBroadcaster creates a [Broadcaster] whose subscriber channels hold buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a new subscriber. The returned cancel func closes the channel and is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (b *Broadcaster) Close() {
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

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

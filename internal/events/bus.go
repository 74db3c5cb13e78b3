// Package events broadcasts session lifecycle events (frame sent, ACK
// received, retransmission, chunk delivered) to any subscribed observers,
// without letting a slow observer
// block the protocol state machines. It is the hub/backpressure pattern
// the teacher uses for fan-out to TCP clients, repurposed here for
// fanning out observability events instead of wire frames.
package events

import (
	"sync"

	"github.com/arqnet/linkarq/internal/logging"
)

// Kind identifies the category of a session Event.
type Kind int

const (
	FrameSent Kind = iota
	FrameRetransmitted
	AckReceived
	AckSent
	ChunkDelivered
	FrameDuplicate
	FrameOutOfOrder
	SessionDone
)

// Event is one observable occurrence in a running session.
type Event struct {
	Kind Kind
	Seq  uint32
}

// BackpressurePolicy controls what happens when an Observer's queue is full.
type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

// Observer is a registered event subscriber with a bounded inbox.
type Observer struct {
	In        chan Event
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the observer is closed (idempotent).
func (o *Observer) Close() {
	o.closeOnce.Do(func() { close(o.Closed) })
}

// Bus fans session events out to any number of registered Observers.
type Bus struct {
	mu        sync.RWMutex
	observers map[*Observer]struct{}
	BufSize   int
	Policy    BackpressurePolicy
}

// New creates a Bus with default settings (buffer 64, drop on backpressure).
func New() *Bus {
	return &Bus{observers: make(map[*Observer]struct{}), BufSize: 64}
}

// Subscribe registers a new Observer and returns it.
func (b *Bus) Subscribe() *Observer {
	bufSize := b.BufSize
	if bufSize <= 0 {
		bufSize = 64
	}
	o := &Observer{In: make(chan Event, bufSize), Closed: make(chan struct{})}
	b.mu.Lock()
	b.observers[o] = struct{}{}
	b.mu.Unlock()
	return o
}

// Unsubscribe removes an Observer; safe to call multiple times.
func (b *Bus) Unsubscribe(o *Observer) {
	b.mu.Lock()
	delete(b.observers, o)
	b.mu.Unlock()
	select {
	case <-o.Closed:
	default:
		o.Close()
	}
}

// Publish sends ev to every subscribed Observer, honoring the
// backpressure policy for observers whose inbox is full.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	observers := make([]*Observer, 0, len(b.observers))
	for o := range b.observers {
		observers = append(observers, o)
	}
	b.mu.RUnlock()
	for _, o := range observers {
		select {
		case o.In <- ev:
		default:
			if b.Policy == PolicyKick {
				o.Close()
			} else {
				logging.L().Debug("event_dropped", "kind", ev.Kind)
			}
		}
	}
}

// Count returns the number of active observers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

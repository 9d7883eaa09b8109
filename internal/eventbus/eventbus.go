// Package eventbus broadcasts optimization lifecycle events in process.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is any value published on a Bus, usually one of core/events.
type Event = any

// EventBus is the contract the optimizer publishes through.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// TypedBus fans values of type T out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the value and Dropped grows.
type TypedBus[T any] struct {
	buffer  int
	dropped atomic.Uint64

	mu     sync.RWMutex
	subs   map[<-chan T]chan T
	closed bool
}

// Option configures a bus.
type Option func(*int)

// WithBuffer sets the capacity of each subscriber channel. Values below one
// are ignored.
func WithBuffer(n int) Option {
	return func(b *int) {
		if n > 0 {
			*b = n
		}
	}
}

// NewTyped returns an open bus with a default buffer of 8.
func NewTyped[T any](opts ...Option) *TypedBus[T] {
	buf := 8
	for _, o := range opts {
		o(&buf)
	}
	return &TypedBus[T]{buffer: buf, subs: make(map[<-chan T]chan T)}
}

// Bus carries untyped events.
type Bus = TypedBus[Event]

// New returns an untyped Bus.
func New(opts ...Option) *Bus { return NewTyped[Event](opts...) }

// Publish delivers e to every subscriber with room for it. It is a no-op on
// a closed bus.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a new subscriber channel. On a closed bus the channel
// is already closed.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe closes sub and stops delivering to it. Unknown channels are
// ignored.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes every subscriber channel. Calling it twice is safe.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub, ch := range b.subs {
		delete(b.subs, sub)
		close(ch)
	}
}

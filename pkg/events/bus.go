// Package events is an in-process broadcast channel. Publishers never block;
// a subscriber that falls behind loses events rather than stalling the
// publisher.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// DefaultBuffer is used when Subscribe is given a non-positive buffer.
const DefaultBuffer = 16

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "authsession",
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Number of events dropped because a subscriber was full",
})

// Bus fans out published values to every current subscriber.
type Bus[T any] struct {
	logger *slog.Logger

	// mu orders channel closes against in-progress sends
	mu     sync.RWMutex
	closed bool

	nextID atomic.Uint64
	subs   *xsync.MapOf[uint64, chan T]
}

// New creates an empty bus. A nil logger discards drop warnings.
func New[T any](logger *slog.Logger) *Bus[T] {
	if logger == nil {
		logger = slogx.Discard()
	}
	return &Bus[T]{
		logger: logger,
		subs:   xsync.NewMapOf[uint64, chan T](),
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once. Subscribing to a
// closed bus yields an already closed channel.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan T, buffer)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID.Add(1)
	b.subs.Store(id, ch)
	b.mu.RUnlock()

	return ch, func() { b.unsubscribe(id) }
}

func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs.LoadAndDelete(id); ok {
		close(ch)
	}
}

// Publish delivers v to every subscriber with room in its buffer and returns
// how many received it.
func (b *Bus[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	b.subs.Range(func(id uint64, ch chan T) bool {
		select {
		case ch <- v:
			delivered++
		default:
			droppedTotal.Inc()
			b.logger.Warn("event dropped, subscriber is full", "subscriber", id)
		}
		return true
	})
	return delivered
}

// Subscribers returns the number of live subscriptions.
func (b *Bus[T]) Subscribers() int {
	return b.subs.Size()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	b.subs.Range(func(id uint64, ch chan T) bool {
		close(ch)
		b.subs.Delete(id)
		return true
	})
}

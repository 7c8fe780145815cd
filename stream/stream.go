// Package stream provides hot multicast relays and the small operator
// algebra sizewatch composes its pipelines from: filter, map, merge,
// consecutive-duplicate suppression, leading-edge throttle and debounce.
//
// A Relay fans each published value out to every live subscriber. Subscriber
// channels are buffered; when a consumer falls behind, the newest value for
// that subscriber is dropped rather than blocking the publisher (the native
// detector callbacks must never stall). Drops are counted and exposed via
// Drops.
//
// Operators are goroutine stages: they subscribe upstream, transform, and
// publish downstream, preserving order. A stage drops or delays values but
// never reorders them. When the upstream relay closes, the stage closes its
// downstream relay.
package stream

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 64

// Relay is a hot multicast stream of T. The zero value is not usable;
// create relays with New. Safe for concurrent use.
type Relay[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
	buf    int
	hooks  []func()
	drops  atomic.Uint64
}

// Option configures a Relay.
type Option func(*config)

type config struct {
	buffer int
}

// WithBuffer sets the per-subscriber channel buffer. Default: 64.
func WithBuffer(n int) Option {
	return func(c *config) { c.buffer = n }
}

// New creates an open Relay.
func New[T any](opts ...Option) *Relay[T] {
	c := config{buffer: defaultBuffer}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.buffer < 1 {
		c.buffer = 1
	}
	return &Relay[T]{
		subs: make(map[uint64]chan T),
		buf:  c.buffer,
	}
}

// Subscription is one subscriber's view of a relay. Receive from C; call
// Cancel to stop. C is closed when the relay closes or Cancel is called.
type Subscription[T any] struct {
	C <-chan T

	once   sync.Once
	cancel func()
}

// Cancel detaches the subscription and closes C. Idempotent. Cancelling
// never tears down the relay itself: shared pipelines outlive any one
// subscriber.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
}

// Subscribe attaches a new subscriber. Subscribing to a closed relay
// returns a subscription whose channel is already closed.
func (r *Relay[T]) Subscribe() *Subscription[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan T, r.buf)
	if r.closed {
		close(ch)
		return &Subscription[T]{C: ch, cancel: func() {}}
	}

	id := r.nextID
	r.nextID++
	r.subs[id] = ch

	return &Subscription[T]{
		C: ch,
		cancel: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(ch)
			}
		},
	}
}

// Publish delivers v to all current subscribers without blocking. A
// subscriber whose buffer is full misses v (drop-newest) and the relay's
// drop counter is incremented. Publishing on a closed relay is a no-op.
func (r *Relay[T]) Publish(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, ch := range r.subs {
		select {
		case ch <- v:
		default:
			r.drops.Add(1)
		}
	}
}

// Close closes the relay and every subscriber channel, then runs the close
// hooks (operator stages register their upstream cancellation here, so
// closing a derived relay releases the whole chain above it). Idempotent.
func (r *Relay[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// addCloseHook registers fn to run when the relay closes. On an already
// closed relay fn runs immediately.
func (r *Relay[T]) addCloseHook(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fn()
		return
	}
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (r *Relay[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Drops returns the number of values dropped due to subscriber overflow.
func (r *Relay[T]) Drops() uint64 {
	return r.drops.Load()
}

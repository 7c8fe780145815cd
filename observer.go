package sizewatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/sizewatch/size"
	"github.com/hazyhaar/sizewatch/stream"
)

// DefaultThrottle is the default sampling interval of the Resize stream.
// Shorter intervals were found to undercount rather than oversample, given
// the granularity of native detection cycles. Configurable per watcher.
const DefaultThrottle = 90 * time.Millisecond

// Observer is the per-target facade. It owns the target's base stream (the
// deduplicated, source-merged stream of size events, built at most once)
// and derives throttled and edge-detection streams from it on demand.
// Derived streams are cached: one pipeline per distinct throttle interval,
// one edge state machine, shared by all subscribers.
type Observer struct {
	base     *stream.Relay[size.Event]
	throttle time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	byInterval map[time.Duration]*stream.Relay[size.Event]
	start, end *stream.Relay[size.Event]
}

func newObserver(base *stream.Relay[size.Event], throttle time.Duration, logger *slog.Logger) *Observer {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		base:       base,
		throttle:   throttle,
		logger:     logger,
		byInterval: make(map[time.Duration]*stream.Relay[size.Event]),
	}
}

// Base returns the raw base stream: every deduplicated emission, no
// throttling.
func (o *Observer) Base() *stream.Relay[size.Event] { return o.base }

// Resize returns the default stream, throttled at the observer's configured
// interval.
func (o *Observer) Resize() *stream.Relay[size.Event] {
	return o.ThrottleBy(o.throttle)
}

// ThrottleBy returns a stream sampling the base stream at most once per
// interval (leading edge). interval <= 0 returns the raw base stream. Each
// distinct interval gets exactly one derived pipeline, lazily created and
// shared by all subscribers requesting it.
func (o *Observer) ThrottleBy(interval time.Duration) *stream.Relay[size.Event] {
	if interval <= 0 {
		return o.base
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.byInterval[interval]; ok {
		return s
	}
	s := stream.Throttle(o.base, interval)
	o.byInterval[interval] = s
	return s
}

// ResizeStart emits once at each transition into "actively resizing": the
// first base emission after a quiet period, carrying that emission's size.
func (o *Observer) ResizeStart() *stream.Relay[size.Event] {
	start, _ := o.edges()
	return start
}

// ResizeEnd emits once per quiet period: after the observer's throttle
// interval elapses with no further base emission, carrying the last known
// size.
func (o *Observer) ResizeEnd() *stream.Relay[size.Event] {
	_, end := o.edges()
	return end
}

// edges lazily starts the two-state machine feeding the start/end relays.
func (o *Observer) edges() (start, end *stream.Relay[size.Event]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.start != nil {
		return o.start, o.end
	}
	o.start = stream.New[size.Event]()
	o.end = stream.New[size.Event]()
	sub := o.base.Subscribe()
	go o.runEdges(sub, o.start, o.end)
	return o.start, o.end
}

// runEdges models resize activity as a boolean state machine with two
// states, Idle and Resizing, driven purely by the timing of base emissions:
// any emission moves Idle→Resizing (start edge), the quiet timer expiring
// moves Resizing→Idle (end edge, with the most recent size).
func (o *Observer) runEdges(sub *stream.Subscription[size.Event], start, end *stream.Relay[size.Event]) {
	defer start.Close()
	defer end.Close()

	var timer *time.Timer
	var timerC <-chan time.Time
	var last size.Event
	resizing := false

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				if resizing {
					end.Publish(last)
				}
				return
			}
			last = ev
			if !resizing {
				resizing = true
				start.Publish(ev)
			}
			// (Re)start the quiet timer.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(o.throttle)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if resizing {
				resizing = false
				end.Publish(last)
			}
		}
	}
}

// close tears down the base stream, which cascades into every derived
// pipeline. Called by the watcher on Unobserve/Close.
func (o *Observer) close() {
	o.base.Close()
}

// Package sizewatch provides a unified, deduplicated, throttle-aware stream
// of size-change notifications for a visual surface: the top-level viewport
// or an individual element.
//
// Two native change-detection primitives feed the pipeline — a box-geometry
// observer and a structural mutation observer — abstracted behind the
// contracts in the size package. The cdp package implements them over
// Chrome DevTools Protocol via rod; sizewatchtest provides synthetic fakes.
//
// Per target, raw change records are merged across both sources,
// deduplicated by value, and exposed through an Observer offering the raw
// base stream, arbitrary-interval throttled streams, and resize start/end
// edge streams. Observing the same target twice shares one native
// registration and one pipeline.
package sizewatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/sizewatch/idgen"
	"github.com/hazyhaar/sizewatch/internal/bus"
	"github.com/hazyhaar/sizewatch/internal/provider"
	"github.com/hazyhaar/sizewatch/internal/sink"
	"github.com/hazyhaar/sizewatch/size"
	"github.com/hazyhaar/sizewatch/stream"
)

// Config configures a Watcher.
type Config struct {
	// Geometry is the native box-geometry detector. Required.
	Geometry size.GeometryObserver

	// Mutations is the native structural mutation detector. Required.
	Mutations size.MutationObserver

	// Viewport is the top-level surface. Optional; required only for
	// Watcher.Viewport.
	Viewport size.Viewport

	// Throttle is the default sampling interval of Observer.Resize and the
	// quiet window of the start/end edge streams. Default: DefaultThrottle.
	Throttle time.Duration

	// Sinks receive a Notification for every base-stream emission of every
	// observed target. Optional.
	Sinks []Sink

	// IDs generates notification identifiers. Default: idgen.Default.
	IDs idgen.Generator

	Logger *slog.Logger
}

func (c *Config) defaults() error {
	if c.Geometry == nil || c.Mutations == nil {
		return fmt.Errorf("sizewatch: geometry and mutation detectors are required")
	}
	if c.Throttle <= 0 {
		c.Throttle = DefaultThrottle
	}
	if c.IDs == nil {
		c.IDs = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Sink re-exports the notification sink interface.
type Sink = sink.Sink

// Stats are point-in-time counters.
type Stats struct {
	Observers     int    `json:"observers"`
	Notifications uint64 `json:"notifications"`
	SinkErrors    uint64 `json:"sink_errors"`
}

// Watcher is the registry façade: it maps targets to their Observer,
// lazily constructing the pipeline on first request and returning the
// cached instance afterwards, so a target observed many times still has
// exactly one native registration and one base stream.
type Watcher struct {
	cfg   Config
	disp  *bus.Dispatcher
	sinkR *sink.Router

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	viewport *Observer
	elements map[size.Element]*elementEntry
	closed   bool

	seq           atomic.Uint64
	notifications atomic.Uint64
	sinkErrors    atomic.Uint64

	logger *slog.Logger
}

type elementEntry struct {
	obs     *Observer
	release func()
}

// New creates a Watcher over the given detectors.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:      cfg,
		disp:     bus.New(cfg.Geometry, cfg.Mutations, cfg.Logger),
		sinkR:    sink.NewRouter(cfg.Logger, cfg.Sinks...),
		ctx:      ctx,
		cancel:   cancel,
		elements: make(map[size.Element]*elementEntry),
		logger:   cfg.Logger,
	}, nil
}

// Viewport returns the observer for the top-level viewport, constructing it
// on first call.
func (w *Watcher) Viewport() (*Observer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("sizewatch: watcher is closed")
	}
	if w.viewport != nil {
		return w.viewport, nil
	}
	if w.cfg.Viewport == nil {
		return nil, fmt.Errorf("sizewatch: no viewport configured")
	}

	base := provider.Viewport(w.cfg.Viewport, w.logger)
	w.tap("viewport", base)
	w.viewport = newObserver(base, w.cfg.Throttle, w.logger)

	w.logger.Info("sizewatch: observing viewport", "throttle", w.cfg.Throttle)
	return w.viewport, nil
}

// Element returns the observer for el, constructing its pipeline on first
// call and returning the cached instance afterwards. Identity is reference
// equality: el must be pointer-shaped.
func (w *Watcher) Element(el size.Element) (*Observer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("sizewatch: watcher is closed")
	}
	if entry, ok := w.elements[el]; ok {
		return entry.obs, nil
	}

	base, release, err := provider.Element(w.disp, el, w.logger)
	if err != nil {
		return nil, fmt.Errorf("sizewatch: observe element: %w", err)
	}
	w.tap(targetLabel(el), base)

	obs := newObserver(base, w.cfg.Throttle, w.logger)
	w.elements[el] = &elementEntry{obs: obs, release: release}

	w.logger.Info("sizewatch: observing element",
		"target", targetLabel(el), "throttle", w.cfg.Throttle)
	return obs, nil
}

// Unobserve tears down el's pipeline and, when the detectors support it,
// drops the native registrations. Subscribers of any derived stream see
// their channels close. No-op for an element never observed.
func (w *Watcher) Unobserve(el size.Element) {
	w.mu.Lock()
	entry, ok := w.elements[el]
	if ok {
		delete(w.elements, el)
	}
	w.mu.Unlock()

	if !ok {
		return
	}
	entry.release()
	w.disp.ReleaseElement(el)
	w.logger.Info("sizewatch: released element", "target", targetLabel(el))
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	n := len(w.elements)
	if w.viewport != nil {
		n++
	}
	w.mu.Unlock()

	return Stats{
		Observers:     n,
		Notifications: w.notifications.Load(),
		SinkErrors:    w.sinkErrors.Load(),
	}
}

// Close tears down every pipeline, the change bus and the sinks.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	entries := make(map[size.Element]*elementEntry, len(w.elements))
	for el, entry := range w.elements {
		entries[el] = entry
	}
	w.elements = make(map[size.Element]*elementEntry)
	vp := w.viewport
	w.viewport = nil
	w.mu.Unlock()

	for el, entry := range entries {
		entry.release()
		w.disp.ReleaseElement(el)
	}
	if vp != nil {
		vp.close()
	}
	w.disp.Close()
	w.cancel()
	if err := w.sinkR.Close(); err != nil {
		w.logger.Warn("sizewatch: close sinks", "error", err)
	}
	w.logger.Info("sizewatch: closed")
}

// tap forwards every base emission of a target to the sink router as a
// Notification. Called with w.mu held, before any other subscriber exists.
func (w *Watcher) tap(target string, base *stream.Relay[size.Event]) {
	if w.sinkR.Empty() {
		return
	}
	sub := base.Subscribe()
	go func() {
		for ev := range sub.C {
			n := size.Notification{
				ID:        w.cfg.IDs(),
				Target:    target,
				Width:     ev.Width,
				Height:    ev.Height,
				Seq:       w.seq.Add(1),
				Timestamp: time.Now().UnixMilli(),
			}
			w.notifications.Add(1)
			if err := w.sinkR.Send(w.ctx, n); err != nil {
				w.sinkErrors.Add(1)
			}
		}
	}()
}

// targetLabel names an element for logs and notifications. Elements that
// implement fmt.Stringer (the cdp backend does) get their own label.
func targetLabel(el size.Element) string {
	if s, ok := el.(fmt.Stringer); ok {
		return s.String()
	}
	return "element"
}

// Package bus decouples the single native detection callback of each
// detector from the many downstream per-element pipelines. The native
// geometry and mutation detectors each deliver batches to exactly one
// registered callback; the dispatcher fans every record of a batch onto a
// multicast relay so that subscribing twice never re-registers with the
// native primitive.
package bus

import (
	"log/slog"

	"github.com/hazyhaar/sizewatch/size"
	"github.com/hazyhaar/sizewatch/stream"
)

// Dispatcher pairs the two change relays. Construct one per Watcher; tests
// construct isolated instances so nothing leaks across cases.
type Dispatcher struct {
	geometry  *stream.Relay[size.Record]
	mutations *stream.Relay[size.MutationRecord]

	geo size.GeometryObserver
	mut size.MutationObserver

	logger *slog.Logger
}

// New wires the detectors' single batch callbacks into fresh relays.
func New(geo size.GeometryObserver, mut size.MutationObserver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		geometry:  stream.New[size.Record](),
		mutations: stream.New[size.MutationRecord](),
		geo:       geo,
		mut:       mut,
		logger:    logger,
	}

	geo.OnBatch(func(records []size.Record) {
		for _, rec := range records {
			d.geometry.Publish(rec)
		}
	})
	mut.OnBatch(func(records []size.MutationRecord) {
		for _, rec := range records {
			d.mutations.Publish(rec)
		}
	})

	return d
}

// Geometry is the shared relay of box-geometry change records.
func (d *Dispatcher) Geometry() *stream.Relay[size.Record] { return d.geometry }

// Mutations is the shared relay of structural mutation records.
func (d *Dispatcher) Mutations() *stream.Relay[size.MutationRecord] { return d.mutations }

// ObserveElement registers el with both native detectors. Geometry
// registration is idempotent per element in the native contract; the
// mutation detector watches attributes, text content, children and the
// whole subtree so content-driven re-measurement misses nothing.
func (d *Dispatcher) ObserveElement(el size.Element) error {
	if err := d.geo.Observe(el); err != nil {
		return err
	}
	return d.mut.Observe(el, size.MutationOptions{
		Attributes:    true,
		CharacterData: true,
		Subtree:       true,
		ChildList:     true,
	})
}

// ReleaseElement drops native registrations for el on detectors that
// support release. Detectors without a Releaser keep the registration for
// the process lifetime.
func (d *Dispatcher) ReleaseElement(el size.Element) {
	if r, ok := d.geo.(size.Releaser); ok {
		if err := r.Unobserve(el); err != nil {
			d.logger.Warn("bus: release geometry registration failed", "error", err)
		}
	}
	if r, ok := d.mut.(size.Releaser); ok {
		if err := r.Unobserve(el); err != nil {
			d.logger.Warn("bus: release mutation registration failed", "error", err)
		}
	}
}

// Close closes both relays, ending every derived pipeline.
func (d *Dispatcher) Close() {
	d.geometry.Close()
	d.mutations.Close()
}

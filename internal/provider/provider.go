// Package provider builds the base size-event stream for one target. Two
// strategies exist: the viewport (driven by the native resize signal, sizes
// read at emission time) and the element (geometry records merged with
// mutation-triggered re-measurements, deduplicated by value).
package provider

import (
	"log/slog"

	"github.com/hazyhaar/sizewatch/internal/bus"
	"github.com/hazyhaar/sizewatch/size"
	"github.com/hazyhaar/sizewatch/stream"
)

// Viewport returns the base stream for the top-level viewport. Each native
// resize signal produces one event carrying the viewport's inner dimensions
// read at emission time — the signal itself carries no geometry. The stream
// is deliberately not deduplicated: there is no second noisy source to
// double up with, so every signal passes through.
func Viewport(vp size.Viewport, logger *slog.Logger) *stream.Relay[size.Event] {
	if logger == nil {
		logger = slog.Default()
	}
	out := stream.New[size.Event]()
	vp.OnResize(func() {
		ev, err := vp.InnerSize()
		if err != nil {
			logger.Warn("provider: read viewport size failed", "error", err)
			return
		}
		out.Publish(ev)
	})
	return out
}

// Element returns the base stream for one element. It registers el with
// both native detectors through the dispatcher and merges two sources:
//
//   - geometry change records filtered to el, mapped to their content-box
//     dimensions;
//   - non-attribute mutation records for el, mapped to the element's
//     current offset dimensions. Geometry detection misses some
//     layout-affecting mutations (text reflow, overflow from appended
//     children), so structural changes trigger a re-measurement as a
//     fallback.
//
// The merged stream is deduplicated: an event equal to the immediately
// preceding one is suppressed, so doubled firings for the same visual
// change collapse to a single emission.
//
// The returned release func closes the pipeline heads; closure cascades
// down through merge, dedup and every derived stream.
func Element(disp *bus.Dispatcher, el size.Element, logger *slog.Logger) (*stream.Relay[size.Event], func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := disp.ObserveElement(el); err != nil {
		return nil, nil, err
	}

	geo := stream.MapFilter(disp.Geometry(), func(rec size.Record) (size.Event, bool) {
		if rec.Target != el {
			return size.Event{}, false
		}
		return rec.Rect, true
	})

	mut := stream.MapFilter(disp.Mutations(), func(rec size.MutationRecord) (size.Event, bool) {
		if rec.Target != el || rec.Kind == size.KindAttributes {
			return size.Event{}, false
		}
		ev, err := el.OffsetSize()
		if err != nil {
			// Detached or unreachable element: skip, never error the stream.
			logger.Warn("provider: re-measure element failed", "error", err)
			return size.Event{}, false
		}
		return ev, true
	})

	base := stream.Distinct(stream.Merge(geo, mut))
	release := func() {
		geo.Close()
		mut.Close()
	}
	return base, release, nil
}

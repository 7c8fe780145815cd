// Package sizewatchtest provides synthetic implementations of the size
// detector contracts for tests: changes are injected by calling Emit
// methods instead of waiting on a real browser.
package sizewatchtest

import (
	"fmt"
	"sync"

	"github.com/hazyhaar/sizewatch/size"
)

// Element is a fake element with a settable current size. Pointer-shaped,
// so it is usable as an identity cache key.
type Element struct {
	Name string

	mu   sync.Mutex
	size size.Event
	err  error
}

// NewElement creates a fake element with the given current offset size.
func NewElement(name string, w, h float64) *Element {
	return &Element{Name: name, size: size.Event{Width: w, Height: h}}
}

// SetSize updates the size OffsetSize reports.
func (e *Element) SetSize(w, h float64) {
	e.mu.Lock()
	e.size = size.Event{Width: w, Height: h}
	e.mu.Unlock()
}

// Fail makes OffsetSize return err (nil restores normal behaviour).
func (e *Element) Fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *Element) OffsetSize() (size.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return size.Event{}, e.err
	}
	return e.size, nil
}

func (e *Element) String() string { return e.Name }

// Geometry is a fake box-geometry detector. Emit delivers a synthetic
// batch to the registered callback synchronously.
type Geometry struct {
	mu       sync.Mutex
	cb       func([]size.Record)
	observed map[size.Element]int
	released map[size.Element]int
}

func NewGeometry() *Geometry {
	return &Geometry{
		observed: make(map[size.Element]int),
		released: make(map[size.Element]int),
	}
}

func (g *Geometry) Observe(el size.Element) error {
	g.mu.Lock()
	g.observed[el]++
	g.mu.Unlock()
	return nil
}

func (g *Geometry) OnBatch(fn func([]size.Record)) {
	g.mu.Lock()
	g.cb = fn
	g.mu.Unlock()
}

func (g *Geometry) Unobserve(el size.Element) error {
	g.mu.Lock()
	g.released[el]++
	g.mu.Unlock()
	return nil
}

// Emit delivers one batch. Panics if no callback is registered yet.
func (g *Geometry) Emit(records ...size.Record) {
	g.mu.Lock()
	cb := g.cb
	g.mu.Unlock()
	if cb == nil {
		panic(fmt.Sprintf("sizewatchtest: Emit before OnBatch (%d records)", len(records)))
	}
	cb(records)
}

// ObserveCalls reports how many times el was registered.
func (g *Geometry) ObserveCalls(el size.Element) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.observed[el]
}

// ReleaseCalls reports how many times el was unregistered.
func (g *Geometry) ReleaseCalls(el size.Element) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released[el]
}

// Mutations is a fake structural mutation detector.
type Mutations struct {
	mu       sync.Mutex
	cb       func([]size.MutationRecord)
	observed map[size.Element]size.MutationOptions
	calls    map[size.Element]int
	released map[size.Element]int
}

func NewMutations() *Mutations {
	return &Mutations{
		observed: make(map[size.Element]size.MutationOptions),
		calls:    make(map[size.Element]int),
		released: make(map[size.Element]int),
	}
}

func (m *Mutations) Unobserve(el size.Element) error {
	m.mu.Lock()
	m.released[el]++
	m.mu.Unlock()
	return nil
}

// ReleaseCalls reports how many times el was unregistered.
func (m *Mutations) ReleaseCalls(el size.Element) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[el]
}

func (m *Mutations) Observe(el size.Element, opts size.MutationOptions) error {
	m.mu.Lock()
	m.observed[el] = opts
	m.calls[el]++
	m.mu.Unlock()
	return nil
}

func (m *Mutations) OnBatch(fn func([]size.MutationRecord)) {
	m.mu.Lock()
	m.cb = fn
	m.mu.Unlock()
}

// Emit delivers one batch. Panics if no callback is registered yet.
func (m *Mutations) Emit(records ...size.MutationRecord) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb == nil {
		panic(fmt.Sprintf("sizewatchtest: Emit before OnBatch (%d records)", len(records)))
	}
	cb(records)
}

// ObserveCalls reports how many times el was registered.
func (m *Mutations) ObserveCalls(el size.Element) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[el]
}

// Options returns the options el was registered with.
func (m *Mutations) Options(el size.Element) size.MutationOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed[el]
}

// Viewport is a fake top-level surface. Resize sets the inner size and
// fires the native resize signal.
type Viewport struct {
	mu   sync.Mutex
	size size.Event
	cb   func()
}

func NewViewport(w, h float64) *Viewport {
	return &Viewport{size: size.Event{Width: w, Height: h}}
}

func (v *Viewport) InnerSize() (size.Event, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size, nil
}

func (v *Viewport) OnResize(fn func()) {
	v.mu.Lock()
	v.cb = fn
	v.mu.Unlock()
}

// Resize updates the inner size and fires the resize signal, mirroring the
// native behaviour where the signal carries no geometry.
func (v *Viewport) Resize(w, h float64) {
	v.mu.Lock()
	v.size = size.Event{Width: w, Height: h}
	cb := v.cb
	v.mu.Unlock()
	if cb != nil {
		cb()
	}
}

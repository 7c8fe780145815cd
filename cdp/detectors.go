package cdp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/sizewatch/size"
)

//go:embed sizewatch.js
var sizewatchJS string

const bindingName = "__sizewatch_binding"

// Detectors hosts the injected JS runtime of one page and implements the
// size detector contracts over it. Create one per page, pass Geometry(),
// Mutations() and Viewport() to sizewatch.New.
type Detectors struct {
	page   *rod.Page
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	geoCB    func([]size.Record)
	mutCB    func([]size.MutationRecord)
	vpCB     func()
	byID     map[string]*Element
	released map[string]uint8
	nextID   int
}

const (
	releasedGeometry uint8 = 1 << iota
	releasedMutations
)

// NewDetectors injects the sizewatch runtime into page and starts the
// binding listener.
func NewDetectors(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Detectors, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Detectors{
		page:     page,
		logger:   logger,
		byID:     make(map[string]*Element),
		released: make(map[string]uint8),
	}
	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := (proto.RuntimeAddBinding{Name: bindingName}.Call(page)); err != nil {
		d.logger.Warn("cdp: addBinding failed (may already exist)", "error", err)
	}
	if _, err := page.Eval(sizewatchJS); err != nil {
		return nil, fmt.Errorf("cdp: inject sizewatch runtime: %w", err)
	}

	go d.listenBinding()
	return d, nil
}

// Close stops the binding listener. Native observers stay on the page until
// it is closed.
func (d *Detectors) Close() { d.cancel() }

// Geometry returns the box-geometry detector for this page.
func (d *Detectors) Geometry() size.GeometryObserver { return &geometryObserver{d} }

// Mutations returns the structural mutation detector for this page.
func (d *Detectors) Mutations() size.MutationObserver { return &mutationObserver{d} }

// Viewport returns the page's top-level surface.
func (d *Detectors) Viewport() size.Viewport { return &viewport{d} }

// ElementBySelector resolves a CSS selector to an element handle registered
// in the JS runtime. The handle is pointer-shaped and usable as an identity
// cache key; resolving the same selector twice yields the same handle.
func (d *Detectors) ElementBySelector(selector string) (*Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, el := range d.byID {
		if el.selector == selector {
			return el, nil
		}
	}

	d.nextID++
	id := fmt.Sprintf("e%d", d.nextID)
	if _, err := d.page.Context(d.ctx).Eval(
		`(id, sel) => window.__sizewatch.register(id, sel)`, id, selector); err != nil {
		return nil, fmt.Errorf("cdp: register %q: %w", selector, err)
	}

	el := &Element{d: d, id: id, selector: selector}
	d.byID[id] = el
	return el, nil
}

// listenBinding receives batches from the JS runtime via
// Runtime.bindingCalled and dispatches them to the registered callbacks.
func (d *Detectors) listenBinding() {
	d.page.Context(d.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var raws []struct {
			Src    string  `json:"src"`
			ID     string  `json:"id"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
			Kind   string  `json:"kind"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &raws); err != nil {
			d.logger.Warn("cdp: parse binding payload", "error", err)
			return
		}

		var geo []size.Record
		var mut []size.MutationRecord
		signals := 0

		d.mu.Lock()
		for _, r := range raws {
			switch r.Src {
			case "geometry":
				if el, ok := d.byID[r.ID]; ok {
					geo = append(geo, size.Record{
						Target: el,
						Rect:   size.Event{Width: r.Width, Height: r.Height},
					})
				}
			case "mutation":
				if el, ok := d.byID[r.ID]; ok {
					mut = append(mut, size.MutationRecord{
						Kind:   size.MutationKind(r.Kind),
						Target: el,
					})
				}
			case "viewport":
				signals++
			}
		}
		geoCB, mutCB, vpCB := d.geoCB, d.mutCB, d.vpCB
		d.mu.Unlock()

		if len(geo) > 0 && geoCB != nil {
			geoCB(geo)
		}
		if len(mut) > 0 && mutCB != nil {
			mutCB(mut)
		}
		if vpCB != nil {
			for i := 0; i < signals; i++ {
				vpCB()
			}
		}
	})()
}

// markObserved records a live registration for the handle.
func (d *Detectors) markObserved(ce *Element, which uint8) {
	d.mu.Lock()
	d.released[ce.id] &^= which
	if d.released[ce.id] == 0 {
		delete(d.released, ce.id)
	}
	d.mu.Unlock()
}

// ensureRegistered re-registers a handle whose JS-side entry was dropped
// after a full release. No-op for live handles.
func (d *Detectors) ensureRegistered(ce *Element) error {
	d.mu.Lock()
	_, live := d.byID[ce.id]
	d.mu.Unlock()
	if live {
		return nil
	}
	if _, err := d.page.Context(d.ctx).Eval(
		`(id, sel) => window.__sizewatch.register(id, sel)`, ce.id, ce.selector); err != nil {
		return fmt.Errorf("cdp: re-register %q: %w", ce.selector, err)
	}
	d.mu.Lock()
	d.byID[ce.id] = ce
	d.mu.Unlock()
	return nil
}

// dropHandle removes the JS-side element entry once both registrations are
// gone. The Go handle stays usable: re-observing re-registers it.
func (d *Detectors) dropHandle(ce *Element) {
	if _, err := d.page.Context(d.ctx).Eval(
		`(id) => window.__sizewatch.drop(id)`, ce.id); err != nil {
		d.logger.Warn("cdp: drop handle failed", "selector", ce.selector, "error", err)
	}
}

// markReleased records that one detector dropped its registration for the
// handle and reports whether both have. Once both are gone the handle is
// pruned from the dispatch map so a page churning selectors does not
// accumulate dead entries; the caller then drops the JS-side entry too.
func (d *Detectors) markReleased(ce *Element, which uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released[ce.id] |= which
	if d.released[ce.id] != releasedGeometry|releasedMutations {
		return false
	}
	delete(d.released, ce.id)
	delete(d.byID, ce.id)
	return true
}

// own checks that el belongs to this page's runtime. Foreign targets are a
// contract violation; fail fast instead of silently observing nothing.
func (d *Detectors) own(el size.Element) (*Element, error) {
	ce, ok := el.(*Element)
	if !ok || ce.d != d {
		return nil, fmt.Errorf("cdp: element does not belong to this page")
	}
	return ce, nil
}

type geometryObserver struct{ d *Detectors }

func (g *geometryObserver) Observe(el size.Element) error {
	ce, err := g.d.own(el)
	if err != nil {
		return err
	}
	if err := g.d.ensureRegistered(ce); err != nil {
		return err
	}
	// ResizeObserver.observe is idempotent per target.
	_, err = g.d.page.Context(g.d.ctx).Eval(
		`(id) => window.__sizewatch.observeGeometry(id)`, ce.id)
	if err != nil {
		return fmt.Errorf("cdp: observe geometry %s: %w", ce.selector, err)
	}
	g.d.markObserved(ce, releasedGeometry)
	return nil
}

func (g *geometryObserver) OnBatch(fn func([]size.Record)) {
	g.d.mu.Lock()
	g.d.geoCB = fn
	g.d.mu.Unlock()
}

func (g *geometryObserver) Unobserve(el size.Element) error {
	ce, err := g.d.own(el)
	if err != nil {
		return err
	}
	if _, err = g.d.page.Context(g.d.ctx).Eval(
		`(id) => window.__sizewatch.releaseGeometry(id)`, ce.id); err != nil {
		return err
	}
	if g.d.markReleased(ce, releasedGeometry) {
		g.d.dropHandle(ce)
	}
	return nil
}

type mutationObserver struct{ d *Detectors }

func (m *mutationObserver) Observe(el size.Element, opts size.MutationOptions) error {
	ce, err := m.d.own(el)
	if err != nil {
		return err
	}
	if err := m.d.ensureRegistered(ce); err != nil {
		return err
	}
	jsOpts := map[string]bool{
		"attributes":    opts.Attributes,
		"characterData": opts.CharacterData,
		"subtree":       opts.Subtree,
		"childList":     opts.ChildList,
	}
	_, err = m.d.page.Context(m.d.ctx).Eval(
		`(id, opts) => window.__sizewatch.watchMutations(id, opts)`, ce.id, jsOpts)
	if err != nil {
		return fmt.Errorf("cdp: watch mutations %s: %w", ce.selector, err)
	}
	m.d.markObserved(ce, releasedMutations)
	return nil
}

func (m *mutationObserver) OnBatch(fn func([]size.MutationRecord)) {
	m.d.mu.Lock()
	m.d.mutCB = fn
	m.d.mu.Unlock()
}

func (m *mutationObserver) Unobserve(el size.Element) error {
	ce, err := m.d.own(el)
	if err != nil {
		return err
	}
	if _, err = m.d.page.Context(m.d.ctx).Eval(
		`(id) => window.__sizewatch.releaseMutations(id)`, ce.id); err != nil {
		return err
	}
	if m.d.markReleased(ce, releasedMutations) {
		m.d.dropHandle(ce)
	}
	return nil
}

type viewport struct{ d *Detectors }

func (v *viewport) InnerSize() (size.Event, error) {
	res, err := v.d.page.Context(v.d.ctx).Eval(
		`() => ({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return size.Event{}, fmt.Errorf("cdp: read viewport size: %w", err)
	}
	return size.Event{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (v *viewport) OnResize(fn func()) {
	v.d.mu.Lock()
	v.d.vpCB = fn
	v.d.mu.Unlock()
}

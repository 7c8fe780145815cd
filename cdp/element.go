package cdp

import (
	"fmt"

	"github.com/hazyhaar/sizewatch/size"
)

// Element is a handle to one observed page element, addressed by the stable
// ID assigned when its selector was registered in the JS runtime.
type Element struct {
	d        *Detectors
	id       string
	selector string
}

// OffsetSize reads the element's current offset dimensions.
func (e *Element) OffsetSize() (size.Event, error) {
	res, err := e.d.page.Context(e.d.ctx).Eval(
		`(id) => window.__sizewatch.measure(id)`, e.id)
	if err != nil {
		return size.Event{}, fmt.Errorf("cdp: measure %s: %w", e.selector, err)
	}
	w := res.Value.Get("width").Num()
	h := res.Value.Get("height").Num()
	if w < 0 || h < 0 {
		return size.Event{}, fmt.Errorf("cdp: %s is gone from the runtime", e.selector)
	}
	return size.Event{Width: w, Height: h}, nil
}

// String returns the element's selector, used as its notification label.
func (e *Element) String() string { return e.selector }

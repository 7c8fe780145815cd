package cdp

import "testing"

func newBareDetectors() *Detectors {
	return &Detectors{
		byID:     make(map[string]*Element),
		released: make(map[string]uint8),
	}
}

func TestMarkReleased_PrunesHandleAfterBothDetectors(t *testing.T) {
	d := newBareDetectors()
	el := &Element{d: d, id: "e1", selector: "#panel"}
	d.byID[el.id] = el

	if d.markReleased(el, releasedGeometry) {
		t.Fatal("pruned after geometry release alone")
	}
	if _, ok := d.byID[el.id]; !ok {
		t.Fatal("handle dropped while the mutation registration is live")
	}

	if !d.markReleased(el, releasedMutations) {
		t.Fatal("not pruned after both releases")
	}
	if _, ok := d.byID[el.id]; ok {
		t.Error("handle still in the dispatch map after full release")
	}
	if len(d.released) != 0 {
		t.Error("release bookkeeping not cleared with the handle")
	}
}

func TestMarkObserved_ClearsReleaseBit(t *testing.T) {
	d := newBareDetectors()
	el := &Element{d: d, id: "e1", selector: "#panel"}
	d.byID[el.id] = el

	d.markReleased(el, releasedGeometry)
	d.markObserved(el, releasedGeometry)

	// With geometry re-registered, a mutation release alone must not prune.
	if d.markReleased(el, releasedMutations) {
		t.Fatal("pruned while the geometry registration is live")
	}
	if _, ok := d.byID[el.id]; !ok {
		t.Error("handle dropped while a registration is live")
	}
}

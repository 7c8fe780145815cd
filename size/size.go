// Package size defines the contract types of sizewatch. Consumers import
// this package to receive size events; backends (cdp, test fakes) import it
// to implement the native detector interfaces.
package size

// Event is a (width, height) pair in pixels, measured in the target's own
// coordinate space: inner dimensions for the viewport, content-box or offset
// dimensions for an element. Events are immutable values; equality of two
// events means the size did not change.
type Event struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Record is a single box-geometry change reported by the geometry detector.
// Records are ephemeral: produced per detection cycle, consumed once.
type Record struct {
	Target Element
	Rect   Event // content-box dimensions at detection time
}

// MutationKind tags the type of structural change in a MutationRecord.
type MutationKind string

const (
	KindAttributes    MutationKind = "attributes"
	KindCharacterData MutationKind = "characterData"
	KindChildList     MutationKind = "childList"
)

// MutationRecord is a single structural/content change reported by the
// mutation detector. Only the kind and the target matter to sizewatch:
// non-attribute kinds trigger a re-measurement of the target.
type MutationRecord struct {
	Kind   MutationKind
	Target Element
}

// MutationOptions selects which change kinds the mutation detector reports.
type MutationOptions struct {
	Attributes    bool
	CharacterData bool
	Subtree       bool
	ChildList     bool
}

// Element is an observable visual element. Implementations must be
// comparable (pointer-shaped): element identity is reference equality and
// is used as the observer cache key.
type Element interface {
	// OffsetSize reads the element's current offset dimensions. Used for
	// mutation-triggered re-measurement.
	OffsetSize() (Event, error)
}

// Viewport is the top-level visual surface.
type Viewport interface {
	// InnerSize reads the viewport's current inner dimensions.
	InnerSize() (Event, error)

	// OnResize registers the single callback invoked on each native resize
	// signal. The signal carries no geometry; callers read InnerSize at
	// emission time.
	OnResize(fn func())
}

// GeometryObserver is the native box-geometry change detector. One callback
// receives all batches; Observe is idempotent per element.
type GeometryObserver interface {
	Observe(el Element) error
	OnBatch(fn func([]Record))
}

// MutationObserver is the native structural mutation detector.
type MutationObserver interface {
	Observe(el Element, opts MutationOptions) error
	OnBatch(fn func([]MutationRecord))
}

// Releaser is implemented by detectors that can drop a native registration.
// Watcher.Unobserve calls it when present so long-lived processes do not
// accumulate registrations for elements nobody watches anymore.
type Releaser interface {
	Unobserve(el Element) error
}

// Notification is the sink-facing envelope around an Event: which target it
// came from, a per-watcher monotonic sequence number (gap detection), and
// the emission time in epoch milliseconds.
type Notification struct {
	ID        string  `json:"id"`
	Target    string  `json:"target"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Seq       uint64  `json:"seq"`
	Timestamp int64   `json:"timestamp"`
}

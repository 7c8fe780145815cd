package sink

import (
	"context"

	"github.com/hazyhaar/sizewatch/size"
)

// NotifyFunc is called for each notification (in-process, zero serialisation).
type NotifyFunc func(ctx context.Context, n size.Notification) error

// Callback delivers notifications via a Go function call. This is the
// in-process path: when the consumer lives in the same binary there is no
// reason to serialise anything.
type Callback struct {
	onNotify NotifyFunc
}

// NewCallback creates a Callback sink. A nil handler discards notifications.
func NewCallback(onNotify NotifyFunc) *Callback {
	return &Callback{onNotify: onNotify}
}

func (c *Callback) Send(ctx context.Context, n size.Notification) error {
	if c.onNotify != nil {
		return c.onNotify(ctx, n)
	}
	return nil
}

func (c *Callback) Close() error { return nil }

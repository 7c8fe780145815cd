// Package sink defines output backends for size notifications. The watcher
// taps every observed target's base stream and forwards notifications to
// the configured sinks (stdout, SQLite, in-process callback).
package sink

import (
	"context"

	"github.com/hazyhaar/sizewatch/size"
)

// Sink is the output interface.
type Sink interface {
	Send(ctx context.Context, n size.Notification) error
	Close() error
}

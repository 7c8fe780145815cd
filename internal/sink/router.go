package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/sizewatch/size"
)

// Router fans notifications out to all configured sinks. One sink error
// does not block the others — errors are logged and the first encountered
// is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Empty reports whether the router has no sinks attached.
func (r *Router) Empty() bool { return len(r.sinks) == 0 }

func (r *Router) Send(ctx context.Context, n size.Notification) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, n); err != nil {
			r.logger.Warn("sink: send notification failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

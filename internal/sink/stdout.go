package sink

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/hazyhaar/sizewatch/size"
)

// Stdout writes notifications as JSON lines to a writer.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a JSON-lines sink on w.
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, n size.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(n)
}

func (s *Stdout) Close() error { return nil }

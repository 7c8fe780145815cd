package sizewatch

import (
	"io"

	"github.com/hazyhaar/sizewatch/internal/sink"
)

// NewStdoutSink creates a JSON-lines sink on w.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NotifyFunc is called for each notification.
type NotifyFunc = sink.NotifyFunc

// NewCallbackSink creates an in-process callback sink — zero serialisation.
func NewCallbackSink(onNotify NotifyFunc) Sink {
	return sink.NewCallback(onNotify)
}

// NewSQLiteSink creates a local-database recorder sink. Callers register a
// database/sql driver (import _ "modernc.org/sqlite") and pass its name.
func NewSQLiteSink(driver, path string) (Sink, error) {
	return sink.NewSQLite(driver, path)
}

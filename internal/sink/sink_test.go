package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/hazyhaar/sizewatch/idgen"
	"github.com/hazyhaar/sizewatch/size"
)

func note(target string, w, h float64, seq uint64) size.Notification {
	return size.Notification{
		ID: idgen.Default(), Target: target,
		Width: w, Height: h, Seq: seq, Timestamp: 1700000000000,
	}
}

func TestStdout_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	ctx := context.Background()
	if err := s.Send(ctx, note("#a", 100, 50, 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(ctx, note("viewport", 800, 600, 2)); err != nil {
		t.Fatal(err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var n size.Notification
	if err := json.Unmarshal(lines[1], &n); err != nil {
		t.Fatal(err)
	}
	if n.Target != "viewport" || n.Width != 800 || n.Seq != 2 {
		t.Errorf("decoded: got %+v", n)
	}
}

type failing struct{ err error }

func (f *failing) Send(context.Context, size.Notification) error { return f.err }
func (f *failing) Close() error                                  { return nil }

func TestRouter_DeliversToAllDespiteErrors(t *testing.T) {
	var delivered []size.Notification
	ok := NewCallback(func(_ context.Context, n size.Notification) error {
		delivered = append(delivered, n)
		return nil
	})
	bad := &failing{err: errors.New("boom")}

	r := NewRouter(nil, bad, ok)
	err := r.Send(context.Background(), note("#a", 1, 2, 1))
	if err == nil {
		t.Error("expected the first sink error to be returned")
	}
	if len(delivered) != 1 {
		t.Errorf("healthy sink got %d notifications, want 1", len(delivered))
	}
}

func TestRouter_Empty(t *testing.T) {
	if !NewRouter(nil).Empty() {
		t.Error("router with no sinks must report Empty")
	}
	if NewRouter(nil, NewCallback(nil)).Empty() {
		t.Error("router with a sink must not report Empty")
	}
}

func TestSQLite_RecordsNotifications(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := NewSQLite("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := s.Send(ctx, note("#a", float64(100+i), 50, uint64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Send(ctx, note("viewport", 800, 600, 4)); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx, "#a")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count(#a): got %d, want 3", n)
	}

	total, err := s.Count(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("count(all): got %d, want 4", total)
	}
}

package stream

import (
	"testing"
	"time"
)

func drain[T any](sub *Subscription[T], window time.Duration) []T {
	var got []T
	deadline := time.After(window)
	for {
		select {
		case v, ok := <-sub.C:
			if !ok {
				return got
			}
			got = append(got, v)
		case <-deadline:
			return got
		}
	}
}

func TestRelay_Multicast(t *testing.T) {
	r := New[int]()
	defer r.Close()

	a := r.Subscribe()
	b := r.Subscribe()

	r.Publish(1)
	r.Publish(2)

	for name, sub := range map[string]*Subscription[int]{"a": a, "b": b} {
		got := drain(sub, 50*time.Millisecond)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("subscriber %s: got %v, want [1 2]", name, got)
		}
	}
}

func TestRelay_CancelDetachesOneSubscriber(t *testing.T) {
	r := New[int]()
	defer r.Close()

	a := r.Subscribe()
	b := r.Subscribe()
	a.Cancel()
	a.Cancel() // idempotent

	if n := r.Subscribers(); n != 1 {
		t.Fatalf("subscribers: got %d, want 1", n)
	}

	r.Publish(7)

	if _, ok := <-a.C; ok {
		t.Error("cancelled subscription still receives")
	}
	got := drain(b, 50*time.Millisecond)
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("remaining subscriber: got %v, want [7]", got)
	}
}

func TestRelay_CloseClosesSubscribers(t *testing.T) {
	r := New[int]()
	sub := r.Subscribe()

	r.Close()
	r.Close() // idempotent

	if _, ok := <-sub.C; ok {
		t.Error("subscriber channel open after relay close")
	}

	// Publishing after close is a no-op, subscribing yields a closed channel.
	r.Publish(1)
	late := r.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("late subscription channel not closed")
	}
}

func TestRelay_OverflowDropsNewest(t *testing.T) {
	r := New[int](WithBuffer(2))
	defer r.Close()

	sub := r.Subscribe()
	for i := 0; i < 5; i++ {
		r.Publish(i)
	}

	if d := r.Drops(); d != 3 {
		t.Errorf("drops: got %d, want 3", d)
	}
	got := drain(sub, 50*time.Millisecond)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("buffered values: got %v, want [0 1]", got)
	}
}

func TestRelay_CloseHookRuns(t *testing.T) {
	r := New[int]()
	ran := false
	r.addCloseHook(func() { ran = true })
	r.Close()
	if !ran {
		t.Error("close hook did not run")
	}

	// On a closed relay the hook runs immediately.
	immediate := false
	r.addCloseHook(func() { immediate = true })
	if !immediate {
		t.Error("hook on closed relay did not run immediately")
	}
}

package stream

import (
	"testing"
	"time"
)

func TestFilter(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Filter(src, func(v int) bool { return v%2 == 0 })
	sub := out.Subscribe()

	for i := 0; i < 5; i++ {
		src.Publish(i)
	}

	got := drain(sub, 100*time.Millisecond)
	if len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 4 {
		t.Errorf("got %v, want [0 2 4]", got)
	}
}

func TestMap(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Map(src, func(v int) int { return v * 10 })
	sub := out.Subscribe()

	src.Publish(1)
	src.Publish(2)

	got := drain(sub, 100*time.Millisecond)
	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("got %v, want [10 20]", got)
	}
}

func TestMapFilter_SkipsRejected(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := MapFilter(src, func(v int) (int, bool) {
		if v < 0 {
			return 0, false
		}
		return v + 1, true
	})
	sub := out.Subscribe()

	src.Publish(1)
	src.Publish(-1)
	src.Publish(2)

	got := drain(sub, 100*time.Millisecond)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("got %v, want [2 3]", got)
	}
}

func TestMerge_ClosesAfterAllSources(t *testing.T) {
	a := New[int]()
	b := New[int]()

	out := Merge(a, b)
	sub := out.Subscribe()

	a.Publish(1)
	b.Publish(2)
	a.Close()

	// One source still open: output stays open and delivers.
	b.Publish(3)
	got := drain(sub, 100*time.Millisecond)
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 values", got)
	}

	b.Close()
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Error("unexpected value after both sources closed")
		}
	case <-time.After(time.Second):
		t.Error("merge output not closed after all sources closed")
	}
}

func TestDistinct_SuppressesConsecutiveDuplicates(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Distinct(src)
	sub := out.Subscribe()

	for _, v := range []int{5, 5, 7, 7, 7, 5} {
		src.Publish(v)
	}

	got := drain(sub, 100*time.Millisecond)
	if len(got) != 3 || got[0] != 5 || got[1] != 7 || got[2] != 5 {
		t.Errorf("got %v, want [5 7 5]", got)
	}
}

func TestThrottle_ZeroIsPassThrough(t *testing.T) {
	src := New[int]()
	defer src.Close()

	if out := Throttle(src, 0); out != src {
		t.Fatal("Throttle(0) must return the source itself")
	}

	sub := src.Subscribe()
	for i := 0; i < 5; i++ {
		src.Publish(i)
		time.Sleep(2 * time.Millisecond)
	}
	got := drain(sub, 100*time.Millisecond)
	if len(got) != 5 {
		t.Errorf("got %d values, want all 5 unfiltered", len(got))
	}
}

func TestThrottle_LeadingEdge(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Throttle(src, 90*time.Millisecond)
	sub := out.Subscribe()

	// 5 rapid values inside one 90ms window: only the first passes.
	for i := 0; i < 5; i++ {
		src.Publish(i)
		time.Sleep(2 * time.Millisecond)
	}
	got := drain(sub, 50*time.Millisecond)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("inside window: got %v, want [0]", got)
	}

	// After the window a new value passes immediately.
	time.Sleep(100 * time.Millisecond)
	src.Publish(9)
	got = drain(sub, 50*time.Millisecond)
	if len(got) != 1 || got[0] != 9 {
		t.Errorf("after window: got %v, want [9]", got)
	}
}

func TestDebounce_EmitsLastAfterQuiet(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Debounce(src, 80*time.Millisecond)
	sub := out.Subscribe()

	for i := 1; i <= 4; i++ {
		src.Publish(i)
		time.Sleep(10 * time.Millisecond)
	}

	// Quiet window still open: nothing yet.
	select {
	case v := <-sub.C:
		t.Fatalf("premature emission %v during quiet window", v)
	case <-time.After(30 * time.Millisecond):
	}

	got := drain(sub, 200*time.Millisecond)
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("got %v, want [4] (last value once)", got)
	}
}

func TestDebounce_FlushesPendingOnClose(t *testing.T) {
	src := New[int]()
	out := Debounce(src, time.Hour)
	sub := out.Subscribe()

	src.Publish(42)
	time.Sleep(20 * time.Millisecond)
	src.Close()

	got := drain(sub, 200*time.Millisecond)
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("got %v, want [42] flushed on close", got)
	}
}

func TestStageClose_CancelsUpstreamSubscription(t *testing.T) {
	src := New[int]()
	defer src.Close()

	out := Filter(src, func(int) bool { return true })
	time.Sleep(10 * time.Millisecond) // let the stage subscribe

	if n := src.Subscribers(); n != 1 {
		t.Fatalf("upstream subscribers: got %d, want 1", n)
	}

	out.Close()
	time.Sleep(10 * time.Millisecond)

	if n := src.Subscribers(); n != 0 {
		t.Errorf("upstream subscribers after stage close: got %d, want 0", n)
	}
}

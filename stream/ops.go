package stream

import (
	"sync"
	"time"
)

// Filter relays the values of src for which pred returns true.
func Filter[T any](src *Relay[T], pred func(T) bool) *Relay[T] {
	out := New[T]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()
		for v := range sub.C {
			if pred(v) {
				out.Publish(v)
			}
		}
	}()
	return out
}

// Map relays fn applied to each value of src.
func Map[T, U any](src *Relay[T], fn func(T) U) *Relay[U] {
	out := New[U]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()
		for v := range sub.C {
			out.Publish(fn(v))
		}
	}()
	return out
}

// MapFilter relays fn applied to each value of src, skipping values for
// which fn reports false. Used where the mapping can fail (re-measurement
// of a detached element).
func MapFilter[T, U any](src *Relay[T], fn func(T) (U, bool)) *Relay[U] {
	out := New[U]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()
		for v := range sub.C {
			if u, ok := fn(v); ok {
				out.Publish(u)
			}
		}
	}()
	return out
}

// Merge relays the values of all sources. The output closes once every
// source has closed. Relative order within one source is preserved.
func Merge[T any](srcs ...*Relay[T]) *Relay[T] {
	out := New[T]()
	var wg sync.WaitGroup
	for _, src := range srcs {
		sub := src.Subscribe()
		out.addCloseHook(sub.Cancel)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range sub.C {
				out.Publish(v)
			}
		}()
	}
	go func() {
		wg.Wait()
		out.Close()
	}()
	return out
}

// Distinct suppresses a value equal to the immediately preceding one.
// The first value always passes.
func Distinct[T comparable](src *Relay[T]) *Relay[T] {
	out := New[T]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()
		var prev T
		seen := false
		for v := range sub.C {
			if seen && v == prev {
				continue
			}
			prev, seen = v, true
			out.Publish(v)
		}
	}()
	return out
}

// Throttle rate-limits src to at most one value per interval, leading edge:
// a value arriving after a full interval of the previous emission passes
// immediately, values inside the window are dropped. interval <= 0 returns
// src itself — no stage, every value passes.
func Throttle[T any](src *Relay[T], interval time.Duration) *Relay[T] {
	if interval <= 0 {
		return src
	}
	out := New[T]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()
		var last time.Time
		for v := range sub.C {
			now := time.Now()
			if !last.IsZero() && now.Sub(last) < interval {
				continue
			}
			last = now
			out.Publish(v)
		}
	}()
	return out
}

// Debounce emits the most recent value of src once window has elapsed with
// no further input. A pending value is flushed when src closes. window <= 0
// returns src itself.
func Debounce[T any](src *Relay[T], window time.Duration) *Relay[T] {
	if window <= 0 {
		return src
	}
	out := New[T]()
	sub := src.Subscribe()
	out.addCloseHook(sub.Cancel)
	go func() {
		defer out.Close()

		var timer *time.Timer
		var timerC <-chan time.Time
		var last T
		pending := false

		for {
			select {
			case v, ok := <-sub.C:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					if pending {
						out.Publish(last)
					}
					return
				}
				last, pending = v, true
				// (Re)start the quiet window.
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(window)
				timerC = timer.C

			case <-timerC:
				timerC = nil
				if pending {
					out.Publish(last)
					pending = false
				}
			}
		}
	}()
	return out
}

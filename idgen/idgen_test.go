package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
	}
}

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	id := gen()
	if len(id) != 12 {
		t.Fatalf("NanoID(12): got length %d", len(id))
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
			t.Fatalf("NanoID: unexpected character %q in %q", c, id)
		}
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("evt_", NanoID(8))()
	if !strings.HasPrefix(id, "evt_") {
		t.Fatalf("Prefixed: expected prefix 'evt_', got %q", id)
	}
	if len(id) != 4+8 {
		t.Fatalf("Prefixed: expected length 12, got %d", len(id))
	}
}

func TestDefault(t *testing.T) {
	if id := Default(); len(id) != 36 {
		t.Fatalf("Default: expected UUIDv7 length 36, got %d for %q", len(id), id)
	}
}

package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for range 1000 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for range 100 {
		id := gen()
		if id < prev {
			// UUIDv7 is time-ordered; within the same millisecond ordering
			// depends on random bits, so only flag gross violations.
			if id[:8] < prev[:8] {
				t.Fatalf("ids not time-ordered: %s then %s", prev, id)
			}
		}
		prev = id
	}
}

func TestNanoID(t *testing.T) {
	gen := NanoID(8)
	id := gen()
	if len(id) != 8 {
		t.Fatalf("expected length 8, got %d (%q)", len(id), id)
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Fatalf("unexpected character %q in %q", r, id)
		}
	}
	if gen() == gen() && gen() == gen() {
		t.Fatal("NanoID produced repeated values")
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("task_", NanoID(6))
	id := gen()
	if !strings.HasPrefix(id, "task_") {
		t.Fatalf("expected task_ prefix, got %q", id)
	}
	if len(id) != len("task_")+6 {
		t.Fatalf("unexpected length: %q", id)
	}
}

func TestParse(t *testing.T) {
	id := New()
	got, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
	if got != id {
		t.Fatalf("Parse(%q) = %q", id, got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}

package debugid_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"closconv/internal/debugid"
	"closconv/internal/symbols"
)

func TestAllocatorSequential(t *testing.T) {
	a := debugid.New()
	if got := a.Method("C.M"); got.Ordinal != 0 {
		t.Fatalf("first method ordinal = %d, want 0", got.Ordinal)
	}
	if got := a.Method("C.N"); got.Ordinal != 1 {
		t.Fatalf("second method ordinal = %d, want 1", got.Ordinal)
	}
	if got := a.Method("C.M"); got.Ordinal != 0 {
		t.Fatalf("method ordinal changed on second lookup: %d", got.Ordinal)
	}
	first := a.Closure("C.M", 10)
	second := a.Closure("C.M", 20)
	if first.Ordinal != 0 || second.Ordinal != 1 {
		t.Fatalf("closure ordinals = %d, %d", first.Ordinal, second.Ordinal)
	}
	if again := a.Closure("C.M", 10); again != first {
		t.Fatalf("closure id not stable: %+v vs %+v", again, first)
	}
	if env := a.Environment("C.N", 5); env.Ordinal != 0 {
		t.Fatalf("env ordinal = %d, want 0", env.Ordinal)
	}
}

func TestAllocatorRoundTripBumpsGeneration(t *testing.T) {
	a := debugid.New()
	a.Method("C.M")
	lambda := a.Closure("C.M", 7)
	env := a.Environment("C.M", 3)

	var buf bytes.Buffer
	if err := a.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := debugid.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", b.Generation())
	}
	if b.Dirty() {
		t.Fatalf("freshly decoded allocator is dirty")
	}
	if got := b.Closure("C.M", 7); got != lambda {
		t.Fatalf("lambda id = %+v, want %+v", got, lambda)
	}
	if got := b.Environment("C.M", 3); got != env {
		t.Fatalf("env id = %+v, want %+v", got, env)
	}
	added := b.Closure("C.M", 8)
	want := symbols.DebugID{Ordinal: 1, Generation: 1}
	if added != want {
		t.Fatalf("new lambda id = %+v, want %+v", added, want)
	}
	if got := b.Method("C.Other"); got.Ordinal != 1 || got.Generation != 1 {
		t.Fatalf("new method id = %+v", got)
	}
}

func TestLoadMissingAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ids.msgpack")
	a, err := debugid.Load(path)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	a.Closure("C.M", 1)
	if err := a.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := debugid.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := b.Closure("C.M", 1); got.Ordinal != 0 || got.Generation != 0 {
		t.Fatalf("reloaded id = %+v", got)
	}
}

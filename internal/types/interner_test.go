package types

import (
	"sync"
	"testing"

	"closconv/internal/source"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Void == NoTypeID || b.Bool == NoTypeID || b.Object == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	void, _ := in.Lookup(b.Void)
	if void.Kind != KindVoid {
		t.Fatalf("expected void kind, got %v", void.Kind)
	}
	if !in.IsValueType(b.Int) || in.IsValueType(b.String) {
		t.Fatalf("value type classification is wrong")
	}
}

func TestDelegatesAreDeduplicated(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	d1 := in.Delegate([]TypeID{b.Int, b.String}, b.Bool)
	d2 := in.Delegate([]TypeID{b.Int, b.String}, b.Bool)
	if d1 != d2 {
		t.Fatalf("delegate types should be deduplicated")
	}
	d3 := in.Delegate([]TypeID{b.String, b.Int}, b.Bool)
	if d3 == d1 {
		t.Fatalf("parameter order must affect identity")
	}
	info, ok := in.DelegateInfo(d1)
	if !ok || len(info.Params) != 2 || info.Result != b.Bool {
		t.Fatalf("unexpected delegate info %+v", info)
	}
}

func TestExprTreeReportsQuotedSignature(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	d := in.Delegate([]TypeID{b.Int}, b.Int)
	tree := in.ExprTree(d)
	if !in.IsExprTree(tree) || in.IsExprTree(d) {
		t.Fatalf("expression tree classification is wrong")
	}
	info, ok := in.DelegateInfo(tree)
	if !ok || info.Result != b.Int {
		t.Fatalf("expected quoted delegate signature, got %+v ok=%v", info, ok)
	}
	if got := in.Name(tree); got != "Expression<delegate(int) int>" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestNominalFields(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	c := in.RegisterClass("C", source.Span{})
	if _, err := in.AddField(c, Field{Name: "x", Type: b.Int}); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if _, err := in.AddField(c, Field{Name: "x", Type: b.Int}); err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if _, err := in.AddField(b.Int, Field{Name: "y"}); err == nil {
		t.Fatalf("expected error for non-nominal type")
	}
	f, ok := in.FieldByName(c, "x")
	if !ok || f.Type != b.Int {
		t.Fatalf("field lookup failed: %+v", f)
	}
	ref := in.RegisterByRefLike("Span", source.Span{})
	if !in.IsByRefLike(ref) || !in.IsValueType(ref) {
		t.Fatalf("ref struct classification is wrong")
	}
}

func TestConcurrentSynthesis(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	ids := make([]TypeID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = in.RegisterSynthesized(KindClass, "<>c__DisplayClass", false)
			if _, err := in.AddField(ids[i], Field{Name: "x", Type: in.Builtins().Int}); err != nil {
				t.Errorf("AddField: %v", err)
			}
		}(i)
	}
	wg.Wait()
	seen := make(map[TypeID]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate synthesized id %d", id)
		}
		seen[id] = true
	}
}

func TestSnapshotRoundTripPreservesIDs(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	c := in.RegisterClass("C", source.Span{})
	d := in.Delegate([]TypeID{b.Int}, b.Void)
	in.SetWellKnown(WellKnownExpression, c)
	snap := in.Snapshot()
	out := FromSnapshot(&snap)
	if out.Name(c) != "C" {
		t.Fatalf("class name lost: %q", out.Name(c))
	}
	if got := out.Delegate([]TypeID{b.Int}, b.Void); got != d {
		t.Fatalf("delegate identity lost: %d vs %d", got, d)
	}
	if id, ok := out.WellKnownType(WellKnownExpression); !ok || id != c {
		t.Fatalf("well-known type lost")
	}
	if out.Builtins().Int != b.Int {
		t.Fatalf("builtins not restored")
	}
}

package closure

import (
	"errors"
	"testing"

	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/testkit"
)

// brokenMethod declares a local in a block that has no node id, which the
// scope builder treats as a broken invariant.
func brokenMethod(b *testkit.Builder) *hir.Func {
	x := b.Local("x", b.Int())
	inner := b.Block(b.Let(x, b.Lit(1)))
	inner.ID = hir.NoNodeID
	return b.Method("M", 0).Body(
		b.Nested(inner),
		b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Lit(2))))),
	)
}

func TestGuardedReleasesPooledSets(t *testing.T) {
	tests := []struct {
		name string
		step func(an *Analysis)
	}{
		{name: "scope tree", step: buildScopeTree},
		{name: "analysis", step: func(an *Analysis) {
			an.Func.Body.Stmts = an.Func.Body.Stmts[1:]
			buildScopeTree(an)
			an.ComputeLambdaScopesAndFrameCaptures()
			internalf(an.methodKey, "synthesis failed")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testkit.New()
			fn := brokenMethod(b)
			sess := NewSession(b.Types, b.Symbols, nil, DefaultOptions())
			an := newAnalysis(fn, sess, diag.BagReporter{Bag: diag.NewBag(0)})

			var payload any
			func() {
				defer func() { payload = recover() }()
				_ = guarded(an, func() { tt.step(an) })
			}()
			if _, ok := payload.(*InternalError); !ok {
				t.Fatalf("want an *InternalError panic, got %v", payload)
			}
			if !an.freed || an.NeedsParentFrame != nil || an.StructIncompatible != nil {
				t.Fatalf("pooled sets were not released")
			}
		})
	}
}

func TestGuardedTurnsDepthIntoError(t *testing.T) {
	b := testkit.New()
	sess := NewSession(b.Types, b.Symbols, nil, DefaultOptions())
	an := newAnalysis(b.Method("M", 0).Body(), sess, diag.BagReporter{Bag: diag.NewBag(0)})

	err := guarded(an, func() { panic(stackGuard{depth: 3}) })
	var guard *StackGuardError
	if !errors.As(err, &guard) || guard.Depth != 3 || !errors.Is(err, ErrStackGuard) {
		t.Fatalf("want a stack guard error at depth 3, got %v", err)
	}
	if !an.freed {
		t.Fatalf("pooled sets were not released")
	}
}

//nolint:errcheck // Kind implies the Data payload type.
package closure_test

import (
	"context"
	"testing"

	"closconv/internal/closure"
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/testkit"
)

func newSession(b *testkit.Builder) *closure.Session {
	return closure.NewSession(b.Types, b.Symbols, nil, closure.DefaultOptions())
}

func rewrite(t *testing.T, b *testkit.Builder, fn *hir.Func) (*closure.Result, *diag.Bag) {
	t.Helper()
	return rewriteWith(t, b, newSession(b), fn)
}

func rewriteWith(t *testing.T, b *testkit.Builder, sess *closure.Session, fn *hir.Func) (*closure.Result, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	sess.ReserveNodeIDs(b.LastNodeID())
	res, err := closure.Rewrite(context.Background(), sess, fn, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("rewrite %s: %v", fn.Name, err)
	}
	return res, bag
}

func analyze(t *testing.T, b *testkit.Builder, fn *hir.Func) *closure.Analysis {
	t.Helper()
	an, err := closure.Analyze(fn, newSession(b), diag.BagReporter{Bag: diag.NewBag(0)})
	if err != nil {
		t.Fatalf("analyze %s: %v", fn.Name, err)
	}
	t.Cleanup(an.Free)
	return an
}

func method(t *testing.T, b *testkit.Builder, res *closure.Result, name string) *hir.Func {
	t.Helper()
	for _, m := range res.Methods {
		if m.Func.Name == name {
			return m.Func
		}
	}
	names := make([]string, 0, len(res.Methods))
	for _, m := range res.Methods {
		names = append(names, m.Func.Name)
	}
	t.Fatalf("no synthesized method %q, have %v", name, names)
	return nil
}

func paramSyms(fn *hir.Func) []symbols.SymbolID {
	out := make([]symbols.SymbolID, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = p.SymbolID
	}
	return out
}

func checkBody(t *testing.T, fn *hir.Func, body *hir.Block) {
	t.Helper()
	if err := testkit.CheckBodyInvariants(body, paramSyms(fn)...); err != nil {
		t.Fatalf("%s: %v", fn.Name, err)
	}
}

func stmtExpr(t *testing.T, st hir.Stmt) *hir.Expr {
	t.Helper()
	switch data := st.Data.(type) {
	case hir.ExprStmtData:
		return data.Expr
	case hir.ReturnData:
		return data.Value
	default:
		t.Fatalf("statement %s carries no expression", st.Kind)
		return nil
	}
}

func fieldName(b *testkit.Builder, e *hir.Expr) string {
	if e == nil || e.Kind != hir.ExprFieldAccess {
		return ""
	}
	return b.Symbols.Name(e.Data.(hir.FieldAccessData).Field)
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func countKind(body *hir.Block, kind hir.ExprKind) int {
	n := 0
	hir.Inspect(body, func(node hir.Node) bool {
		if e, ok := node.(*hir.Expr); ok && e.Kind == kind {
			n++
		}
		return true
	})
	return n
}

package hir

import (
	"strings"
	"testing"

	"closconv/internal/symbols"
	"closconv/internal/types"
)

func intLit(v int64) *Expr {
	return &Expr{Kind: ExprLiteral, Data: LiteralData{Kind: LiteralInt, IntValue: v}}
}

func sampleBlock() *Block {
	lambda := &Expr{
		Kind: ExprLambda,
		Data: LambdaData{
			ID:   7,
			Body: &Block{ID: 8, Stmts: []Stmt{{Kind: StmtReturn, Data: ReturnData{Value: intLit(1)}}}},
		},
	}
	return &Block{
		ID: 1,
		Stmts: []Stmt{
			{Kind: StmtLet, Data: LetData{Name: "f", Value: lambda}},
			{Kind: StmtTry, Data: TryData{
				Body:    &Block{ID: 2},
				Catches: []CatchClause{{ID: 3, Body: &Block{ID: 4}}},
			}},
		},
	}
}

func TestInspectVisitsNestedBodies(t *testing.T) {
	var blocks []NodeID
	Inspect(sampleBlock(), func(n Node) bool {
		if b, ok := n.(*Block); ok {
			blocks = append(blocks, b.ID)
		}
		return true
	})
	want := []NodeID{1, 8, 2, 4}
	if len(blocks) != len(want) {
		t.Fatalf("visited blocks %v, want %v", blocks, want)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("visited blocks %v, want %v", blocks, want)
		}
	}
}

func TestInspectSkipsChildren(t *testing.T) {
	count := 0
	Inspect(sampleBlock(), func(n Node) bool {
		count++
		if e, ok := n.(*Expr); ok && e.Kind == ExprLambda {
			return false
		}
		return true
	})
	// block, let, lambda, try, block, catch, block
	if count != 7 {
		t.Fatalf("expected 7 visited nodes, got %d", count)
	}
}

func TestMaxNodeID(t *testing.T) {
	if got := MaxNodeID(sampleBlock()); got != 8 {
		t.Fatalf("MaxNodeID = %d, want 8", got)
	}
}

func TestPrinterRendersStatements(t *testing.T) {
	in := types.NewInterner()
	syms := symbols.NewTable(symbols.Hints{})
	x := syms.New(&symbols.Symbol{Name: "x", Kind: symbols.SymbolLocal, Type: in.Builtins().Int})
	b := &Block{
		ID:     1,
		Locals: []symbols.SymbolID{x},
		Stmts: []Stmt{
			{Kind: StmtLet, Data: LetData{Name: "x", SymbolID: x, Type: in.Builtins().Int, Value: intLit(1)}},
			{Kind: StmtReturn, Data: ReturnData{Value: &Expr{Kind: ExprVarRef, Data: VarRefData{Name: "x", SymbolID: x}}}},
		},
	}
	got := BlockString(b, in, syms)
	for _, want := range []string{"// locals: x", "let x: int = 1", "return x"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q does not contain %q", got, want)
		}
	}
}

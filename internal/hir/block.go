package hir

import (
	"closconv/internal/source"
	"closconv/internal/symbols"
)

// Block represents a sequence of statements in HIR.
type Block struct {
	ID     NodeID
	Locals []symbols.SymbolID // locals whose lifetime is this block
	Stmts  []Stmt
	Span   source.Span
}

// Clone returns a shallow copy with its own statement and local slices.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Locals = append([]symbols.SymbolID(nil), b.Locals...)
	out.Stmts = append([]Stmt(nil), b.Stmts...)
	return &out
}

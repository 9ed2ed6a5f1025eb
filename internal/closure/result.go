package closure

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// SynthesizedMethod is a method produced by closure conversion.
type SynthesizedMethod struct {
	Symbol symbols.SymbolID
	Func   *hir.Func
}

// EnvInfo describes one materialized environment for later passes.
type EnvInfo struct {
	Node     hir.NodeID
	Name     string
	TypeSym  symbols.SymbolID
	Type     types.TypeID
	IsStruct bool
	Fields   int
}

// Result is the outcome of rewriting one method.
type Result struct {
	Body         *hir.Block
	Methods      []SynthesizedMethod
	Types        []hir.TypeDecl
	Environments []EnvInfo

	stack map[hir.NodeID]bool
}

// IsStackAllocated reports whether the environment of the scope at node is a
// struct. Scopes without an environment report false.
func (r *Result) IsStackAllocated(node hir.NodeID) bool {
	if r == nil {
		return false
	}
	return r.stack[node]
}

// Changed reports whether the rewrite produced anything new.
func (r *Result) Changed(orig *hir.Func) bool {
	return r != nil && (r.Body != orig.Body || len(r.Methods) > 0 || len(r.Types) > 0)
}

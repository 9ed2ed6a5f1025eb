//nolint:errcheck // Kind implies the Data payload type.
package testkit

import (
	"errors"
	"fmt"

	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// CheckBodyInvariants checks a rewritten body:
// 1) no node id owns two scopes
// 2) no lambda or local function declaration is left
// 3) every local referenced is declared by an enclosing block, loop,
// switch, sequence or catch, or is one of the given parameters
func CheckBodyInvariants(body *hir.Block, params ...symbols.SymbolID) error {
	var errs []error
	seen := make(map[hir.NodeID]struct{})
	hir.Inspect(body, func(n hir.Node) bool {
		if id, ok := hir.ScopeNodeID(n); ok {
			if _, dup := seen[id]; dup {
				errs = append(errs, fmt.Errorf("node id %d owns more than one scope", id))
			}
			seen[id] = struct{}{}
		}
		switch n := n.(type) {
		case *hir.Expr:
			if n.Kind == hir.ExprLambda {
				errs = append(errs, fmt.Errorf("lambda at %s survived the rewrite", n.Span))
			}
		case *hir.Stmt:
			if n.Kind == hir.StmtLocalFunc {
				errs = append(errs, fmt.Errorf("local function at %s survived the rewrite", n.Span))
			}
		}
		return true
	})

	declared := make(map[symbols.SymbolID]struct{})
	for _, p := range params {
		declared[p] = struct{}{}
	}
	hir.Inspect(body, func(n hir.Node) bool {
		for _, l := range scopeLocals(n) {
			declared[l] = struct{}{}
		}
		return true
	})
	hir.Inspect(body, func(n hir.Node) bool {
		e, ok := n.(*hir.Expr)
		if !ok || e.Kind != hir.ExprVarRef {
			return true
		}
		sym := e.Data.(hir.VarRefData).SymbolID
		if _, ok := declared[sym]; !ok {
			errs = append(errs, fmt.Errorf("reference to undeclared %s (symbol %d)", e.Data.(hir.VarRefData).Name, sym))
		}
		return true
	})
	return errors.Join(errs...)
}

func scopeLocals(n hir.Node) []symbols.SymbolID {
	switch n := n.(type) {
	case *hir.Block:
		return n.Locals
	case *hir.CatchClause:
		if n.Local.IsValid() {
			return []symbols.SymbolID{n.Local}
		}
	case *hir.Stmt:
		switch data := n.Data.(type) {
		case hir.ForData:
			return data.Locals
		case hir.SwitchData:
			return data.Locals
		}
	case *hir.Expr:
		if data, ok := n.Data.(hir.SequenceData); ok {
			return data.Locals
		}
	}
	return nil
}

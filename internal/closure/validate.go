package closure

import (
	"errors"
	"fmt"
	"slices"

	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// Validate checks the scope tree: it is a tree rooted at Root, it mirrors
// lexical nesting, no node owns two scopes, and every capture of every
// closure resolves to a variable declared in an enclosing scope, to a local
// function or to this.
func (an *Analysis) Validate() error {
	var errs []error
	owners := make(map[hir.NodeID]ScopeID, len(an.scopes))
	for i := 1; i < len(an.scopes); i++ {
		s := ScopeID(i)
		sc := &an.scopes[i]
		switch {
		case !sc.Parent.IsValid():
			if s != an.Root {
				errs = append(errs, fmt.Errorf("scope %d has no parent but is not the root", s))
			}
		case int(sc.Parent) >= i:
			errs = append(errs, fmt.Errorf("scope %d has parent %d created after it", s, sc.Parent))
		default:
			parent := &an.scopes[sc.Parent]
			if !slices.Contains(parent.Children, s) {
				errs = append(errs, fmt.Errorf("scope %d is missing from the children of %d", s, sc.Parent))
			}
			if !parent.Span.Empty() && !sc.Span.Empty() && !parent.Span.Contains(sc.Span) {
				errs = append(errs, fmt.Errorf("scope %d at %s is not nested in parent %d at %s", s, sc.Span, sc.Parent, parent.Span))
			}
		}
		if sc.Node.IsValid() {
			if other, dup := owners[sc.Node]; dup {
				errs = append(errs, fmt.Errorf("node %d owns scopes %d and %d", sc.Node, other, s))
			}
			owners[sc.Node] = s
		}
	}
	for i := 1; i < len(an.closures); i++ {
		c := &an.closures[i]
		if !c.BodyScope.IsValid() || an.scopes[c.BodyScope].BodyOf != ClosureID(i) {
			errs = append(errs, fmt.Errorf("closure %d has no body scope", i))
		}
		for _, sym := range c.CapturedVariables.Items() {
			if an.isThis(sym) || an.findLocalFunc(c.DeclScope, sym).IsValid() || an.declaredAbove(c.DeclScope, sym) {
				continue
			}
			errs = append(errs, fmt.Errorf("closure %d captures %s, which no enclosing scope declares",
				i, an.sess.Symbols.Name(sym)))
		}
	}
	return errors.Join(errs...)
}

func (an *Analysis) declaredAbove(from ScopeID, sym symbols.SymbolID) bool {
	for s := from; s.IsValid(); s = an.scopes[s].Parent {
		if an.scopes[s].DeclaredVariables.Has(sym) {
			return true
		}
	}
	return false
}

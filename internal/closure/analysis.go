package closure

import (
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// ComputeLambdaScopesAndFrameCaptures places every closure and fills
// NeedsParentFrame and StructIncompatible.
//
// A closure is placed at the innermost scope, starting from where it is
// declared, that declares something it captures. Every scope between that
// one and the outermost such scope needs a link to its parent frame. Closures
// that cannot take environments by reference force the scopes on that chain
// to be classes.
func (an *Analysis) ComputeLambdaScopesAndFrameCaptures() {
	for id := 1; id < len(an.closures); id++ {
		an.placeClosure(ClosureID(id))
	}
	if an.Func.Flags.HasFlag(hir.FuncAsync) || an.Func.Flags.HasFlag(hir.FuncIterator) {
		for s := 1; s < len(an.scopes); s++ {
			an.StructIncompatible.Add(ScopeID(s))
		}
	}
	an.computeEnvScopes()
	an.propagateStructIncompatibility()
}

// workingSet is the direct captures of a closure plus, to a fixpoint, the
// captures of every local function it captures. Each callee is looked up from
// the declaration scope of the closure that captured it, so shadowed names
// resolve the way they did in source.
func (an *Analysis) workingSet(id ClosureID) *symSet {
	type pending struct {
		sym  symbols.SymbolID
		from ScopeID
	}
	ws := newSymSet()
	c := &an.closures[id]
	queue := make([]pending, 0, c.CapturedVariables.Len())
	for _, sym := range c.CapturedVariables.Items() {
		if ws.Add(sym) {
			queue = append(queue, pending{sym: sym, from: c.DeclScope})
		}
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if an.isThis(it.sym) {
			continue
		}
		callee := an.findLocalFunc(it.from, it.sym)
		if !callee.IsValid() {
			continue
		}
		cc := &an.closures[callee]
		for _, sym := range cc.CapturedVariables.Items() {
			if ws.Add(sym) {
				queue = append(queue, pending{sym: sym, from: cc.DeclScope})
			}
		}
	}
	return ws
}

func (an *Analysis) placeClosure(id ClosureID) {
	ws := an.workingSet(id)
	defer freeSymSet(ws)

	c := &an.closures[id]
	c.CapturesThis = an.Func.This.IsValid() && ws.Has(an.Func.This)

	remaining := make(map[symbols.SymbolID]struct{}, ws.Len())
	for _, sym := range ws.Items() {
		remaining[sym] = struct{}{}
	}
	var innermost, outermost ScopeID
	for s := c.DeclScope; s.IsValid() && len(remaining) > 0; s = an.scopes[s].Parent {
		sc := &an.scopes[s]
		removed := false
		for _, v := range sc.DeclaredVariables.Items() {
			if _, ok := remaining[v]; ok {
				delete(remaining, v)
				removed = true
			}
		}
		// local functions are reached through their own captures, which are
		// already in the working set
		for _, other := range sc.Closures {
			delete(remaining, an.closures[other].Symbol)
		}
		if removed {
			if !innermost.IsValid() {
				innermost = s
			}
			outermost = s
		}
	}
	if len(remaining) > 0 {
		outermost = NoScopeID
	}
	if !innermost.IsValid() {
		return
	}
	c.Placement = innermost
	c.Outermost = outermost

	noStruct := !an.canTakeRefParams(c)
	s := innermost
	if noStruct {
		an.StructIncompatible.Add(s)
	}
	for s != outermost && s.IsValid() {
		an.NeedsParentFrame.Add(s)
		s = an.scopes[s].Parent
		if noStruct && s.IsValid() {
			an.StructIncompatible.Add(s)
		}
	}
}

// canTakeRefParams reports whether a closure can receive struct environments
// by reference: only directly called, synchronous local functions can.
func (an *Analysis) canTakeRefParams(c *Closure) bool {
	if !c.IsLocalFunc {
		return false
	}
	if _, ok := an.ConvertedToDelegate[c.Symbol]; ok {
		return false
	}
	info, ok := an.sess.Symbols.Get(c.Symbol)
	return !ok || !info.CannotTakeRefParams()
}

func (an *Analysis) computeEnvScopes() {
	if an.envScopes == nil {
		an.envScopes = newScopeSet()
	}
	for s := 1; s < len(an.scopes); s++ {
		if an.scopes[s].DeclaredVariables.Len() > 0 {
			an.envScopes.Add(ScopeID(s))
		}
	}
	for id := 1; id < len(an.closures); id++ {
		if p := an.closures[id].Placement; p.IsValid() {
			an.envScopes.Add(p)
		}
	}
}

// parentEnvScope returns the environment scope a frame of scope s links to.
// Leaving a closure body lands on the closure's own placement, since that is
// the frame its synthesized method runs on. reachesThis is set when the link
// goes to the top-level this instead.
func (an *Analysis) parentEnvScope(s ScopeID) (parent ScopeID, reachesThis bool) {
	for q := s; ; {
		sc := &an.scopes[q]
		if c := sc.BodyOf; c.IsValid() {
			cl := &an.closures[c]
			if cl.Placement.IsValid() {
				return cl.Placement, false
			}
			return NoScopeID, cl.CapturesThis
		}
		q = sc.Parent
		if !q.IsValid() {
			return NoScopeID, an.Func.This.IsValid()
		}
		if an.envScopes.Has(q) {
			return q, false
		}
	}
}

// propagateStructIncompatibility makes the parent of every class frame that
// needs a parent link a class too: a class cannot hold a struct frame by
// reference.
func (an *Analysis) propagateStructIncompatibility() {
	for changed := true; changed; {
		changed = false
		for s := range an.StructIncompatible {
			if !an.envScopes.Has(s) || !an.NeedsParentFrame.Has(s) {
				continue
			}
			if p, _ := an.parentEnvScope(s); p.IsValid() && an.StructIncompatible.Add(p) {
				changed = true
			}
		}
	}
}

// Analyze builds the scope tree of fn, analyzes it and synthesizes its
// environments without rewriting the body. Release the result with Free.
func Analyze(fn *hir.Func, sess *Session, rep diag.Reporter) (*Analysis, error) {
	an := newAnalysis(fn, sess, rep)
	err := guarded(an, func() {
		buildScopeTree(an)
		an.ComputeLambdaScopesAndFrameCaptures()
		SynthesizeEnvironments(an)
	})
	if err != nil {
		return nil, err
	}
	return an, nil
}

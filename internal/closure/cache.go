package closure

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// cached wraps a delegate creation in a lazily filled cache:
//
//	cache ?? (cache = create)
//
// Capture-free closures cache in a static field of the singleton, except in
// a static constructor, which runs once anyway. Closures created inside a
// loop or another lambda that their environment outlives cache in a field
// of that environment; this-only closures in a loop cache in a local.
func (rw *rewriter) cached(c *Closure, id ClosureID, create *hir.Expr) *hir.Expr {
	switch c.Kind {
	case ClosureSingleton:
		if rw.st.closure == NoClosureID && rw.fn.Flags.HasFlag(hir.FuncStaticCtor) {
			return create
		}
		name := symbols.StaticCacheFieldName(rw.an.methodID, c.DebugID)
		field := rw.sess.cacheField(rw.an.singleton, name, create.Type)
		return coalesce(
			fieldAccess(nil, field, name, create.Type, create.Span),
			assignExpr(fieldAccess(nil, field, name, create.Type, create.Span), create),
		)
	case ClosureGeneral:
		if !c.ContainerEnv.IsValid() {
			return create
		}
		env := &rw.an.envs[c.ContainerEnv]
		if !rw.repeatedWithin(env.Scope) {
			return create
		}
		field := rw.instanceCache(env, id, c, create)
		name := rw.sess.Symbols.Name(field)
		return coalesce(
			fieldAccess(rw.resolveFrame(env.Type), field, name, create.Type, create.Span),
			assignExpr(fieldAccess(rw.resolveFrame(env.Type), field, name, create.Type, create.Span), create),
		)
	case ClosureThisOnly:
		if !rw.inLoop() {
			return create
		}
		name := symbols.CacheLocalName(rw.cacheN)
		rw.cacheN++
		local := rw.sess.Synth.SynthesizeLocal(rw.st.method, name, create.Type)
		rw.st.locals = append(rw.st.locals, local)
		return coalesce(
			varRef(local, name, create.Type, create.Span),
			assignExpr(varRef(local, name, create.Type, create.Span), create),
		)
	default:
		return create
	}
}

func (rw *rewriter) instanceCache(env *Environment, id ClosureID, c *Closure, create *hir.Expr) symbols.SymbolID {
	if field, ok := env.caches[id]; ok {
		return field
	}
	if env.caches == nil {
		env.caches = make(map[ClosureID]symbols.SymbolID)
	}
	field, err := rw.sess.Synth.SynthesizeField(env.TypeSym, symbols.InstanceCacheFieldName(c.DebugID), create.Type, false)
	if err != nil {
		internalf(rw.st.name, "delegate cache on %s: %v", env.Name, err)
	}
	env.caches[id] = field
	return field
}

// repeatedWithin reports whether a loop or a lambda body sits between the
// current position and scope, so the creation would run more than once per
// environment instance.
func (rw *rewriter) repeatedWithin(scope ScopeID) bool {
	for i := len(rw.ancestors) - 1; i >= 0; i-- {
		a := rw.ancestors[i]
		switch a.kind {
		case ancestorLoop, ancestorLambda:
			return true
		case ancestorScope:
			if a.scope == scope {
				return false
			}
		}
	}
	return false
}

// inLoop reports whether the current position is inside a loop of the
// method being produced.
func (rw *rewriter) inLoop() bool {
	for i := len(rw.ancestors) - 1; i >= 0; i-- {
		switch rw.ancestors[i].kind {
		case ancestorLoop:
			return true
		case ancestorLambda:
			return false
		}
	}
	return false
}

func coalesce(left, right *hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprNullCoalesce, Type: left.Type, Span: left.Span, Data: hir.NullCoalesceData{Left: left, Right: right}}
}

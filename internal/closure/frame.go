package closure

import (
	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// resolveFrame builds an expression for the frame of type typ, the
// environment type or the containing type: a lineage entry directly or a
// chain of parent-link field loads from one.
func (rw *rewriter) resolveFrame(typ types.TypeID) *hir.Expr {
	st := rw.st
	for i := len(st.lineage) - 1; i >= 0; i-- {
		if st.lineage[i].typ == typ {
			return rw.frameRef(st.lineage[i])
		}
	}
	for i := len(st.lineage) - 1; i >= 0; i-- {
		f := st.lineage[i]
		id, ok := rw.envByType[f.typ]
		if !ok {
			continue
		}
		expr := rw.frameRef(f)
		for env := &rw.an.envs[id]; env.ParentField.IsValid(); env = &rw.an.envs[env.ParentEnv] {
			expr = fieldAccess(expr, env.ParentField, rw.sess.Symbols.Name(env.ParentField), env.ParentType, source.Span{})
			if env.ParentType == typ {
				return expr
			}
			if env.ParentIsThis {
				break
			}
		}
	}
	internalf(st.name, "no frame of type %s is reachable", rw.sess.Types.Name(typ))
	return nil
}

func (rw *rewriter) frameRef(f frame) *hir.Expr {
	if f.this {
		return &hir.Expr{Kind: hir.ExprThis, Type: f.typ, Data: hir.ThisData{}}
	}
	return varRef(f.sym, rw.sess.Symbols.Name(f.sym), f.typ, source.Span{})
}

// hoisted returns the environment and field a captured variable lives in.
func (rw *rewriter) hoisted(sym symbols.SymbolID) (*Environment, symbols.SymbolID, bool) {
	if !sym.IsValid() {
		return nil, symbols.NoSymbolID, false
	}
	scope, ok := rw.an.declScope[sym]
	if !ok {
		return nil, symbols.NoSymbolID, false
	}
	id, ok := rw.an.envByScope[scope]
	if !ok {
		return nil, symbols.NoSymbolID, false
	}
	env := &rw.an.envs[id]
	field, ok := env.Fields[sym]
	if !ok {
		return nil, symbols.NoSymbolID, false
	}
	return env, field, true
}

// enterScope allocates the environment of scope, if it has one, and pushes
// it onto the lineage. The returned statements must run before anything else
// in the scope; leave restores the lineage.
func (rw *rewriter) enterScope(scope ScopeID) (prologue []hir.Stmt, local symbols.SymbolID, leave func()) {
	rw.ancestors = append(rw.ancestors, ancestor{kind: ancestorScope, scope: scope})
	depth := len(rw.ancestors) - 1
	id, ok := rw.an.envByScope[scope]
	if !scope.IsValid() || !ok {
		return nil, symbols.NoSymbolID, func() { rw.ancestors = rw.ancestors[:depth] }
	}

	st := rw.st
	env := &rw.an.envs[id]
	localName := symbols.EnvLocalName(env.DebugID.Ordinal)
	local = rw.sess.Synth.SynthesizeLocal(st.method, localName, env.Type)
	ref := func() *hir.Expr { return varRef(local, localName, env.Type, source.Span{}) }

	init := &hir.Expr{Kind: hir.ExprNew, Type: env.Type, Data: hir.NewData{}}
	if env.IsStruct {
		init = &hir.Expr{Kind: hir.ExprDefault, Type: env.Type, Data: hir.DefaultData{}}
	}
	prologue = append(prologue, hir.Stmt{
		Kind: hir.StmtLet,
		Data: hir.LetData{Name: localName, SymbolID: local, Type: env.Type, Value: init},
	})

	if env.ParentField.IsValid() {
		link := assignStmt(
			fieldAccess(ref(), env.ParentField, rw.sess.Symbols.Name(env.ParentField), env.ParentType, source.Span{}),
			rw.resolveFrame(env.ParentType),
		)
		if st.ctor && !st.baseCalled && scope == rw.an.Root {
			if st.pending != nil {
				internalf(st.name, "second parent frame assignment deferred in one constructor")
			}
			st.pending = &link
		} else {
			prologue = append(prologue, link)
		}
	}

	for _, v := range env.CapturedVariables {
		info := rw.sess.Symbols.MustGet(v)
		if info.Kind != symbols.SymbolParam && !info.Flags.Has(symbols.FlagCatchVar) {
			continue
		}
		src := v
		if mapped, ok := st.params[v]; ok {
			src = mapped
		}
		prologue = append(prologue, assignStmt(
			fieldAccess(ref(), env.Fields[v], rw.sess.Symbols.Name(env.Fields[v]), info.Type, source.Span{}),
			varRef(src, info.Name, info.Type, source.Span{}),
		))
	}

	mark := len(st.lineage)
	st.lineage = append(st.lineage, frame{typ: env.Type, sym: local})
	rw.point("env", env.Name)
	return prologue, local, func() {
		st.lineage = st.lineage[:mark]
		rw.ancestors = rw.ancestors[:depth]
	}
}

// flushPending emits a deferred parent link once the constructor initializer ran.
func (rw *rewriter) flushPending(out *[]hir.Stmt) {
	st := rw.st
	if st.pending != nil && st.baseCalled {
		*out = append(*out, *st.pending)
		st.pending = nil
	}
}

// currentScope is the innermost scope being rewritten.
func (rw *rewriter) currentScope() ScopeID {
	for i := len(rw.ancestors) - 1; i >= 0; i-- {
		if a := rw.ancestors[i]; a.kind == ancestorScope && a.scope.IsValid() {
			return a.scope
		}
	}
	return rw.an.Root
}

// localFunc finds the closure of a local function symbol visible from the
// current scope.
func (rw *rewriter) localFunc(sym symbols.SymbolID) ClosureID {
	if !sym.IsValid() {
		return NoClosureID
	}
	info, ok := rw.sess.Symbols.Get(sym)
	if !ok || info.Kind != symbols.SymbolLocalFunc {
		return NoClosureID
	}
	id := rw.an.findLocalFunc(rw.currentScope(), sym)
	if !id.IsValid() {
		internalf(rw.st.name, "local function %s has no closure in scope", info.Name)
	}
	return id
}

// keepLocals drops locals that moved into an environment.
func (rw *rewriter) keepLocals(locals []symbols.SymbolID) []symbols.SymbolID {
	out := make([]symbols.SymbolID, 0, len(locals)+1)
	for _, l := range locals {
		if _, _, ok := rw.hoisted(l); !ok {
			out = append(out, l)
		}
	}
	return out
}

func varRef(sym symbols.SymbolID, name string, typ types.TypeID, sp source.Span) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprVarRef, Type: typ, Span: sp, Data: hir.VarRefData{Name: name, SymbolID: sym}}
}

func fieldAccess(recv *hir.Expr, field symbols.SymbolID, name string, typ types.TypeID, sp source.Span) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprFieldAccess, Type: typ, Span: sp, Data: hir.FieldAccessData{Receiver: recv, Field: field, Name: name}}
}

func assignStmt(target, value *hir.Expr) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtAssign, Span: target.Span, Data: hir.AssignData{Target: target, Value: value}}
}

func assignExpr(target, value *hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprAssign, Type: target.Type, Span: value.Span, Data: hir.AssignExprData{Target: target, Value: value}}
}

func badExpr(e *hir.Expr, children []*hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprBad, Type: e.Type, Span: e.Span, Data: hir.BadData{Children: children}}
}

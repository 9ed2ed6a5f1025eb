//nolint:errcheck // Kind implies the Data payload type.
package closure

import (
	"closconv/internal/hir"
	"closconv/internal/types"
)

func (rw *rewriter) exprs(list []*hir.Expr) []*hir.Expr {
	if list == nil {
		return nil
	}
	out := make([]*hir.Expr, len(list))
	for i, e := range list {
		out[i] = rw.expr(e)
	}
	return out
}

func (rw *rewriter) expr(e *hir.Expr) *hir.Expr {
	if e == nil {
		return nil
	}
	rw.guard.enter()
	defer rw.guard.leave()

	switch e.Kind {
	case hir.ExprLiteral, hir.ExprDefault:
		return e
	case hir.ExprVarRef:
		return rw.varRef(e)
	case hir.ExprThis, hir.ExprBase:
		if _, bad := rw.an.badRefs[e]; bad {
			return badExpr(e, nil)
		}
		if rw.st.topThis {
			return e
		}
		proxy := rw.resolveFrame(rw.fn.OwnerType)
		proxy.Span = e.Span
		return proxy
	case hir.ExprUnaryOp:
		data := e.Data.(hir.UnaryOpData)
		data.Operand = rw.expr(data.Operand)
		return rebuild(e, data)
	case hir.ExprBinaryOp:
		data := e.Data.(hir.BinaryOpData)
		data.Left = rw.expr(data.Left)
		data.Right = rw.expr(data.Right)
		return rebuild(e, data)
	case hir.ExprAssign:
		data := e.Data.(hir.AssignExprData)
		data.Target = rw.expr(data.Target)
		data.Value = rw.expr(data.Value)
		return rebuild(e, data)
	case hir.ExprCall:
		return rw.call(e)
	case hir.ExprFieldAccess:
		data := e.Data.(hir.FieldAccessData)
		data.Receiver = rw.expr(data.Receiver)
		return rebuild(e, data)
	case hir.ExprLambda:
		return rw.lambda(e)
	case hir.ExprDelegateCreate:
		data := e.Data.(hir.DelegateCreateData)
		if id := rw.localFunc(data.Method); id.IsValid() {
			return rw.delegateFor(id, e.Type, e)
		}
		data.Receiver = rw.expr(data.Receiver)
		return rebuild(e, data)
	case hir.ExprNew:
		data := e.Data.(hir.NewData)
		data.Args = rw.exprs(data.Args)
		return rebuild(e, data)
	case hir.ExprSequence:
		return rw.sequence(e)
	case hir.ExprNullCoalesce:
		data := e.Data.(hir.NullCoalesceData)
		data.Left = rw.expr(data.Left)
		data.Right = rw.expr(data.Right)
		return rebuild(e, data)
	case hir.ExprConditional:
		data := e.Data.(hir.ConditionalData)
		data.Cond = rw.expr(data.Cond)
		data.Then = rw.expr(data.Then)
		data.Else = rw.expr(data.Else)
		return rebuild(e, data)
	case hir.ExprRef:
		data := e.Data.(hir.RefData)
		data.Operand = rw.expr(data.Operand)
		return rebuild(e, data)
	case hir.ExprBad:
		data := e.Data.(hir.BadData)
		data.Children = rw.exprs(data.Children)
		return rebuild(e, data)
	default:
		internalf(rw.st.name, "unexpected expression kind %s", e.Kind)
		return nil
	}
}

func rebuild(e *hir.Expr, data hir.ExprData) *hir.Expr {
	return &hir.Expr{Kind: e.Kind, Type: e.Type, Span: e.Span, Data: data}
}

func (rw *rewriter) varRef(e *hir.Expr) *hir.Expr {
	if _, bad := rw.an.badRefs[e]; bad {
		return badExpr(e, nil)
	}
	data := e.Data.(hir.VarRefData)
	if env, field, ok := rw.hoisted(data.SymbolID); ok {
		return fieldAccess(rw.resolveFrame(env.Type), field, data.Name, e.Type, e.Span)
	}
	if mapped, ok := rw.st.params[data.SymbolID]; ok {
		data.SymbolID = mapped
		return rebuild(e, data)
	}
	return e
}

func (rw *rewriter) call(e *hir.Expr) *hir.Expr {
	data := e.Data.(hir.CallData)
	data.Receiver = rw.expr(data.Receiver)
	data.Args = rw.exprs(data.Args)
	if id := rw.localFunc(data.Method); id.IsValid() {
		c := &rw.an.closures[id]
		data.Method = c.Synthesized
		data.Receiver = rw.receiver(c)
		for _, env := range c.StructEnvironments {
			frame := rw.resolveFrame(rw.an.envs[env].Type)
			data.Args = append(data.Args, &hir.Expr{Kind: hir.ExprRef, Type: frame.Type, Span: e.Span, Data: hir.RefData{Operand: frame}})
		}
	}
	if data.CtorInit && !rw.st.closure.IsValid() {
		rw.st.baseCalled = true
	}
	return rebuild(e, data)
}

func (rw *rewriter) lambda(e *hir.Expr) *hir.Expr {
	data := e.Data.(hir.LambdaData)
	if _, bad := rw.an.badLambdas[data.ID]; bad {
		return badExpr(e, nil)
	}
	if scope, quoted := rw.an.quoted[data.ID]; quoted {
		// left for expression-tree lowering; only captured references change
		body := rw.rewriteScopeBlock(data.Body, scope)
		data.Body = body
		return rebuild(e, data)
	}
	id, ok := rw.an.closureByNode[data.ID]
	if !ok {
		internalf(rw.st.name, "lambda at %s was not analyzed", e.Span)
	}
	rw.extract(id)
	return rw.delegateFor(id, e.Type, e)
}

func (rw *rewriter) sequence(e *hir.Expr) *hir.Expr {
	data := e.Data.(hir.SequenceData)
	var scope ScopeID
	if data.ID.IsValid() {
		scope = rw.an.scopeByNode[data.ID]
	}
	prologue, local, leave := rw.enterScope(scope)
	defer leave()

	sides := make([]*hir.Expr, 0, len(prologue)+len(data.SideEffects))
	for i := range prologue {
		sides = append(sides, stmtAsExpr(&prologue[i]))
	}
	for _, se := range data.SideEffects {
		sides = append(sides, rw.expr(se))
	}
	locals := rw.keepLocals(data.Locals)
	if local.IsValid() {
		locals = append(locals, local)
	}
	return rebuild(e, hir.SequenceData{
		ID:          data.ID,
		Locals:      locals,
		SideEffects: sides,
		Value:       rw.expr(data.Value),
	})
}

// stmtAsExpr turns a prologue statement into a sequence side effect.
func stmtAsExpr(st *hir.Stmt) *hir.Expr {
	switch data := st.Data.(type) {
	case hir.LetData:
		return assignExpr(varRef(data.SymbolID, data.Name, data.Type, st.Span), data.Value)
	case hir.AssignData:
		return assignExpr(data.Target, data.Value)
	default:
		internalf("", "unexpected prologue statement %s", st.Kind)
		return nil
	}
}

// receiver is the instance a closure's synthesized method is invoked on.
func (rw *rewriter) receiver(c *Closure) *hir.Expr {
	switch c.Kind {
	case ClosureGeneral:
		if c.ContainerEnv.IsValid() {
			return rw.resolveFrame(rw.an.envs[c.ContainerEnv].Type)
		}
		if !c.IsStatic {
			return rw.resolveFrame(rw.fn.OwnerType)
		}
	case ClosureThisOnly:
		return rw.resolveFrame(rw.fn.OwnerType)
	case ClosureSingleton:
		single := rw.an.singleton
		return fieldAccess(nil, single.Instance, rw.sess.Symbols.Name(single.Instance), single.Type, c.Span)
	case ClosureStatic:
	}
	return nil
}

// delegateFor replaces a lambda or a local function conversion with a
// delegate over the synthesized method, cached where that pays off.
func (rw *rewriter) delegateFor(id ClosureID, typ types.TypeID, orig *hir.Expr) *hir.Expr {
	c := &rw.an.closures[id]
	create := &hir.Expr{
		Kind: hir.ExprDelegateCreate,
		Type: typ,
		Span: orig.Span,
		Data: hir.DelegateCreateData{Method: c.Synthesized, Receiver: rw.receiver(c)},
	}
	if !rw.sess.Options.CacheDelegates {
		return create
	}
	return rw.cached(c, id, create)
}

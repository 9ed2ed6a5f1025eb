//nolint:errcheck // Kind implies the Data payload type.
package closure

import (
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// BuildScopeTree walks fn once and records its scopes, closures and raw
// captures. Restricted captures are reported to rep. The returned analysis
// must be released with Free.
func BuildScopeTree(fn *hir.Func, sess *Session, rep diag.Reporter) (*Analysis, error) {
	an := newAnalysis(fn, sess, rep)
	if err := guarded(an, func() { buildScopeTree(an) }); err != nil {
		return nil, err
	}
	return an, nil
}

// guarded runs step and frees an if step panics. A tripped depth guard turns
// into a *StackGuardError; any other panic is re-raised after the release.
func guarded(an *Analysis, step func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			an.Free()
			g, ok := r.(stackGuard)
			if !ok {
				panic(r)
			}
			err = &StackGuardError{Method: an.methodKey, Depth: g.depth}
		}
	}()
	step()
	return nil
}

type builder struct {
	an    *Analysis
	guard depthGuard
	cur   ScopeID
}

func buildScopeTree(an *Analysis) {
	fn := an.Func
	b := &builder{an: an, guard: depthGuard{max: an.sess.Options.MaxDepth}}
	var node hir.NodeID
	if fn.Body != nil {
		node = fn.Body.ID
	}
	an.Root = an.newScope(NoScopeID, node, fn.Span)
	for _, p := range fn.Params {
		b.declare(p.SymbolID, an.Root)
	}
	b.cur = an.Root
	if fn.Body != nil {
		b.visitBlockIn(fn.Body, an.Root)
	}
}

func (b *builder) declare(sym symbols.SymbolID, scope ScopeID) {
	if sym.IsValid() {
		b.an.declScope[sym] = scope
	}
}

// withScope runs fn inside a new scope for node. Nodes without identity do
// not get a scope; they must not declare anything then.
func (b *builder) withScope(node hir.NodeID, sp source.Span, locals []symbols.SymbolID, fn func(ScopeID)) {
	if !node.IsValid() {
		if len(locals) > 0 {
			internalf(b.an.methodKey, "scope node without id declares %d locals", len(locals))
		}
		fn(b.cur)
		return
	}
	prev := b.cur
	s := b.an.newScope(prev, node, sp)
	for _, l := range locals {
		b.declare(l, s)
	}
	b.cur = s
	fn(s)
	b.cur = prev
}

func (b *builder) visitBlock(blk *hir.Block) {
	if blk == nil {
		return
	}
	if blk.ID.IsValid() && b.an.scopes[b.cur].Node == blk.ID {
		b.visitBlockIn(blk, b.cur)
		return
	}
	b.withScope(blk.ID, blk.Span, blk.Locals, func(s ScopeID) {
		b.visitBlockIn(blk, s)
	})
}

func (b *builder) visitBlockIn(blk *hir.Block, scope ScopeID) {
	for _, l := range blk.Locals {
		b.declare(l, scope)
	}
	b.visitStmts(blk.Stmts, scope)
}

func (b *builder) visitStmts(stmts []hir.Stmt, scope ScopeID) {
	// local functions are visible before their declaration
	for i := range stmts {
		if stmts[i].Kind == hir.StmtLocalFunc {
			b.declare(stmts[i].Data.(hir.LocalFuncData).Symbol, scope)
		}
	}
	for i := range stmts {
		b.visitStmt(&stmts[i])
	}
}

func (b *builder) visitStmt(st *hir.Stmt) {
	b.guard.enter()
	defer b.guard.leave()

	switch st.Kind {
	case hir.StmtLet:
		data := st.Data.(hir.LetData)
		if _, ok := b.an.declScope[data.SymbolID]; !ok {
			b.declare(data.SymbolID, b.cur)
		}
		b.visitExpr(data.Value)
	case hir.StmtExpr:
		b.visitExpr(st.Data.(hir.ExprStmtData).Expr)
	case hir.StmtAssign:
		data := st.Data.(hir.AssignData)
		b.visitExpr(data.Target)
		b.visitExpr(data.Value)
	case hir.StmtReturn:
		b.visitExpr(st.Data.(hir.ReturnData).Value)
	case hir.StmtBreak, hir.StmtContinue:
	case hir.StmtIf:
		data := st.Data.(hir.IfStmtData)
		b.visitExpr(data.Cond)
		b.visitBlock(data.Then)
		b.visitBlock(data.Else)
	case hir.StmtWhile:
		data := st.Data.(hir.WhileData)
		b.visitExpr(data.Cond)
		b.visitBlock(data.Body)
	case hir.StmtFor:
		data := st.Data.(hir.ForData)
		b.withScope(data.ID, st.Span, data.Locals, func(ScopeID) {
			if data.Init != nil {
				b.visitStmt(data.Init)
			}
			b.visitExpr(data.Cond)
			b.visitExpr(data.Post)
			b.visitBlock(data.Body)
		})
	case hir.StmtBlock:
		b.visitBlock(st.Data.(hir.BlockStmtData).Block)
	case hir.StmtTry:
		data := st.Data.(hir.TryData)
		b.visitBlock(data.Body)
		for i := range data.Catches {
			c := &data.Catches[i]
			var locals []symbols.SymbolID
			if c.Local.IsValid() {
				locals = []symbols.SymbolID{c.Local}
			}
			b.withScope(c.ID, c.Span, locals, func(ScopeID) {
				b.visitBlock(c.Body)
			})
		}
		b.visitBlock(data.Finally)
	case hir.StmtSwitch:
		data := st.Data.(hir.SwitchData)
		b.withScope(data.ID, st.Span, data.Locals, func(s ScopeID) {
			b.visitExpr(data.Value)
			for i := range data.Sections {
				for _, label := range data.Sections[i].Labels {
					b.visitExpr(label)
				}
				b.visitStmts(data.Sections[i].Body, s)
			}
		})
	case hir.StmtLocalFunc:
		b.visitLocalFunc(st)
	default:
		internalf(b.an.methodKey, "unexpected statement kind %s", st.Kind)
	}
}

func (b *builder) visitExpr(e *hir.Expr) {
	if e == nil {
		return
	}
	b.guard.enter()
	defer b.guard.leave()

	switch e.Kind {
	case hir.ExprLiteral, hir.ExprDefault:
	case hir.ExprVarRef:
		b.reference(e, e.Data.(hir.VarRefData).SymbolID)
	case hir.ExprThis, hir.ExprBase:
		if b.an.Func.This.IsValid() {
			b.reference(e, b.an.Func.This)
		}
	case hir.ExprUnaryOp:
		b.visitExpr(e.Data.(hir.UnaryOpData).Operand)
	case hir.ExprBinaryOp:
		data := e.Data.(hir.BinaryOpData)
		b.visitExpr(data.Left)
		b.visitExpr(data.Right)
	case hir.ExprAssign:
		data := e.Data.(hir.AssignExprData)
		b.visitExpr(data.Target)
		b.visitExpr(data.Value)
	case hir.ExprCall:
		data := e.Data.(hir.CallData)
		b.visitExpr(data.Receiver)
		if b.isLocalFunc(data.Method) {
			b.reference(e, data.Method)
		}
		for _, arg := range data.Args {
			b.visitExpr(arg)
		}
	case hir.ExprFieldAccess:
		b.visitExpr(e.Data.(hir.FieldAccessData).Receiver)
	case hir.ExprLambda:
		b.visitLambda(e)
	case hir.ExprDelegateCreate:
		data := e.Data.(hir.DelegateCreateData)
		b.visitExpr(data.Receiver)
		if b.isLocalFunc(data.Method) {
			b.an.ConvertedToDelegate[data.Method] = struct{}{}
			b.reference(e, data.Method)
		}
	case hir.ExprNew:
		for _, arg := range e.Data.(hir.NewData).Args {
			b.visitExpr(arg)
		}
	case hir.ExprSequence:
		data := e.Data.(hir.SequenceData)
		b.withScope(data.ID, e.Span, data.Locals, func(ScopeID) {
			for _, se := range data.SideEffects {
				b.visitExpr(se)
			}
			b.visitExpr(data.Value)
		})
	case hir.ExprNullCoalesce:
		data := e.Data.(hir.NullCoalesceData)
		b.visitExpr(data.Left)
		b.visitExpr(data.Right)
	case hir.ExprConditional:
		data := e.Data.(hir.ConditionalData)
		b.visitExpr(data.Cond)
		b.visitExpr(data.Then)
		b.visitExpr(data.Else)
	case hir.ExprRef:
		b.visitExpr(e.Data.(hir.RefData).Operand)
	case hir.ExprBad:
		for _, child := range e.Data.(hir.BadData).Children {
			b.visitExpr(child)
		}
	default:
		internalf(b.an.methodKey, "unexpected expression kind %s", e.Kind)
	}
}

func (b *builder) isLocalFunc(sym symbols.SymbolID) bool {
	if !sym.IsValid() {
		return false
	}
	info, ok := b.an.sess.Symbols.Get(sym)
	return ok && info.Kind == symbols.SymbolLocalFunc
}

func (b *builder) visitLambda(e *hir.Expr) {
	data := e.Data.(hir.LambdaData)
	if b.an.scopes[b.cur].Quoted || b.an.sess.Types.IsExprTree(e.Type) {
		b.visitQuoted(e, data)
		return
	}
	an := b.an
	id := an.newClosure(Closure{
		Symbol:    data.Symbol,
		Node:      data.ID,
		Params:    data.Params,
		Body:      data.Body,
		Type:      e.Type,
		Span:      e.Span,
		DeclScope: b.cur,
	})
	an.scopes[b.cur].Closures = append(an.scopes[b.cur].Closures, id)
	b.visitClosureBody(id, data.Params, data.Body)
}

func (b *builder) visitLocalFunc(st *hir.Stmt) {
	data := st.Data.(hir.LocalFuncData)
	an := b.an
	if an.scopes[b.cur].Quoted {
		diag.ReportError(an.rep, diag.LowerExpressionTreeLocalFn, st.Span,
			"an expression tree cannot contain a local function declaration").Emit()
		return
	}
	id := an.newClosure(Closure{
		Symbol:      data.Symbol,
		Node:        data.ID,
		IsLocalFunc: true,
		Params:      data.Params,
		Body:        data.Body,
		Span:        st.Span,
		DeclScope:   b.cur,
	})
	an.scopes[b.cur].Closures = append(an.scopes[b.cur].Closures, id)
	b.visitClosureBody(id, data.Params, data.Body)
}

func (b *builder) visitClosureBody(id ClosureID, params []hir.Param, body *hir.Block) {
	an := b.an
	if body == nil {
		internalf(an.methodKey, "closure %d has no body", id)
	}
	prev := b.cur
	s := an.newScope(prev, body.ID, body.Span)
	an.scopes[s].ContainingClosure = id
	an.scopes[s].BodyOf = id
	an.closures[id].BodyScope = s
	for _, p := range params {
		b.declare(p.SymbolID, s)
	}
	b.cur = s
	b.visitBlockIn(body, s)
	b.cur = prev
}

// visitQuoted handles a lambda converted to an expression tree. It does not
// become a closure; its body is walked only to find what it captures.
func (b *builder) visitQuoted(e *hir.Expr, data hir.LambdaData) {
	an := b.an
	if _, ok := an.sess.Types.WellKnownType(types.WellKnownExpression); !ok {
		diag.ReportError(an.rep, diag.LowerMissingWellKnownType, e.Span,
			"expression tree lambda requires the well-known type "+types.WellKnownExpression.String()).Emit()
		an.badLambdas[data.ID] = struct{}{}
		return
	}
	if data.Body == nil {
		return
	}
	prev := b.cur
	s := an.newScope(prev, data.Body.ID, data.Body.Span)
	an.scopes[s].Quoted = true
	an.scopes[s].quotedRoot = true
	an.quoted[data.ID] = s
	for _, p := range data.Params {
		b.declare(p.SymbolID, s)
	}
	b.cur = s
	b.visitBlockIn(data.Body, s)
	b.cur = prev
}

// reference records a use of sym at the current scope.
func (b *builder) reference(e *hir.Expr, sym symbols.SymbolID) {
	an := b.an
	isThis := an.isThis(sym)
	decl, known := an.declScope[sym]
	if !known && !isThis {
		return
	}
	info, _ := an.sess.Symbols.Get(sym)
	if info.Flags.Has(symbols.FlagConst) {
		return
	}

	crossesClosure, crossesQuoted := false, false
	for s := b.cur; s.IsValid() && s != decl; s = an.scopes[s].Parent {
		sc := &an.scopes[s]
		if sc.BodyOf.IsValid() && an.closures[sc.BodyOf].Symbol != sym {
			crossesClosure = true
		}
		if sc.quotedRoot {
			crossesQuoted = true
		}
	}
	if !crossesClosure && !crossesQuoted {
		return
	}
	if b.restricted(e, sym, info, isThis) {
		return
	}

	for s := b.cur; s.IsValid() && s != decl; s = an.scopes[s].Parent {
		c := an.scopes[s].BodyOf
		if !c.IsValid() || an.closures[c].Symbol == sym {
			continue
		}
		an.closures[c].CapturedVariables.Add(sym)
		if isThis {
			an.closures[c].CapturesThis = true
		}
	}
	if isThis || info.Kind == symbols.SymbolLocalFunc || !decl.IsValid() || an.scopes[decl].Quoted {
		return
	}
	an.scopes[decl].DeclaredVariables.Add(sym)
	if crossesQuoted {
		// an expression tree keeps the variable alive by reference
		an.StructIncompatible.Add(decl)
	}
}

// restricted reports captures that cannot be hoisted and marks the reference bad.
func (b *builder) restricted(e *hir.Expr, sym symbols.SymbolID, info symbols.Symbol, isThis bool) bool {
	an := b.an
	tin := an.sess.Types
	switch {
	case isThis && tin.IsValueType(an.Func.OwnerType):
		diag.ReportError(an.rep, diag.LowerCaptureRestricted, e.Span,
			"cannot capture 'this' of a value type inside a lambda or local function").Emit()
	case info.Kind.IsVariable() && tin.IsByRefLike(info.Type):
		diag.ReportError(an.rep, diag.LowerCaptureRestricted, e.Span,
			"cannot capture '"+info.Name+"' of byref-like type "+tin.Name(info.Type)+" inside a lambda or local function").
			WithNote(info.Span, "declared here").Emit()
	case info.Kind == symbols.SymbolParam && info.Flags.Has(symbols.FlagByRef):
		diag.ReportError(an.rep, diag.LowerCaptureRefParam, e.Span,
			"cannot capture ref parameter '"+info.Name+"' inside a lambda or local function").
			WithNote(info.Span, "declared here").Emit()
	default:
		return false
	}
	an.badRefs[e] = struct{}{}
	return true
}

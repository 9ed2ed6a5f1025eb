//nolint:errcheck // Kind implies the Data payload type.
package closure

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
)

func (rw *rewriter) rewriteBlock(blk *hir.Block) *hir.Block {
	if blk == nil {
		return nil
	}
	var scope ScopeID
	if blk.ID.IsValid() {
		scope = rw.an.scopeByNode[blk.ID]
	}
	return rw.rewriteScopeBlock(blk, scope)
}

func (rw *rewriter) rewriteScopeBlock(blk *hir.Block, scope ScopeID) *hir.Block {
	prologue, local, leave := rw.enterScope(scope)
	defer leave()

	out := &hir.Block{ID: blk.ID, Span: blk.Span}
	out.Locals = rw.keepLocals(blk.Locals)
	if local.IsValid() {
		out.Locals = append(out.Locals, local)
	}
	out.Stmts = make([]hir.Stmt, 0, len(prologue)+len(blk.Stmts))
	out.Stmts = append(out.Stmts, prologue...)
	rw.rewriteStmts(&out.Stmts, blk.Stmts)
	return out
}

func (rw *rewriter) rewriteStmts(out *[]hir.Stmt, stmts []hir.Stmt) {
	for i := range stmts {
		rw.rewriteStmt(out, &stmts[i])
		rw.flushPending(out)
	}
}

// rewriteStmt appends the rewritten form of st to out. Local function
// declarations produce nothing; their bodies move to synthesized methods.
func (rw *rewriter) rewriteStmt(out *[]hir.Stmt, st *hir.Stmt) {
	rw.guard.enter()
	defer rw.guard.leave()

	switch st.Kind {
	case hir.StmtLet:
		data := st.Data.(hir.LetData)
		value := rw.expr(data.Value)
		if env, field, ok := rw.hoisted(data.SymbolID); ok {
			if value != nil {
				target := fieldAccess(rw.resolveFrame(env.Type), field, data.Name, data.Type, st.Span)
				*out = append(*out, hir.Stmt{Kind: hir.StmtAssign, Span: st.Span, Data: hir.AssignData{Target: target, Value: value}})
			}
			return
		}
		data.Value = value
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: data})
	case hir.StmtExpr:
		data := st.Data.(hir.ExprStmtData)
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.ExprStmtData{Expr: rw.expr(data.Expr)}})
	case hir.StmtAssign:
		data := st.Data.(hir.AssignData)
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.AssignData{
			Target: rw.expr(data.Target),
			Value:  rw.expr(data.Value),
		}})
	case hir.StmtReturn:
		data := st.Data.(hir.ReturnData)
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.ReturnData{Value: rw.expr(data.Value)}})
	case hir.StmtBreak, hir.StmtContinue:
		*out = append(*out, *st)
	case hir.StmtIf:
		data := st.Data.(hir.IfStmtData)
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.IfStmtData{
			Cond: rw.expr(data.Cond),
			Then: rw.rewriteBlock(data.Then),
			Else: rw.rewriteBlock(data.Else),
		}})
	case hir.StmtWhile:
		data := st.Data.(hir.WhileData)
		rw.ancestors = append(rw.ancestors, ancestor{kind: ancestorLoop})
		cond := rw.expr(data.Cond)
		body := rw.rewriteBlock(data.Body)
		rw.ancestors = rw.ancestors[:len(rw.ancestors)-1]
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.WhileData{Cond: cond, Body: body}})
	case hir.StmtFor:
		rw.rewriteFor(out, st)
	case hir.StmtBlock:
		data := st.Data.(hir.BlockStmtData)
		*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.BlockStmtData{Block: rw.rewriteBlock(data.Block)}})
	case hir.StmtTry:
		rw.rewriteTry(out, st)
	case hir.StmtSwitch:
		rw.rewriteSwitch(out, st)
	case hir.StmtLocalFunc:
		data := st.Data.(hir.LocalFuncData)
		id, ok := rw.an.closureByNode[data.ID]
		if !ok {
			if rw.an.scopes[rw.currentScope()].Quoted {
				// already reported; nothing to extract
				return
			}
			internalf(rw.st.name, "local function %s was not analyzed", rw.sess.Symbols.Name(data.Symbol))
		}
		rw.extract(id)
	default:
		internalf(rw.st.name, "unexpected statement kind %s", st.Kind)
	}
}

// wrapScope puts the environment prologue of a loop or switch scope in front
// of the statement, inside a fresh block owning the environment local.
func (rw *rewriter) wrapScope(out *[]hir.Stmt, st hir.Stmt, prologue []hir.Stmt, local symbols.SymbolID) {
	if len(prologue) == 0 {
		*out = append(*out, st)
		return
	}
	stmts := make([]hir.Stmt, 0, len(prologue)+1)
	stmts = append(stmts, prologue...)
	stmts = append(stmts, st)
	*out = append(*out, hir.Stmt{Kind: hir.StmtBlock, Span: st.Span, Data: hir.BlockStmtData{Block: &hir.Block{
		ID:     rw.sess.nextNodeID(),
		Locals: []symbols.SymbolID{local},
		Stmts:  stmts,
		Span:   st.Span,
	}}})
}

func (rw *rewriter) rewriteFor(out *[]hir.Stmt, st *hir.Stmt) {
	data := st.Data.(hir.ForData)
	var scope ScopeID
	if data.ID.IsValid() {
		scope = rw.an.scopeByNode[data.ID]
	}
	prologue, local, leave := rw.enterScope(scope)

	var init *hir.Stmt
	if data.Init != nil {
		var tmp []hir.Stmt
		rw.rewriteStmt(&tmp, data.Init)
		switch len(tmp) {
		case 0:
		case 1:
			init = &tmp[0]
		default:
			internalf(rw.st.name, "for initializer expanded to %d statements", len(tmp))
		}
	}
	rw.ancestors = append(rw.ancestors, ancestor{kind: ancestorLoop})
	cond := rw.expr(data.Cond)
	post := rw.expr(data.Post)
	body := rw.rewriteBlock(data.Body)
	rw.ancestors = rw.ancestors[:len(rw.ancestors)-1]
	leave()

	loop := hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.ForData{
		ID:     data.ID,
		Locals: rw.keepLocals(data.Locals),
		Init:   init,
		Cond:   cond,
		Post:   post,
		Body:   body,
	}}
	rw.wrapScope(out, loop, prologue, local)
}

func (rw *rewriter) rewriteTry(out *[]hir.Stmt, st *hir.Stmt) {
	data := st.Data.(hir.TryData)
	body := rw.rewriteBlock(data.Body)
	catches := make([]hir.CatchClause, len(data.Catches))
	for i := range data.Catches {
		c := &data.Catches[i]
		var scope ScopeID
		if c.ID.IsValid() {
			scope = rw.an.scopeByNode[c.ID]
		}
		prologue, local, leave := rw.enterScope(scope)
		handler := rw.rewriteBlock(c.Body)
		leave()
		if handler == nil {
			handler = &hir.Block{Span: c.Span}
		}
		if len(prologue) > 0 {
			handler.Stmts = append(prologue, handler.Stmts...)
			handler.Locals = append(handler.Locals, local)
		}
		catches[i] = hir.CatchClause{ID: c.ID, Local: c.Local, Type: c.Type, Body: handler, Span: c.Span}
	}
	*out = append(*out, hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.TryData{
		Body:    body,
		Catches: catches,
		Finally: rw.rewriteBlock(data.Finally),
	}})
}

func (rw *rewriter) rewriteSwitch(out *[]hir.Stmt, st *hir.Stmt) {
	data := st.Data.(hir.SwitchData)
	var scope ScopeID
	if data.ID.IsValid() {
		scope = rw.an.scopeByNode[data.ID]
	}
	prologue, local, leave := rw.enterScope(scope)
	value := rw.expr(data.Value)
	sections := make([]hir.SwitchSection, len(data.Sections))
	for i := range data.Sections {
		sec := &data.Sections[i]
		sections[i].Labels = rw.exprs(sec.Labels)
		sections[i].Body = make([]hir.Stmt, 0, len(sec.Body))
		rw.rewriteStmts(&sections[i].Body, sec.Body)
	}
	leave()

	sw := hir.Stmt{Kind: st.Kind, Span: st.Span, Data: hir.SwitchData{
		ID:       data.ID,
		Locals:   rw.keepLocals(data.Locals),
		Value:    value,
		Sections: sections,
	}}
	rw.wrapScope(out, sw, prologue, local)
}

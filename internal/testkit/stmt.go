//nolint:errcheck // Kind implies the Data payload type.
package testkit

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// Block makes a block whose locals are the variables its own Let statements declare.
func (b *Builder) Block(stmts ...hir.Stmt) *hir.Block {
	blk := &hir.Block{ID: b.ids.Next(), Stmts: stmts}
	for i := range stmts {
		if stmts[i].Kind == hir.StmtLet {
			blk.Locals = append(blk.Locals, stmts[i].Data.(hir.LetData).SymbolID)
		}
	}
	return blk
}

// Let declares sym with an optional initializer.
func (b *Builder) Let(sym symbols.SymbolID, value *hir.Expr) hir.Stmt {
	info := b.Symbols.MustGet(sym)
	return hir.Stmt{Kind: hir.StmtLet, Data: hir.LetData{Name: info.Name, SymbolID: sym, Type: info.Type, Value: value}}
}

// Assign is target = value.
func (b *Builder) Assign(target, value *hir.Expr) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtAssign, Data: hir.AssignData{Target: target, Value: value}}
}

// Do is an expression statement.
func (b *Builder) Do(e *hir.Expr) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtExpr, Data: hir.ExprStmtData{Expr: e}}
}

// Return returns value, which may be nil.
func (b *Builder) Return(value *hir.Expr) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtReturn, Data: hir.ReturnData{Value: value}}
}

// If is if cond { then } else { els }; els may be nil.
func (b *Builder) If(cond *hir.Expr, then, els *hir.Block) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtIf, Data: hir.IfStmtData{Cond: cond, Then: then, Else: els}}
}

// While is while cond { body }.
func (b *Builder) While(cond *hir.Expr, body *hir.Block) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtWhile, Data: hir.WhileData{Cond: cond, Body: body}}
}

// For is for init; cond; post { body }. The loop variable comes from init.
func (b *Builder) For(init hir.Stmt, cond, post *hir.Expr, body *hir.Block) hir.Stmt {
	data := hir.ForData{ID: b.ids.Next(), Init: &init, Cond: cond, Post: post, Body: body}
	if init.Kind == hir.StmtLet {
		data.Locals = []symbols.SymbolID{init.Data.(hir.LetData).SymbolID}
	}
	return hir.Stmt{Kind: hir.StmtFor, Data: data}
}

// Nested wraps a block into a statement.
func (b *Builder) Nested(blk *hir.Block) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtBlock, Data: hir.BlockStmtData{Block: blk}}
}

// Catch is a catch clause binding local, which may be NoSymbolID.
func (b *Builder) Catch(local symbols.SymbolID, body *hir.Block) hir.CatchClause {
	c := hir.CatchClause{ID: b.ids.Next(), Local: local, Body: body}
	if local.IsValid() {
		c.Type = b.Symbols.MustGet(local).Type
	}
	return c
}

// Try is try { body } catch... finally { fin }; fin may be nil.
func (b *Builder) Try(body *hir.Block, fin *hir.Block, catches ...hir.CatchClause) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtTry, Data: hir.TryData{Body: body, Catches: catches, Finally: fin}}
}

// Case is one switch section; no labels means default.
func (b *Builder) Case(labels []*hir.Expr, body ...hir.Stmt) hir.SwitchSection {
	return hir.SwitchSection{Labels: labels, Body: body}
}

// Switch is a switch whose sections share one scope declaring locals.
func (b *Builder) Switch(value *hir.Expr, locals []symbols.SymbolID, sections ...hir.SwitchSection) hir.Stmt {
	return hir.Stmt{Kind: hir.StmtSwitch, Data: hir.SwitchData{ID: b.ids.Next(), Locals: locals, Value: value, Sections: sections}}
}

// Declare is a local function declaration statement. It also records the
// parameters on the local function symbol.
func (b *Builder) Declare(fn symbols.SymbolID, params []symbols.SymbolID, body *hir.Block) hir.Stmt {
	b.Symbols.Update(fn, func(s *symbols.Symbol) { s.Params = params })
	return hir.Stmt{Kind: hir.StmtLocalFunc, Data: hir.LocalFuncData{
		ID:     b.ids.Next(),
		Symbol: fn,
		Params: b.params(params),
		Body:   body,
	}}
}

// Break is a break statement.
func (b *Builder) Break() hir.Stmt {
	return hir.Stmt{Kind: hir.StmtBreak, Data: hir.BreakData{}}
}

//nolint:errcheck // Kind implies the Data payload type.
package hirpack

import (
	"fmt"

	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// wireExpr flattens every ExprData variant into one record. X is the single
// operand (receiver, operand, sequence value); Kids holds ordered children.
type wireExpr struct {
	Kind   hir.ExprKind       `msgpack:"k"`
	Type   types.TypeID       `msgpack:"t,omitempty"`
	Span   source.Span        `msgpack:"s"`
	Lit    *hir.LiteralData   `msgpack:"lit,omitempty"`
	Sym    symbols.SymbolID   `msgpack:"sym,omitempty"`
	Name   string             `msgpack:"name,omitempty"`
	Op     uint8              `msgpack:"op,omitempty"`
	Flag   bool               `msgpack:"flag,omitempty"`
	Node   hir.NodeID         `msgpack:"node,omitempty"`
	Locals []symbols.SymbolID `msgpack:"locals,omitempty"`
	Params []hir.Param        `msgpack:"params,omitempty"`
	Body   *wireBlock         `msgpack:"body,omitempty"`
	X      *wireExpr          `msgpack:"x,omitempty"`
	Kids   []*wireExpr        `msgpack:"kids,omitempty"`
}

type wireCatch struct {
	ID    hir.NodeID       `msgpack:"id"`
	Local symbols.SymbolID `msgpack:"local,omitempty"`
	Type  types.TypeID     `msgpack:"type,omitempty"`
	Body  *wireBlock       `msgpack:"body"`
	Span  source.Span      `msgpack:"span"`
}

type wireSection struct {
	Labels []*wireExpr `msgpack:"labels,omitempty"`
	Body   []wireStmt  `msgpack:"body,omitempty"`
}

// wireStmt flattens StmtData the same way; Blocks keeps nil slots for
// optional blocks (else, finally) so positions stay fixed.
type wireStmt struct {
	Kind     hir.StmtKind       `msgpack:"k"`
	Span     source.Span        `msgpack:"s"`
	Sym      symbols.SymbolID   `msgpack:"sym,omitempty"`
	Name     string             `msgpack:"name,omitempty"`
	Type     types.TypeID       `msgpack:"t,omitempty"`
	Node     hir.NodeID         `msgpack:"node,omitempty"`
	Locals   []symbols.SymbolID `msgpack:"locals,omitempty"`
	Params   []hir.Param        `msgpack:"params,omitempty"`
	X        *wireExpr          `msgpack:"x,omitempty"`
	Y        *wireExpr          `msgpack:"y,omitempty"`
	Init     *wireStmt          `msgpack:"init,omitempty"`
	Blocks   []*wireBlock       `msgpack:"blocks,omitempty"`
	Catches  []wireCatch        `msgpack:"catches,omitempty"`
	Sections []wireSection      `msgpack:"sections,omitempty"`
}

type wireBlock struct {
	ID     hir.NodeID         `msgpack:"id"`
	Locals []symbols.SymbolID `msgpack:"locals,omitempty"`
	Stmts  []wireStmt         `msgpack:"stmts,omitempty"`
	Span   source.Span        `msgpack:"span"`
}

type wireFunc struct {
	ID        hir.FuncID       `msgpack:"id"`
	Name      string           `msgpack:"name"`
	SymbolID  symbols.SymbolID `msgpack:"sym"`
	Owner     symbols.SymbolID `msgpack:"owner"`
	OwnerType types.TypeID     `msgpack:"owner_type"`
	This      symbols.SymbolID `msgpack:"this,omitempty"`
	Span      source.Span      `msgpack:"span"`
	Params    []hir.Param      `msgpack:"params,omitempty"`
	Result    types.TypeID     `msgpack:"result"`
	Flags     hir.FuncFlags    `msgpack:"flags"`
	Body      *wireBlock       `msgpack:"body,omitempty"`
}

// encoder lowers the typed tree into wire records.
type encoder struct{}

func (enc encoder) funcs(fns []*hir.Func) []wireFunc {
	out := make([]wireFunc, 0, len(fns))
	for _, f := range fns {
		if f == nil {
			continue
		}
		out = append(out, wireFunc{
			ID:        f.ID,
			Name:      f.Name,
			SymbolID:  f.SymbolID,
			Owner:     f.Owner,
			OwnerType: f.OwnerType,
			This:      f.This,
			Span:      f.Span,
			Params:    f.Params,
			Result:    f.Result,
			Flags:     f.Flags,
			Body:      enc.block(f.Body),
		})
	}
	return out
}

func (enc encoder) block(b *hir.Block) *wireBlock {
	if b == nil {
		return nil
	}
	out := &wireBlock{ID: b.ID, Locals: b.Locals, Span: b.Span}
	out.Stmts = enc.stmts(b.Stmts)
	return out
}

func (enc encoder) stmts(list []hir.Stmt) []wireStmt {
	if len(list) == 0 {
		return nil
	}
	out := make([]wireStmt, len(list))
	for i := range list {
		out[i] = enc.stmt(&list[i])
	}
	return out
}

func (enc encoder) stmt(s *hir.Stmt) wireStmt {
	w := wireStmt{Kind: s.Kind, Span: s.Span}
	switch s.Kind {
	case hir.StmtLet:
		data := s.Data.(hir.LetData)
		w.Name, w.Sym, w.Type = data.Name, data.SymbolID, data.Type
		w.X = enc.expr(data.Value)
	case hir.StmtExpr:
		w.X = enc.expr(s.Data.(hir.ExprStmtData).Expr)
	case hir.StmtAssign:
		data := s.Data.(hir.AssignData)
		w.X, w.Y = enc.expr(data.Target), enc.expr(data.Value)
	case hir.StmtReturn:
		w.X = enc.expr(s.Data.(hir.ReturnData).Value)
	case hir.StmtBreak, hir.StmtContinue:
	case hir.StmtIf:
		data := s.Data.(hir.IfStmtData)
		w.X = enc.expr(data.Cond)
		w.Blocks = []*wireBlock{enc.block(data.Then), enc.block(data.Else)}
	case hir.StmtWhile:
		data := s.Data.(hir.WhileData)
		w.X = enc.expr(data.Cond)
		w.Blocks = []*wireBlock{enc.block(data.Body)}
	case hir.StmtFor:
		data := s.Data.(hir.ForData)
		w.Node, w.Locals = data.ID, data.Locals
		if data.Init != nil {
			init := enc.stmt(data.Init)
			w.Init = &init
		}
		w.X, w.Y = enc.expr(data.Cond), enc.expr(data.Post)
		w.Blocks = []*wireBlock{enc.block(data.Body)}
	case hir.StmtBlock:
		w.Blocks = []*wireBlock{enc.block(s.Data.(hir.BlockStmtData).Block)}
	case hir.StmtTry:
		data := s.Data.(hir.TryData)
		w.Blocks = []*wireBlock{enc.block(data.Body), enc.block(data.Finally)}
		for i := range data.Catches {
			c := &data.Catches[i]
			w.Catches = append(w.Catches, wireCatch{ID: c.ID, Local: c.Local, Type: c.Type, Body: enc.block(c.Body), Span: c.Span})
		}
	case hir.StmtSwitch:
		data := s.Data.(hir.SwitchData)
		w.Node, w.Locals = data.ID, data.Locals
		w.X = enc.expr(data.Value)
		for _, sec := range data.Sections {
			w.Sections = append(w.Sections, wireSection{Labels: enc.exprs(sec.Labels), Body: enc.stmts(sec.Body)})
		}
	case hir.StmtLocalFunc:
		data := s.Data.(hir.LocalFuncData)
		w.Node, w.Sym, w.Params = data.ID, data.Symbol, data.Params
		w.Blocks = []*wireBlock{enc.block(data.Body)}
	}
	return w
}

func (enc encoder) exprs(list []*hir.Expr) []*wireExpr {
	if len(list) == 0 {
		return nil
	}
	out := make([]*wireExpr, len(list))
	for i, e := range list {
		out[i] = enc.expr(e)
	}
	return out
}

func (enc encoder) expr(e *hir.Expr) *wireExpr {
	if e == nil {
		return nil
	}
	w := &wireExpr{Kind: e.Kind, Type: e.Type, Span: e.Span}
	switch e.Kind {
	case hir.ExprLiteral:
		lit := e.Data.(hir.LiteralData)
		w.Lit = &lit
	case hir.ExprVarRef:
		data := e.Data.(hir.VarRefData)
		w.Name, w.Sym = data.Name, data.SymbolID
	case hir.ExprThis, hir.ExprBase, hir.ExprDefault:
	case hir.ExprUnaryOp:
		data := e.Data.(hir.UnaryOpData)
		w.Op = uint8(data.Op)
		w.X = enc.expr(data.Operand)
	case hir.ExprBinaryOp:
		data := e.Data.(hir.BinaryOpData)
		w.Op = uint8(data.Op)
		w.Kids = enc.exprs([]*hir.Expr{data.Left, data.Right})
	case hir.ExprAssign:
		data := e.Data.(hir.AssignExprData)
		w.Kids = enc.exprs([]*hir.Expr{data.Target, data.Value})
	case hir.ExprCall:
		data := e.Data.(hir.CallData)
		w.X, w.Sym, w.Flag = enc.expr(data.Receiver), data.Method, data.CtorInit
		w.Kids = enc.exprs(data.Args)
	case hir.ExprFieldAccess:
		data := e.Data.(hir.FieldAccessData)
		w.X, w.Sym, w.Name = enc.expr(data.Receiver), data.Field, data.Name
	case hir.ExprLambda:
		data := e.Data.(hir.LambdaData)
		w.Node, w.Sym, w.Params = data.ID, data.Symbol, data.Params
		w.Body = enc.block(data.Body)
	case hir.ExprDelegateCreate:
		data := e.Data.(hir.DelegateCreateData)
		w.Sym, w.X = data.Method, enc.expr(data.Receiver)
	case hir.ExprNew:
		data := e.Data.(hir.NewData)
		w.Sym = data.Ctor
		w.Kids = enc.exprs(data.Args)
	case hir.ExprSequence:
		data := e.Data.(hir.SequenceData)
		w.Node, w.Locals = data.ID, data.Locals
		w.Kids = enc.exprs(data.SideEffects)
		w.X = enc.expr(data.Value)
	case hir.ExprNullCoalesce:
		data := e.Data.(hir.NullCoalesceData)
		w.Kids = enc.exprs([]*hir.Expr{data.Left, data.Right})
	case hir.ExprConditional:
		data := e.Data.(hir.ConditionalData)
		w.Kids = enc.exprs([]*hir.Expr{data.Cond, data.Then, data.Else})
	case hir.ExprRef:
		w.X = enc.expr(e.Data.(hir.RefData).Operand)
	case hir.ExprBad:
		w.Kids = enc.exprs(e.Data.(hir.BadData).Children)
	}
	return w
}

// decoder rebuilds the typed tree and fails on malformed records.
type decoder struct{}

func (dec decoder) funcs(list []wireFunc) ([]*hir.Func, error) {
	out := make([]*hir.Func, 0, len(list))
	for i := range list {
		w := &list[i]
		body, err := dec.block(w.Body)
		if err != nil {
			return nil, fmt.Errorf("func %s: %w", w.Name, err)
		}
		out = append(out, &hir.Func{
			ID:        w.ID,
			Name:      w.Name,
			SymbolID:  w.SymbolID,
			Owner:     w.Owner,
			OwnerType: w.OwnerType,
			This:      w.This,
			Span:      w.Span,
			Params:    w.Params,
			Result:    w.Result,
			Flags:     w.Flags,
			Body:      body,
		})
	}
	return out, nil
}

func (dec decoder) block(w *wireBlock) (*hir.Block, error) {
	if w == nil {
		return nil, nil
	}
	stmts, err := dec.stmts(w.Stmts)
	if err != nil {
		return nil, err
	}
	return &hir.Block{ID: w.ID, Locals: w.Locals, Stmts: stmts, Span: w.Span}, nil
}

func (dec decoder) stmts(list []wireStmt) ([]hir.Stmt, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]hir.Stmt, len(list))
	for i := range list {
		s, err := dec.stmt(&list[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (dec decoder) blocks(w *wireStmt, n int) ([]*hir.Block, error) {
	if len(w.Blocks) != n {
		return nil, fmt.Errorf("%s statement: want %d blocks, got %d", w.Kind, n, len(w.Blocks))
	}
	out := make([]*hir.Block, n)
	for i, wb := range w.Blocks {
		b, err := dec.block(wb)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (dec decoder) stmt(w *wireStmt) (hir.Stmt, error) {
	s := hir.Stmt{Kind: w.Kind, Span: w.Span}
	x, err := dec.expr(w.X)
	if err != nil {
		return s, err
	}
	y, err := dec.expr(w.Y)
	if err != nil {
		return s, err
	}
	switch w.Kind {
	case hir.StmtLet:
		s.Data = hir.LetData{Name: w.Name, SymbolID: w.Sym, Type: w.Type, Value: x}
	case hir.StmtExpr:
		s.Data = hir.ExprStmtData{Expr: x}
	case hir.StmtAssign:
		s.Data = hir.AssignData{Target: x, Value: y}
	case hir.StmtReturn:
		s.Data = hir.ReturnData{Value: x}
	case hir.StmtBreak:
		s.Data = hir.BreakData{}
	case hir.StmtContinue:
		s.Data = hir.ContinueData{}
	case hir.StmtIf:
		bs, err := dec.blocks(w, 2)
		if err != nil {
			return s, err
		}
		s.Data = hir.IfStmtData{Cond: x, Then: bs[0], Else: bs[1]}
	case hir.StmtWhile:
		bs, err := dec.blocks(w, 1)
		if err != nil {
			return s, err
		}
		s.Data = hir.WhileData{Cond: x, Body: bs[0]}
	case hir.StmtFor:
		bs, err := dec.blocks(w, 1)
		if err != nil {
			return s, err
		}
		data := hir.ForData{ID: w.Node, Locals: w.Locals, Cond: x, Post: y, Body: bs[0]}
		if w.Init != nil {
			init, err := dec.stmt(w.Init)
			if err != nil {
				return s, err
			}
			data.Init = &init
		}
		s.Data = data
	case hir.StmtBlock:
		bs, err := dec.blocks(w, 1)
		if err != nil {
			return s, err
		}
		s.Data = hir.BlockStmtData{Block: bs[0]}
	case hir.StmtTry:
		bs, err := dec.blocks(w, 2)
		if err != nil {
			return s, err
		}
		data := hir.TryData{Body: bs[0], Finally: bs[1]}
		for _, c := range w.Catches {
			body, err := dec.block(c.Body)
			if err != nil {
				return s, err
			}
			data.Catches = append(data.Catches, hir.CatchClause{ID: c.ID, Local: c.Local, Type: c.Type, Body: body, Span: c.Span})
		}
		s.Data = data
	case hir.StmtSwitch:
		data := hir.SwitchData{ID: w.Node, Locals: w.Locals, Value: x}
		for _, sec := range w.Sections {
			labels, err := dec.exprs(sec.Labels)
			if err != nil {
				return s, err
			}
			body, err := dec.stmts(sec.Body)
			if err != nil {
				return s, err
			}
			data.Sections = append(data.Sections, hir.SwitchSection{Labels: labels, Body: body})
		}
		s.Data = data
	case hir.StmtLocalFunc:
		bs, err := dec.blocks(w, 1)
		if err != nil {
			return s, err
		}
		s.Data = hir.LocalFuncData{ID: w.Node, Symbol: w.Sym, Params: w.Params, Body: bs[0]}
	default:
		return s, fmt.Errorf("unknown statement kind %d", w.Kind)
	}
	return s, nil
}

func (dec decoder) exprs(list []*wireExpr) ([]*hir.Expr, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]*hir.Expr, len(list))
	for i, w := range list {
		e, err := dec.expr(w)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (dec decoder) kids(w *wireExpr, n int) ([]*hir.Expr, error) {
	if len(w.Kids) != n {
		return nil, fmt.Errorf("%s expression: want %d operands, got %d", w.Kind, n, len(w.Kids))
	}
	return dec.exprs(w.Kids)
}

func (dec decoder) expr(w *wireExpr) (*hir.Expr, error) {
	if w == nil {
		return nil, nil
	}
	e := &hir.Expr{Kind: w.Kind, Type: w.Type, Span: w.Span}
	x, err := dec.expr(w.X)
	if err != nil {
		return nil, err
	}
	switch w.Kind {
	case hir.ExprLiteral:
		if w.Lit == nil {
			return nil, fmt.Errorf("literal without value")
		}
		e.Data = *w.Lit
	case hir.ExprVarRef:
		e.Data = hir.VarRefData{Name: w.Name, SymbolID: w.Sym}
	case hir.ExprThis, hir.ExprBase:
		e.Data = hir.ThisData{}
	case hir.ExprDefault:
		e.Data = hir.DefaultData{}
	case hir.ExprUnaryOp:
		e.Data = hir.UnaryOpData{Op: hir.UnaryOp(w.Op), Operand: x}
	case hir.ExprBinaryOp:
		k, err := dec.kids(w, 2)
		if err != nil {
			return nil, err
		}
		e.Data = hir.BinaryOpData{Op: hir.BinaryOp(w.Op), Left: k[0], Right: k[1]}
	case hir.ExprAssign:
		k, err := dec.kids(w, 2)
		if err != nil {
			return nil, err
		}
		e.Data = hir.AssignExprData{Target: k[0], Value: k[1]}
	case hir.ExprCall:
		args, err := dec.exprs(w.Kids)
		if err != nil {
			return nil, err
		}
		e.Data = hir.CallData{Receiver: x, Method: w.Sym, Args: args, CtorInit: w.Flag}
	case hir.ExprFieldAccess:
		e.Data = hir.FieldAccessData{Receiver: x, Field: w.Sym, Name: w.Name}
	case hir.ExprLambda:
		body, err := dec.block(w.Body)
		if err != nil {
			return nil, err
		}
		e.Data = hir.LambdaData{ID: w.Node, Symbol: w.Sym, Params: w.Params, Body: body}
	case hir.ExprDelegateCreate:
		e.Data = hir.DelegateCreateData{Method: w.Sym, Receiver: x}
	case hir.ExprNew:
		args, err := dec.exprs(w.Kids)
		if err != nil {
			return nil, err
		}
		e.Data = hir.NewData{Ctor: w.Sym, Args: args}
	case hir.ExprSequence:
		sides, err := dec.exprs(w.Kids)
		if err != nil {
			return nil, err
		}
		e.Data = hir.SequenceData{ID: w.Node, Locals: w.Locals, SideEffects: sides, Value: x}
	case hir.ExprNullCoalesce:
		k, err := dec.kids(w, 2)
		if err != nil {
			return nil, err
		}
		e.Data = hir.NullCoalesceData{Left: k[0], Right: k[1]}
	case hir.ExprConditional:
		k, err := dec.kids(w, 3)
		if err != nil {
			return nil, err
		}
		e.Data = hir.ConditionalData{Cond: k[0], Then: k[1], Else: k[2]}
	case hir.ExprRef:
		e.Data = hir.RefData{Operand: x}
	case hir.ExprBad:
		kids, err := dec.exprs(w.Kids)
		if err != nil {
			return nil, err
		}
		e.Data = hir.BadData{Children: kids}
	default:
		return nil, fmt.Errorf("unknown expression kind %d", w.Kind)
	}
	return e, nil
}

package testkit

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// Lit is an int literal.
func (b *Builder) Lit(v int64) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprLiteral, Type: b.Int(), Data: hir.LiteralData{Kind: hir.LiteralInt, IntValue: v}}
}

// Null is the null literal of type t.
func (b *Builder) Null(t types.TypeID) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprLiteral, Type: t, Data: hir.LiteralData{Kind: hir.LiteralNull}}
}

// Var references a local or parameter.
func (b *Builder) Var(sym symbols.SymbolID) *hir.Expr {
	info := b.Symbols.MustGet(sym)
	return &hir.Expr{Kind: hir.ExprVarRef, Type: info.Type, Data: hir.VarRefData{Name: info.Name, SymbolID: sym}}
}

// This is the receiver of the method.
func (b *Builder) This() *hir.Expr {
	return &hir.Expr{Kind: hir.ExprThis, Type: b.OwnerType, Data: hir.ThisData{}}
}

// Base is the receiver for a base member access.
func (b *Builder) Base() *hir.Expr {
	return &hir.Expr{Kind: hir.ExprBase, Type: b.OwnerType, Data: hir.ThisData{}}
}

// Bin is a binary operation with the type of the left operand, bool for comparisons.
func (b *Builder) Bin(op hir.BinaryOp, l, r *hir.Expr) *hir.Expr {
	t := l.Type
	if op >= hir.BinaryEq {
		t = b.Types.Builtins().Bool
	}
	return &hir.Expr{Kind: hir.ExprBinaryOp, Type: t, Data: hir.BinaryOpData{Op: op, Left: l, Right: r}}
}

// Add is l + r.
func (b *Builder) Add(l, r *hir.Expr) *hir.Expr { return b.Bin(hir.BinaryAdd, l, r) }

// Lt is l < r.
func (b *Builder) Lt(l, r *hir.Expr) *hir.Expr { return b.Bin(hir.BinaryLt, l, r) }

// Set is the assignment expression target = value.
func (b *Builder) Set(target, value *hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprAssign, Type: target.Type, Data: hir.AssignExprData{Target: target, Value: value}}
}

// FieldOf reads field of recv; recv is nil for static fields.
func (b *Builder) FieldOf(recv *hir.Expr, field symbols.SymbolID) *hir.Expr {
	info := b.Symbols.MustGet(field)
	return &hir.Expr{Kind: hir.ExprFieldAccess, Type: info.Type, Data: hir.FieldAccessData{Receiver: recv, Field: field, Name: info.Name}}
}

// Call invokes method on recv.
func (b *Builder) Call(recv *hir.Expr, method symbols.SymbolID, args ...*hir.Expr) *hir.Expr {
	info := b.Symbols.MustGet(method)
	return &hir.Expr{Kind: hir.ExprCall, Type: info.Result, Data: hir.CallData{Receiver: recv, Method: method, Args: args}}
}

// CallLocal invokes a local function.
func (b *Builder) CallLocal(fn symbols.SymbolID, args ...*hir.Expr) *hir.Expr {
	return b.Call(nil, fn, args...)
}

// BaseCall is the constructor initializer base(args...).
func (b *Builder) BaseCall(args ...*hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprCall, Type: b.Void(), Data: hir.CallData{Receiver: b.Base(), Method: b.base, Args: args, CtorInit: true}}
}

// Lambda is a lambda converted to a delegate.
func (b *Builder) Lambda(result types.TypeID, params []symbols.SymbolID, body *hir.Block) *hir.Expr {
	return b.lambda(b.Func(result, b.paramTypes(params)...), result, params, body)
}

// Quote is a lambda converted to an expression tree.
func (b *Builder) Quote(result types.TypeID, params []symbols.SymbolID, body *hir.Block) *hir.Expr {
	return b.lambda(b.Types.ExprTree(b.Func(result, b.paramTypes(params)...)), result, params, body)
}

func (b *Builder) lambda(t, result types.TypeID, params []symbols.SymbolID, body *hir.Block) *hir.Expr {
	sym := b.Symbols.New(&symbols.Symbol{Name: "lambda", Kind: symbols.SymbolLambda, Type: t, Params: params, Result: result})
	return &hir.Expr{Kind: hir.ExprLambda, Type: t, Data: hir.LambdaData{
		ID:     b.ids.Next(),
		Symbol: sym,
		Params: b.params(params),
		Body:   body,
	}}
}

// DelegateOf converts a local function to a delegate.
func (b *Builder) DelegateOf(fn symbols.SymbolID) *hir.Expr {
	info := b.Symbols.MustGet(fn)
	t := b.Func(info.Result, b.paramTypes(info.Params)...)
	return &hir.Expr{Kind: hir.ExprDelegateCreate, Type: t, Data: hir.DelegateCreateData{Method: fn}}
}

// Seq is a sequence expression declaring locals.
func (b *Builder) Seq(locals []symbols.SymbolID, value *hir.Expr, sides ...*hir.Expr) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprSequence, Type: value.Type, Data: hir.SequenceData{
		ID:          b.ids.Next(),
		Locals:      locals,
		SideEffects: sides,
		Value:       value,
	}}
}

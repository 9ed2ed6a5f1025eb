// Package testkit builds HIR fixtures for tests and checks structural
// invariants of rewritten bodies.
package testkit

import (
	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// Builder assembles methods of a single class "C" sharing one symbol table
// and type interner.
type Builder struct {
	Types     *types.Interner
	Symbols   *symbols.Table
	Owner     symbols.SymbolID
	OwnerType types.TypeID

	ids  *hir.NodeIDs
	base symbols.SymbolID
}

// New returns a builder with the well-known expression type registered.
func New() *Builder {
	in := types.NewInterner()
	table := symbols.NewTable(symbols.Hints{Symbols: 64})
	ownerType := in.RegisterClass("C", source.Span{})
	owner := table.New(&symbols.Symbol{Name: "C", Kind: symbols.SymbolType, Type: ownerType})
	exprType := in.RegisterClass("Expression", source.Span{})
	in.SetWellKnown(types.WellKnownExpression, exprType)
	b := &Builder{
		Types:     in,
		Symbols:   table,
		Owner:     owner,
		OwnerType: ownerType,
		ids:       hir.NewNodeIDs(0),
	}
	b.base = table.New(&symbols.Symbol{Name: ".ctor", Kind: symbols.SymbolMethod, Flags: symbols.FlagCtor, Result: in.Builtins().Void})
	return b
}

// ValueOwner makes methods built afterwards belong to the struct S.
func (b *Builder) ValueOwner() *Builder {
	b.OwnerType = b.Types.RegisterStruct("S", source.Span{})
	b.Owner = b.Symbols.New(&symbols.Symbol{Name: "S", Kind: symbols.SymbolType, Type: b.OwnerType})
	return b
}

// WithoutExpressionType drops the well-known expression type.
func (b *Builder) WithoutExpressionType() *Builder {
	b.Types.SetWellKnown(types.WellKnownExpression, types.NoTypeID)
	return b
}

// Int is the builtin int type.
func (b *Builder) Int() types.TypeID { return b.Types.Builtins().Int }

// Void is the builtin void type.
func (b *Builder) Void() types.TypeID { return b.Types.Builtins().Void }

// Func returns the delegate type (params) -> result.
func (b *Builder) Func(result types.TypeID, params ...types.TypeID) types.TypeID {
	return b.Types.Delegate(params, result)
}

// LastNodeID is the highest node id handed out so far.
func (b *Builder) LastNodeID() hir.NodeID { return b.ids.Last() }

// Module wraps methods into a module sharing the builder's tables.
func (b *Builder) Module(name string, funcs ...*hir.Func) *hir.Module {
	return &hir.Module{
		Name:  name,
		Funcs: funcs,
		Types: []hir.TypeDecl{{
			Name:     "C",
			SymbolID: b.Owner,
			TypeID:   b.OwnerType,
			Kind:     hir.TypeDeclClass,
		}},
		TypeInterner: b.Types,
		Symbols:      b.Symbols,
		LastNodeID:   b.ids.Last(),
	}
}

// Method is a method under construction.
type Method struct {
	b    *Builder
	Func *hir.Func
}

// Method starts an instance method unless flags contain hir.FuncStatic.
func (b *Builder) Method(name string, flags hir.FuncFlags) *Method {
	symFlags := symbols.SymbolFlags(0)
	if flags.HasFlag(hir.FuncStatic) || flags.HasFlag(hir.FuncStaticCtor) {
		symFlags |= symbols.FlagStatic
	}
	if flags.HasFlag(hir.FuncAsync) {
		symFlags |= symbols.FlagAsync
	}
	if flags.HasFlag(hir.FuncIterator) {
		symFlags |= symbols.FlagIterator
	}
	if flags.HasFlag(hir.FuncCtor) {
		symFlags |= symbols.FlagCtor
	}
	sym := b.Symbols.New(&symbols.Symbol{
		Name:   name,
		Kind:   symbols.SymbolMethod,
		Flags:  symFlags,
		Owner:  b.Owner,
		Result: b.Void(),
	})
	fn := &hir.Func{
		Name:      name,
		SymbolID:  sym,
		Owner:     b.Owner,
		OwnerType: b.OwnerType,
		Result:    b.Void(),
		Flags:     flags,
	}
	if !flags.HasFlag(hir.FuncStatic) && !flags.HasFlag(hir.FuncStaticCtor) {
		fn.This = b.Symbols.New(&symbols.Symbol{Name: "this", Kind: symbols.SymbolThis, Type: b.OwnerType, Owner: sym})
	}
	return &Method{b: b, Func: fn}
}

// Returns sets the result type.
func (m *Method) Returns(t types.TypeID) *Method {
	m.Func.Result = t
	m.b.Symbols.Update(m.Func.SymbolID, func(s *symbols.Symbol) { s.Result = t })
	return m
}

// Param adds a by-value parameter.
func (m *Method) Param(name string, t types.TypeID) symbols.SymbolID {
	return m.param(name, t, false)
}

// RefParam adds a by-reference parameter.
func (m *Method) RefParam(name string, t types.TypeID) symbols.SymbolID {
	return m.param(name, t, true)
}

func (m *Method) param(name string, t types.TypeID, byRef bool) symbols.SymbolID {
	var flags symbols.SymbolFlags
	if byRef {
		flags = symbols.FlagByRef
	}
	sym := m.b.Symbols.New(&symbols.Symbol{
		Name:    name,
		Kind:    symbols.SymbolParam,
		Flags:   flags,
		Type:    t,
		Owner:   m.Func.SymbolID,
		Ordinal: len(m.Func.Params),
	})
	m.Func.Params = append(m.Func.Params, hir.Param{Name: name, SymbolID: sym, Type: t, ByRef: byRef})
	return sym
}

// Body sets the method body and returns the finished method.
func (m *Method) Body(stmts ...hir.Stmt) *hir.Func {
	m.Func.Body = m.b.Block(stmts...)
	return m.Func
}

// Local declares a local variable.
func (b *Builder) Local(name string, t types.TypeID) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolLocal, Type: t})
}

// Const declares a compile-time constant local.
func (b *Builder) Const(name string, t types.TypeID) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolLocal, Flags: symbols.FlagConst, Type: t})
}

// CatchVar declares an exception variable.
func (b *Builder) CatchVar(name string, t types.TypeID) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolLocal, Flags: symbols.FlagCatchVar, Type: t})
}

// LambdaParam declares a parameter of a lambda or local function.
func (b *Builder) LambdaParam(name string, t types.TypeID) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolParam, Type: t})
}

// LocalFunc declares a local function symbol; its parameters are attached by Declare.
func (b *Builder) LocalFunc(name string, result types.TypeID, flags symbols.SymbolFlags) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolLocalFunc, Flags: flags, Result: result})
}

// Field declares an instance field of C.
func (b *Builder) Field(name string, t types.TypeID) symbols.SymbolID {
	idx, err := b.Types.AddField(b.OwnerType, types.Field{Name: name, Type: t})
	if err != nil {
		panic(err)
	}
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolField, Type: t, Owner: b.Owner, Ordinal: idx})
}

// ExternalMethod declares a method of C that tests can call.
func (b *Builder) ExternalMethod(name string, result types.TypeID) symbols.SymbolID {
	return b.Symbols.New(&symbols.Symbol{Name: name, Kind: symbols.SymbolMethod, Owner: b.Owner, Result: result})
}

func (b *Builder) params(syms []symbols.SymbolID) []hir.Param {
	out := make([]hir.Param, len(syms))
	for i, s := range syms {
		info := b.Symbols.MustGet(s)
		out[i] = hir.Param{Name: info.Name, SymbolID: s, Type: info.Type, ByRef: info.Flags.Has(symbols.FlagByRef)}
	}
	return out
}

func (b *Builder) paramTypes(syms []symbols.SymbolID) []types.TypeID {
	out := make([]types.TypeID, len(syms))
	for i, s := range syms {
		out[i] = b.Symbols.MustGet(s).Type
	}
	return out
}

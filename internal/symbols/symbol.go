package symbols

import (
	"closconv/internal/source"
	"closconv/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolLocal
	SymbolParam
	// SymbolThis is the implicit receiver of an instance method.
	SymbolThis
	SymbolMethod
	// SymbolLocalFunc is a named function declared inside a method body.
	SymbolLocalFunc
	// SymbolLambda is the anonymous function symbol bound to a lambda expression.
	SymbolLambda
	SymbolField
	SymbolType
)

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	// FlagConst marks compile-time constants; they are inlined and never captured.
	FlagConst SymbolFlags = 1 << iota
	FlagStatic
	FlagAsync
	FlagIterator
	FlagCtor
	FlagStaticCtor
	FlagSynthesized
	// FlagByRef marks ref parameters and ref locals.
	FlagByRef
	FlagGeneric
	FlagCatchVar
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParam:
		return "param"
	case SymbolThis:
		return "this"
	case SymbolMethod:
		return "method"
	case SymbolLocalFunc:
		return "localfunc"
	case SymbolLambda:
		return "lambda"
	case SymbolField:
		return "field"
	case SymbolType:
		return "type"
	default:
		return "invalid"
	}
}

// IsVariable reports whether the kind denotes storage that can be captured.
func (k SymbolKind) IsVariable() bool {
	return k == SymbolLocal || k == SymbolParam || k == SymbolThis
}

// Strings returns a slice of textual flag labels.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	names := [...]string{
		"const", "static", "async", "iterator", "ctor", "cctor",
		"synthesized", "ref", "generic", "catch",
	}
	labels := make([]string, 0, 4)
	for i, name := range names {
		if f&(1<<i) != 0 {
			labels = append(labels, name)
		}
	}
	return labels
}

// Has reports whether all bits in mask are set.
func (f SymbolFlags) Has(mask SymbolFlags) bool { return f&mask == mask }

// Symbol describes a single named entity referenced by the bound tree.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Flags SymbolFlags
	// Type is the variable type, the field type or, for types, the TypeID itself.
	Type types.TypeID
	// Owner is the containing method for locals and params, the containing
	// type for methods and fields.
	Owner SymbolID
	Span  source.Span
	// Params and Result are set for methods, local functions and lambdas.
	Params []SymbolID
	Result types.TypeID
	// Ordinal is the field index or parameter position.
	Ordinal int
}

// CannotTakeRefParams reports whether a function symbol must not receive
// struct environments by reference.
func (s *Symbol) CannotTakeRefParams() bool {
	return s.Flags&(FlagAsync|FlagIterator) != 0
}

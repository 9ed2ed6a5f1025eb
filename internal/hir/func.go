package hir

import (
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// FuncID identifies a function within an HIR module.
type FuncID uint32

// NoFuncID marks functions that were not assigned an identifier.
const NoFuncID FuncID = 0

// IsValid returns true if the ID is valid (non-zero).
func (id FuncID) IsValid() bool { return id != NoFuncID }

// FuncFlags represents method modifiers as a bitmask.
type FuncFlags uint32

const (
	// FuncStatic marks methods without a receiver.
	FuncStatic FuncFlags = 1 << iota
	// FuncCtor marks instance constructors.
	FuncCtor
	// FuncStaticCtor marks type initializers.
	FuncStaticCtor
	// FuncAsync indicates an async method.
	FuncAsync
	// FuncIterator indicates an iterator method.
	FuncIterator
	// FuncGeneric marks methods declared with type parameters or inside a generic type.
	FuncGeneric
	// FuncSynthesized marks methods produced by lowering.
	FuncSynthesized
)

// HasFlag returns true if the given flag is set.
func (f FuncFlags) HasFlag(flag FuncFlags) bool {
	return f&flag != 0
}

// String returns a human-readable representation of flags.
func (f FuncFlags) String() string {
	s := ""
	if f.HasFlag(FuncSynthesized) {
		s += "@synthesized "
	}
	if f.HasFlag(FuncStatic) {
		s += "static "
	}
	if f.HasFlag(FuncAsync) {
		s += "async "
	}
	if f.HasFlag(FuncIterator) {
		s += "iterator "
	}
	if f.HasFlag(FuncGeneric) {
		s += "generic "
	}
	if f.HasFlag(FuncCtor) {
		s += "ctor "
	}
	if f.HasFlag(FuncStaticCtor) {
		s += "cctor "
	}
	return s
}

// Param represents a function parameter.
type Param struct {
	Name     string           // Parameter name
	SymbolID symbols.SymbolID // Symbol for this parameter
	Type     types.TypeID     // Parameter type
	ByRef    bool             // passed by reference
	Span     source.Span      // Source location
}

// Func represents one method body handed to the lowering passes.
type Func struct {
	ID       FuncID           // HIR function identifier
	Name     string           // Method name
	SymbolID symbols.SymbolID // Symbol table entry
	// Owner is the type symbol declaring this method; OwnerType its TypeID.
	Owner     symbols.SymbolID
	OwnerType types.TypeID
	// This is the receiver symbol; NoSymbolID for static methods.
	This   symbols.SymbolID
	Span   source.Span // Source location
	Params []Param     // Function parameters
	Result types.TypeID
	Flags  FuncFlags
	Body   *Block // Function body (nil for externals)
}

// IsStatic returns true if the method has no receiver.
func (f *Func) IsStatic() bool {
	return f.Flags.HasFlag(FuncStatic) || !f.This.IsValid()
}

// IsCtor returns true for instance constructors.
func (f *Func) IsCtor() bool {
	return f.Flags.HasFlag(FuncCtor)
}

// IsGeneric returns true if the method lives in a generic context.
func (f *Func) IsGeneric() bool {
	return f.Flags.HasFlag(FuncGeneric)
}

// HasBody returns true if this function has a body.
func (f *Func) HasBody() bool {
	return f.Body != nil
}

package hir

import (
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// Module is a unit of methods sharing one symbol table and type interner.
type Module struct {
	Name  string     // Module name
	Path  string     // Module path
	Funcs []*Func    // Methods in this module
	Types []TypeDecl // Type declarations, including synthesized environments

	TypeInterner *types.Interner
	Symbols      *symbols.Table
	// LastNodeID is the highest NodeID used by any function in the module.
	LastNodeID NodeID
}

// TypeDecl represents a type declaration in HIR.
// We don't duplicate the full type structure - just reference the symbol/type.
type TypeDecl struct {
	Name     string           // Type name
	SymbolID symbols.SymbolID // Symbol table entry
	TypeID   types.TypeID     // Resolved type
	Span     source.Span      // Source location
	Kind     TypeDeclKind     // Kind of type declaration
}

// TypeDeclKind enumerates type declaration kinds.
type TypeDeclKind uint8

const (
	TypeDeclClass TypeDeclKind = iota
	TypeDeclStruct
	// TypeDeclEnvironment is a display class or struct produced by closure conversion.
	TypeDeclEnvironment
)

// String returns a human-readable name for the type declaration kind.
func (k TypeDeclKind) String() string {
	switch k {
	case TypeDeclClass:
		return "class"
	case TypeDeclStruct:
		return "struct"
	case TypeDeclEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// FindFunc finds a function by name, returns nil if not found.
func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}


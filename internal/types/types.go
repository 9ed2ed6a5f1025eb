// Package types provides the type interner consumed by the closure pass.
//
// The pass never inspects type structure beyond a handful of questions: is it
// a value type, is it byref-like (restricted, cannot be captured), is it a
// quoted expression tree, what is a delegate's signature. Nominal types are
// registered explicitly; environment types synthesized by the pass are
// registered through the same interner.
package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindString
	KindObject
	// KindClass is a nominal reference type.
	KindClass
	// KindStruct is a nominal value type.
	KindStruct
	// KindByRefLike is a nominal stack-only value type that can never be hoisted.
	KindByRefLike
	// KindDelegate is a delegate type; Payload indexes DelegateInfo.
	KindDelegate
	// KindExprTree is a quoted expression tree over the delegate in Elem.
	KindExprTree
	KindTypeParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindByRefLike:
		return "ref struct"
	case KindDelegate:
		return "delegate"
	case KindExprTree:
		return "expression"
	case KindTypeParam:
		return "typeparam"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // KindExprTree: the quoted delegate type
	Payload uint32 // nominal or delegate slot
}

// IsNominal reports whether the kind is backed by a NominalInfo slot.
func (k Kind) IsNominal() bool {
	return k == KindClass || k == KindStruct || k == KindByRefLike
}

// WellKnown names runtime types the lowering passes need to reference.
type WellKnown uint8

const (
	WellKnownNone WellKnown = iota
	// WellKnownExpression is the factory type used to build expression trees.
	WellKnownExpression
	// WellKnownDelegate is the common base of all delegate types.
	WellKnownDelegate
)

func (w WellKnown) String() string {
	switch w {
	case WellKnownExpression:
		return "System.Linq.Expressions.Expression"
	case WellKnownDelegate:
		return "System.Delegate"
	default:
		return "none"
	}
}

package hir

import (
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents literals (int, bool, string, null).
	ExprLiteral ExprKind = iota
	// ExprVarRef references a local or a parameter.
	ExprVarRef
	// ExprThis references the receiver of the enclosing instance method.
	ExprThis
	// ExprBase references the receiver for a non-virtual base member access.
	ExprBase
	// ExprUnaryOp represents unary operators (-, !).
	ExprUnaryOp
	// ExprBinaryOp represents binary operators (+, -, *, ==, <, etc.).
	ExprBinaryOp
	// ExprAssign is an assignment used as a value.
	ExprAssign
	// ExprCall represents method, local function and constructor-initializer calls.
	ExprCall
	// ExprFieldAccess represents field access (expr.field or Type.field).
	ExprFieldAccess
	// ExprLambda represents an anonymous function converted to a delegate or an expression tree.
	ExprLambda
	// ExprDelegateCreate creates a delegate over a method group and an optional receiver.
	ExprDelegateCreate
	// ExprNew allocates an object of a class type.
	ExprNew
	// ExprDefault produces the zero value of a type.
	ExprDefault
	// ExprSequence evaluates side effects with scoped temporaries, then yields a value.
	ExprSequence
	// ExprNullCoalesce evaluates Right only when Left is null.
	ExprNullCoalesce
	// ExprConditional is the ternary operator.
	ExprConditional
	// ExprRef passes a variable by reference.
	ExprRef
	// ExprBad replaces an erroneous expression after a diagnostic was reported.
	ExprBad
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprVarRef:
		return "VarRef"
	case ExprThis:
		return "This"
	case ExprBase:
		return "Base"
	case ExprUnaryOp:
		return "UnaryOp"
	case ExprBinaryOp:
		return "BinaryOp"
	case ExprAssign:
		return "Assign"
	case ExprCall:
		return "Call"
	case ExprFieldAccess:
		return "FieldAccess"
	case ExprLambda:
		return "Lambda"
	case ExprDelegateCreate:
		return "DelegateCreate"
	case ExprNew:
		return "New"
	case ExprDefault:
		return "Default"
	case ExprSequence:
		return "Sequence"
	case ExprNullCoalesce:
		return "NullCoalesce"
	case ExprConditional:
		return "Conditional"
	case ExprRef:
		return "Ref"
	case ExprBad:
		return "Bad"
	default:
		return "Unknown"
	}
}

// Expr represents an HIR expression with type information.
type Expr struct {
	Kind ExprKind
	Type types.TypeID
	Span source.Span
	Data ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralBool
	LiteralString
	LiteralNull
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind        LiteralKind
	IntValue    int64
	BoolValue   bool
	StringValue string
}

func (LiteralData) exprData() {}

// VarRefData holds data for ExprVarRef.
type VarRefData struct {
	Name     string
	SymbolID symbols.SymbolID
}

func (VarRefData) exprData() {}

// ThisData holds data for ExprThis and ExprBase.
type ThisData struct{}

func (ThisData) exprData() {}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

func (op UnaryOp) String() string {
	if op == UnaryNot {
		return "!"
	}
	return "-"
}

// UnaryOpData holds data for ExprUnaryOp.
type UnaryOpData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryOpData) exprData() {}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
	BinaryAnd
	BinaryOr
)

var binaryOpText = [...]string{"+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// BinaryOpData holds data for ExprBinaryOp.
type BinaryOpData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryOpData) exprData() {}

// AssignExprData holds data for ExprAssign.
type AssignExprData struct {
	Target *Expr
	Value  *Expr
}

func (AssignExprData) exprData() {}

// CallData holds data for ExprCall.
type CallData struct {
	Receiver *Expr // nil for static methods and local functions
	Method   symbols.SymbolID
	Args     []*Expr
	// CtorInit marks the base(...) or this(...) call at the start of a constructor.
	CtorInit bool
}

func (CallData) exprData() {}

// FieldAccessData holds data for ExprFieldAccess.
type FieldAccessData struct {
	Receiver *Expr // nil for static fields
	Field    symbols.SymbolID
	Name     string
}

func (FieldAccessData) exprData() {}

// LambdaData holds data for ExprLambda. The expression type is either a
// delegate type or an expression-tree type over a delegate.
type LambdaData struct {
	ID     NodeID
	Symbol symbols.SymbolID
	Params []Param
	Body   *Block
}

func (LambdaData) exprData() {}

// DelegateCreateData holds data for ExprDelegateCreate.
type DelegateCreateData struct {
	Method   symbols.SymbolID
	Receiver *Expr // nil for static targets
}

func (DelegateCreateData) exprData() {}

// NewData holds data for ExprNew.
type NewData struct {
	Ctor symbols.SymbolID // NoSymbolID for the implicit parameterless constructor
	Args []*Expr
}

func (NewData) exprData() {}

// DefaultData holds data for ExprDefault.
type DefaultData struct{}

func (DefaultData) exprData() {}

// SequenceData holds data for ExprSequence.
type SequenceData struct {
	ID          NodeID
	Locals      []symbols.SymbolID
	SideEffects []*Expr
	Value       *Expr
}

func (SequenceData) exprData() {}

// NullCoalesceData holds data for ExprNullCoalesce.
type NullCoalesceData struct {
	Left  *Expr
	Right *Expr
}

func (NullCoalesceData) exprData() {}

// ConditionalData holds data for ExprConditional.
type ConditionalData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (ConditionalData) exprData() {}

// RefData holds data for ExprRef.
type RefData struct {
	Operand *Expr
}

func (RefData) exprData() {}

// BadData holds data for ExprBad; Children keeps whatever could still be rewritten.
type BadData struct {
	Children []*Expr
}

func (BadData) exprData() {}

package hir

import (
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	// StmtLet represents a local declaration with an optional initializer.
	StmtLet StmtKind = iota
	// StmtExpr represents an expression statement.
	StmtExpr
	// StmtAssign represents assignment (lhs = rhs).
	StmtAssign
	// StmtReturn represents return statement.
	StmtReturn
	// StmtBreak represents break statement.
	StmtBreak
	// StmtContinue represents continue statement.
	StmtContinue
	// StmtIf represents if/else statement.
	StmtIf
	// StmtWhile represents while loop.
	StmtWhile
	// StmtFor represents a classic for loop; its locals are scoped to the loop.
	StmtFor
	// StmtBlock represents a nested block.
	StmtBlock
	// StmtTry represents try/catch/finally.
	StmtTry
	// StmtSwitch represents a switch statement whose sections share one scope.
	StmtSwitch
	// StmtLocalFunc declares a local function.
	StmtLocalFunc
)

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "Let"
	case StmtExpr:
		return "Expr"
	case StmtAssign:
		return "Assign"
	case StmtReturn:
		return "Return"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtFor:
		return "For"
	case StmtBlock:
		return "Block"
	case StmtTry:
		return "Try"
	case StmtSwitch:
		return "Switch"
	case StmtLocalFunc:
		return "LocalFunc"
	default:
		return "Unknown"
	}
}

// Stmt represents an HIR statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData // Kind-specific payload
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

// LetData holds data for StmtLet.
type LetData struct {
	Name     string
	SymbolID symbols.SymbolID
	Type     types.TypeID
	Value    *Expr // nil if none
}

func (LetData) stmtData() {}

// ExprStmtData holds data for StmtExpr.
type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

// AssignData holds data for StmtAssign.
type AssignData struct {
	Target *Expr // LHS
	Value  *Expr // RHS
}

func (AssignData) stmtData() {}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr // nil for bare return
}

func (ReturnData) stmtData() {}

// BreakData holds data for StmtBreak.
type BreakData struct{}

func (BreakData) stmtData() {}

// ContinueData holds data for StmtContinue.
type ContinueData struct{}

func (ContinueData) stmtData() {}

// IfStmtData holds data for StmtIf.
type IfStmtData struct {
	Cond *Expr
	Then *Block
	Else *Block // nil if no else branch
}

func (IfStmtData) stmtData() {}

// WhileData holds data for StmtWhile.
type WhileData struct {
	Cond *Expr
	Body *Block
}

func (WhileData) stmtData() {}

// ForData holds data for StmtFor.
type ForData struct {
	ID     NodeID
	Locals []symbols.SymbolID // loop variables declared by Init
	Init   *Stmt              // nil if none
	Cond   *Expr              // nil if none
	Post   *Expr              // nil if none
	Body   *Block
}

func (ForData) stmtData() {}

// BlockStmtData holds data for StmtBlock.
type BlockStmtData struct {
	Block *Block
}

func (BlockStmtData) stmtData() {}

// CatchClause is one catch handler; Local is the exception variable, if any.
type CatchClause struct {
	ID    NodeID
	Local symbols.SymbolID
	Type  types.TypeID
	Body  *Block
	Span  source.Span
}

// TryData holds data for StmtTry.
type TryData struct {
	Body    *Block
	Catches []CatchClause
	Finally *Block // nil if none
}

func (TryData) stmtData() {}

// SwitchSection is a group of case labels sharing a statement list.
type SwitchSection struct {
	Labels []*Expr // empty for default
	Body   []Stmt
}

// SwitchData holds data for StmtSwitch.
type SwitchData struct {
	ID       NodeID
	Locals   []symbols.SymbolID
	Value    *Expr
	Sections []SwitchSection
}

func (SwitchData) stmtData() {}

// LocalFuncData holds data for StmtLocalFunc.
type LocalFuncData struct {
	ID     NodeID
	Symbol symbols.SymbolID
	Params []Param
	Body   *Block
}

func (LocalFuncData) stmtData() {}

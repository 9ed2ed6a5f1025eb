//nolint:errcheck // Type assertions are checked by construction; Kind implies the Data payload type.
package hir

import (
	"fmt"
	"io"
	"strings"

	"closconv/internal/symbols"
	"closconv/internal/types"
)

// Printer is used to dump HIR to text format.
type Printer struct {
	w        io.Writer
	interner *types.Interner
	syms     *symbols.Table
	indent   int
	err      error
}

// NewPrinter creates a new HIR printer. interner and syms may be nil.
func NewPrinter(w io.Writer, interner *types.Interner, syms *symbols.Table) *Printer {
	return &Printer{w: w, interner: interner, syms: syms}
}

// Dump writes the HIR module to the writer.
func Dump(w io.Writer, m *Module) error {
	p := NewPrinter(w, m.TypeInterner, m.Symbols)
	return p.PrintModule(m)
}

// PrintModule prints a complete module.
func (p *Printer) PrintModule(m *Module) error {
	p.printf("module %s\n", m.Name)
	if m.Path != "" {
		p.printf("  path: %s\n", m.Path)
	}
	p.printf("\n")

	for _, td := range m.Types {
		p.printf("type %s <%s> (sym=%d, type=%d)\n", td.Name, td.Kind, td.SymbolID, td.TypeID)
		if p.interner != nil {
			for _, f := range p.interner.Fields(td.TypeID) {
				static := ""
				if f.Static {
					static = "static "
				}
				p.printf("  %sfield %s: %s\n", static, f.Name, p.typeStr(f.Type))
			}
		}
	}
	if len(m.Types) > 0 {
		p.printf("\n")
	}

	for _, f := range m.Funcs {
		if err := p.PrintFunc(f); err != nil {
			return err
		}
		p.printf("\n")
	}
	return p.err
}

// PrintFunc prints a function.
func (p *Printer) PrintFunc(f *Func) error {
	p.printf("%sfn %s(", f.Flags, f.Name)
	p.printParams(f.Params)
	p.printf(") -> %s", p.typeStr(f.Result))
	if f.Body == nil {
		p.printf("\n")
		return p.err
	}
	p.printf(" ")
	p.printBlock(f.Body)
	p.printf("\n")
	return p.err
}

func (p *Printer) printParams(params []Param) {
	for i, param := range params {
		if i > 0 {
			p.printf(", ")
		}
		if param.ByRef {
			p.printf("ref ")
		}
		p.printf("%s: %s", param.Name, p.typeStr(param.Type))
	}
}

func (p *Printer) printBlock(b *Block) {
	p.printf("{")
	if len(b.Locals) > 0 {
		p.printf(" // locals:")
		for _, l := range b.Locals {
			p.printf(" %s", p.symName(l))
		}
	}
	p.printf("\n")
	p.indent++
	for i := range b.Stmts {
		p.printStmt(&b.Stmts[i])
	}
	p.indent--
	p.printIndent()
	p.printf("}")
}

func (p *Printer) printStmt(s *Stmt) {
	p.printIndent()
	p.printStmtInline(s)
	p.printf("\n")
}

func (p *Printer) printStmtInline(s *Stmt) {
	switch s.Kind {
	case StmtLet:
		data := s.Data.(LetData)
		p.printf("let %s: %s", data.Name, p.typeStr(data.Type))
		if data.Value != nil {
			p.printf(" = ")
			p.printExpr(data.Value)
		}

	case StmtExpr:
		p.printExpr(s.Data.(ExprStmtData).Expr)

	case StmtAssign:
		data := s.Data.(AssignData)
		p.printExpr(data.Target)
		p.printf(" = ")
		p.printExpr(data.Value)

	case StmtReturn:
		data := s.Data.(ReturnData)
		p.printf("return")
		if data.Value != nil {
			p.printf(" ")
			p.printExpr(data.Value)
		}

	case StmtBreak:
		p.printf("break")

	case StmtContinue:
		p.printf("continue")

	case StmtIf:
		data := s.Data.(IfStmtData)
		p.printf("if ")
		p.printExpr(data.Cond)
		p.printf(" ")
		p.printBlock(data.Then)
		if data.Else != nil {
			p.printf(" else ")
			p.printBlock(data.Else)
		}

	case StmtWhile:
		data := s.Data.(WhileData)
		p.printf("while ")
		p.printExpr(data.Cond)
		p.printf(" ")
		p.printBlock(data.Body)

	case StmtFor:
		data := s.Data.(ForData)
		p.printf("for ")
		if data.Init != nil {
			p.printStmtInline(data.Init)
		}
		p.printf("; ")
		if data.Cond != nil {
			p.printExpr(data.Cond)
		}
		p.printf("; ")
		if data.Post != nil {
			p.printExpr(data.Post)
		}
		p.printf(" ")
		p.printBlock(data.Body)

	case StmtBlock:
		p.printBlock(s.Data.(BlockStmtData).Block)

	case StmtTry:
		data := s.Data.(TryData)
		p.printf("try ")
		p.printBlock(data.Body)
		for _, c := range data.Catches {
			p.printf(" catch")
			if c.Local.IsValid() {
				p.printf(" (%s: %s)", p.symName(c.Local), p.typeStr(c.Type))
			}
			p.printf(" ")
			p.printBlock(c.Body)
		}
		if data.Finally != nil {
			p.printf(" finally ")
			p.printBlock(data.Finally)
		}

	case StmtSwitch:
		data := s.Data.(SwitchData)
		p.printf("switch ")
		p.printExpr(data.Value)
		p.printf(" {\n")
		p.indent++
		for _, sec := range data.Sections {
			p.printIndent()
			if len(sec.Labels) == 0 {
				p.printf("default:\n")
			}
			for i, l := range sec.Labels {
				if i > 0 {
					p.printIndent()
				}
				p.printf("case ")
				p.printExpr(l)
				p.printf(":\n")
			}
			p.indent++
			for i := range sec.Body {
				p.printStmt(&sec.Body[i])
			}
			p.indent--
		}
		p.indent--
		p.printIndent()
		p.printf("}")

	case StmtLocalFunc:
		data := s.Data.(LocalFuncData)
		p.printf("local fn %s(", p.symName(data.Symbol))
		p.printParams(data.Params)
		p.printf(") ")
		p.printBlock(data.Body)

	default:
		p.printf("<unknown stmt %s>", s.Kind)
	}
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}
	switch e.Kind {
	case ExprLiteral:
		data := e.Data.(LiteralData)
		switch data.Kind {
		case LiteralInt:
			p.printf("%d", data.IntValue)
		case LiteralBool:
			p.printf("%t", data.BoolValue)
		case LiteralString:
			p.printf("%q", data.StringValue)
		case LiteralNull:
			p.printf("null")
		}

	case ExprVarRef:
		p.printf("%s", e.Data.(VarRefData).Name)

	case ExprThis:
		p.printf("this")

	case ExprBase:
		p.printf("base")

	case ExprUnaryOp:
		data := e.Data.(UnaryOpData)
		p.printf("%s", data.Op)
		p.printExpr(data.Operand)

	case ExprBinaryOp:
		data := e.Data.(BinaryOpData)
		p.printf("(")
		p.printExpr(data.Left)
		p.printf(" %s ", data.Op)
		p.printExpr(data.Right)
		p.printf(")")

	case ExprAssign:
		data := e.Data.(AssignExprData)
		p.printf("(")
		p.printExpr(data.Target)
		p.printf(" = ")
		p.printExpr(data.Value)
		p.printf(")")

	case ExprCall:
		data := e.Data.(CallData)
		if data.Receiver != nil {
			p.printExpr(data.Receiver)
			p.printf(".")
		}
		p.printf("%s(", p.symName(data.Method))
		p.printExprList(data.Args)
		p.printf(")")

	case ExprFieldAccess:
		data := e.Data.(FieldAccessData)
		if data.Receiver != nil {
			p.printExpr(data.Receiver)
		} else {
			p.printf("%s", p.typeStr(p.fieldOwnerType(data.Field)))
		}
		p.printf(".%s", data.Name)

	case ExprLambda:
		data := e.Data.(LambdaData)
		p.printf("lambda %s(", p.symName(data.Symbol))
		p.printParams(data.Params)
		p.printf(") ")
		p.printBlock(data.Body)

	case ExprDelegateCreate:
		data := e.Data.(DelegateCreateData)
		p.printf("new %s(", p.typeStr(e.Type))
		if data.Receiver != nil {
			p.printExpr(data.Receiver)
		} else {
			p.printf("null")
		}
		p.printf(", %s)", p.symName(data.Method))

	case ExprNew:
		data := e.Data.(NewData)
		p.printf("new %s(", p.typeStr(e.Type))
		p.printExprList(data.Args)
		p.printf(")")

	case ExprDefault:
		p.printf("default(%s)", p.typeStr(e.Type))

	case ExprSequence:
		data := e.Data.(SequenceData)
		p.printf("seq(")
		for _, l := range data.Locals {
			p.printf("%s; ", p.symName(l))
		}
		for _, se := range data.SideEffects {
			p.printExpr(se)
			p.printf("; ")
		}
		p.printExpr(data.Value)
		p.printf(")")

	case ExprNullCoalesce:
		data := e.Data.(NullCoalesceData)
		p.printExpr(data.Left)
		p.printf(" ?? ")
		p.printExpr(data.Right)

	case ExprConditional:
		data := e.Data.(ConditionalData)
		p.printf("(")
		p.printExpr(data.Cond)
		p.printf(" ? ")
		p.printExpr(data.Then)
		p.printf(" : ")
		p.printExpr(data.Else)
		p.printf(")")

	case ExprRef:
		p.printf("ref ")
		p.printExpr(e.Data.(RefData).Operand)

	case ExprBad:
		data := e.Data.(BadData)
		p.printf("<bad>(")
		p.printExprList(data.Children)
		p.printf(")")

	default:
		p.printf("<unknown expr %s>", e.Kind)
	}
}

func (p *Printer) printExprList(list []*Expr) {
	for i, e := range list {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(e)
	}
}

func (p *Printer) printIndent() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}

func (p *Printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) typeStr(id types.TypeID) string {
	if id == types.NoTypeID {
		return "void"
	}
	if p.interner == nil {
		return fmt.Sprintf("type#%d", id)
	}
	return p.interner.Name(id)
}

func (p *Printer) symName(id symbols.SymbolID) string {
	if p.syms == nil {
		return fmt.Sprintf("sym#%d", id)
	}
	return p.syms.Name(id)
}

func (p *Printer) fieldOwnerType(field symbols.SymbolID) types.TypeID {
	if p.syms == nil {
		return types.NoTypeID
	}
	f, ok := p.syms.Get(field)
	if !ok {
		return types.NoTypeID
	}
	owner, ok := p.syms.Get(f.Owner)
	if !ok {
		return types.NoTypeID
	}
	return owner.Type
}

// BlockString renders a block.
func BlockString(b *Block, interner *types.Interner, syms *symbols.Table) string {
	var sb strings.Builder
	p := NewPrinter(&sb, interner, syms)
	p.printBlock(b)
	return sb.String()
}

//nolint:errcheck // Kind implies the Data payload type.
package hir

// Node is one of *Block, *Stmt, *Expr or *CatchClause.
type Node interface{}

// Inspect traverses the block in depth-first order. If fn returns false the
// children of the current node are skipped. Lambda and local function bodies
// are visited like any other block.
func Inspect(b *Block, fn func(Node) bool) {
	inspectBlock(b, fn)
}

func inspectBlock(b *Block, fn func(Node) bool) {
	if b == nil || !fn(b) {
		return
	}
	for i := range b.Stmts {
		inspectStmt(&b.Stmts[i], fn)
	}
}

func inspectStmt(s *Stmt, fn func(Node) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch s.Kind {
	case StmtLet:
		inspectExpr(s.Data.(LetData).Value, fn)
	case StmtExpr:
		inspectExpr(s.Data.(ExprStmtData).Expr, fn)
	case StmtAssign:
		data := s.Data.(AssignData)
		inspectExpr(data.Target, fn)
		inspectExpr(data.Value, fn)
	case StmtReturn:
		inspectExpr(s.Data.(ReturnData).Value, fn)
	case StmtIf:
		data := s.Data.(IfStmtData)
		inspectExpr(data.Cond, fn)
		inspectBlock(data.Then, fn)
		inspectBlock(data.Else, fn)
	case StmtWhile:
		data := s.Data.(WhileData)
		inspectExpr(data.Cond, fn)
		inspectBlock(data.Body, fn)
	case StmtFor:
		data := s.Data.(ForData)
		inspectStmt(data.Init, fn)
		inspectExpr(data.Cond, fn)
		inspectExpr(data.Post, fn)
		inspectBlock(data.Body, fn)
	case StmtBlock:
		inspectBlock(s.Data.(BlockStmtData).Block, fn)
	case StmtTry:
		data := s.Data.(TryData)
		inspectBlock(data.Body, fn)
		for i := range data.Catches {
			c := &data.Catches[i]
			if fn(c) {
				inspectBlock(c.Body, fn)
			}
		}
		inspectBlock(data.Finally, fn)
	case StmtSwitch:
		data := s.Data.(SwitchData)
		inspectExpr(data.Value, fn)
		for _, sec := range data.Sections {
			for _, l := range sec.Labels {
				inspectExpr(l, fn)
			}
			for i := range sec.Body {
				inspectStmt(&sec.Body[i], fn)
			}
		}
	case StmtLocalFunc:
		inspectBlock(s.Data.(LocalFuncData).Body, fn)
	}
}

func inspectExpr(e *Expr, fn func(Node) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch e.Kind {
	case ExprUnaryOp:
		inspectExpr(e.Data.(UnaryOpData).Operand, fn)
	case ExprBinaryOp:
		data := e.Data.(BinaryOpData)
		inspectExpr(data.Left, fn)
		inspectExpr(data.Right, fn)
	case ExprAssign:
		data := e.Data.(AssignExprData)
		inspectExpr(data.Target, fn)
		inspectExpr(data.Value, fn)
	case ExprCall:
		data := e.Data.(CallData)
		inspectExpr(data.Receiver, fn)
		for _, a := range data.Args {
			inspectExpr(a, fn)
		}
	case ExprFieldAccess:
		inspectExpr(e.Data.(FieldAccessData).Receiver, fn)
	case ExprLambda:
		inspectBlock(e.Data.(LambdaData).Body, fn)
	case ExprDelegateCreate:
		inspectExpr(e.Data.(DelegateCreateData).Receiver, fn)
	case ExprNew:
		for _, a := range e.Data.(NewData).Args {
			inspectExpr(a, fn)
		}
	case ExprSequence:
		data := e.Data.(SequenceData)
		for _, se := range data.SideEffects {
			inspectExpr(se, fn)
		}
		inspectExpr(data.Value, fn)
	case ExprNullCoalesce:
		data := e.Data.(NullCoalesceData)
		inspectExpr(data.Left, fn)
		inspectExpr(data.Right, fn)
	case ExprConditional:
		data := e.Data.(ConditionalData)
		inspectExpr(data.Cond, fn)
		inspectExpr(data.Then, fn)
		inspectExpr(data.Else, fn)
	case ExprRef:
		inspectExpr(e.Data.(RefData).Operand, fn)
	case ExprBad:
		for _, c := range e.Data.(BadData).Children {
			inspectExpr(c, fn)
		}
	}
}

// ScopeNodeID returns the scope identity of a scope-owning node, if any.
func ScopeNodeID(n Node) (NodeID, bool) {
	switch n := n.(type) {
	case *Block:
		return n.ID, n.ID.IsValid()
	case *CatchClause:
		return n.ID, n.ID.IsValid()
	case *Stmt:
		switch n.Kind {
		case StmtFor:
			id := n.Data.(ForData).ID
			return id, id.IsValid()
		case StmtSwitch:
			id := n.Data.(SwitchData).ID
			return id, id.IsValid()
		}
	case *Expr:
		if n.Kind == ExprSequence {
			id := n.Data.(SequenceData).ID
			return id, id.IsValid()
		}
	}
	return NoNodeID, false
}

// MaxNodeID returns the largest NodeID found in the block.
func MaxNodeID(b *Block) NodeID {
	var maxID NodeID
	Inspect(b, func(n Node) bool {
		id, ok := ScopeNodeID(n)
		if !ok {
			if e, isExpr := n.(*Expr); isExpr && e.Kind == ExprLambda {
				id = e.Data.(LambdaData).ID
			} else if s, isStmt := n.(*Stmt); isStmt && s.Kind == StmtLocalFunc {
				id = s.Data.(LocalFuncData).ID
			}
		}
		if id > maxID {
			maxID = id
		}
		return true
	})
	return maxID
}

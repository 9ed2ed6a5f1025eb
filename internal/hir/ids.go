// Package hir provides the typed bound tree consumed by the lowering passes.
//
// Every expression carries a TypeID and every symbol reference is already
// resolved to a SymbolID. Nodes that introduce a lexical scope (blocks, catch
// clauses, switch statements, sequences, for loops, lambdas and local
// functions) carry a NodeID that stays stable across rewrites and is used as an
// identity key by the closure pass and by the debug-id allocator.
package hir

// NodeID is a generic HIR node identifier.
type NodeID uint32

// NoNodeID marks nodes created by lowering that have no syntax origin.
const NoNodeID NodeID = 0

// IsValid returns true if the ID is valid (non-zero).
func (id NodeID) IsValid() bool { return id != NoNodeID }

// NodeIDs hands out fresh node identifiers.
type NodeIDs struct {
	next NodeID
}

// NewNodeIDs starts allocation after the given id.
func NewNodeIDs(after NodeID) *NodeIDs {
	return &NodeIDs{next: after}
}

// Next returns a fresh identifier.
func (g *NodeIDs) Next() NodeID {
	g.next++
	return g.next
}

// Last returns the most recently allocated identifier.
func (g *NodeIDs) Last() NodeID { return g.next }

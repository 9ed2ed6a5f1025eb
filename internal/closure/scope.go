package closure

import (
	"fortio.org/safecast"

	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// ScopeID indexes Analysis scopes; 0 is "no scope".
type ScopeID uint32

// ClosureID indexes Analysis closures; 0 is "no closure".
type ClosureID uint32

// EnvID indexes Analysis environments; 0 is "no environment".
type EnvID uint32

const (
	NoScopeID   ScopeID   = 0
	NoClosureID ClosureID = 0
	NoEnvID     EnvID     = 0
)

func (id ScopeID) IsValid() bool   { return id != NoScopeID }
func (id ClosureID) IsValid() bool { return id != NoClosureID }
func (id EnvID) IsValid() bool     { return id != NoEnvID }

// Scope is one node of the lexical scope tree.
type Scope struct {
	Parent   ScopeID
	Children []ScopeID
	// Closures declared directly in this scope.
	Closures []ClosureID
	// DeclaredVariables are the captured variables declared here, in capture order.
	DeclaredVariables *symSet
	Node              hir.NodeID
	Span              source.Span
	// ContainingClosure is the closure whose body encloses this scope.
	ContainingClosure ClosureID
	// BodyOf is set on the scope that is the body of a closure.
	BodyOf       ClosureID
	Quoted       bool // inside an expression-tree lambda
	Environments []EnvID

	quotedRoot bool
}

// ClosureKind says where the synthesized method of a closure lives.
type ClosureKind uint8

const (
	// ClosureGeneral closures live on an environment or take struct environments by reference.
	ClosureGeneral ClosureKind = iota
	// ClosureThisOnly closures capture only this and become instance methods of the containing type.
	ClosureThisOnly
	// ClosureStatic closures capture nothing and are only called directly.
	ClosureStatic
	// ClosureSingleton closures capture nothing and are converted to delegates.
	ClosureSingleton
)

func (k ClosureKind) String() string {
	switch k {
	case ClosureGeneral:
		return "general"
	case ClosureThisOnly:
		return "this-only"
	case ClosureStatic:
		return "static"
	case ClosureSingleton:
		return "singleton"
	default:
		return "unknown"
	}
}

// Closure is a lambda or a local function.
type Closure struct {
	Symbol      symbols.SymbolID
	Node        hir.NodeID
	IsLocalFunc bool
	Params      []hir.Param
	Body        *hir.Block
	Type        types.TypeID // delegate type of a lambda
	Span        source.Span

	CapturedVariables     *symSet
	CapturedEnvironments  []EnvID
	ContainingEnvironment EnvID
	// StructEnvironments are passed by reference, outer to inner.
	StructEnvironments []EnvID
	CapturesThis       bool

	DeclScope ScopeID
	BodyScope ScopeID
	// Placement is the innermost scope declaring something the closure
	// captures; Outermost the last one. NoScopeID in Outermost means the
	// captures reach the top-level this.
	Placement ScopeID
	Outermost ScopeID
	Kind      ClosureKind

	DebugID     symbols.DebugID
	Synthesized symbols.SymbolID
	SynthThis   symbols.SymbolID
	// Container is the type the synthesized method is declared on.
	Container     symbols.SymbolID
	ContainerType types.TypeID
	ContainerEnv  EnvID
	IsStatic      bool
	ParamMap      map[symbols.SymbolID]symbols.SymbolID
	StructParams  []symbols.SymbolID
	Result        types.TypeID
}

// HasPlacement reports whether the closure was placed on a scope.
func (c *Closure) HasPlacement() bool { return c.Placement.IsValid() }

// Environment is a synthesized display class or struct holding the captured
// variables of one scope.
type Environment struct {
	Scope             ScopeID
	Node              hir.NodeID
	CapturedVariables []symbols.SymbolID
	IsStruct          bool
	CapturesParent    bool
	ParentEnv         EnvID
	ParentIsThis      bool
	ParentType        types.TypeID

	DebugID     symbols.DebugID
	Name        string
	Type        types.TypeID
	TypeSym     symbols.SymbolID
	Fields      map[symbols.SymbolID]symbols.SymbolID
	ParentField symbols.SymbolID

	caches map[ClosureID]symbols.SymbolID
}

// Analysis is the scope tree of one method together with everything computed
// about it. It is owned by a single goroutine.
type Analysis struct {
	Func *hir.Func
	Root ScopeID

	sess *Session
	rep  diag.Reporter

	scopes   []Scope
	closures []Closure
	envs     []Environment

	scopeByNode   map[hir.NodeID]ScopeID
	closureByNode map[hir.NodeID]ClosureID
	declScope     map[symbols.SymbolID]ScopeID
	envByScope    map[ScopeID]EnvID

	// ConvertedToDelegate holds local functions used as delegates.
	ConvertedToDelegate map[symbols.SymbolID]struct{}
	NeedsParentFrame    scopeSet
	StructIncompatible  scopeSet
	envScopes           scopeSet

	badRefs    map[*hir.Expr]struct{}
	badLambdas map[hir.NodeID]struct{}
	quoted     map[hir.NodeID]ScopeID

	methodKey string
	methodID  symbols.DebugID
	singleton *Singleton
	newSingle bool
	freed     bool
}

func newAnalysis(fn *hir.Func, sess *Session, rep diag.Reporter) *Analysis {
	return &Analysis{
		Func:                fn,
		sess:                sess,
		rep:                 rep,
		scopes:              make([]Scope, 1, 16),
		closures:            make([]Closure, 1, 8),
		envs:                make([]Environment, 1, 8),
		scopeByNode:         make(map[hir.NodeID]ScopeID),
		closureByNode:       make(map[hir.NodeID]ClosureID),
		declScope:           make(map[symbols.SymbolID]ScopeID),
		envByScope:          make(map[ScopeID]EnvID),
		ConvertedToDelegate: make(map[symbols.SymbolID]struct{}),
		NeedsParentFrame:    newScopeSet(),
		StructIncompatible:  newScopeSet(),
		badRefs:             make(map[*hir.Expr]struct{}),
		badLambdas:          make(map[hir.NodeID]struct{}),
		quoted:              make(map[hir.NodeID]ScopeID),
		methodKey:           sess.MethodKey(fn),
	}
}

// Free returns pooled collections. The analysis must not be used afterwards.
func (an *Analysis) Free() {
	if an == nil || an.freed {
		return
	}
	an.freed = true
	for i := range an.scopes {
		freeSymSet(an.scopes[i].DeclaredVariables)
		an.scopes[i].DeclaredVariables = nil
	}
	for i := range an.closures {
		freeSymSet(an.closures[i].CapturedVariables)
		an.closures[i].CapturedVariables = nil
	}
	freeScopeSet(an.NeedsParentFrame)
	freeScopeSet(an.StructIncompatible)
	freeScopeSet(an.envScopes)
	an.NeedsParentFrame = nil
	an.StructIncompatible = nil
	an.envScopes = nil
}

func (an *Analysis) slot(n int) uint32 {
	value, err := safecast.Conv[uint32](n)
	if err != nil {
		internalf(an.methodKey, "arena overflow: %v", err)
	}
	return value
}

func (an *Analysis) newScope(parent ScopeID, node hir.NodeID, span source.Span) ScopeID {
	id := ScopeID(an.slot(len(an.scopes)))
	sc := Scope{
		Parent:            parent,
		Node:              node,
		Span:              span,
		DeclaredVariables: newSymSet(),
	}
	if parent.IsValid() {
		p := &an.scopes[parent]
		sc.ContainingClosure = p.ContainingClosure
		sc.Quoted = p.Quoted
		p.Children = append(p.Children, id)
	}
	an.scopes = append(an.scopes, sc)
	if node.IsValid() {
		an.scopeByNode[node] = id
	}
	return id
}

func (an *Analysis) newClosure(c Closure) ClosureID {
	id := ClosureID(an.slot(len(an.closures)))
	c.CapturedVariables = newSymSet()
	an.closures = append(an.closures, c)
	if c.Node.IsValid() {
		an.closureByNode[c.Node] = id
	}
	return id
}

func (an *Analysis) newEnv(env Environment) EnvID {
	id := EnvID(an.slot(len(an.envs)))
	an.envs = append(an.envs, env)
	an.envByScope[env.Scope] = id
	return id
}

// Scope returns the scope with the given id.
func (an *Analysis) Scope(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(an.scopes) {
		return nil
	}
	return &an.scopes[id]
}

// Closure returns the closure with the given id.
func (an *Analysis) Closure(id ClosureID) *Closure {
	if !id.IsValid() || int(id) >= len(an.closures) {
		return nil
	}
	return &an.closures[id]
}

// Environment returns the environment with the given id.
func (an *Analysis) Environment(id EnvID) *Environment {
	if !id.IsValid() || int(id) >= len(an.envs) {
		return nil
	}
	return &an.envs[id]
}

// ScopeCount returns the number of scopes, sentinel excluded.
func (an *Analysis) ScopeCount() int { return len(an.scopes) - 1 }

// ClosureCount returns the number of closures, sentinel excluded.
func (an *Analysis) ClosureCount() int { return len(an.closures) - 1 }

// EnvironmentCount returns the number of environments, sentinel excluded.
func (an *Analysis) EnvironmentCount() int { return len(an.envs) - 1 }

// ScopeOf returns the scope created for a scope-owning node.
func (an *Analysis) ScopeOf(node hir.NodeID) (ScopeID, bool) {
	id, ok := an.scopeByNode[node]
	return id, ok
}

// EnvironmentOf returns the environment materialized for a scope.
func (an *Analysis) EnvironmentOf(scope ScopeID) (EnvID, bool) {
	id, ok := an.envByScope[scope]
	return id, ok
}

// DeclaredVariables returns the captured variables declared in scope, in order.
func (an *Analysis) DeclaredVariables(scope ScopeID) []symbols.SymbolID {
	sc := an.Scope(scope)
	if sc == nil {
		return nil
	}
	return sc.DeclaredVariables.Items()
}

// CapturedVariables returns the direct captures of a closure, in order.
func (an *Analysis) CapturedVariables(id ClosureID) []symbols.SymbolID {
	c := an.Closure(id)
	if c == nil {
		return nil
	}
	return c.CapturedVariables.Items()
}

// isAncestor reports whether a is b or one of b's ancestors.
func (an *Analysis) isAncestor(a, b ScopeID) bool {
	for s := b; s.IsValid(); s = an.scopes[s].Parent {
		if s == a {
			return true
		}
	}
	return false
}

// findLocalFunc walks from scope outwards looking for the local function sym.
func (an *Analysis) findLocalFunc(from ScopeID, sym symbols.SymbolID) ClosureID {
	for s := from; s.IsValid(); s = an.scopes[s].Parent {
		for _, c := range an.scopes[s].Closures {
			if an.closures[c].Symbol == sym {
				return c
			}
		}
	}
	return NoClosureID
}

func (an *Analysis) isThis(sym symbols.SymbolID) bool {
	return sym.IsValid() && sym == an.Func.This
}

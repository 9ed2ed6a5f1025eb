package closure

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"closconv/internal/debugid"
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// DefaultMaxDepth bounds the nesting of statements and expressions a single
// method may have before Rewrite gives up with ErrStackGuard.
const DefaultMaxDepth = 512

// Options tune one Session.
type Options struct {
	MaxDepth       int  // 0 disables the depth guard
	CacheDelegates bool // emit delegate caches for singleton and looped closures
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth, CacheDelegates: true}
}

// IDAllocator hands out stable debug ids for synthesized names. Keys are the
// qualified method name and the HIR node of the closure or scope.
type IDAllocator interface {
	Method(key string) symbols.DebugID
	Closure(method string, node hir.NodeID) symbols.DebugID
	Environment(method string, node hir.NodeID) symbols.DebugID
}

// Session holds state shared by every method rewritten in one compilation.
// All methods are safe for concurrent use.
type Session struct {
	Types   *types.Interner
	Symbols *symbols.Table
	Synth   *symbols.Synthesizer
	IDs     IDAllocator
	Options Options

	mu         sync.Mutex
	singletons map[symbols.SymbolID]*Singleton
	keys       map[*hir.Func]string
	lastNode   hir.NodeID
}

// NewSession binds a session to the module's interner and symbol table.
// A nil allocator gets a fresh in-memory one.
func NewSession(in *types.Interner, table *symbols.Table, ids IDAllocator, opts Options) *Session {
	if ids == nil {
		ids = debugid.New()
	}
	return &Session{
		Types:      in,
		Symbols:    table,
		Synth:      symbols.NewSynthesizer(table, in),
		IDs:        ids,
		Options:    opts,
		singletons: make(map[symbols.SymbolID]*Singleton),
		keys:       make(map[*hir.Func]string),
	}
}

// MethodKeys returns the allocator keys of funcs in order. Overloads share a
// qualified name, so every repeat gets a "#N" suffix counted in module order.
func MethodKeys(table *symbols.Table, funcs []*hir.Func) []string {
	keys := make([]string, len(funcs))
	seen := make(map[string]int, len(funcs))
	for i, fn := range funcs {
		base := qualifiedMethod(table, fn)
		n := seen[base]
		seen[base] = n + 1
		keys[i] = base
		if n > 0 {
			keys[i] = base + "#" + strconv.Itoa(n)
		}
	}
	return keys
}

// RegisterMethods fixes the keys of funcs for the rest of the session and
// returns them in order.
func (s *Session) RegisterMethods(funcs []*hir.Func) []string {
	keys := MethodKeys(s.Symbols, funcs)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, fn := range funcs {
		s.keys[fn] = keys[i]
	}
	return keys
}

// MethodKey is the allocator key of fn: the registered one, or the qualified
// name for methods rewritten on their own.
func (s *Session) MethodKey(fn *hir.Func) string {
	s.mu.Lock()
	key, ok := s.keys[fn]
	s.mu.Unlock()
	if ok {
		return key
	}
	return qualifiedMethod(s.Symbols, fn)
}

func qualifiedMethod(table *symbols.Table, fn *hir.Func) string {
	if fn.Owner.IsValid() {
		return table.Name(fn.Owner) + "." + fn.Name
	}
	return fn.Name
}

// ReserveNodeIDs makes sure nodes created by the session are numbered after last.
func (s *Session) ReserveNodeIDs(last hir.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last > s.lastNode {
		s.lastNode = last
	}
}

// LastNodeID returns the highest node id handed out or reserved so far.
func (s *Session) LastNodeID() hir.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNode
}

func (s *Session) nextNodeID() hir.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNode++
	return s.lastNode
}

// Singleton is the shared static environment hosting capture-free closures
// that are converted to delegates.
type Singleton struct {
	TypeSym    symbols.SymbolID
	Type       types.TypeID
	Instance   symbols.SymbolID // static field holding the only instance
	StaticCtor *hir.Func

	mu     sync.Mutex
	caches map[string]symbols.SymbolID
}

// singleton returns the shared environment for fn's container, creating it
// on first use. Generic methods get their own. created is true for exactly
// one caller, which is responsible for emitting the type and its initializer.
func (s *Session) singleton(fn *hir.Func, method symbols.DebugID) (single *Singleton, created bool) {
	key := fn.Owner
	name := symbols.SingletonClassName
	if fn.IsGeneric() {
		key = fn.SymbolID
		name += "__" + strconv.Itoa(method.Ordinal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if single, ok := s.singletons[key]; ok {
		return single, false
	}

	typeSym, typeID := s.Synth.SynthesizeType(types.KindClass, name, fn.Owner, fn.IsGeneric())
	inst, err := s.Synth.SynthesizeField(typeSym, symbols.SingletonFieldName, typeID, true)
	if err != nil {
		internalf(fn.Name, "singleton instance field: %v", err)
	}
	ctorSym, _ := s.Synth.SynthesizeMethod(typeSym, ".cctor", nil, s.Types.Builtins().Void, symbols.FlagStatic|symbols.FlagStaticCtor)
	ctor := &hir.Func{
		Name:      ".cctor",
		SymbolID:  ctorSym,
		Owner:     typeSym,
		OwnerType: typeID,
		Result:    s.Types.Builtins().Void,
		Flags:     hir.FuncStatic | hir.FuncStaticCtor | hir.FuncSynthesized,
		Body: &hir.Block{Stmts: []hir.Stmt{{
			Kind: hir.StmtAssign,
			Data: hir.AssignData{
				Target: &hir.Expr{
					Kind: hir.ExprFieldAccess,
					Type: typeID,
					Data: hir.FieldAccessData{Field: inst, Name: symbols.SingletonFieldName},
				},
				Value: &hir.Expr{Kind: hir.ExprNew, Type: typeID, Data: hir.NewData{}},
			},
		}}},
	}
	single = &Singleton{
		TypeSym:    typeSym,
		Type:       typeID,
		Instance:   inst,
		StaticCtor: ctor,
		caches:     make(map[string]symbols.SymbolID),
	}
	s.singletons[key] = single
	return single, true
}

// Singletons returns the shared environments created so far, ordered by name.
func (s *Session) Singletons() []*Singleton {
	s.mu.Lock()
	out := make([]*Singleton, 0, len(s.singletons))
	for _, single := range s.singletons {
		out = append(out, single)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b *Singleton) int {
		return strings.Compare(s.qualifiedName(a.TypeSym), s.qualifiedName(b.TypeSym))
	})
	return out
}

func (s *Session) qualifiedName(id symbols.SymbolID) string {
	sym := s.Symbols.MustGet(id)
	if sym.Owner.IsValid() {
		return s.Symbols.Name(sym.Owner) + "." + sym.Name
	}
	return sym.Name
}

// cacheField returns the static delegate cache field named name, creating it
// once.
func (s *Session) cacheField(single *Singleton, name string, delegate types.TypeID) symbols.SymbolID {
	single.mu.Lock()
	defer single.mu.Unlock()
	if id, ok := single.caches[name]; ok {
		return id
	}
	id, err := s.Synth.SynthesizeField(single.TypeSym, name, delegate, true)
	if err != nil {
		internalf("", "static cache field %s: %v", name, err)
	}
	single.caches[name] = id
	return id
}

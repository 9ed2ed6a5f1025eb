package closure

import (
	"sync"

	"closconv/internal/symbols"
)

// symSet is an insertion-ordered set of symbols. Iteration order decides
// field layout, so it must never depend on map order.
type symSet struct {
	items []symbols.SymbolID
	index map[symbols.SymbolID]struct{}
}

var symSetPool = sync.Pool{
	New: func() any {
		return &symSet{index: make(map[symbols.SymbolID]struct{}, 8)}
	},
}

func newSymSet() *symSet {
	s, _ := symSetPool.Get().(*symSet) //nolint:errcheck // pool only stores *symSet
	return s
}

func freeSymSet(s *symSet) {
	if s == nil {
		return
	}
	s.items = s.items[:0]
	clear(s.index)
	symSetPool.Put(s)
}

// Add inserts id and reports whether it was new.
func (s *symSet) Add(id symbols.SymbolID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
	return true
}

func (s *symSet) Has(id symbols.SymbolID) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

func (s *symSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the symbols in insertion order. The slice is owned by the set.
func (s *symSet) Items() []symbols.SymbolID {
	if s == nil {
		return nil
	}
	return s.items
}

// scopeSet is a plain set of scopes; order never matters for it.
type scopeSet map[ScopeID]struct{}

func (s scopeSet) Add(id ScopeID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s scopeSet) Has(id ScopeID) bool {
	_, ok := s[id]
	return ok
}

var scopeSetPool = sync.Pool{
	New: func() any { return make(scopeSet, 16) },
}

func newScopeSet() scopeSet {
	s, _ := scopeSetPool.Get().(scopeSet) //nolint:errcheck // pool only stores scopeSet
	return s
}

func freeScopeSet(s scopeSet) {
	if s == nil {
		return
	}
	clear(s)
	scopeSetPool.Put(s)
}

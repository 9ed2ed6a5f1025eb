package symbols

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// Hints provide optional capacity suggestions for the symbol table arena.
type Hints struct{ Symbols uint }

// Table stores declared symbols in a compact slice-based arena.
//
// Closure conversion appends synthesized symbols while other methods are being
// rewritten, so every access goes through the lock and Get hands out copies.
type Table struct {
	mu   sync.RWMutex
	data []Symbol
}

// NewTable creates a symbol arena with optional capacity hint.
func NewTable(h Hints) *Table {
	capacity, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	if capacity == 0 {
		capacity = 64
	}
	return &Table{
		data: make([]Symbol, 1, capacity+1), // index 0 reserved for NoSymbolID
	}
}

// New allocates a symbol in the arena and returns its ID.
func (t *Table) New(sym *Symbol) SymbolID {
	if sym == nil {
		panic("symbols.New: nil symbol")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	value, err := safecast.Conv[uint32](len(t.data))
	if err != nil {
		panic(fmt.Errorf("symbols arena overflow: %w", err))
	}
	cp := *sym
	cp.Params = slices.Clone(sym.Params)
	t.data = append(t.data, cp)
	return SymbolID(value)
}

// Get returns a copy of the symbol or false for invalid ID.
func (t *Table) Get(id SymbolID) (Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !id.IsValid() || int(id) >= len(t.data) {
		return Symbol{}, false
	}
	sym := t.data[id]
	sym.Params = slices.Clone(sym.Params)
	return sym, true
}

// MustGet panics when id is not allocated.
func (t *Table) MustGet(id SymbolID) Symbol {
	sym, ok := t.Get(id)
	if !ok {
		panic(fmt.Sprintf("symbols: invalid SymbolID %d", id))
	}
	return sym
}

// Update applies fn to the stored symbol under the table lock.
func (t *Table) Update(id SymbolID, fn func(*Symbol)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !id.IsValid() || int(id) >= len(t.data) {
		return false
	}
	fn(&t.data[id])
	return true
}

// Name returns the symbol name or a placeholder for unknown ids.
func (t *Table) Name(id SymbolID) string {
	sym, ok := t.Get(id)
	if !ok {
		return fmt.Sprintf("<sym#%d>", id)
	}
	return sym.Name
}

// Len reports number of stored symbols excluding sentinel.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data) - 1
}

// Data returns a copy of the arena storage without the sentinel.
func (t *Table) Data() []Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.data) <= 1 {
		return nil
	}
	return slices.Clone(t.data[1:])
}

// FromData rebuilds a table from symbols previously returned by Data.
func FromData(data []Symbol) *Table {
	t := &Table{data: make([]Symbol, 1, len(data)+1)}
	t.data = append(t.data, data...)
	return t
}

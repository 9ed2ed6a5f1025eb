// Package debugid allocates the (ordinal, generation) pairs embedded in
// synthesized names and keeps them stable across runs.
//
// An Allocator loaded from a previous run returns the recorded ids for
// methods, closures and environments it has seen and numbers new ones after
// them, tagged with the next generation.
package debugid

import (
	"sync"

	"closconv/internal/hir"
	"closconv/internal/symbols"
)

type methodEntry struct {
	id          symbols.DebugID
	closures    map[hir.NodeID]symbols.DebugID
	envs        map[hir.NodeID]symbols.DebugID
	nextClosure int
	nextEnv     int
}

// Allocator is safe for concurrent use.
type Allocator struct {
	mu         sync.Mutex
	generation int
	methods    map[string]*methodEntry
	order      []string
	nextMethod int
	dirty      bool
}

// New returns an empty allocator at generation 0.
func New() *Allocator {
	return &Allocator{methods: make(map[string]*methodEntry)}
}

// Generation reports the generation new ids are tagged with.
func (a *Allocator) Generation() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// Dirty reports whether ids were allocated since the allocator was created or loaded.
func (a *Allocator) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Method returns the ordinal of the method identified by key.
func (a *Allocator) Method(key string) symbols.DebugID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.methodLocked(key).id
}

// Closure returns the id of the lambda or local function at node.
func (a *Allocator) Closure(method string, node hir.NodeID) symbols.DebugID {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.methodLocked(method)
	if id, ok := m.closures[node]; ok {
		return id
	}
	id := symbols.DebugID{Ordinal: m.nextClosure, Generation: a.generation}
	m.nextClosure++
	m.closures[node] = id
	a.dirty = true
	return id
}

// Environment returns the id of the environment for the scope at node.
func (a *Allocator) Environment(method string, node hir.NodeID) symbols.DebugID {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.methodLocked(method)
	if id, ok := m.envs[node]; ok {
		return id
	}
	id := symbols.DebugID{Ordinal: m.nextEnv, Generation: a.generation}
	m.nextEnv++
	m.envs[node] = id
	a.dirty = true
	return id
}

func (a *Allocator) methodLocked(key string) *methodEntry {
	if m, ok := a.methods[key]; ok {
		return m
	}
	m := &methodEntry{
		id:       symbols.DebugID{Ordinal: a.nextMethod, Generation: a.generation},
		closures: make(map[hir.NodeID]symbols.DebugID),
		envs:     make(map[hir.NodeID]symbols.DebugID),
	}
	a.nextMethod++
	a.methods[key] = m
	a.order = append(a.order, key)
	a.dirty = true
	return m
}

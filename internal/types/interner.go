package types

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Int     TypeID
	String  TypeID
	Object  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
//
// Nominal registration is guarded by a mutex because environment types are
// synthesized while several methods are rewritten concurrently.
type Interner struct {
	mu        sync.RWMutex
	types     []Type
	index     map[typeKey]TypeID
	builtins  Builtins
	nominals  []NominalInfo
	delegates []DelegateInfo
	wellKnown map[WellKnown]TypeID

	delegateIndex map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:     make(map[typeKey]TypeID, 64),
		wellKnown: make(map[WellKnown]TypeID),
	}
	in.nominals = append(in.nominals, NominalInfo{}) // reserve 0 as invalid sentinel
	in.delegates = append(in.delegates, DelegateInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Object = in.Intern(Type{Kind: KindObject})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.lookupLocked(id)
}

func (in *Interner) lookupLocked(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Len reports the number of interned descriptors including the sentinel.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

// ExprTree returns the quoted expression-tree type over a delegate type.
func (in *Interner) ExprTree(delegate TypeID) TypeID {
	return in.Intern(Type{Kind: KindExprTree, Elem: delegate})
}

// SetWellKnown registers the TypeID of a well-known runtime type.
func (in *Interner) SetWellKnown(w WellKnown, id TypeID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.wellKnown[w] = id
}

// WellKnownType returns the registered TypeID for w.
func (in *Interner) WellKnownType(w WellKnown) (TypeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.wellKnown[w]
	return id, ok && id != NoTypeID
}

// Kind is a shortcut for Lookup(id).Kind; unknown ids report KindInvalid.
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// IsValueType reports whether values of the type are copied on assignment.
func (in *Interner) IsValueType(id TypeID) bool {
	switch in.Kind(id) {
	case KindBool, KindInt, KindStruct, KindByRefLike:
		return true
	default:
		return false
	}
}

// IsByRefLike reports whether the type is restricted to the stack.
func (in *Interner) IsByRefLike(id TypeID) bool {
	return in.Kind(id) == KindByRefLike
}

// IsExprTree reports whether the type is a quoted expression tree.
func (in *Interner) IsExprTree(id TypeID) bool {
	return in.Kind(id) == KindExprTree
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Payload uint32
}

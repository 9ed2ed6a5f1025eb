package symbols

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"closconv/internal/types"
)

// Synthesizer creates compiler-generated types, fields, methods and locals
// and registers them in the shared symbol table and type interner.
type Synthesizer struct {
	Table *Table
	Types *types.Interner
}

// NewSynthesizer binds a synthesizer to the given table and interner.
func NewSynthesizer(table *Table, in *types.Interner) *Synthesizer {
	return &Synthesizer{Table: table, Types: in}
}

// SynthesizeType registers a nominal type and its type symbol.
func (s *Synthesizer) SynthesizeType(kind types.Kind, name string, owner SymbolID, generic bool) (SymbolID, types.TypeID) {
	name = normalizeName(name)
	typeID := s.Types.RegisterSynthesized(kind, name, generic)
	flags := FlagSynthesized
	if generic {
		flags |= FlagGeneric
	}
	sym := s.Table.New(&Symbol{
		Name:  name,
		Kind:  SymbolType,
		Flags: flags,
		Type:  typeID,
		Owner: owner,
	})
	return sym, typeID
}

// SynthesizeField adds a field to a synthesized type.
func (s *Synthesizer) SynthesizeField(typeSym SymbolID, name string, fieldType types.TypeID, static bool) (SymbolID, error) {
	owner, ok := s.Table.Get(typeSym)
	if !ok || owner.Kind != SymbolType {
		return NoSymbolID, fmt.Errorf("synthesize field %q: owner %d is not a type", name, typeSym)
	}
	name = normalizeName(name)
	idx, err := s.Types.AddField(owner.Type, types.Field{Name: name, Type: fieldType, Static: static})
	if err != nil {
		return NoSymbolID, fmt.Errorf("synthesize field: %w", err)
	}
	flags := FlagSynthesized
	if static {
		flags |= FlagStatic
	}
	return s.Table.New(&Symbol{
		Name:    name,
		Kind:    SymbolField,
		Flags:   flags,
		Type:    fieldType,
		Owner:   typeSym,
		Ordinal: idx,
	}), nil
}

// ParamSpec describes a parameter of a synthesized method.
type ParamSpec struct {
	Name  string
	Type  types.TypeID
	ByRef bool
}

// SynthesizeMethod creates a method symbol on owner together with fresh
// parameter symbols. Instance methods also get a this symbol, returned second.
func (s *Synthesizer) SynthesizeMethod(owner SymbolID, name string, params []ParamSpec, result types.TypeID, flags SymbolFlags) (method, this SymbolID) {
	method = s.Table.New(&Symbol{
		Name:   normalizeName(name),
		Kind:   SymbolMethod,
		Flags:  flags | FlagSynthesized,
		Owner:  owner,
		Result: result,
	})
	ids := make([]SymbolID, 0, len(params))
	for i, p := range params {
		pf := FlagSynthesized
		if p.ByRef {
			pf |= FlagByRef
		}
		ids = append(ids, s.Table.New(&Symbol{
			Name:    normalizeName(p.Name),
			Kind:    SymbolParam,
			Flags:   pf,
			Type:    p.Type,
			Owner:   method,
			Ordinal: i,
		}))
	}
	if flags&FlagStatic == 0 {
		var ownerType types.TypeID
		if o, ok := s.Table.Get(owner); ok {
			ownerType = o.Type
		}
		this = s.Table.New(&Symbol{
			Name:  "this",
			Kind:  SymbolThis,
			Flags: FlagSynthesized,
			Type:  ownerType,
			Owner: method,
		})
	}
	s.Table.Update(method, func(sym *Symbol) { sym.Params = ids })
	return method, this
}

// SynthesizeLocal creates a compiler temporary owned by method.
func (s *Synthesizer) SynthesizeLocal(method SymbolID, name string, typ types.TypeID) SymbolID {
	return s.Table.New(&Symbol{
		Name:  normalizeName(name),
		Kind:  SymbolLocal,
		Flags: FlagSynthesized,
		Type:  typ,
		Owner: method,
	})
}

func normalizeName(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}

package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"closconv/internal/source"
)

// Field describes a single field inside a nominal type.
type Field struct {
	Name   string
	Type   TypeID
	Static bool
}

// NominalInfo stores metadata for class, struct and ref struct types.
type NominalInfo struct {
	Name   string
	Decl   source.Span
	Fields []Field
	// Generic marks types declared inside a generic context.
	Generic bool
	// Synthesized marks types introduced by lowering (display classes).
	Synthesized bool
}

// RegisterClass allocates a nominal reference type.
func (in *Interner) RegisterClass(name string, decl source.Span) TypeID {
	return in.registerNominal(KindClass, NominalInfo{Name: name, Decl: decl})
}

// RegisterStruct allocates a nominal value type.
func (in *Interner) RegisterStruct(name string, decl source.Span) TypeID {
	return in.registerNominal(KindStruct, NominalInfo{Name: name, Decl: decl})
}

// RegisterByRefLike allocates a stack-only value type.
func (in *Interner) RegisterByRefLike(name string, decl source.Span) TypeID {
	return in.registerNominal(KindByRefLike, NominalInfo{Name: name, Decl: decl})
}

// RegisterSynthesized allocates a nominal type created by a lowering pass.
func (in *Interner) RegisterSynthesized(kind Kind, name string, generic bool) TypeID {
	if !kind.IsNominal() {
		panic(fmt.Sprintf("types: cannot synthesize %s", kind))
	}
	return in.registerNominal(kind, NominalInfo{Name: name, Generic: generic, Synthesized: true})
}

func (in *Interner) registerNominal(kind Kind, info NominalInfo) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.nominals = append(in.nominals, info)
	slot, err := safecast.Conv[uint32](len(in.nominals) - 1)
	if err != nil {
		panic(fmt.Errorf("nominal info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: kind, Payload: slot})
}

// AddField appends a field to a nominal type and returns its index.
func (in *Interner) AddField(typeID TypeID, field Field) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.nominalLocked(typeID)
	if info == nil {
		return -1, fmt.Errorf("types: %d is not a nominal type", typeID)
	}
	if slices.ContainsFunc(info.Fields, func(f Field) bool { return f.Name == field.Name }) {
		return -1, fmt.Errorf("types: duplicate field %q on %s", field.Name, info.Name)
	}
	info.Fields = append(info.Fields, field)
	return len(info.Fields) - 1, nil
}

// Nominal returns a copy of the metadata for a nominal TypeID.
func (in *Interner) Nominal(typeID TypeID) (NominalInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.nominalLocked(typeID)
	if info == nil {
		return NominalInfo{}, false
	}
	out := *info
	out.Fields = slices.Clone(info.Fields)
	return out, true
}

// Fields returns a copy of the fields declared on the type.
func (in *Interner) Fields(typeID TypeID) []Field {
	info, ok := in.Nominal(typeID)
	if !ok {
		return nil
	}
	return info.Fields
}

// FieldByName finds a declared field.
func (in *Interner) FieldByName(typeID TypeID, name string) (Field, bool) {
	for _, f := range in.Fields(typeID) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (in *Interner) nominalLocked(typeID TypeID) *NominalInfo {
	tt, ok := in.lookupLocked(typeID)
	if !ok || !tt.Kind.IsNominal() {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return nil
	}
	return &in.nominals[tt.Payload]
}

// Name renders a short human readable name for any TypeID.
func (in *Interner) Name(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindClass, KindStruct, KindByRefLike:
		info, _ := in.Nominal(id)
		return info.Name
	case KindDelegate:
		info, ok := in.DelegateInfo(id)
		if !ok {
			return "delegate"
		}
		s := "delegate("
		for i, p := range info.Params {
			if i > 0 {
				s += ", "
			}
			s += in.Name(p)
		}
		return s + ") " + in.Name(info.Result)
	case KindExprTree:
		return "Expression<" + in.Name(tt.Elem) + ">"
	default:
		return tt.Kind.String()
	}
}

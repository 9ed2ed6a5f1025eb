package types

import "slices"

// Snapshot is a flat, serializable copy of the interner state.
type Snapshot struct {
	Types     []Type               `msgpack:"types"`
	Nominals  []NominalInfo        `msgpack:"nominals"`
	Delegates []DelegateInfo       `msgpack:"delegates"`
	WellKnown map[WellKnown]TypeID `msgpack:"well_known"`
}

// Snapshot captures the interner contents. TypeIDs stay valid in the restored interner.
func (in *Interner) Snapshot() Snapshot {
	in.mu.RLock()
	defer in.mu.RUnlock()
	s := Snapshot{
		Types:     slices.Clone(in.types),
		Nominals:  make([]NominalInfo, len(in.nominals)),
		Delegates: make([]DelegateInfo, len(in.delegates)),
		WellKnown: make(map[WellKnown]TypeID, len(in.wellKnown)),
	}
	for i, n := range in.nominals {
		n.Fields = slices.Clone(n.Fields)
		s.Nominals[i] = n
	}
	for i, d := range in.delegates {
		s.Delegates[i] = DelegateInfo{Params: slices.Clone(d.Params), Result: d.Result}
	}
	for k, v := range in.wellKnown {
		s.WellKnown[k] = v
	}
	return s
}

// FromSnapshot rebuilds an interner from a snapshot.
func FromSnapshot(s *Snapshot) *Interner {
	in := NewInterner()
	if s == nil || len(s.Types) == 0 {
		return in
	}
	in.types = slices.Clone(s.Types)
	in.index = make(map[typeKey]TypeID, len(in.types))
	in.delegateIndex = make(map[string]TypeID, len(s.Delegates))
	in.nominals = slices.Clone(s.Nominals)
	if len(in.nominals) == 0 {
		in.nominals = append(in.nominals, NominalInfo{})
	}
	in.delegates = slices.Clone(s.Delegates)
	if len(in.delegates) == 0 {
		in.delegates = append(in.delegates, DelegateInfo{})
	}
	for i, tt := range in.types {
		id := TypeID(i) //nolint:gosec // bounded by the snapshot length
		switch tt.Kind {
		case KindClass, KindStruct, KindByRefLike:
			// nominal types are never deduplicated
		case KindDelegate:
			if int(tt.Payload) < len(in.delegates) {
				d := in.delegates[tt.Payload]
				in.delegateIndex[delegateKey(d.Params, d.Result)] = id
			}
		default:
			if _, ok := in.index[typeKey(tt)]; !ok {
				in.index[typeKey(tt)] = id
			}
		}
	}
	for k, v := range s.WellKnown {
		in.wellKnown[k] = v
	}
	in.builtins = Builtins{Invalid: 0}
	for i, tt := range in.types {
		id := TypeID(i) //nolint:gosec // bounded by the snapshot length
		switch tt.Kind {
		case KindVoid:
			in.builtins.Void = id
		case KindBool:
			in.builtins.Bool = id
		case KindInt:
			in.builtins.Int = id
		case KindString:
			in.builtins.String = id
		case KindObject:
			in.builtins.Object = id
		}
	}
	return in
}

package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// DelegateInfo stores the signature of a delegate type.
type DelegateInfo struct {
	Params []TypeID
	Result TypeID
}

// Delegate creates or finds a delegate type with the given signature.
func (in *Interner) Delegate(params []TypeID, result TypeID) TypeID {
	key := delegateKey(params, result)
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.delegateIndex == nil {
		in.delegateIndex = make(map[string]TypeID)
	}
	if id, ok := in.delegateIndex[key]; ok {
		return id
	}
	in.delegates = append(in.delegates, DelegateInfo{
		Params: slices.Clone(params),
		Result: result,
	})
	slot, err := safecast.Conv[uint32](len(in.delegates) - 1)
	if err != nil {
		panic(fmt.Errorf("delegate info overflow: %w", err))
	}
	id := in.internRaw(Type{Kind: KindDelegate, Payload: slot})
	in.delegateIndex[key] = id
	return id
}

// DelegateInfo retrieves delegate signature metadata by TypeID.
// Expression-tree types report the signature of the quoted delegate.
func (in *Interner) DelegateInfo(id TypeID) (DelegateInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	tt, ok := in.lookupLocked(id)
	if ok && tt.Kind == KindExprTree {
		tt, ok = in.lookupLocked(tt.Elem)
	}
	if !ok || tt.Kind != KindDelegate || int(tt.Payload) >= len(in.delegates) {
		return DelegateInfo{}, false
	}
	info := in.delegates[tt.Payload]
	return DelegateInfo{Params: slices.Clone(info.Params), Result: info.Result}, true
}

func delegateKey(params []TypeID, result TypeID) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(strconv.FormatUint(uint64(p), 10))
		b.WriteByte(',')
	}
	b.WriteByte('>')
	b.WriteString(strconv.FormatUint(uint64(result), 10))
	return b.String()
}

package symbols

import (
	"slices"
	"sync"
	"testing"

	"closconv/internal/types"
)

func TestTableReservesSentinel(t *testing.T) {
	table := NewTable(Hints{})
	if _, ok := table.Get(NoSymbolID); ok {
		t.Fatalf("sentinel must not resolve")
	}
	id := table.New(&Symbol{Name: "x", Kind: SymbolLocal})
	if !id.IsValid() {
		t.Fatalf("expected valid symbol ID")
	}
	if got := table.Name(id); got != "x" {
		t.Fatalf("expected name x, got %q", got)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 symbol, got %d", table.Len())
	}
}

func TestTableGetReturnsCopies(t *testing.T) {
	table := NewTable(Hints{})
	p := table.New(&Symbol{Name: "p", Kind: SymbolParam})
	m := table.New(&Symbol{Name: "M", Kind: SymbolMethod, Params: []SymbolID{p}})
	sym := table.MustGet(m)
	sym.Params[0] = NoSymbolID
	if again := table.MustGet(m); again.Params[0] != p {
		t.Fatalf("Get leaked arena storage")
	}
}

func TestFlagStrings(t *testing.T) {
	got := (FlagConst | FlagAsync | FlagByRef).Strings()
	want := []string{"const", "async", "ref"}
	if !slices.Equal(got, want) {
		t.Fatalf("flag labels = %v, want %v", got, want)
	}
	if !(FlagAsync | FlagIterator).Has(FlagIterator) {
		t.Fatalf("Has failed")
	}
}

func TestSynthesizeMethodCreatesParamsAndThis(t *testing.T) {
	table := NewTable(Hints{})
	in := types.NewInterner()
	syn := NewSynthesizer(table, in)
	envSym, envType := syn.SynthesizeType(types.KindClass, "<>c__DisplayClass0_0", NoSymbolID, false)
	if in.Kind(envType) != types.KindClass {
		t.Fatalf("expected class type")
	}
	field, err := syn.SynthesizeField(envSym, "x", in.Builtins().Int, false)
	if err != nil {
		t.Fatalf("SynthesizeField: %v", err)
	}
	if _, err := syn.SynthesizeField(envSym, "x", in.Builtins().Int, false); err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if table.MustGet(field).Owner != envSym {
		t.Fatalf("field owner mismatch")
	}
	method, this := syn.SynthesizeMethod(envSym, "<M>b__0_0", []ParamSpec{{Name: "a", Type: in.Builtins().Int}}, in.Builtins().Int, 0)
	msym := table.MustGet(method)
	if len(msym.Params) != 1 || !this.IsValid() {
		t.Fatalf("unexpected method %+v this=%d", msym, this)
	}
	if table.MustGet(this).Type != envType {
		t.Fatalf("this must have the environment type")
	}
	static, noThis := syn.SynthesizeMethod(envSym, "<M>b__0_1", nil, in.Builtins().Void, FlagStatic)
	if noThis.IsValid() || !table.MustGet(static).Flags.Has(FlagStatic|FlagSynthesized) {
		t.Fatalf("static method must not get a this symbol")
	}
}

func TestSynthesizeConcurrently(t *testing.T) {
	table := NewTable(Hints{})
	syn := NewSynthesizer(table, types.NewInterner())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sym, _ := syn.SynthesizeType(types.KindStruct, "S", NoSymbolID, false)
			if _, err := syn.SynthesizeField(sym, "f", syn.Types.Builtins().Int, false); err != nil {
				t.Errorf("SynthesizeField: %v", err)
			}
		}()
	}
	wg.Wait()
	if table.Len() != 16 {
		t.Fatalf("expected 16 symbols, got %d", table.Len())
	}
}

func TestGeneratedNames(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DisplayClassName(DebugID{Ordinal: 0}, DebugID{Ordinal: 1}), "<>c__DisplayClass0_1"},
		{LambdaMethodName("Main", DebugID{Ordinal: 2}, DebugID{Ordinal: 0, Generation: 1}), "<Main>b__2_0#1"},
		{LocalFunctionName("Main", "add", DebugID{}, DebugID{Ordinal: 3}), "<Main>g__add|0_3"},
		{ParentFieldName(true, 0), "<>4__this"},
		{ParentFieldName(false, 2), "CS$<>8__locals2"},
		{StaticCacheFieldName(DebugID{Ordinal: 1}, DebugID{Ordinal: 4}), "<>9__1_4"},
		{HoistedName("this"), "<>4__this"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

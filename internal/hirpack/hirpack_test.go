package hirpack_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"closconv/internal/hir"
	"closconv/internal/hirpack"
	"closconv/internal/testkit"
)

func dumpModule(t *testing.T, m *hir.Module) string {
	t.Helper()
	var buf bytes.Buffer
	if err := hir.Dump(&buf, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return buf.String()
}

func TestRoundTripPreservesModule(t *testing.T) {
	m := testkit.Sample()
	var buf bytes.Buffer
	if err := hirpack.Encode(&buf, m); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(buf.String(), hirpack.Magic) {
		t.Fatalf("pack does not start with the magic prefix")
	}
	got, err := hirpack.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if diff := cmp.Diff(dumpModule(t, m), dumpModule(t, got)); diff != "" {
		t.Fatalf("module dump changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Symbols.Data(), got.Symbols.Data(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("symbols changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.TypeInterner.Snapshot(), got.TypeInterner.Snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("types changed (-want +got):\n%s", diff)
	}
	if got.LastNodeID != m.LastNodeID {
		t.Fatalf("LastNodeID = %d, want %d", got.LastNodeID, m.LastNodeID)
	}
	if got.TypeInterner.Builtins() != m.TypeInterner.Builtins() {
		t.Fatalf("builtins differ after decode")
	}
}

func TestDecodeRejectsForeignInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "empty", input: nil},
		{name: "short", input: []byte("HI")},
		{name: "wrong magic", input: []byte("PACKxxxx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hirpack.Decode(bytes.NewReader(tt.input))
			if !errors.Is(err, hirpack.ErrNotPack) {
				t.Fatalf("expected ErrNotPack, got %v", err)
			}
		})
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := hirpack.Encode(&buf, testkit.Sample()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := buf.Bytes()
	if _, err := hirpack.Decode(bytes.NewReader(data[:len(data)/2])); err == nil {
		t.Fatalf("expected an error for a truncated pack")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sample.hirpack")
	m := testkit.Sample()
	if err := hirpack.Save(path, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := hirpack.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(dumpModule(t, m), dumpModule(t, got)); diff != "" {
		t.Fatalf("module dump changed (-want +got):\n%s", diff)
	}
	if got.Path != path {
		t.Fatalf("Path = %q, want %q", got.Path, path)
	}
}

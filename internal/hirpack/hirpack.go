// Package hirpack reads and writes HIR modules in a msgpack container.
//
// A pack carries everything the closure pass needs to run without the front
// end: the method bodies, the type declarations, the full symbol table and a
// snapshot of the type interner. SymbolIDs and TypeIDs are stored verbatim, so
// a decoded module is interchangeable with the one that was encoded.
package hirpack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// Magic prefixes every pack so foreign files fail fast.
const Magic = "HIRP"

const schemaVersion uint16 = 1

// ErrNotPack reports a file that does not start with Magic.
var ErrNotPack = errors.New("hirpack: not a hir pack")

type payload struct {
	Schema     uint16           `msgpack:"schema"`
	Name       string           `msgpack:"name"`
	Path       string           `msgpack:"path"`
	Funcs      []wireFunc       `msgpack:"funcs"`
	Types      []hir.TypeDecl   `msgpack:"types"`
	Interner   types.Snapshot   `msgpack:"interner"`
	Symbols    []symbols.Symbol `msgpack:"symbols"`
	LastNodeID hir.NodeID       `msgpack:"last_node_id"`
}

// Encode writes m to w.
func Encode(w io.Writer, m *hir.Module) error {
	if m == nil {
		return errors.New("hirpack: nil module")
	}
	p := payload{
		Schema:     schemaVersion,
		Name:       m.Name,
		Path:       m.Path,
		Funcs:      encoder{}.funcs(m.Funcs),
		Types:      m.Types,
		LastNodeID: m.LastNodeID,
	}
	if m.TypeInterner != nil {
		p.Interner = m.TypeInterner.Snapshot()
	}
	if m.Symbols != nil {
		p.Symbols = m.Symbols.Data()
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(&p); err != nil {
		return fmt.Errorf("hirpack: encode %s: %w", m.Name, err)
	}
	return nil
}

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*hir.Module, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotPack
		}
		return nil, err
	}
	if string(magic) != Magic {
		return nil, ErrNotPack
	}
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("hirpack: decode: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("hirpack: unsupported schema %d", p.Schema)
	}
	funcs, err := decoder{}.funcs(p.Funcs)
	if err != nil {
		return nil, fmt.Errorf("hirpack: %w", err)
	}
	m := &hir.Module{
		Name:         p.Name,
		Path:         p.Path,
		Funcs:        funcs,
		Types:        p.Types,
		TypeInterner: types.FromSnapshot(&p.Interner),
		Symbols:      symbols.FromData(p.Symbols),
		LastNodeID:   p.LastNodeID,
	}
	if maxID := maxNodeID(funcs); maxID > m.LastNodeID {
		m.LastNodeID = maxID
	}
	return m, nil
}

// Load decodes the pack stored at path.
func Load(path string) (*hir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Path == "" {
		m.Path = path
	}
	return m, nil
}

// Save writes m to path atomically.
func Save(path string, m *hir.Module) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".hirpack-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, m); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func maxNodeID(funcs []*hir.Func) hir.NodeID {
	var maxID hir.NodeID
	for _, f := range funcs {
		if id := hir.MaxNodeID(f.Body); id > maxID {
			maxID = id
		}
	}
	return maxID
}

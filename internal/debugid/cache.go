package debugid

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"closconv/internal/hir"
	"closconv/internal/symbols"
)

const schemaVersion uint16 = 1

type diskEntry struct {
	Node       hir.NodeID `msgpack:"n"`
	Ordinal    int        `msgpack:"o"`
	Generation int        `msgpack:"g"`
}

type diskMethod struct {
	Key         string      `msgpack:"key"`
	Ordinal     int         `msgpack:"ordinal"`
	Generation  int         `msgpack:"generation"`
	Closures    []diskEntry `msgpack:"closures"`
	Envs        []diskEntry `msgpack:"envs"`
	NextClosure int         `msgpack:"next_closure"`
	NextEnv     int         `msgpack:"next_env"`
}

type diskPayload struct {
	Schema     uint16       `msgpack:"schema"`
	Generation int          `msgpack:"generation"`
	NextMethod int          `msgpack:"next_method"`
	Methods    []diskMethod `msgpack:"methods"`
}

// Encode writes the allocator state to w.
func (a *Allocator) Encode(w io.Writer) error {
	a.mu.Lock()
	payload := diskPayload{
		Schema:     schemaVersion,
		Generation: a.generation,
		NextMethod: a.nextMethod,
		Methods:    make([]diskMethod, 0, len(a.order)),
	}
	for _, key := range a.order {
		m := a.methods[key]
		payload.Methods = append(payload.Methods, diskMethod{
			Key:         key,
			Ordinal:     m.id.Ordinal,
			Generation:  m.id.Generation,
			Closures:    sortedEntries(m.closures),
			Envs:        sortedEntries(m.envs),
			NextClosure: m.nextClosure,
			NextEnv:     m.nextEnv,
		})
	}
	a.mu.Unlock()

	if err := msgpack.NewEncoder(w).Encode(&payload); err != nil {
		return fmt.Errorf("debugid: encode: %w", err)
	}
	return nil
}

// Decode reads state written by Encode. New ids get the next generation.
func Decode(r io.Reader) (*Allocator, error) {
	var payload diskPayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("debugid: decode: %w", err)
	}
	if payload.Schema != schemaVersion {
		return nil, fmt.Errorf("debugid: unsupported schema %d", payload.Schema)
	}
	a := New()
	a.generation = payload.Generation + 1
	a.nextMethod = payload.NextMethod
	for _, dm := range payload.Methods {
		m := &methodEntry{
			id:          symbols.DebugID{Ordinal: dm.Ordinal, Generation: dm.Generation},
			closures:    make(map[hir.NodeID]symbols.DebugID, len(dm.Closures)),
			envs:        make(map[hir.NodeID]symbols.DebugID, len(dm.Envs)),
			nextClosure: dm.NextClosure,
			nextEnv:     dm.NextEnv,
		}
		for _, e := range dm.Closures {
			m.closures[e.Node] = symbols.DebugID{Ordinal: e.Ordinal, Generation: e.Generation}
		}
		for _, e := range dm.Envs {
			m.envs[e.Node] = symbols.DebugID{Ordinal: e.Ordinal, Generation: e.Generation}
		}
		a.methods[dm.Key] = m
		a.order = append(a.order, dm.Key)
	}
	return a, nil
}

// Load reads the allocator cache at path. A missing file yields a fresh allocator.
func Load(path string) (*Allocator, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Save writes the allocator atomically: temp file in the same directory, then rename.
func (a *Allocator) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".debugid-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := a.Encode(tmp); err != nil {
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

func sortedEntries(m map[hir.NodeID]symbols.DebugID) []diskEntry {
	out := make([]diskEntry, 0, len(m))
	for node, id := range m {
		out = append(out, diskEntry{Node: node, Ordinal: id.Ordinal, Generation: id.Generation})
	}
	slices.SortFunc(out, func(a, b diskEntry) int {
		return int(a.Node) - int(b.Node)
	})
	return out
}

package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesRequestedProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU: filepath.Join(dir, "cpu.pprof"),
		Mem: filepath.Join(dir, "mem.pprof"),
	}
	if !opts.Enabled() {
		t.Fatalf("options with paths should be enabled")
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	for _, path := range []string{opts.CPU, opts.Mem} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Fatalf("%s was not written (%v)", filepath.Base(path), err)
		}
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	if err == nil {
		t.Fatalf("expected an error for an uncreatable file")
	}
}

func TestNilSessionStop(t *testing.T) {
	var s *Session
	if err := s.Stop(); err != nil {
		t.Fatalf("nil session: %v", err)
	}
}

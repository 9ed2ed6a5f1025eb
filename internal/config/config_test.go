package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"closconv/internal/config"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[rewrite]
jobs = 3

[trace]
level = "phase"
`)
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := config.Default()
	want.Rewrite.Jobs = 3
	want.Trace.Level = "phase"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
	if got.JobCount() != 3 {
		t.Fatalf("JobCount = %d, want 3", got.JobCount())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		is   error
	}{
		{name: "unknown key", body: "[rewrite]\ninline = true\n", want: "unknown keys: rewrite.inline", is: config.ErrUnknownKey},
		{name: "zero depth", body: "[rewrite]\nmax_depth = 0\n", want: "max_depth must be positive", is: config.ErrInvalidValue},
		{name: "negative jobs", body: "[rewrite]\njobs = -1\n", want: "jobs must not be negative", is: config.ErrInvalidValue},
		{name: "negative max", body: "[diagnostics]\nmax = -5\n", want: "max must not be negative", is: config.ErrInvalidValue},
		{name: "bad level", body: "[trace]\nlevel = \"loud\"\n", want: "[trace].level", is: config.ErrInvalidValue},
		{name: "bad mode", body: "[trace]\nmode = \"tape\"\n", want: "[trace].mode", is: config.ErrInvalidValue},
		{name: "syntax", body: "[rewrite\n", want: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected errors.Is(%v), got %v", tt.is, err)
			}
		})
	}
}

func TestDiscoverWalksParents(t *testing.T) {
	root := t.TempDir()
	manifest := writeManifest(t, root, "[rewrite]\ncache_delegates = false\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, path, err := config.Discover(nested)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if path != manifest {
		t.Fatalf("found %q, want %q", path, manifest)
	}
	if cfg.Rewrite.CacheDelegates {
		t.Fatalf("cache_delegates should be overridden")
	}
}

func TestDiscoverWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := config.Find(dir); err != nil || ok {
		// a closconv.toml above the temp dir would make this test meaningless
		t.Skipf("manifest found above %s", dir)
	}
	cfg, path, err := config.Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if path != "" {
		t.Fatalf("unexpected manifest %q", path)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
}

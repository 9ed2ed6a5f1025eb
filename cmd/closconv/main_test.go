package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"closconv/internal/config"
	"closconv/internal/diag"
	"closconv/internal/hirpack"
	"closconv/internal/testkit"
)

func TestMethodKeys(t *testing.T) {
	got := methodKeys(testkit.Sample())
	if diff := cmp.Diff([]string{"C.M", "C..ctor", "C.Q"}, got); diff != "" {
		t.Fatalf("method keys (-want +got):\n%s", diff)
	}
}

func TestUseProgressUI(t *testing.T) {
	cases := []struct {
		value   string
		methods int
		want    bool
		wantErr bool
	}{
		{value: "on", methods: 0, want: true},
		{value: "OFF", methods: 5, want: false},
		{value: "auto", methods: 1, want: false},
		{value: "sometimes", wantErr: true},
	}
	for _, tc := range cases {
		got, err := useProgressUI(tc.value, tc.methods)
		if (err != nil) != tc.wantErr {
			t.Fatalf("useProgressUI(%q) error = %v, wantErr %v", tc.value, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("useProgressUI(%q, %d) = %v, want %v", tc.value, tc.methods, got, tc.want)
		}
	}
}

func TestRewriteCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sample.hirpack")
	out := filepath.Join(dir, "out", "sample.hirpack")
	ids := filepath.Join(dir, "sample.ids")
	cfg := filepath.Join(dir, "closconv.toml")
	if err := os.WriteFile(cfg, []byte("[rewrite]\njobs = 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := hirpack.Save(in, testkit.Sample()); err != nil {
		t.Fatalf("save input: %v", err)
	}

	rootCmd.SetArgs([]string{"--config", cfg, "--color", "off",
		"rewrite", in, "-o", out, "--ids", ids, "--ui", "off", "--quiet"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	m, err := hirpack.Load(out)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	names := make([]string, len(m.Funcs))
	for i, fn := range m.Funcs {
		names[i] = fn.Name
	}
	if !slices.Contains(names, ".cctor") {
		t.Fatalf("rewritten module has no singleton initializer: %v", names)
	}
	if _, err := os.Stat(ids); err != nil {
		t.Fatalf("debug id cache was not written: %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, true, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "closconv" || payload.GitCommit == "" || payload.BuildDate != "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestFailureCodes(t *testing.T) {
	dir := t.TempDir()
	_, err := hirpack.Load(filepath.Join(dir, "missing.hirpack"))
	if got := loadFailureCode(err); got != diag.IOLoadFileError {
		t.Fatalf("missing file: got %s", got.ID())
	}
	bad := filepath.Join(dir, "bad.hirpack")
	if err := os.WriteFile(bad, []byte("not a pack"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = hirpack.Load(bad)
	if got := loadFailureCode(err); got != diag.IODecodeError {
		t.Fatalf("foreign file: got %s", got.ID())
	}
	if got := configFailureCode(fmt.Errorf("x.toml: %w: a.b", config.ErrUnknownKey)); got != diag.CfgUnknownKey {
		t.Fatalf("unknown key: got %s", got.ID())
	}

	reported := reportOptions{format: "short"}.fail(diag.IOLoadFileError, "", err)
	var re *reportedError
	if !errors.As(reported, &re) || !errors.Is(reported, hirpack.ErrNotPack) {
		t.Fatalf("fail should mark the error as reported and keep its chain, got %v", reported)
	}
}

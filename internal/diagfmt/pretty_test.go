package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"closconv/internal/diag"
	"closconv/internal/source"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.LowerCaptureRefParam, source.Span{File: 1, Start: 8, End: 12}, "cannot capture ref parameter 'p'").
		WithNote(source.Span{File: 1, Start: 2, End: 3}, "parameter declared here"))
	bag.Add(diag.NewError(diag.LowerStackGuard, source.Span{}, "method C.M nests deeper than 8 levels"))
	return bag
}

func TestPrettyFormatsLocations(t *testing.T) {
	tests := []struct {
		name     string
		opts     PrettyOpts
		contains []string
		absent   []string
	}{
		{
			name:     "named files",
			opts:     PrettyOpts{Files: func(source.FileID) string { return "a.hirpack" }, Fallback: "mod"},
			contains: []string{"a.hirpack:8-12: ERROR LOW4002: cannot capture ref parameter 'p'\n", "mod: ERROR LOW4005"},
			absent:   []string{"note:"},
		},
		{
			name:     "unnamed files with notes",
			opts:     PrettyOpts{ShowNotes: true},
			contains: []string{"file#1:8-12", "<unknown>: ERROR LOW4005", "  note: file#1:2-3: parameter declared here\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, sampleBag(), tt.opts); err != nil {
				t.Fatalf("pretty: %v", err)
			}
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output is missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestPrettyColor(t *testing.T) {
	var plain, colored bytes.Buffer
	if err := Pretty(&plain, sampleBag(), PrettyOpts{}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if err := Pretty(&colored, sampleBag(), PrettyOpts{Color: true}); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output contains escape codes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escape codes: %q", colored.String())
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, sampleBag(), false); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got := buf.String(); got != "2 error(s), 0 warning(s)\n" {
		t.Fatalf("summary = %q", got)
	}
	buf.Reset()
	if err := Summary(&buf, diag.NewBag(0), false); err != nil || buf.Len() != 0 {
		t.Fatalf("empty bag should print nothing, got %q (%v)", buf.String(), err)
	}
}

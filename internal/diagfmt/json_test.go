package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	opts := JSONOpts{IncludeNotes: true, Fallback: "mod"}
	if err := JSON(&buf, sampleBag(), opts); err != nil {
		t.Fatalf("json: %v", err)
	}
	var got DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := DiagnosticsOutput{
		Count: 2,
		Diagnostics: []DiagnosticJSON{
			{
				Severity: "ERROR",
				Code:     "LOW4002",
				Title:    "Cannot capture a ref parameter",
				Message:  "cannot capture ref parameter 'p'",
				Location: LocationJSON{File: "file#1", StartByte: 8, EndByte: 12},
				Notes: []NoteJSON{{
					Message:  "parameter declared here",
					Location: LocationJSON{File: "file#1", StartByte: 2, EndByte: 3},
				}},
			},
			{
				Severity: "ERROR",
				Code:     "LOW4005",
				Title:    "Method is too deeply nested to lower",
				Message:  "method C.M nests deeper than 8 levels",
				Location: LocationJSON{File: "mod"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("json output (-want +got):\n%s", diff)
	}
}

func TestJSONMax(t *testing.T) {
	out := BuildDiagnosticsOutput(sampleBag(), JSONOpts{Max: 1})
	if out.Count != 1 || len(out.Diagnostics[0].Notes) != 0 {
		t.Fatalf("want one diagnostic without notes, got %+v", out)
	}
}

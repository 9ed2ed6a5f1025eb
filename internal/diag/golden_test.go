package diag

import (
	"testing"

	"closconv/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	bag := NewBag(10)
	rep := BagReporter{Bag: bag}
	ReportError(rep, LowerCaptureRestricted, source.Span{File: 1, Start: 2, End: 3}, "first line\nsecond").
		WithNote(source.Span{File: 1, Start: 0, End: 1}, "declared here").
		Emit()
	ReportWarning(rep, LowerInfo, source.Span{File: 1, Start: 0, End: 1}, "another").Emit()
	bag.Sort()

	expected := "warning LOW4000 1:0-1 another\n" +
		"error LOW4001 1:2-3 first line second\n" +
		"note LOW4001 1:0-1 declared here"

	if got := FormatShortDiagnostics(bag.Items(), true); got != expected {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagLimitAndDedup(t *testing.T) {
	bag := NewBag(2)
	d := NewError(LowerCaptureRestricted, source.Span{File: 1, Start: 1, End: 2}, "x")
	if !bag.Add(d) || !bag.Add(d) {
		t.Fatalf("expected first two diagnostics to be accepted")
	}
	if bag.Add(d) {
		t.Fatalf("expected limit to reject third diagnostic")
	}
	bag.Dedup()
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic after dedup, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestDedupReporterSuppressesRepeats(t *testing.T) {
	bag := NewBag(0)
	rep := NewDedupReporter(BagReporter{Bag: bag})
	span := source.Span{File: 1, Start: 4, End: 5}
	for i := 0; i < 3; i++ {
		rep.Report(LowerCaptureRestricted, SevError, span, "same", nil)
	}
	rep.Report(LowerCaptureRestricted, SevError, span, "different", nil)
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{LowerCaptureRestricted, "LOW4001"},
		{IODecodeError, "IO5002"},
		{CfgUnknownKey, "CFG6001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeNode, true},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeMethod, false},
		{LevelDetail, ScopeMethod, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	for _, name := range []string{"off", "error", "phase", "detail", "debug"} {
		l, err := ParseLevel(strings.ToUpper(name))
		if err != nil || l.String() != name {
			t.Fatalf("ParseLevel(%q) = %v, %v", name, l, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
	if m, err := ParseMode(""); err != nil || m != ModeStream {
		t.Fatalf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("both"); err != nil || m.String() != "both" {
		t.Fatalf("ParseMode(both) = %v, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	span := Begin(tr, ScopePass, "closure", 0)
	Point(tr, ScopeMethod, span.ID(), "method", "C.M")
	Point(tr, ScopeNode, span.ID(), "env", "skipped at detail")
	span.WithExtra("methods", "1").End("")

	out := buf.String()
	for _, want := range []string{"→ closure", "• method (C.M)", "← closure", "{methods=1}"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q does not contain %q", out, want)
		}
	}
	if strings.Contains(out, "skipped") {
		t.Fatalf("node-level event leaked at detail level: %q", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	ev := &Event{Time: time.Unix(0, 0), Seq: 3, Kind: KindSpanEnd, Scope: ScopeMethod,
		SpanID: 7, Name: "C.M", Dur: 1500 * time.Microsecond}
	line := FormatEvent(ev, FormatNDJSON)
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatalf("missing newline: %q", line)
	}
	var got map[string]any
	if err := json.Unmarshal(line, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["kind"] != "end" || got["scope"] != "method" || got["dur_us"] != float64(1500) {
		t.Fatalf("unexpected event %v", got)
	}
}

func TestNewErrorLevelUsesRing(t *testing.T) {
	tr, err := New(Config{Level: LevelError, Mode: ModeStream})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ring := Ring(tr)
	if ring == nil {
		t.Fatalf("expected ring tracer at error level")
	}
	Point(tr, ScopeMethod, 0, "method", "C.M")
	if got := len(ring.Snapshot()); got != 1 {
		t.Fatalf("expected 1 recorded event, got %d", got)
	}
}

func TestBothModeFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeNode, "lambda", 0).End("")
	if Ring(tr) == nil || len(Ring(tr).Snapshot()) != 2 {
		t.Fatalf("ring did not record both span events")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "← lambda") {
		t.Fatalf("stream output missing span end: %q", buf.String())
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeNode, 0, name, "")
	}
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", events)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("dump should print two lines, got %q", buf.String())
	}
}

func TestDisabledSpanIsInert(t *testing.T) {
	span := Begin(Nop, ScopePass, "closure", 0)
	if span.ID() != 0 || span.WithExtra("k", "v").End("") != 0 {
		t.Fatalf("disabled span should do nothing")
	}
	ctx := WithSpan(context.Background(), span)
	if ParentFromContext(ctx) != 0 {
		t.Fatalf("disabled span should not become a parent")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop tracer by default")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(ring, ScopeMethod, "C.M", 0)
	if got := ParentFromContext(WithSpan(ctx, span)); got != span.ID() {
		t.Fatalf("ParentFromContext = %d, want %d", got, span.ID())
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	h.Stop()
	h.Stop()
	n := len(ring.Snapshot())
	time.Sleep(3 * time.Millisecond)
	if len(ring.Snapshot()) != n {
		t.Fatalf("heartbeat kept running after Stop")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("disabled tracer should not start a heartbeat")
	}
}

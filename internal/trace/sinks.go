package trace

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var seq atomic.Uint64

func keep(level Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || level.ShouldEmit(ev.Scope)
}

// StreamTracer formats events to a writer as they arrive.
type StreamTracer struct {
	mu     sync.Mutex
	out    io.Writer
	buf    *bufio.Writer
	level  Level
	format Format
}

// NewStreamTracer writes events at level or coarser to w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{out: w, buf: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !keep(t.level, ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = seq.Add(1)
	// ошибки записи трассы не должны ронять переписывание
	_, _ = t.buf.Write(FormatEvent(ev, t.format))
	if ev.Kind != KindPoint {
		_ = t.buf.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

// Close flushes and closes the underlying writer unless it is stderr.
func (t *StreamTracer) Close() error {
	err := t.Flush()
	if _, ok := t.out.(keepOpen); ok {
		return err
	}
	if c, ok := t.out.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// RingTracer keeps the last events in a fixed-size circular buffer.
type RingTracer struct {
	mu     sync.Mutex
	events []Event
	next   int
	n      int
	level  Level
}

// NewRingTracer keeps up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !keep(t.level, ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[t.next] = *ev
	t.events[t.next].Seq = seq.Add(1)
	t.next = (t.next + 1) % len(t.events)
	t.n = min(t.n+1, len(t.events))
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.n)
	start := (t.next - t.n + len(t.events)) % len(t.events)
	for i := range t.n {
		out = append(out, t.events[(start+i)%len(t.events)])
	}
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// MultiTracer sends every event to several tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

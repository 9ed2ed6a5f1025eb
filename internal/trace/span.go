package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

// Span is an open Begin/End pair. A nil or disabled span ignores all calls.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

var disabled = &Span{tracer: Nop}

// Begin opens a span under parent (0 for a root) if t records scope.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return disabled
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Dur:      dur,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID is 0 for disabled spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent if t records scope.
func Point(t Tracer, scope Scope, parent uint64, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}

type tracerKey struct{}
type spanKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer attaches t to ctx; nil attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithSpan records s as the parent of spans and points opened below ctx.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey{}, s.ID())
}

// ParentFromContext returns the span id stored by WithSpan, or 0.
func ParentFromContext(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}

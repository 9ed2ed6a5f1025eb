// Package trace provides the tracing subsystem of closconv.
//
// Tracing is the only logging channel of the tool: the driver opens spans per
// module and per method, and the closure pass emits point events for every
// synthesized environment and extracted closure.
//
// # Usage
//
//	closconv rewrite --trace=- --trace-level=detail input.hirpack
//
// # Levels and scopes
//
// LevelPhase emits driver and pass events, LevelDetail adds per-method
// events, LevelDebug adds node-level events (environments, closures).
// LevelError keeps only the ring buffer that is dumped when a method aborts.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "closure", parentID)
//	defer span.End("")
package trace

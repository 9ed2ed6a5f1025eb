// Package driver runs closure conversion over whole modules: it fans methods
// out to a bounded worker pool, collects per-method diagnostics and merges the
// synthesized environments and methods back into the module.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"closconv/internal/closure"
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/trace"
)

// Options configures RewriteModule and AnalyzeModule.
type Options struct {
	Closure        closure.Options
	Jobs           int // <= 0 means GOMAXPROCS
	MaxDiagnostics int // <= 0 means unlimited
	// IDs keeps synthesized names stable across runs; nil uses a fresh allocator.
	IDs      closure.IDAllocator
	Progress ProgressSink
}

// MethodResult содержит результат обработки одного метода
type MethodResult struct {
	Key     string          // Квалифицированное имя метода (C.M)
	Func    *hir.Func       // Исходный метод
	Result  *closure.Result // nil, если метод не удалось переписать
	Bag     *diag.Bag       // Диагностики метода
	Err     error
	Elapsed time.Duration
}

// Status reports how the method ended up.
func (r *MethodResult) Status() Status {
	switch {
	case r.Err != nil:
		return StatusError
	case r.Result != nil && r.Result.Changed(r.Func):
		return StatusDone
	default:
		return StatusUnchanged
	}
}

// Result is the rewritten module together with per-method outcomes.
type Result struct {
	Module  *hir.Module
	Methods []MethodResult
	Bag     *diag.Bag
	Changed int
	Elapsed time.Duration
}

// RewriteModule converts every method of m in parallel. The input module is
// not modified except for its shared symbol table and type interner, which
// receive the synthesized symbols and types. Method failures become
// diagnostics; only cancellation aborts the run.
func RewriteModule(ctx context.Context, m *hir.Module, opts Options) (*Result, error) {
	if m == nil {
		return nil, errors.New("driver: nil module")
	}
	start := time.Now()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "closure_conversion", 0).WithExtra("module", m.Name)

	sess := closure.NewSession(m.TypeInterner, m.Symbols, opts.IDs, opts.Closure)
	sess.ReserveNodeIDs(m.LastNodeID)

	// Порядковые номера методов назначаются заранее, в порядке модуля,
	// чтобы имена не зависели от планировщика
	keys := sess.RegisterMethods(m.Funcs)
	for _, key := range keys {
		sess.IDs.Method(key)
		emit(opts.Progress, Event{Method: key, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]MethodResult, len(m.Funcs))
	if len(m.Funcs) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(m.Funcs)))
		for i, fn := range m.Funcs {
			g.Go(func(i int, fn *hir.Func) func() error {
				return func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					results[i] = rewriteMethod(gctx, sess, fn, keys[i], opts, span.ID())
					return nil
				}
			}(i, fn))
		}
		if err := g.Wait(); err != nil {
			span.End(err.Error())
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		span.End(err.Error())
		return nil, err
	}

	out := merge(m, sess, results, opts.MaxDiagnostics)
	out.Elapsed = time.Since(start)
	span.End(fmt.Sprintf("methods=%d changed=%d", len(results), out.Changed))
	emit(opts.Progress, Event{Status: StatusDone, Elapsed: out.Elapsed})
	return out, nil
}

func rewriteMethod(ctx context.Context, sess *closure.Session, fn *hir.Func, key string, opts Options, parent uint64) (mr MethodResult) {
	mr = MethodResult{Key: key, Func: fn, Bag: diag.NewBag(opts.MaxDiagnostics)}
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: mr.Bag})
	emit(opts.Progress, Event{Method: key, Status: StatusWorking})
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeMethod, key, parent)
	ctx = trace.WithSpan(ctx, span)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*closure.InternalError)
			if !ok {
				panic(r)
			}
			mr.Result, mr.Err = nil, ie
			diag.ReportError(rep, diag.LowerInternal, fn.Span, ie.Error()).
				WithNote(fn.Span, "the method was left unchanged").
				Emit()
		}
		mr.Elapsed = time.Since(start)
		status := mr.Status()
		span.End(string(status))
		emit(opts.Progress, Event{Method: key, Status: status, Err: mr.Err, Elapsed: mr.Elapsed})
	}()

	res, err := closure.Rewrite(ctx, sess, fn, rep)
	var guard *closure.StackGuardError
	switch {
	case errors.As(err, &guard):
		diag.ReportError(rep, diag.LowerStackGuard, fn.Span,
			fmt.Sprintf("method %s nests deeper than %d levels", key, guard.Depth)).
			WithNote(fn.Span, "split the method or raise [rewrite].max_depth").
			Emit()
		mr.Err = err
	case err != nil:
		mr.Err = err
	default:
		mr.Result = res
	}
	return mr
}

// merge builds the output module: rewritten methods keep their positions,
// then come synthesized methods in method order, then the shared singleton
// initializers ordered by name.
func merge(m *hir.Module, sess *closure.Session, results []MethodResult, maxDiagnostics int) *Result {
	out := &hir.Module{
		Name:         m.Name,
		Path:         m.Path,
		Funcs:        make([]*hir.Func, 0, len(m.Funcs)),
		Types:        slices.Clone(m.Types),
		TypeInterner: m.TypeInterner,
		Symbols:      m.Symbols,
	}
	singles := sess.Singletons()
	shared := make(map[symbols.SymbolID]bool, 2*len(singles))
	for _, single := range singles {
		shared[single.TypeSym] = true
		shared[single.StaticCtor.SymbolID] = true
	}

	bag := diag.NewBag(maxDiagnostics)
	var synthesized []*hir.Func
	changed := 0
	for i := range results {
		r := &results[i]
		bag.Merge(r.Bag)
		if r.Status() != StatusDone {
			out.Funcs = append(out.Funcs, r.Func)
			continue
		}
		changed++
		rewritten := *r.Func
		rewritten.Body = r.Result.Body
		out.Funcs = append(out.Funcs, &rewritten)
		for _, sm := range r.Result.Methods {
			if !shared[sm.Symbol] {
				synthesized = append(synthesized, sm.Func)
			}
		}
		for _, td := range r.Result.Types {
			if !shared[td.SymbolID] {
				out.Types = append(out.Types, td)
			}
		}
	}
	for _, single := range singles {
		out.Types = append(out.Types, hir.TypeDecl{
			Name:     sess.Symbols.Name(single.TypeSym),
			SymbolID: single.TypeSym,
			TypeID:   single.Type,
			Kind:     hir.TypeDeclEnvironment,
		})
		synthesized = append(synthesized, single.StaticCtor)
	}

	nextID := hir.NoFuncID
	for _, fn := range out.Funcs {
		nextID = max(nextID, fn.ID)
	}
	for _, fn := range synthesized {
		if !fn.ID.IsValid() {
			nextID++
			fn.ID = nextID
		}
	}
	out.Funcs = append(out.Funcs, synthesized...)
	out.LastNodeID = max(m.LastNodeID, sess.LastNodeID())

	bag.Sort()
	return &Result{Module: out, Methods: results, Bag: bag, Changed: changed}
}

package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"closconv/internal/closure"
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/trace"
)

// AnalyzeModule runs scope and capture analysis over every method of m in
// module order and writes the analysis dumps to w. Nothing is rewritten, but
// the environment types are still registered in the module's interner.
func AnalyzeModule(ctx context.Context, w io.Writer, m *hir.Module, opts Options) (*diag.Bag, error) {
	if m == nil {
		return nil, errors.New("driver: nil module")
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "closure_analysis", 0).WithExtra("module", m.Name)
	defer span.End("")

	sess := closure.NewSession(m.TypeInterner, m.Symbols, opts.IDs, opts.Closure)
	bag := diag.NewBag(opts.MaxDiagnostics)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	keys := sess.RegisterMethods(m.Funcs)
	for i, fn := range m.Funcs {
		if err := ctx.Err(); err != nil {
			return bag, err
		}
		if !fn.HasBody() {
			continue
		}
		key := keys[i]
		an, err := closure.Analyze(fn, sess, rep)
		var guard *closure.StackGuardError
		if errors.As(err, &guard) {
			diag.ReportError(rep, diag.LowerStackGuard, fn.Span,
				fmt.Sprintf("method %s nests deeper than %d levels", key, guard.Depth)).Emit()
			continue
		}
		if err != nil {
			return bag, err
		}
		if err := an.Validate(); err != nil {
			an.Free()
			return bag, fmt.Errorf("%s: %w", key, err)
		}
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				an.Free()
				return bag, err
			}
		}
		err = closure.DumpAnalysis(w, an)
		an.Free()
		if err != nil {
			return bag, err
		}
	}
	bag.Sort()
	return bag, nil
}

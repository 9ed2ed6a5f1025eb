package testkit

import (
	"closconv/internal/hir"
	"closconv/internal/symbols"
)

// Sample builds a module touching every scope-introducing construct: loops,
// catch clauses, switch sections, sequences, local functions, constructors
// and quoted lambdas.
func Sample() *hir.Module {
	b := New()
	counter := b.Field("counter", b.Int())

	// int M(int p)
	m := b.Method("M", 0).Returns(b.Int())
	p := m.Param("p", b.Int())
	x := b.Local("x", b.Int())
	i := b.Local("i", b.Int())
	e := b.CatchVar("e", b.Int())
	s := b.Local("s", b.Int())
	t := b.Local("t", b.Int())
	f := b.LocalFunc("f", b.Int(), 0)
	a := b.LambdaParam("a", b.Int())
	mFn := m.Body(
		b.Let(x, b.Lit(1)),
		b.For(
			b.Let(i, b.Lit(0)),
			b.Lt(b.Var(i), b.Var(p)),
			b.Set(b.Var(i), b.Add(b.Var(i), b.Lit(1))),
			b.Block(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Add(b.Var(x), b.Var(i))))))),
		),
		b.Try(
			b.Block(b.Do(b.CallLocal(f))),
			b.Block(b.Assign(b.Var(x), b.Lit(0))),
			b.Catch(e, b.Block(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(e))))))),
		),
		b.Switch(b.Var(p), []symbols.SymbolID{s},
			b.Case([]*hir.Expr{b.Lit(1)},
				b.Let(s, b.Lit(2)),
				b.Do(b.Lambda(b.Int(), []symbols.SymbolID{a}, b.Block(b.Return(b.Add(b.Var(a), b.Var(s)))))),
				b.Break(),
			),
			b.Case(nil, b.Break()),
		),
		b.Do(b.Seq([]symbols.SymbolID{t}, b.Var(t), b.Set(b.Var(t), b.FieldOf(b.This(), counter)))),
		b.Declare(f, nil, b.Block(b.Return(b.Add(b.Var(p), b.Var(x))))),
		b.Return(b.Add(b.CallLocal(f), b.Var(x))),
	)

	// C(int q) : base()
	ctor := b.Method(".ctor", hir.FuncCtor)
	q := ctor.Param("q", b.Int())
	ctorFn := ctor.Body(
		b.Do(b.BaseCall()),
		b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Add(b.Var(q), b.FieldOf(b.This(), counter)))))),
	)

	// static void Q()
	k := b.Local("k", b.Int())
	qFn := b.Method("Q", hir.FuncStatic).Body(
		b.Let(k, b.Lit(3)),
		b.Do(b.Quote(b.Int(), nil, b.Block(b.Return(b.Var(k))))),
		b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Lit(7))))),
	)

	return b.Module("sample", mFn, ctorFn, qFn)
}

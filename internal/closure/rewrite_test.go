//nolint:errcheck // Kind implies the Data payload type.
package closure_test

import (
	"context"
	"errors"
	"testing"

	"closconv/internal/closure"
	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/source"
	"closconv/internal/symbols"
	"closconv/internal/testkit"
)

func TestRewriteWithoutClosuresIsIdentity(t *testing.T) {
	b := testkit.New()
	m := b.Method("M", 0)
	p := m.Param("p", b.Int())
	x := b.Local("x", b.Int())
	fn := m.Returns(b.Int()).Body(
		b.Let(x, b.Add(b.Var(p), b.Lit(1))),
		b.Return(b.Var(x)),
	)

	res, bag := rewrite(t, b, fn)
	if res.Body != fn.Body {
		t.Fatalf("body was rebuilt for a method without closures")
	}
	if res.Changed(fn) {
		t.Fatalf("result reports a change: %d methods, %d types", len(res.Methods), len(res.Types))
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestRewriteNilBody(t *testing.T) {
	b := testkit.New()
	fn := b.Method("Extern", 0).Func
	res, err := closure.Rewrite(context.Background(), newSession(b), fn, nil)
	if err != nil || res == nil || res.Body != nil {
		t.Fatalf("want empty result, got %+v, %v", res, err)
	}
}

func TestRewriteCanceledContext(t *testing.T) {
	b := testkit.New()
	fn := b.Method("M", 0).Body(b.Return(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := closure.Rewrite(ctx, newSession(b), fn, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestCaptureFreeLocalFunctionIsStatic(t *testing.T) {
	b := testkit.New()
	f := b.LocalFunc("f", b.Int(), 0)
	fn := b.Method("M", 0).Returns(b.Int()).Body(
		b.Declare(f, nil, b.Block(b.Return(b.Lit(1)))),
		b.Return(b.CallLocal(f)),
	)

	res, _ := rewrite(t, b, fn)
	if len(res.Types) != 0 || len(res.Environments) != 0 {
		t.Fatalf("capture-free local function produced types %v", res.Types)
	}
	lf := method(t, b, res, "<M>g__f|0_0")
	if !lf.Flags.HasFlag(hir.FuncStatic) || lf.Owner != b.Owner || lf.This.IsValid() {
		t.Fatalf("want static method on C, got flags %s owner %d", lf.Flags, lf.Owner)
	}
	if len(res.Body.Stmts) != 1 {
		t.Fatalf("declaration should be removed, have %d statements", len(res.Body.Stmts))
	}
	call := stmtExpr(t, res.Body.Stmts[0]).Data.(hir.CallData)
	if call.Method != lf.SymbolID || call.Receiver != nil || len(call.Args) != 0 {
		t.Fatalf("call not retargeted: %+v", call)
	}
	checkBody(t, fn, res.Body)
}

func TestCaptureFreeLambdaUsesSingleton(t *testing.T) {
	b := testkit.New()
	v := b.LambdaParam("v", b.Int())
	fn := b.Method("M", 0).Body(
		b.Do(b.Lambda(b.Int(), []symbols.SymbolID{v}, b.Block(b.Return(b.Add(b.Var(v), b.Lit(1)))))),
	)

	res, _ := rewrite(t, b, fn)
	if len(res.Types) != 1 || res.Types[0].Name != symbols.SingletonClassName {
		t.Fatalf("want the singleton type only, got %v", res.Types)
	}
	lam := method(t, b, res, "<M>b__0_0")
	if lam.Owner != res.Types[0].SymbolID || lam.IsStatic() {
		t.Fatalf("lambda should be an instance method of %s", symbols.SingletonClassName)
	}
	cctor := method(t, b, res, ".cctor")
	if !cctor.Flags.HasFlag(hir.FuncStaticCtor) || cctor.Owner != res.Types[0].SymbolID {
		t.Fatalf("singleton initializer has flags %s", cctor.Flags)
	}

	// the parameter is remapped to the synthesized one
	ret := lam.Body.Stmts[0].Data.(hir.ReturnData).Value.Data.(hir.BinaryOpData)
	if got := ret.Left.Data.(hir.VarRefData).SymbolID; got != lam.Params[0].SymbolID {
		t.Fatalf("parameter reference %d not remapped to %d", got, lam.Params[0].SymbolID)
	}

	cache := stmtExpr(t, res.Body.Stmts[0])
	if cache.Kind != hir.ExprNullCoalesce {
		t.Fatalf("singleton delegate should be cached, got %s", cache.Kind)
	}
	if name := fieldName(b, cache.Data.(hir.NullCoalesceData).Left); name != "<>9__0_0" {
		t.Fatalf("cache field %q", name)
	}
	create := cache.Data.(hir.NullCoalesceData).Right.Data.(hir.AssignExprData).Value.Data.(hir.DelegateCreateData)
	if create.Method != lam.SymbolID || fieldName(b, create.Receiver) != symbols.SingletonFieldName {
		t.Fatalf("delegate over %d with receiver %q", create.Method, fieldName(b, create.Receiver))
	}
	checkBody(t, fn, res.Body)
	checkBody(t, lam, lam.Body)
}

func TestSingletonSharedAcrossMethods(t *testing.T) {
	b := testkit.New()
	sess := newSession(b)
	first := b.Method("A", 0).Body(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Lit(1))))))
	second := b.Method("B", 0).Body(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Lit(2))))))

	r1, _ := rewriteWith(t, b, sess, first)
	r2, _ := rewriteWith(t, b, sess, second)
	if len(r1.Types) != 1 {
		t.Fatalf("first method should declare the singleton, got %v", r1.Types)
	}
	if len(r2.Types) != 0 {
		t.Fatalf("second method must reuse the singleton, got %v", r2.Types)
	}
	for _, m := range r2.Methods {
		if m.Func.Name == ".cctor" {
			t.Fatalf("singleton initializer emitted twice")
		}
	}
	if method(t, b, r2, "<B>b__1_0").Owner != r1.Types[0].SymbolID {
		t.Fatalf("second lambda not placed on the shared singleton")
	}
}

func TestThisOnlyLambda(t *testing.T) {
	b := testkit.New()
	f := b.Field("f", b.Int())
	fn := b.Method("M", 0).Body(
		b.Return(b.Lambda(b.Int(), nil, b.Block(b.Return(b.FieldOf(b.This(), f))))),
	)

	res, _ := rewrite(t, b, fn)
	if len(res.Types) != 0 {
		t.Fatalf("this-only lambda needs no environment, got %v", res.Types)
	}
	lam := method(t, b, res, "<M>b__0_0")
	if lam.Owner != b.Owner || lam.IsStatic() {
		t.Fatalf("want instance method on C")
	}
	read := lam.Body.Stmts[0].Data.(hir.ReturnData).Value.Data.(hir.FieldAccessData)
	if read.Receiver.Kind != hir.ExprThis {
		t.Fatalf("field read should go through this, got %s", read.Receiver.Kind)
	}
	create := stmtExpr(t, res.Body.Stmts[0])
	if create.Kind != hir.ExprDelegateCreate {
		t.Fatalf("outside a loop no cache is expected, got %s", create.Kind)
	}
	if recv := create.Data.(hir.DelegateCreateData).Receiver; recv == nil || recv.Kind != hir.ExprThis {
		t.Fatalf("delegate receiver should be this")
	}
}

func TestLocalFunctionCapturesIntoStruct(t *testing.T) {
	b := testkit.New()
	x := b.Local("x", b.Int())
	f := b.LocalFunc("f", b.Int(), 0)
	fn := b.Method("M", 0).Returns(b.Int()).Body(
		b.Let(x, b.Lit(1)),
		b.Declare(f, nil, b.Block(b.Return(b.Var(x)))),
		b.Return(b.CallLocal(f)),
	)

	res, _ := rewrite(t, b, fn)
	if len(res.Environments) != 1 || !res.Environments[0].IsStruct {
		t.Fatalf("want one struct environment, got %+v", res.Environments)
	}
	if !res.IsStackAllocated(fn.Body.ID) {
		t.Fatalf("root environment should be stack allocated")
	}
	lf := method(t, b, res, "<M>g__f|0_0")
	if !lf.IsStatic() || len(lf.Params) != 1 || !lf.Params[0].ByRef {
		t.Fatalf("want static method taking the environment by ref, got %+v", lf.Params)
	}

	stmts := res.Body.Stmts
	if len(stmts) != 3 {
		t.Fatalf("want env init, hoisted assignment and return, got %d statements", len(stmts))
	}
	if init := stmts[0].Data.(hir.LetData).Value; init.Kind != hir.ExprDefault {
		t.Fatalf("struct environment initialized with %s", init.Kind)
	}
	if fieldName(b, stmts[1].Data.(hir.AssignData).Target) != "x" {
		t.Fatalf("let x should become a field store")
	}
	call := stmtExpr(t, stmts[2]).Data.(hir.CallData)
	if len(call.Args) != 1 || call.Args[0].Kind != hir.ExprRef {
		t.Fatalf("environment should be passed by ref, got %+v", call.Args)
	}
	read := lf.Body.Stmts[0].Data.(hir.ReturnData).Value.Data.(hir.FieldAccessData)
	if read.Receiver.Data.(hir.VarRefData).SymbolID != lf.Params[0].SymbolID {
		t.Fatalf("captured read should go through the ref parameter")
	}
	checkBody(t, fn, res.Body)
	checkBody(t, lf, lf.Body)
}

func TestMutationThroughSharedField(t *testing.T) {
	b := testkit.New()
	x := b.Local("x", b.Int())
	fn := b.Method("M", 0).Returns(b.Int()).Body(
		b.Let(x, b.Lit(1)),
		b.Do(b.Lambda(b.Int(), nil, b.Block(
			b.Return(b.Set(b.Var(x), b.Add(b.Var(x), b.Lit(1)))),
		))),
		b.Return(b.Var(x)),
	)

	res, _ := rewrite(t, b, fn)
	if len(res.Environments) != 1 || res.Environments[0].IsStruct {
		t.Fatalf("a lambda capture needs a class environment, got %+v", res.Environments)
	}
	lam := method(t, b, res, "<M>b__0_0")
	if lam.Owner != res.Environments[0].TypeSym {
		t.Fatalf("lambda should live on the environment")
	}

	outer := stmtExpr(t, res.Body.Stmts[len(res.Body.Stmts)-1]).Data.(hir.FieldAccessData)
	write := stmtExpr(t, lam.Body.Stmts[0]).Data.(hir.AssignExprData)
	inner := write.Target.Data.(hir.FieldAccessData)
	if outer.Field != inner.Field {
		t.Fatalf("method and lambda use different storage: %d vs %d", outer.Field, inner.Field)
	}
	if inner.Receiver.Kind != hir.ExprThis {
		t.Fatalf("lambda should reach the field through its receiver")
	}
	if outer.Receiver.Kind != hir.ExprVarRef || b.Symbols.Name(outer.Receiver.Data.(hir.VarRefData).SymbolID) != symbols.EnvLocalName(0) {
		t.Fatalf("method should read through its environment local")
	}
	checkBody(t, fn, res.Body)
}

func TestNestedLambdaReachesOuterFrameThroughParentLink(t *testing.T) {
	b := testkit.New()
	x := b.Local("x", b.Int())
	y := b.Local("y", b.Int())
	inner := b.Lambda(b.Int(), nil, b.Block(b.Return(b.Add(b.Var(x), b.Var(y)))))
	outer := b.Lambda(b.Func(b.Int()), nil, b.Block(b.Let(y, b.Lit(2)), b.Return(inner)))
	fn := b.Method("M", 0).Body(b.Let(x, b.Lit(1)), b.Return(outer))

	res, _ := rewrite(t, b, fn)
	if len(res.Environments) != 2 {
		t.Fatalf("want two environments, got %+v", res.Environments)
	}
	outerM := method(t, b, res, "<M>b__0_0")
	innerM := method(t, b, res, "<M>b__0_1")
	if outerM.Owner != res.Environments[0].TypeSym || innerM.Owner != res.Environments[1].TypeSym {
		t.Fatalf("lambdas placed on the wrong environments")
	}

	// outer body: allocate its environment, link it to the receiver
	link := outerM.Body.Stmts[1].Data.(hir.AssignData)
	if fieldName(b, link.Target) != symbols.ParentFieldName(false, 0) || link.Value.Kind != hir.ExprThis {
		t.Fatalf("parent link not initialized from the receiver: %q", fieldName(b, link.Target))
	}

	sum := innerM.Body.Stmts[0].Data.(hir.ReturnData).Value.Data.(hir.BinaryOpData)
	xRead := sum.Left.Data.(hir.FieldAccessData)
	if fieldName(b, xRead.Receiver) != symbols.ParentFieldName(false, 0) {
		t.Fatalf("x should be read through the parent link")
	}
	if fieldName(b, sum.Right) != "y" || sum.Right.Data.(hir.FieldAccessData).Receiver.Kind != hir.ExprThis {
		t.Fatalf("y should be read from the receiver")
	}
	checkBody(t, fn, res.Body)
	checkBody(t, outerM, outerM.Body)
	checkBody(t, innerM, innerM.Body)
}

func TestConstructorLinksThisAfterBaseCall(t *testing.T) {
	b := testkit.New()
	f := b.Field("f", b.Int())
	m := b.Method(".ctor", hir.FuncCtor)
	p := m.Param("p", b.Int())
	fn := m.Body(
		b.Do(b.BaseCall()),
		b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Add(b.Var(p), b.FieldOf(b.This(), f)))))),
	)

	res, _ := rewrite(t, b, fn)
	base, link := -1, -1
	for i, st := range res.Body.Stmts {
		switch st.Kind {
		case hir.StmtExpr:
			if e := stmtExpr(t, st); e.Kind == hir.ExprCall && e.Data.(hir.CallData).CtorInit {
				base = i
			}
		case hir.StmtAssign:
			if fieldName(b, st.Data.(hir.AssignData).Target) == "<>4__this" {
				link = i
			}
		}
	}
	if base < 0 || link < 0 {
		t.Fatalf("missing base call (%d) or this link (%d)", base, link)
	}
	if link != base+1 {
		t.Fatalf("this link at %d must directly follow the base call at %d", link, base)
	}
	// the parameter copy does not touch this and stays in front
	if fieldName(b, res.Body.Stmts[1].Data.(hir.AssignData).Target) != "p" {
		t.Fatalf("parameter copy should precede the base call")
	}
	lam := method(t, b, res, "<.ctor>b__0_0")
	sum := lam.Body.Stmts[0].Data.(hir.ReturnData).Value.Data.(hir.BinaryOpData)
	thisRead := sum.Right.Data.(hir.FieldAccessData)
	if fieldName(b, thisRead.Receiver) != "<>4__this" {
		t.Fatalf("this should be reached through the environment")
	}
}

func TestDelegateCaching(t *testing.T) {
	cond := func(b *testkit.Builder) *hir.Expr { return b.Lt(b.Lit(0), b.Lit(1)) }

	t.Run("this-only in loop caches in a local", func(t *testing.T) {
		b := testkit.New()
		f := b.Field("f", b.Int())
		fn := b.Method("M", 0).Body(
			b.While(cond(b), b.Block(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.FieldOf(b.This(), f))))))),
		)
		res, _ := rewrite(t, b, fn)
		loop := res.Body.Stmts[0].Data.(hir.WhileData)
		cache := stmtExpr(t, loop.Body.Stmts[0])
		if cache.Kind != hir.ExprNullCoalesce {
			t.Fatalf("want cached delegate, got %s", cache.Kind)
		}
		local := cache.Data.(hir.NullCoalesceData).Left.Data.(hir.VarRefData).SymbolID
		if b.Symbols.Name(local) != symbols.CacheLocalName(0) {
			t.Fatalf("cache local named %q", b.Symbols.Name(local))
		}
		found := false
		for _, l := range res.Body.Locals {
			found = found || l == local
		}
		if !found {
			t.Fatalf("cache local not declared on the method body")
		}
	})

	t.Run("environment outside loop caches in a field", func(t *testing.T) {
		b := testkit.New()
		x := b.Local("x", b.Int())
		fn := b.Method("M", 0).Body(
			b.Let(x, b.Lit(1)),
			b.While(cond(b), b.Block(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(x))))))),
		)
		res, _ := rewrite(t, b, fn)
		var loop hir.WhileData
		for _, st := range res.Body.Stmts {
			if st.Kind == hir.StmtWhile {
				loop = st.Data.(hir.WhileData)
			}
		}
		cache := stmtExpr(t, loop.Body.Stmts[0])
		if cache.Kind != hir.ExprNullCoalesce || fieldName(b, cache.Data.(hir.NullCoalesceData).Left) != "<>9__0" {
			t.Fatalf("want instance cache field <>9__0, got %s", cache.Kind)
		}
	})

	t.Run("environment inside loop is not cached", func(t *testing.T) {
		b := testkit.New()
		x := b.Local("x", b.Int())
		fn := b.Method("M", 0).Body(
			b.While(cond(b), b.Block(
				b.Let(x, b.Lit(1)),
				b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(x))))),
			)),
		)
		res, _ := rewrite(t, b, fn)
		if n := countKind(res.Body, hir.ExprNullCoalesce); n != 0 {
			t.Fatalf("fresh environment per iteration must not cache, found %d caches", n)
		}
	})

	t.Run("caching disabled", func(t *testing.T) {
		b := testkit.New()
		sess := closure.NewSession(b.Types, b.Symbols, nil, closure.Options{MaxDepth: closure.DefaultMaxDepth})
		fn := b.Method("M", 0).Body(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Lit(1))))))
		res, _ := rewriteWith(t, b, sess, fn)
		if stmtExpr(t, res.Body.Stmts[0]).Kind != hir.ExprDelegateCreate {
			t.Fatalf("delegate should not be cached")
		}
	})
}

func TestForLoopVariableGetsWrappedEnvironment(t *testing.T) {
	b := testkit.New()
	i := b.Local("i", b.Int())
	fn := b.Method("M", 0).Body(
		b.For(
			b.Let(i, b.Lit(0)),
			b.Lt(b.Var(i), b.Lit(3)),
			b.Set(b.Var(i), b.Add(b.Var(i), b.Lit(1))),
			b.Block(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(i)))))),
		),
	)
	last := b.LastNodeID()

	res, _ := rewrite(t, b, fn)
	wrapper := res.Body.Stmts[0]
	if wrapper.Kind != hir.StmtBlock {
		t.Fatalf("loop environment should be wrapped in a block, got %s", wrapper.Kind)
	}
	blk := wrapper.Data.(hir.BlockStmtData).Block
	if blk.ID <= last {
		t.Fatalf("wrapper block reuses node id %d (last %d)", blk.ID, last)
	}
	if len(blk.Stmts) != 2 || blk.Stmts[1].Kind != hir.StmtFor {
		t.Fatalf("want env init then loop, got %d statements", len(blk.Stmts))
	}
	loop := blk.Stmts[1].Data.(hir.ForData)
	if len(loop.Locals) != 0 {
		t.Fatalf("hoisted loop variable still declared by the loop")
	}
	if loop.Init == nil || fieldName(b, loop.Init.Data.(hir.AssignData).Target) != "i" {
		t.Fatalf("loop initializer should store into the environment")
	}
	checkBody(t, fn, res.Body)
}

func TestCatchVariableCopiedIntoEnvironment(t *testing.T) {
	b := testkit.New()
	e := b.CatchVar("e", b.Types.Builtins().Object)
	fn := b.Method("M", 0).Body(
		b.Try(b.Block(), nil, b.Catch(e, b.Block(
			b.Do(b.Lambda(b.Types.Builtins().Object, nil, b.Block(b.Return(b.Var(e))))),
		))),
	)

	res, _ := rewrite(t, b, fn)
	handler := res.Body.Stmts[0].Data.(hir.TryData).Catches[0].Body
	if len(handler.Stmts) < 2 {
		t.Fatalf("handler has no environment prologue")
	}
	copyIn := handler.Stmts[1].Data.(hir.AssignData)
	if fieldName(b, copyIn.Target) != "e" || copyIn.Value.Data.(hir.VarRefData).SymbolID != e {
		t.Fatalf("exception variable not copied into its field")
	}
}

func TestSequenceEnvironmentBecomesSideEffects(t *testing.T) {
	b := testkit.New()
	tmp := b.Local("t", b.Int())
	seq := b.Seq(
		[]symbols.SymbolID{tmp},
		b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(tmp)))),
		b.Set(b.Var(tmp), b.Lit(4)),
	)
	fn := b.Method("M", 0).Body(b.Do(seq))

	res, _ := rewrite(t, b, fn)
	data := stmtExpr(t, res.Body.Stmts[0]).Data.(hir.SequenceData)
	if len(data.SideEffects) != 2 {
		t.Fatalf("want env init plus the original side effect, got %d", len(data.SideEffects))
	}
	if data.SideEffects[0].Kind != hir.ExprAssign || len(data.Locals) != 1 {
		t.Fatalf("environment local should be initialized by the first side effect")
	}
	if b.Symbols.Name(data.Locals[0]) != symbols.EnvLocalName(0) {
		t.Fatalf("sequence keeps hoisted local %q", b.Symbols.Name(data.Locals[0]))
	}
}

func TestSwitchEnvironment(t *testing.T) {
	b := testkit.New()
	v := b.Local("v", b.Int())
	fn := b.Method("M", 0).Body(
		b.Switch(b.Lit(1), []symbols.SymbolID{v},
			b.Case([]*hir.Expr{b.Lit(1)},
				b.Assign(b.Var(v), b.Lit(2)),
				b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(v))))),
				b.Break(),
			),
		),
	)

	res, _ := rewrite(t, b, fn)
	wrapper := res.Body.Stmts[0]
	if wrapper.Kind != hir.StmtBlock {
		t.Fatalf("switch environment should be wrapped, got %s", wrapper.Kind)
	}
	sw := wrapper.Data.(hir.BlockStmtData).Block.Stmts[1].Data.(hir.SwitchData)
	if len(sw.Locals) != 0 {
		t.Fatalf("hoisted switch local still declared")
	}
	if fieldName(b, sw.Sections[0].Body[0].Data.(hir.AssignData).Target) != "v" {
		t.Fatalf("assignment should target the environment field")
	}
	checkBody(t, fn, res.Body)
}

func TestQuotedLambdaKeepsNodeAndForcesClass(t *testing.T) {
	b := testkit.New()
	x := b.Local("x", b.Int())
	quote := b.Quote(b.Int(), nil, b.Block(b.Return(b.Var(x))))
	fn := b.Method("M", 0).Body(b.Let(x, b.Lit(1)), b.Do(quote))

	res, bag := rewrite(t, b, fn)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(res.Environments) != 1 || res.Environments[0].IsStruct {
		t.Fatalf("a variable captured by an expression tree needs a class, got %+v", res.Environments)
	}
	if len(res.Methods) != 0 {
		t.Fatalf("expression tree lambdas are not extracted")
	}
	kept := stmtExpr(t, res.Body.Stmts[len(res.Body.Stmts)-1])
	if kept.Kind != hir.ExprLambda {
		t.Fatalf("quoted lambda replaced by %s", kept.Kind)
	}
	read := kept.Data.(hir.LambdaData).Body.Stmts[0].Data.(hir.ReturnData).Value
	if fieldName(b, read) != "x" {
		t.Fatalf("captured variable inside the tree should become a field read")
	}
}

func TestCaptureDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testkit.Builder) *hir.Func
		code  diag.Code
	}{
		{
			name: "byref-like local",
			build: func(b *testkit.Builder) *hir.Func {
				span := b.Types.RegisterByRefLike("Span", source.Span{})
				s := b.Local("s", span)
				return b.Method("M", 0).Body(
					b.Let(s, nil),
					b.Do(b.Lambda(span, nil, b.Block(b.Return(b.Var(s))))),
				)
			},
			code: diag.LowerCaptureRestricted,
		},
		{
			name: "ref parameter",
			build: func(b *testkit.Builder) *hir.Func {
				m := b.Method("M", 0)
				p := m.RefParam("p", b.Int())
				return m.Body(b.Do(b.Lambda(b.Int(), nil, b.Block(b.Return(b.Var(p))))))
			},
			code: diag.LowerCaptureRefParam,
		},
		{
			name: "this of a struct",
			build: func(b *testkit.Builder) *hir.Func {
				b.ValueOwner()
				return b.Method("M", 0).Body(b.Do(b.Lambda(b.OwnerType, nil, b.Block(b.Return(b.This())))))
			},
			code: diag.LowerCaptureRestricted,
		},
		{
			name: "missing expression type",
			build: func(b *testkit.Builder) *hir.Func {
				b.WithoutExpressionType()
				return b.Method("M", 0).Body(b.Do(b.Quote(b.Int(), nil, b.Block(b.Return(b.Lit(1))))))
			},
			code: diag.LowerMissingWellKnownType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testkit.New()
			fn := tt.build(b)
			res, bag := rewrite(t, b, fn)
			if !hasCode(bag, tt.code) {
				t.Fatalf("want %s, got %v", tt.code.ID(), bag.Items())
			}
			n := countKind(res.Body, hir.ExprBad)
			for _, m := range res.Methods {
				n += countKind(m.Func.Body, hir.ExprBad)
			}
			if n != 1 {
				t.Fatalf("want exactly one bad expression, got %d", n)
			}
		})
	}
}

func TestStackGuard(t *testing.T) {
	b := testkit.New()
	e := b.Lit(0)
	for range 32 {
		e = b.Add(e, b.Lit(1))
	}
	fn := b.Method("M", 0).Body(b.Do(e))
	sess := closure.NewSession(b.Types, b.Symbols, nil, closure.Options{MaxDepth: 8})

	_, err := closure.Rewrite(context.Background(), sess, fn, nil)
	if !errors.Is(err, closure.ErrStackGuard) {
		t.Fatalf("want ErrStackGuard, got %v", err)
	}
	var sg *closure.StackGuardError
	if !errors.As(err, &sg) || sg.Method != "C.M" || sg.Depth != 8 {
		t.Fatalf("unexpected guard error %#v", err)
	}
}

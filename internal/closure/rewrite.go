package closure

import (
	"context"
	"fmt"

	"closconv/internal/diag"
	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/trace"
	"closconv/internal/types"
)

// Rewrite runs closure conversion over fn. A method without lambdas or local
// functions is returned unchanged: Result.Body is fn.Body itself.
//
// User errors are reported to rep and leave ExprBad nodes behind. A method
// nested deeper than Options.MaxDepth fails with a *StackGuardError. Broken
// invariants panic with *InternalError.
func Rewrite(ctx context.Context, sess *Session, fn *hir.Func, rep diag.Reporter) (res *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil || fn.Body == nil {
		return &Result{}, nil
	}

	an := newAnalysis(fn, sess, rep)
	defer func() {
		an.Free()
		if r := recover(); r != nil {
			g, ok := r.(stackGuard)
			if !ok {
				panic(r)
			}
			res, err = nil, &StackGuardError{Method: an.methodKey, Depth: g.depth}
		}
	}()

	buildScopeTree(an)
	if an.ClosureCount() == 0 && len(an.quoted) == 0 && len(an.badRefs) == 0 && len(an.badLambdas) == 0 {
		return &Result{Body: fn.Body}, nil
	}
	an.ComputeLambdaScopesAndFrameCaptures()
	SynthesizeEnvironments(an)

	sess.ReserveNodeIDs(hir.MaxNodeID(fn.Body))
	rw := newRewriter(an, trace.FromContext(ctx), trace.ParentFromContext(ctx))
	return rw.run(), nil
}

type ancestorKind uint8

const (
	ancestorScope ancestorKind = iota
	ancestorLoop
	ancestorLambda
)

type ancestor struct {
	kind  ancestorKind
	scope ScopeID
}

// frame is one entry of the frame-pointer lineage: something in reach that
// holds an environment (or the containing type's instance).
type frame struct {
	typ   types.TypeID
	sym   symbols.SymbolID
	this  bool
	byRef bool
}

// methodState is the rewriting state of the method currently being produced:
// the original method or one extracted closure body.
type methodState struct {
	name    string
	method  symbols.SymbolID
	closure ClosureID
	// topThis is set when this method's receiver is the containing type's instance.
	topThis bool
	lineage []frame
	params  map[symbols.SymbolID]symbols.SymbolID

	ctor       bool
	baseCalled bool
	pending    *hir.Stmt

	locals []symbols.SymbolID
}

type rewriter struct {
	an     *Analysis
	sess   *Session
	fn     *hir.Func
	tracer trace.Tracer
	span   uint64
	guard  depthGuard

	st        *methodState
	ancestors []ancestor
	envByType map[types.TypeID]EnvID
	methods   []SynthesizedMethod
	cacheN    int
}

func newRewriter(an *Analysis, tracer trace.Tracer, span uint64) *rewriter {
	rw := &rewriter{
		an:        an,
		sess:      an.sess,
		fn:        an.Func,
		tracer:    tracer,
		span:      span,
		guard:     depthGuard{max: an.sess.Options.MaxDepth},
		envByType: make(map[types.TypeID]EnvID, len(an.envs)),
	}
	for e := 1; e < len(an.envs); e++ {
		rw.envByType[an.envs[e].Type] = EnvID(e)
	}
	return rw
}

func (rw *rewriter) run() *Result {
	an := rw.an
	fn := rw.fn
	st := &methodState{
		name:    an.methodKey,
		method:  fn.SymbolID,
		topThis: true,
		ctor:    fn.IsCtor(),
	}
	if fn.This.IsValid() {
		st.lineage = append(st.lineage, frame{typ: fn.OwnerType, sym: fn.This, this: true})
	}
	rw.st = st
	body := rw.rewriteScopeBlock(fn.Body, an.Root)
	rw.finishMethod(body)

	res := &Result{
		Body:    body,
		Methods: rw.methods,
		stack:   make(map[hir.NodeID]bool, len(an.envs)),
	}
	for e := 1; e < len(an.envs); e++ {
		env := &an.envs[e]
		res.Types = append(res.Types, hir.TypeDecl{
			Name:     env.Name,
			SymbolID: env.TypeSym,
			TypeID:   env.Type,
			Span:     an.scopes[env.Scope].Span,
			Kind:     hir.TypeDeclEnvironment,
		})
		res.Environments = append(res.Environments, EnvInfo{
			Node:     env.Node,
			Name:     env.Name,
			TypeSym:  env.TypeSym,
			Type:     env.Type,
			IsStruct: env.IsStruct,
			Fields:   len(rw.sess.Types.Fields(env.Type)),
		})
		if env.Node.IsValid() {
			res.stack[env.Node] = env.IsStruct
		}
	}
	if an.newSingle {
		single := an.singleton
		res.Types = append(res.Types, hir.TypeDecl{
			Name:     rw.sess.Symbols.Name(single.TypeSym),
			SymbolID: single.TypeSym,
			TypeID:   single.Type,
			Kind:     hir.TypeDeclEnvironment,
		})
		res.Methods = append(res.Methods, SynthesizedMethod{Symbol: single.StaticCtor.SymbolID, Func: single.StaticCtor})
	}
	return res
}

// finishMethod checks the end-of-method invariants and adds method-level
// temporaries to the outermost block.
func (rw *rewriter) finishMethod(body *hir.Block) {
	st := rw.st
	if st.pending != nil {
		internalf(st.name, "parent frame assignment deferred past the constructor initializer was never emitted")
	}
	if len(st.locals) > 0 {
		body.Locals = append(body.Locals, st.locals...)
	}
}

func (rw *rewriter) point(name, detail string) {
	trace.Point(rw.tracer, trace.ScopeNode, rw.span, name, detail)
}

// extract rewrites the body of a closure into its synthesized method.
func (rw *rewriter) extract(id ClosureID) {
	an := rw.an
	c := &an.closures[id]
	info := rw.sess.Symbols.MustGet(c.Synthesized)
	st := &methodState{
		name:    info.Name,
		method:  c.Synthesized,
		closure: id,
		params:  c.ParamMap,
	}
	switch c.Kind {
	case ClosureGeneral:
		switch {
		case c.ContainerEnv.IsValid():
			st.lineage = append(st.lineage, frame{typ: an.envs[c.ContainerEnv].Type, sym: c.SynthThis, this: true})
		case !c.IsStatic:
			st.topThis = true
			st.lineage = append(st.lineage, frame{typ: rw.fn.OwnerType, sym: c.SynthThis, this: true})
		}
		for i, e := range c.StructEnvironments {
			st.lineage = append(st.lineage, frame{typ: an.envs[e].Type, sym: c.StructParams[i], byRef: true})
		}
	case ClosureThisOnly:
		st.topThis = true
		st.lineage = append(st.lineage, frame{typ: rw.fn.OwnerType, sym: c.SynthThis, this: true})
	case ClosureSingleton:
		st.lineage = append(st.lineage, frame{typ: c.ContainerType, sym: c.SynthThis, this: true})
	case ClosureStatic:
	}

	prev := rw.st
	rw.st = st
	rw.ancestors = append(rw.ancestors, ancestor{kind: ancestorLambda})
	body := rw.rewriteScopeBlock(c.Body, c.BodyScope)
	rw.ancestors = rw.ancestors[:len(rw.ancestors)-1]
	rw.finishMethod(body)
	rw.st = prev

	params := make([]hir.Param, 0, len(info.Params))
	for i, p := range info.Params {
		ps := rw.sess.Symbols.MustGet(p)
		param := hir.Param{Name: ps.Name, SymbolID: p, Type: ps.Type, ByRef: ps.Flags.Has(symbols.FlagByRef)}
		if i < len(c.Params) {
			param.Span = c.Params[i].Span
		}
		params = append(params, param)
	}
	flags := hir.FuncSynthesized
	if c.IsStatic {
		flags |= hir.FuncStatic
	}
	if info.Flags.Has(symbols.FlagAsync) {
		flags |= hir.FuncAsync
	}
	if info.Flags.Has(symbols.FlagIterator) {
		flags |= hir.FuncIterator
	}
	if rw.fn.IsGeneric() {
		flags |= hir.FuncGeneric
	}
	rw.methods = append(rw.methods, SynthesizedMethod{
		Symbol: c.Synthesized,
		Func: &hir.Func{
			Name:      info.Name,
			SymbolID:  c.Synthesized,
			Owner:     c.Container,
			OwnerType: c.ContainerType,
			This:      c.SynthThis,
			Span:      c.Span,
			Params:    params,
			Result:    c.Result,
			Flags:     flags,
			Body:      body,
		},
	})
	rw.point("closure", fmt.Sprintf("%s %s", c.Kind, info.Name))
}

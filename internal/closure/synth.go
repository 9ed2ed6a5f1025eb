package closure

import (
	"slices"
	"strconv"

	"closconv/internal/hir"
	"closconv/internal/symbols"
	"closconv/internal/types"
)

// SynthesizeEnvironments creates the environment types of an analyzed method
// and the method symbols its closures are extracted into.
func SynthesizeEnvironments(an *Analysis) {
	if an.envScopes == nil {
		an.computeEnvScopes()
	}
	an.methodID = an.sess.IDs.Method(an.methodKey)
	for s := 1; s < len(an.scopes); s++ {
		if an.envScopes.Has(ScopeID(s)) {
			an.envForScope(ScopeID(s))
		}
	}
	for e := 1; e < len(an.envs); e++ {
		an.linkParent(EnvID(e))
	}
	for c := 1; c < len(an.closures); c++ {
		an.resolveClosure(ClosureID(c))
	}
}

// nodeKey is the debug-id key of a scope or closure. Nodes without identity
// get a key outside the range the node allocator uses.
func nodeKey(node hir.NodeID, index uint32) hir.NodeID {
	if node.IsValid() {
		return node
	}
	return hir.NodeID(^uint32(0) - index)
}

func (an *Analysis) envForScope(s ScopeID) EnvID {
	if id, ok := an.envByScope[s]; ok {
		return id
	}
	sess := an.sess
	fn := an.Func
	sc := &an.scopes[s]

	isStruct := !an.StructIncompatible.Has(s)
	kind := types.KindClass
	if isStruct {
		kind = types.KindStruct
	}
	debugID := sess.IDs.Environment(an.methodKey, nodeKey(sc.Node, uint32(s)))
	name := symbols.DisplayClassName(an.methodID, debugID)
	typeSym, typeID := sess.Synth.SynthesizeType(kind, name, fn.Owner, fn.IsGeneric())

	vars := slices.Clone(sc.DeclaredVariables.Items())
	fields := make(map[symbols.SymbolID]symbols.SymbolID, len(vars))
	for i, v := range vars {
		info, ok := sess.Symbols.Get(v)
		if !ok {
			internalf(an.methodKey, "captured symbol %d is not in the symbol table", v)
		}
		fieldName := symbols.HoistedName(info.Name)
		field, err := sess.Synth.SynthesizeField(typeSym, fieldName, info.Type, false)
		if err != nil {
			// two captured variables with the same name in one scope
			field, err = sess.Synth.SynthesizeField(typeSym, fieldName+"$"+strconv.Itoa(i), info.Type, false)
		}
		if err != nil {
			internalf(an.methodKey, "environment field %s: %v", fieldName, err)
		}
		fields[v] = field
	}

	id := an.newEnv(Environment{
		Scope:             s,
		Node:              sc.Node,
		CapturedVariables: vars,
		IsStruct:          isStruct,
		DebugID:           debugID,
		Name:              name,
		Type:              typeID,
		TypeSym:           typeSym,
		Fields:            fields,
	})
	an.scopes[s].Environments = append(an.scopes[s].Environments, id)
	return id
}

func (an *Analysis) linkParent(id EnvID) {
	env := &an.envs[id]
	if env.IsStruct || !an.NeedsParentFrame.Has(env.Scope) {
		return
	}
	p, reachesThis := an.parentEnvScope(env.Scope)
	var name string
	switch {
	case p.IsValid():
		parent := an.envByScope[p]
		pe := &an.envs[parent]
		if pe.IsStruct {
			internalf(an.methodKey, "class environment %s links to struct %s", env.Name, pe.Name)
		}
		env.ParentEnv = parent
		env.ParentType = pe.Type
		name = symbols.ParentFieldName(false, pe.DebugID.Ordinal)
	case reachesThis:
		env.ParentIsThis = true
		env.ParentType = an.Func.OwnerType
		name = symbols.ParentFieldName(true, 0)
	default:
		return
	}
	field, err := an.sess.Synth.SynthesizeField(env.TypeSym, name, env.ParentType, false)
	if err != nil {
		internalf(an.methodKey, "parent field of %s: %v", env.Name, err)
	}
	env.CapturesParent = true
	env.ParentField = field
}

// chain returns the environments a placed closure reaches, innermost first,
// and whether the chain ends at the top-level this.
func (an *Analysis) chain(c *Closure) (envs []EnvID, reachesThis bool) {
	s := c.Placement
	for {
		envs = append(envs, an.envByScope[s])
		if s == c.Outermost {
			return envs, false
		}
		p, this := an.parentEnvScope(s)
		if !p.IsValid() {
			return envs, this && !c.Outermost.IsValid()
		}
		if c.Outermost.IsValid() && !an.isAncestor(c.Outermost, p) {
			return envs, false
		}
		s = p
	}
}

func (an *Analysis) resolveClosure(id ClosureID) {
	sess := an.sess
	fn := an.Func
	c := &an.closures[id]
	c.DebugID = sess.IDs.Closure(an.methodKey, nodeKey(c.Node, uint32(id)|1<<31))

	info, _ := sess.Symbols.Get(c.Symbol)
	c.Result = info.Result
	if !c.IsLocalFunc {
		if d, ok := sess.Types.DelegateInfo(c.Type); ok {
			c.Result = d.Result
		}
	}
	if c.Result == types.NoTypeID {
		c.Result = sess.Types.Builtins().Void
	}

	_, converted := an.ConvertedToDelegate[c.Symbol]
	switch {
	case c.Placement.IsValid():
		c.Kind = ClosureGeneral
		envs, reachesThis := an.chain(c)
		c.CapturedEnvironments = envs
		c.ContainingEnvironment = envs[0]
		var structs []EnvID
		for _, e := range envs {
			if !an.envs[e].IsStruct {
				c.ContainerEnv = e
				break
			}
			structs = append(structs, e)
		}
		slices.Reverse(structs)
		c.StructEnvironments = structs
		if c.ContainerEnv.IsValid() {
			c.Container = an.envs[c.ContainerEnv].TypeSym
			c.ContainerType = an.envs[c.ContainerEnv].Type
		} else {
			c.Container = fn.Owner
			c.ContainerType = fn.OwnerType
			c.IsStatic = !reachesThis || fn.IsStatic()
		}
	case c.CapturesThis:
		c.Kind = ClosureThisOnly
		c.Container = fn.Owner
		c.ContainerType = fn.OwnerType
	case !c.IsLocalFunc || converted:
		c.Kind = ClosureSingleton
		single, created := sess.singleton(fn, an.methodID)
		an.singleton = single
		an.newSingle = an.newSingle || created
		c.Container = single.TypeSym
		c.ContainerType = single.Type
	default:
		c.Kind = ClosureStatic
		c.Container = fn.Owner
		c.ContainerType = fn.OwnerType
		c.IsStatic = true
	}

	var name string
	if c.IsLocalFunc {
		name = symbols.LocalFunctionName(fn.Name, info.Name, an.methodID, c.DebugID)
	} else {
		name = symbols.LambdaMethodName(fn.Name, an.methodID, c.DebugID)
	}
	specs := make([]symbols.ParamSpec, 0, len(c.Params)+len(c.StructEnvironments))
	for _, p := range c.Params {
		specs = append(specs, symbols.ParamSpec{Name: p.Name, Type: p.Type, ByRef: p.ByRef})
	}
	for _, e := range c.StructEnvironments {
		env := &an.envs[e]
		specs = append(specs, symbols.ParamSpec{
			Name:  symbols.EnvLocalName(env.DebugID.Ordinal),
			Type:  env.Type,
			ByRef: true,
		})
	}
	flags := info.Flags & (symbols.FlagAsync | symbols.FlagIterator)
	if c.IsStatic {
		flags |= symbols.FlagStatic
	}
	if fn.IsGeneric() {
		flags |= symbols.FlagGeneric
	}
	c.Synthesized, c.SynthThis = sess.Synth.SynthesizeMethod(c.Container, name, specs, c.Result, flags)

	params := sess.Symbols.MustGet(c.Synthesized).Params
	c.ParamMap = make(map[symbols.SymbolID]symbols.SymbolID, len(c.Params))
	for i, p := range c.Params {
		c.ParamMap[p.SymbolID] = params[i]
	}
	c.StructParams = params[len(c.Params):]
}

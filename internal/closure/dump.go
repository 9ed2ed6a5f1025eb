package closure

import (
	"fmt"
	"io"
	"strings"

	"closconv/internal/symbols"
)

// DumpAnalysis writes the scope tree of an analysis with closure placements
// and environment kinds, one scope per line, children indented.
func DumpAnalysis(w io.Writer, an *Analysis) error {
	d := &dumper{w: w, an: an}
	d.printf("method %s\n", an.methodKey)
	if an.Root.IsValid() {
		d.scope(an.Root, 1)
	}
	return d.err
}

type dumper struct {
	w   io.Writer
	an  *Analysis
	err error
}

func (d *dumper) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dumper) names(ids []symbols.SymbolID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		if d.an.isThis(id) {
			parts[i] = "this"
			continue
		}
		parts[i] = d.an.sess.Symbols.Name(id)
	}
	return strings.Join(parts, ", ")
}

func (d *dumper) scope(id ScopeID, depth int) {
	an := d.an
	sc := &an.scopes[id]
	indent := strings.Repeat("  ", depth)
	d.printf("%sscope #%d node=%d", indent, id, sc.Node)
	if sc.BodyOf.IsValid() {
		d.printf(" body-of=#%d", sc.BodyOf)
	}
	if sc.Quoted {
		d.printf(" quoted")
	}
	if an.NeedsParentFrame.Has(id) {
		d.printf(" needs-parent")
	}
	if an.StructIncompatible.Has(id) {
		d.printf(" no-struct")
	}
	d.printf("\n")
	if vars := sc.DeclaredVariables.Items(); len(vars) > 0 {
		d.printf("%s  declares: %s\n", indent, d.names(vars))
	}
	for _, e := range sc.Environments {
		env := &an.envs[e]
		kind := "class"
		if env.IsStruct {
			kind = "struct"
		}
		d.printf("%s  env %s %s", indent, env.Name, kind)
		switch {
		case env.ParentIsThis:
			d.printf(" parent=this")
		case env.ParentEnv.IsValid():
			d.printf(" parent=%s", an.envs[env.ParentEnv].Name)
		}
		d.printf("\n")
	}
	for _, c := range sc.Closures {
		d.closure(c, indent+"  ")
	}
	for _, child := range sc.Children {
		d.scope(child, depth+1)
	}
}

func (d *dumper) closure(id ClosureID, indent string) {
	an := d.an
	c := &an.closures[id]
	what := "lambda"
	if c.IsLocalFunc {
		what = "local " + an.sess.Symbols.Name(c.Symbol)
	}
	d.printf("%sclosure #%d %s", indent, id, what)
	if c.Synthesized.IsValid() {
		d.printf(" -> %s (%s)", an.sess.Symbols.Name(c.Synthesized), c.Kind)
	}
	if c.Placement.IsValid() {
		d.printf(" at #%d", c.Placement)
	}
	if vars := c.CapturedVariables.Items(); len(vars) > 0 {
		d.printf(" captures: %s", d.names(vars))
	}
	if len(c.StructEnvironments) > 0 {
		refs := make([]string, len(c.StructEnvironments))
		for i, e := range c.StructEnvironments {
			refs[i] = an.envs[e].Name
		}
		d.printf(" ref: %s", strings.Join(refs, ", "))
	}
	d.printf("\n")
}

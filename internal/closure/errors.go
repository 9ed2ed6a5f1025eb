package closure

import (
	"errors"
	"fmt"
)

// ErrStackGuard reports that a method nests deeper than Options.MaxDepth.
var ErrStackGuard = errors.New("closure: nesting depth limit exceeded")

// StackGuardError is returned by Rewrite when the depth guard trips.
type StackGuardError struct {
	Method string
	Depth  int
}

func (e *StackGuardError) Error() string {
	return fmt.Sprintf("closure: %s: nesting depth exceeds %d", e.Method, e.Depth)
}

// Is makes errors.Is(err, ErrStackGuard) work.
func (e *StackGuardError) Is(target error) bool {
	return target == ErrStackGuard
}

// InternalError is the panic payload for broken invariants: unexpected node
// kinds, unresolvable frames, dangling closure lookups. It is never a user
// error; callers that must survive it recover and abort the method.
type InternalError struct {
	Method string
	Msg    string
}

func (e *InternalError) Error() string {
	if e.Method == "" {
		return "closure: internal error: " + e.Msg
	}
	return fmt.Sprintf("closure: internal error in %s: %s", e.Method, e.Msg)
}

func internalf(method, format string, args ...any) {
	panic(&InternalError{Method: method, Msg: fmt.Sprintf(format, args...)})
}

// stackGuard is the private panic payload used to unwind deep recursion up to
// the single recover in Rewrite.
type stackGuard struct{ depth int }

type depthGuard struct {
	depth int
	max   int
}

func (g *depthGuard) enter() {
	g.depth++
	if g.max > 0 && g.depth > g.max {
		panic(stackGuard{depth: g.max})
	}
}

func (g *depthGuard) leave() { g.depth-- }

package trace

import (
	"strconv"
	"time"
)

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Scope is the granularity of an event. Smaller values are coarser.
type Scope uint8

const (
	// ScopeDriver covers CLI-level work: loading and writing modules.
	ScopeDriver Scope = iota + 1
	// ScopePass covers one closure pass over a module.
	ScopePass
	// ScopeMethod covers a single method.
	ScopeMethod
	// ScopeNode covers single environments and closures.
	ScopeNode
)

var scopeNames = [...]string{
	ScopeDriver: "driver",
	ScopePass:   "pass",
	ScopeMethod: "method",
	ScopeNode:   "node",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "scope(" + strconv.Itoa(int(s)) + ")"
}

// Event is a single trace record. Seq is assigned by the tracer that stores
// or writes the event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Name     string // "closure_conversion", a method key, "env", "lambda"...
	Detail   string
	Dur      time.Duration // set on span ends
	Extra    map[string]string
}

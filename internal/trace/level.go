package trace

import (
	"fmt"
	"strings"
)

// Level controls how much is traced.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring buffer only, dumped when a run fails
	LevelPhase        // driver and pass spans
	LevelDetail       // plus one span per method
	LevelDebug        // plus environment and closure points
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the names printed by Level.String; "" means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames, "|"))
}

// ShouldEmit reports whether events of scope are recorded at this level.
// LevelError records everything into its ring buffer.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError, LevelDebug:
		return true
	case LevelPhase:
		return scope <= ScopePass
	default:
		return scope <= ScopeMethod
	}
}

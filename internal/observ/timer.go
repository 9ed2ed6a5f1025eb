// Package observ collects wall-clock timings of a closconv run.
package observ

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// Phase is one timed step of a run. Nested phases are indented under the
// previous top-level phase when printed.
type Phase struct {
	Name   string
	Dur    time.Duration
	Note   string
	Nested bool
}

// Timer is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Track starts a top-level phase. Calling the returned func ends it.
func (t *Timer) Track(name string) func(note string) {
	start := time.Now()
	return func(note string) {
		t.Add(Phase{Name: name, Dur: time.Since(start), Note: note})
	}
}

// Add records an already measured phase.
func (t *Timer) Add(p Phase) {
	t.mu.Lock()
	t.phases = append(t.phases, p)
	t.mu.Unlock()
}

// Phases returns a copy of the recorded phases in the order they ended.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.phases)
}

// Total sums the top-level phases.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Phases() {
		if !p.Nested {
			total += p.Dur
		}
	}
	return total
}

const nameWidth = 28

// WriteSummary prints one line per phase followed by the total.
func (t *Timer) WriteSummary(w io.Writer) error {
	phases := t.Phases()
	if len(phases) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "timings:"); err != nil {
		return err
	}
	for _, p := range phases {
		indent, width := "  ", nameWidth
		if p.Nested {
			indent, width = "    ", nameWidth-2
		}
		name := runewidth.FillRight(runewidth.Truncate(p.Name, width, "..."), width)
		line := fmt.Sprintf("%s%s %8.2f ms", indent, name, millis(p.Dur))
		if p.Note != "" {
			line += "  // " + p.Note
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %s %8.2f ms\n", runewidth.FillRight("total", nameWidth), millis(t.Total()))
	return err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

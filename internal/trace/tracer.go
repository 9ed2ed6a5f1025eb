package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations are safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory, dumped on failure
	ModeBoth
)

var modeNames = map[string]StorageMode{
	"stream": ModeStream,
	"ring":   ModeRing,
	"both":   ModeBoth,
}

func (m StorageMode) String() string {
	for name, mode := range modeNames {
		if mode == m {
			return name
		}
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both; "" means stream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	if mode, ok := modeNames[s]; ok {
		return mode, nil
	}
	return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes a tracer built by New.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int       // defaults to 4096
	Heartbeat  time.Duration
}

// New builds the tracer described by cfg. LevelError always uses a ring
// buffer alone since its events are only shown after a failure.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	if cfg.Level == LevelError {
		cfg.Mode = ModeRing
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatForPath(cfg.OutputPath)
	}

	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, format)
		if cfg.Mode == ModeStream {
			return stream, nil
		}
		return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return keepOpen{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// keepOpen stops StreamTracer.Close from closing stderr.
type keepOpen struct{ io.Writer }

// Ring returns the ring buffer behind t, or nil.
func Ring(t Tracer) *RingTracer {
	switch tt := t.(type) {
	case *RingTracer:
		return tt
	case *MultiTracer:
		for _, inner := range tt.tracers {
			if r := Ring(inner); r != nil {
				return r
			}
		}
	}
	return nil
}

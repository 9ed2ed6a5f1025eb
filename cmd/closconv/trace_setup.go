package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"closconv/internal/config"
	"closconv/internal/trace"
)

// setupTracing initializes the tracer from the merged trace settings and
// attaches it to the command context. The returned cleanup flushes the tracer;
// when failed is true and the tracer keeps a ring buffer, the ring is dumped
// to stderr first.
func setupTracing(cmd *cobra.Command, tc config.TraceConfig) (func(failed bool), error) {
	root := cmd.Root()

	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(tc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}
	mode, err := trace.ParseMode(tc.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: tc.Output,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	return func(failed bool) {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if ring := trace.Ring(tracer); ring != nil && failed {
			fmt.Fprintln(os.Stderr, "trace: last events before the failure")
			if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
				fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

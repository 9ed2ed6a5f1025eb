package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"closconv/internal/closure"
	"closconv/internal/config"
	"closconv/internal/driver"
)

// settings is closconv.toml merged with the command line. Explicit flags win.
type settings struct {
	cfg      config.Config
	cfgPath  string
	useColor bool
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Root().PersistentFlags()

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, cfgPath, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	if flags.Changed("max-diagnostics") {
		if cfg.Diagnostics.Max, err = flags.GetInt("max-diagnostics"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("trace-mode") {
		if cfg.Trace.Mode, err = flags.GetString("trace-mode"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Lookup("jobs") != nil && cmd.Flags().Changed("jobs") {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return nil, err
		}
		if jobs < 0 {
			return nil, fmt.Errorf("%w: --jobs must not be negative", config.ErrInvalidValue)
		}
		cfg.Rewrite.Jobs = jobs
	}
	if cmd.Flags().Lookup("max-depth") != nil && cmd.Flags().Changed("max-depth") {
		if cfg.Rewrite.MaxDepth, err = cmd.Flags().GetInt("max-depth"); err != nil {
			return nil, err
		}
		if cfg.Rewrite.MaxDepth <= 0 {
			return nil, fmt.Errorf("%w: --max-depth must be positive", config.ErrInvalidValue)
		}
	}
	if cmd.Flags().Lookup("no-cache") != nil && cmd.Flags().Changed("no-cache") {
		noCache, err := cmd.Flags().GetBool("no-cache")
		if err != nil {
			return nil, err
		}
		cfg.Rewrite.CacheDelegates = !noCache
	}

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	switch colorFlag {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("%w: --color %q (expected auto|on|off)", config.ErrInvalidValue, colorFlag)
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stderr))

	return &settings{cfg: cfg, cfgPath: cfgPath, useColor: useColor}, nil
}

// driverOptions builds the driver options; ids may be nil.
func (s *settings) driverOptions(ids closure.IDAllocator) driver.Options {
	return driver.Options{
		Closure: closure.Options{
			MaxDepth:       s.cfg.Rewrite.MaxDepth,
			CacheDelegates: s.cfg.Rewrite.CacheDelegates,
		},
		Jobs:           s.cfg.JobCount(),
		MaxDiagnostics: s.cfg.Diagnostics.Max,
		IDs:            ids,
	}
}

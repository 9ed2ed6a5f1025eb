// Package config loads closconv.toml, the per-project settings of the
// closure conversion tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"closconv/internal/trace"
)

// FileName is the manifest looked up from the working directory upwards.
const FileName = "closconv.toml"

var (
	// ErrUnknownKey is wrapped by Load when the file has keys Config does not know.
	ErrUnknownKey = errors.New("unknown keys")
	// ErrInvalidValue is wrapped by Load when a known key has a bad value.
	ErrInvalidValue = errors.New("invalid value")
)

// Config is the merged tool configuration.
type Config struct {
	Rewrite     RewriteConfig     `toml:"rewrite"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Trace       TraceConfig       `toml:"trace"`
}

// RewriteConfig tunes the closure pass and the driver.
type RewriteConfig struct {
	MaxDepth       int  `toml:"max_depth"`
	CacheDelegates bool `toml:"cache_delegates"`
	// Jobs bounds the number of methods rewritten in parallel; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

// DiagnosticsConfig limits diagnostic output.
type DiagnosticsConfig struct {
	Max int `toml:"max"`
}

// TraceConfig mirrors the --trace flags.
type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Rewrite: RewriteConfig{
			MaxDepth:       512,
			CacheDelegates: true,
		},
		Diagnostics: DiagnosticsConfig{Max: 100},
		Trace: TraceConfig{
			Level: "off",
			Mode:  "stream",
		},
	}
}

// JobCount resolves Jobs to a positive worker count.
func (c *Config) JobCount() int {
	if c.Rewrite.Jobs > 0 {
		return c.Rewrite.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// Find walks from startDir to the filesystem root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest manifest above startDir. Without one it
// returns the defaults and an empty path.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Load decodes path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: %s", path, ErrUnknownKey, strings.Join(keys, ", "))
	}
	if meta.IsDefined("rewrite", "max_depth") && cfg.Rewrite.MaxDepth <= 0 {
		return Config{}, fmt.Errorf("%s: %w: [rewrite].max_depth must be positive", path, ErrInvalidValue)
	}
	if meta.IsDefined("rewrite", "jobs") && cfg.Rewrite.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: %w: [rewrite].jobs must not be negative", path, ErrInvalidValue)
	}
	if meta.IsDefined("diagnostics", "max") && cfg.Diagnostics.Max < 0 {
		return Config{}, fmt.Errorf("%s: %w: [diagnostics].max must not be negative", path, ErrInvalidValue)
	}
	if err := cfg.validateTrace(); err != nil {
		return Config{}, fmt.Errorf("%s: %w: %w", path, ErrInvalidValue, err)
	}
	return cfg, nil
}

func (c *Config) validateTrace() error {
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	return nil
}

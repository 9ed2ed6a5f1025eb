// Package main implements the closconv CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"closconv/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "closconv",
	Short: "Closure conversion for lowered HIR modules",
	Long: `closconv rewrites lambdas and local functions of a HIR module into
synthesized environment classes, structs and methods.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "path to closconv.toml (default: nearest one above the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer capacity for --trace-mode=ring")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
}

// main executes the root command. Any error exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

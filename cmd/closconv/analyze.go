package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"closconv/internal/driver"
	"closconv/internal/hirpack"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <module.hirpack>",
	Short: "Print scope trees and environment placement without rewriting",
	Args:  cobra.ExactArgs(1),
	RunE:  analyzeExecution,
}

func init() {
	analyzeCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	analyzeCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	analyzeCmd.Flags().Int("max-depth", 0, "nesting limit before a method is skipped (overrides [rewrite].max_depth)")
}

func analyzeExecution(cmd *cobra.Command, args []string) (err error) {
	report, err := readReportFlags(cmd)
	if err != nil {
		return err
	}
	st, err := loadSettings(cmd)
	if err != nil {
		return report.fail(configFailureCode(err), "", err)
	}
	report.useColor = st.useColor
	report.max = st.cfg.Diagnostics.Max

	cleanup, err := setupTracing(cmd, st.cfg.Trace)
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil) }()

	m, err := hirpack.Load(args[0])
	if err != nil {
		return report.fail(loadFailureCode(err), args[0], err)
	}
	bag, err := driver.AnalyzeModule(cmd.Context(), cmd.OutOrStdout(), m, st.driverOptions(nil))
	if bag != nil {
		if perr := report.print(os.Stderr, bag, m.Path); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		return errors.New("analysis reported errors")
	}
	return nil
}

package main

import (
	"github.com/spf13/cobra"

	"closconv/internal/hir"
	"closconv/internal/hirpack"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <module.hirpack>",
	Short: "Print a hirpack module as text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := hirpack.Load(args[0])
		if err != nil {
			return err
		}
		return hir.Dump(cmd.OutOrStdout(), m)
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"closconv/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show all build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show closconv build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		showHash := versionShowHash || versionShowFull
		showDate := versionShowDate || versionShowFull
		switch strings.ToLower(versionFormat) {
		case "json":
			return renderVersionJSON(cmd.OutOrStdout(), showHash, showDate)
		case "pretty":
			colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
			if err != nil {
				return err
			}
			switch colorFlag {
			case "on":
				color.NoColor = false
			case "off":
				color.NoColor = true
			}
			renderVersionPretty(cmd.OutOrStdout(), showHash, showDate)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func renderVersionPretty(out io.Writer, showHash, showDate bool) {
	fmt.Fprintf(out, "closconv %s (%s)\n", version.Colored(), runtime.Version())
	if showHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(version.GitCommit))
	}
	if showDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(version.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, showHash, showDate bool) error {
	payload := versionPayload{
		Tool:      "closconv",
		Version:   strings.TrimSpace(version.Version),
		GoVersion: runtime.Version(),
	}
	if showHash {
		payload.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if showDate {
		payload.BuildDate = valueOrUnknown(version.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

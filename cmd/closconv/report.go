package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"closconv/internal/config"
	"closconv/internal/diag"
	"closconv/internal/diagfmt"
	"closconv/internal/source"
)

type reportOptions struct {
	format    string
	withNotes bool
	max       int
	useColor  bool
}

func readReportFlags(cmd *cobra.Command) (reportOptions, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return reportOptions{}, err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return reportOptions{}, err
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json":
	default:
		return reportOptions{}, fmt.Errorf("unsupported format %q (must be pretty, short or json)", format)
	}
	return reportOptions{format: format, withNotes: withNotes}, nil
}

// print writes bag to w in the selected format. Pretty output skips the
// summary when there is nothing to report.
func (o reportOptions) print(w io.Writer, bag *diag.Bag, modulePath string) error {
	switch o.format {
	case "short":
		if out := diag.FormatShortDiagnostics(bag.Items(), o.withNotes); out != "" {
			_, err := fmt.Fprintln(w, out)
			return err
		}
		return nil
	case "json":
		return diagfmt.JSON(w, bag, diagfmt.JSONOpts{
			Max:          o.max,
			IncludeNotes: o.withNotes,
			Fallback:     modulePath,
		})
	default:
		if bag.Len() == 0 {
			return nil
		}
		if err := diagfmt.Pretty(w, bag, diagfmt.PrettyOpts{
			Color:     o.useColor,
			ShowNotes: o.withNotes,
			Fallback:  modulePath,
		}); err != nil {
			return err
		}
		return diagfmt.Summary(w, bag, o.useColor)
	}
}

// reportedError is an error already printed as a diagnostic; main only sets
// the exit status for it.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// fail prints err to stderr as a single diagnostic with code.
func (o reportOptions) fail(code diag.Code, path string, err error) error {
	bag := diag.NewBag(1)
	diag.ReportError(diag.BagReporter{Bag: bag}, code, source.Span{}, err.Error()).Emit()
	if perr := o.print(os.Stderr, bag, path); perr != nil {
		return errors.Join(err, perr)
	}
	return &reportedError{err: err}
}

func loadFailureCode(err error) diag.Code {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return diag.IOLoadFileError
	}
	return diag.IODecodeError
}

func configFailureCode(err error) diag.Code {
	switch {
	case errors.Is(err, config.ErrUnknownKey):
		return diag.CfgUnknownKey
	case errors.Is(err, config.ErrInvalidValue):
		return diag.CfgInvalidValue
	default:
		return diag.IOLoadFileError
	}
}

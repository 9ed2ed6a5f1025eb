package main

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"closconv/internal/closure"
	"closconv/internal/debugid"
	"closconv/internal/diag"
	"closconv/internal/driver"
	"closconv/internal/hir"
	"closconv/internal/hirpack"
	"closconv/internal/observ"
	"closconv/internal/prof"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [flags] <module.hirpack>",
	Short: "Convert lambdas and local functions of a module",
	Long: `Rewrite every method of a HIR module, lifting lambdas and local functions
into synthesized methods and environment types. The result is written to -o
as a hirpack, or printed as text when -o is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: rewriteExecution,
}

func init() {
	rewriteCmd.Flags().StringP("output", "o", "", "write the rewritten module to this hirpack file")
	rewriteCmd.Flags().String("ids", "", "debug-id cache file keeping synthesized names stable across runs")
	rewriteCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	rewriteCmd.Flags().Int("jobs", 0, "methods rewritten in parallel (0 = GOMAXPROCS)")
	rewriteCmd.Flags().Int("max-depth", 0, "nesting limit before a method is skipped (overrides [rewrite].max_depth)")
	rewriteCmd.Flags().Bool("no-cache", false, "do not cache delegates of non-capturing closures")
	rewriteCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	rewriteCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	rewriteCmd.Flags().Bool("quiet", false, "suppress the summary line")
	rewriteCmd.Flags().String("cpuprofile", "", "write a CPU profile to this file")
	rewriteCmd.Flags().String("memprofile", "", "write a heap profile to this file")
	rewriteCmd.Flags().String("exectrace", "", "write a runtime execution trace to this file")
}

// slowestShown is how many methods --timings lists under the rewrite phase.
const slowestShown = 5

func rewriteExecution(cmd *cobra.Command, args []string) (err error) {
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	idsPath, err := cmd.Flags().GetString("ids")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	report, err := readReportFlags(cmd)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	profOpts, err := readProfileFlags(cmd)
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

	if profOpts.Enabled() {
		session, perr := prof.Start(profOpts)
		if perr != nil {
			return perr
		}
		defer func() {
			if perr := session.Stop(); perr != nil && err == nil {
				err = perr
			}
		}()
	}

	timer := observ.NewTimer()
	stopLoad := timer.Track("load")
	m, err := hirpack.Load(args[0])
	if err != nil {
		return report.fail(loadFailureCode(err), args[0], err)
	}
	stopLoad(fmt.Sprintf("%d funcs", len(m.Funcs)))

	var ids *debugid.Allocator
	var alloc closure.IDAllocator
	if idsPath != "" {
		if ids, err = debugid.Load(idsPath); err != nil {
			return fmt.Errorf("failed to load debug ids: %w", err)
		}
		alloc = ids
	}
	opts := st.driverOptions(alloc)

	keys := methodKeys(m)
	useUI, err := useProgressUI(uiValue, len(keys))
	if err != nil {
		return err
	}

	stopRewrite := timer.Track("rewrite")
	var res *driver.Result
	if useUI {
		res, err = runRewriteWithUI(cmd.Context(), "closconv rewrite", keys, m, opts)
	} else {
		res, err = driver.RewriteModule(cmd.Context(), m, opts)
	}
	if err != nil {
		return err
	}
	stopRewrite(fmt.Sprintf("%d changed, jobs=%d", res.Changed, opts.Jobs))
	addSlowestMethods(timer, res.Methods, slowestShown)

	if err := report.print(os.Stderr, res.Bag, m.Path); err != nil {
		return err
	}

	stopWrite := timer.Track("write")
	if outPath != "" {
		if err := hirpack.Save(outPath, res.Module); err != nil {
			return report.fail(diag.IOEncodeError, outPath, err)
		}
	} else if err := hir.Dump(cmd.OutOrStdout(), res.Module); err != nil {
		return err
	}
	stopWrite("")
	if ids != nil && ids.Dirty() {
		if err := ids.Save(idsPath); err != nil {
			return fmt.Errorf("failed to save debug ids: %w", err)
		}
	}

	if showTimings {
		if err := timer.WriteSummary(os.Stderr); err != nil {
			return err
		}
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "rewrote %d of %d methods in %s\n",
			res.Changed, len(res.Methods), res.Elapsed.Round(time.Millisecond))
	}
	if res.Bag.HasErrors() {
		return errors.New("closure conversion reported errors; failed methods were left unchanged")
	}
	return nil
}

// methodKeys names the methods the way the driver reports them.
func methodKeys(m *hir.Module) []string {
	return closure.MethodKeys(m.Symbols, m.Funcs)
}

func readProfileFlags(cmd *cobra.Command) (prof.Options, error) {
	var opts prof.Options
	var err error
	if opts.CPU, err = cmd.Flags().GetString("cpuprofile"); err != nil {
		return opts, err
	}
	if opts.Mem, err = cmd.Flags().GetString("memprofile"); err != nil {
		return opts, err
	}
	if opts.Trace, err = cmd.Flags().GetString("exectrace"); err != nil {
		return opts, err
	}
	return opts, nil
}

// addSlowestMethods records the n slowest methods as nested phases.
func addSlowestMethods(timer *observ.Timer, methods []driver.MethodResult, n int) {
	order := make([]int, len(methods))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(methods[b].Elapsed, methods[a].Elapsed)
	})
	for _, i := range order[:min(n, len(order))] {
		timer.Add(observ.Phase{
			Name:   methods[i].Key,
			Dur:    methods[i].Elapsed,
			Note:   string(methods[i].Status()),
			Nested: true,
		})
	}
}

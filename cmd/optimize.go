package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/coverage"
	"github.com/sells-group/location-optimizer/internal/metrics"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/pipeline"
	"github.com/sells-group/location-optimizer/internal/report"
	"github.com/sells-group/location-optimizer/internal/solver"
	"github.com/sells-group/location-optimizer/internal/validation"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize site selection for one or more constraint sets",
	Long: "Reads candidate sites and customer demand, then for every selected constraint set computes\n" +
		"coverage, checks feasibility, solves the covering model, assigns each customer to one opened\n" +
		"site and writes the location table and map.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		sets, err := cfg.ConstraintSets()
		if err != nil {
			return err
		}
		names, _ := cmd.Flags().GetStringSlice("sets")
		all, _ := cmd.Flags().GetBool("all")
		selected, err := chooseSets(cmd.InOrStdin(), cmd.ErrOrStderr(), sets, names, all, isTerminal(os.Stdin))
		if err != nil {
			return err
		}

		warnings := &validation.Warnings{}
		in, err := loadInputs(warnings)
		if err != nil {
			return err
		}

		slv, err := solver.New(cfg.SolverOptions())
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		if metricsFile == "" {
			metricsFile = cfg.Metrics.File
		}
		var rec *metrics.Recorder
		if metricsFile != "" {
			rec = metrics.New(true)
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = cfg.Output.Dir
		}
		opts := []pipeline.Option{
			pipeline.WithWarnings(warnings),
			pipeline.WithConcurrency(cfg.Pipeline.MaxConcurrentSets),
			pipeline.WithOutput(outDir, cfg.Output.GeoJSON),
			pipeline.WithSolveTimeout(cfg.SolverTimeout()),
			pipeline.WithMetrics(rec),
			pipeline.WithCalculator(coverage.NewCalculator(coverage.WithWorkers(cfg.Optimization.Workers))),
		}
		if st != nil {
			opts = append(opts, pipeline.WithStore(st))
		}
		runner := pipeline.New(slv, cfg.Params(), opts...)

		zap.L().Info("optimize: starting",
			zap.Int("sites", len(in.Sites)),
			zap.Int("demand", len(in.Demand)),
			zap.Int("sets", len(selected)),
			zap.String("solver", slv.Name()),
		)
		results, runErr := runner.RunAll(ctx, in, selected)

		locale, _ := cmd.Flags().GetString("locale")
		if err := printResults(cmd.OutOrStdout(), results, cfg.Output.Format, locale); err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), warnings.List())

		if rec != nil {
			if err := rec.WriteFile(metricsFile); err != nil {
				zap.L().Warn("optimize: failed to write metrics", zap.Error(err))
			}
		}
		return runErr
	},
}

func init() {
	optimizeCmd.Flags().StringSlice("sets", nil, "constraint sets to evaluate by name (comma-separated)")
	optimizeCmd.Flags().Bool("all", false, "evaluate every configured constraint set")
	optimizeCmd.Flags().String("output", "", "output directory (overrides output.dir)")
	optimizeCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format to this file")
	optimizeCmd.Flags().String("locale", "de", "number formatting locale of the table output")
	rootCmd.AddCommand(optimizeCmd)
}

// chooseSets resolves the sets to evaluate from flags, prompting when
// neither --sets nor --all is given and stdin is interactive.
func chooseSets(in io.Reader, out io.Writer, sets []model.ConstraintSet, names []string, all, interactive bool) ([]model.ConstraintSet, error) {
	switch {
	case all && len(names) > 0:
		return nil, eris.New("--sets and --all are mutually exclusive")
	case all:
		return sets, nil
	case len(names) > 0:
		return setsByName(sets, names)
	case len(sets) == 1:
		return sets, nil
	case interactive:
		return promptSets(in, out, sets)
	default:
		return nil, eris.New("select constraint sets with --sets or --all")
	}
}

// interruptContext is cancelled on SIGINT or SIGTERM so a running solver
// process is killed and the run recorded as failed.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// printResults writes the location table (or CSV) of each completed set and
// a line per failed or skipped set.
func printResults(out io.Writer, results []*pipeline.SetResult, format, locale string) error {
	for i, res := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		if res.Skipped {
			_, _ = fmt.Fprintf(out, "%s: SKIPPED: run aborted\n", res.ConstraintSet.Name)
			continue
		}
		if res.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: FAILED: %v\n", res.ConstraintSet.Name, rootMessage(res.Err))
			continue
		}
		var err error
		if format == "csv" {
			err = report.WriteCSV(out, res.Rows)
		} else {
			err = report.WriteTable(out, res.ConstraintSet.Name, res.Rows, locale)
			r := res.Result
			_, _ = fmt.Fprintf(out, "served %.1f%% of demand (required %.1f%%), objective %.4f\n",
				r.AchievedLevel*100, r.RequiredLevel*100, r.Objective)
			for _, f := range res.Files {
				_, _ = fmt.Fprintf(out, "wrote %s\n", f)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rootMessage prefers the validation message over the wrap chain.
func rootMessage(err error) string {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

func printWarnings(out io.Writer, ws []validation.Warning) {
	if len(ws) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "%d warning(s):\n", len(ws))
	for _, w := range ws {
		_, _ = fmt.Fprintf(out, "  - %s\n", strings.TrimSpace(w.String()))
	}
}

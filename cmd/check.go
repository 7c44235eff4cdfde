package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/location-optimizer/internal/coverage"
	"github.com/sells-group/location-optimizer/internal/validation"
)

// feasibilityRow is one line of the check report.
type feasibilityRow struct {
	Set         string
	Feasibility *validation.Feasibility
	Err         error
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate inputs and check service-level feasibility without solving",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		sets, err := cfg.ConstraintSets()
		if err != nil {
			return err
		}
		if names, _ := cmd.Flags().GetStringSlice("sets"); len(names) > 0 {
			if sets, err = setsByName(sets, names); err != nil {
				return err
			}
		}

		warnings := &validation.Warnings{}
		in, err := loadInputs(warnings)
		if err != nil {
			return err
		}

		calc := coverage.NewCalculator(coverage.WithWorkers(cfg.Optimization.Workers))
		params := cfg.Params()
		rows := make([]feasibilityRow, 0, len(sets))
		var errs []error
		for _, cs := range sets {
			row := feasibilityRow{Set: cs.Name}
			if err := validation.CheckConstraintSet(cs, params); err != nil {
				row.Err = err
			} else if cov, err := calc.Compute(ctx, in.Demand, in.Sites, cs, params); err != nil {
				return err
			} else {
				row.Feasibility, row.Err = validation.CheckFeasibility(cs, &cov.Map, in.Demand, params.ServiceLevel)
				if row.Feasibility != nil {
					warnings.Add(row.Feasibility.Warnings...)
				}
			}
			if row.Err != nil {
				errs = append(errs, row.Err)
			}
			rows = append(rows, row)
		}

		formatFeasibility(cmd.OutOrStdout(), len(in.Sites), len(in.Demand), rows)
		printWarnings(cmd.ErrOrStderr(), warnings.List())
		return errors.Join(errs...)
	},
}

func init() {
	checkCmd.Flags().StringSlice("sets", nil, "constraint sets to check by name (default all)")
	rootCmd.AddCommand(checkCmd)
}

func formatFeasibility(out io.Writer, sites, demand int, rows []feasibilityRow) {
	_, _ = fmt.Fprintf(out, "%d candidate sites, %d demand points\n", sites, demand)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SET\tTOTAL\tCOVERABLE\tACHIEVABLE\tREQUIRED\tUNCOVERED\tRESULT")
	for _, r := range rows {
		f := r.Feasibility
		if f == nil {
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%v\n", r.Set, r.Err)
			continue
		}
		result := "ok"
		if r.Err != nil {
			result = "impossible"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%.1f%%\t%d\t%s\n",
			r.Set, f.TotalWeight, f.CoverableWeight, f.Achievable*100, f.Required*100, len(f.Uncovered), result)
	}
	_ = w.Flush()
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/location-optimizer/internal/model"
)

// setsByName picks sets by case-insensitive name, keeping the order given.
func setsByName(sets []model.ConstraintSet, names []string) ([]model.ConstraintSet, error) {
	var out []model.ConstraintSet
	seen := make(map[int]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		idx := -1
		for i, cs := range sets {
			if strings.EqualFold(cs.Name, n) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, eris.Errorf("unknown constraint set %q", n)
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, sets[idx])
		}
	}
	if len(out) == 0 {
		return nil, eris.New("no constraint sets selected")
	}
	return out, nil
}

// parseSelection parses "all" or comma-separated 1-based indices.
func parseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "all") {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	var out []int
	seen := make(map[int]bool)
	for part := range strings.SplitSeq(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, eris.Errorf("%q is not a number", part)
		}
		if i < 1 || i > n {
			return nil, eris.Errorf("%d is out of range 1-%d", i, n)
		}
		if !seen[i-1] {
			seen[i-1] = true
			out = append(out, i-1)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("nothing selected")
	}
	return out, nil
}

// printSets lists sets with their 1-based index.
func printSets(out io.Writer, sets []model.ConstraintSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tNAME\tMAX_KM\tDECAY_KM\tCOST_PRESTIGE\tCOST_STANDARD")
	for i, cs := range sets {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%g\t%g\n",
			i+1, cs.Name, cs.MaxDistanceKM, cs.DecayStartKM, cs.CostPrestige, cs.CostStandard)
	}
	_ = w.Flush()
}

// promptSets asks on in until a valid selection is entered.
func promptSets(in io.Reader, out io.Writer, sets []model.ConstraintSet) ([]model.ConstraintSet, error) {
	printSets(out, sets)
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "Select constraint sets (\"all\" or e.g. 1,3): ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, eris.Wrap(err, "read selection")
			}
			return nil, eris.New("no selection entered")
		}
		idx, err := parseSelection(sc.Text(), len(sets))
		if err != nil {
			_, _ = fmt.Fprintf(out, "Invalid selection: %v\n", err)
			continue
		}
		chosen := make([]model.ConstraintSet, len(idx))
		for i, k := range idx {
			chosen[i] = sets[k]
		}
		return chosen, nil
	}
}

package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/location-optimizer/internal/model"
)

// CheckFields verifies that a tabular header contains every required field.
// Field names are compared case-insensitively after trimming.
func CheckFields(header, required []string, description string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[normalizeField(h)] = true
	}
	var missing []string
	for _, r := range required {
		if !have[normalizeField(r)] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return newError(KindStructural, "", "%s missing required fields: %s", description, strings.Join(missing, ", "))
	}
	return nil
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckUniqueKeys fails when a key occurs more than once. Demand must be
// aggregated per key before it reaches coverage computation.
func CheckUniqueKeys(keys []string, description string) error {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}
	var dups []string
	extra := 0
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
			extra += n - 1
		}
	}
	if extra == 0 {
		return nil
	}
	sort.Strings(dups)
	if len(dups) > 5 {
		dups = append(dups[:5], "...")
	}
	return newError(KindStructural, "", "duplicate keys found in %s: %d duplicates (%s)", description, extra, strings.Join(dups, ", "))
}

// CheckConstraintSet validates a constraint set together with the
// process-wide parameters before any computation uses them.
func CheckConstraintSet(cs model.ConstraintSet, params model.Params) error {
	var errs []string
	if err := cs.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := params.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return newError(KindConstraint, cs.Name, "%s", strings.Join(errs, "; "))
	}
	return nil
}

// CheckMapIntegrity compares the demand weight shown in a visualization
// payload with the input total.
func CheckMapIntegrity(cs string, input, shown int64) []Warning {
	if input == shown {
		return nil
	}
	msg := fmt.Sprintf("visualization mismatch: %d customers not shown on map", input-shown)
	if input < shown {
		msg = fmt.Sprintf("visualization mismatch: map shows %d customers more than the input", shown-input)
	}
	return []Warning{newWarning(WarnMapMismatch, cs, "%s", msg)}
}

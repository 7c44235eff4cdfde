package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// termsPerLine keeps LP rows well under the 255 character line limit some
// readers enforce.
const termsPerLine = 8

// WriteLP writes p in CPLEX LP format. Every variable is listed in the
// objective, zero coefficients included, so readers that number columns by
// first appearance number them in declaration order.
func WriteLP(w io.Writer, p *Problem) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	if p.Name != "" {
		fmt.Fprintf(bw, "\\* %s *\\\n", p.Name)
	}
	if p.Sense == Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}

	obj := make([]Term, len(p.Vars))
	for i, v := range p.Vars {
		obj[i] = Term{Var: i, Coef: v.Obj}
	}
	bw.WriteString(" obj:")
	writeTerms(bw, p, obj, true)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for _, c := range p.Constraints {
		fmt.Fprintf(bw, " %s:", c.Name)
		if len(c.Terms) == 0 {
			// An empty row still needs a variable; anchor it on the first one.
			writeTerms(bw, p, []Term{{Var: 0, Coef: 0}}, true)
		} else {
			writeTerms(bw, p, c.Terms, false)
		}
		fmt.Fprintf(bw, " %s %s\n", c.Op, formatNumber(c.RHS))
	}

	var continuous []int
	var binaries []int
	for i, v := range p.Vars {
		if v.Kind == Binary {
			binaries = append(binaries, i)
		} else {
			continuous = append(continuous, i)
		}
	}

	if len(continuous) > 0 {
		bw.WriteString("Bounds\n")
		for _, i := range continuous {
			v := p.Vars[i]
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatBound(v.Lower), v.Name, formatBound(v.Upper))
		}
	}

	if len(binaries) > 0 {
		bw.WriteString("Binaries\n")
		for n, i := range binaries {
			if n > 0 && n%termsPerLine == 0 {
				bw.WriteString("\n")
			}
			bw.WriteString(" ")
			bw.WriteString(p.Vars[i].Name)
		}
		bw.WriteString("\n")
	}

	bw.WriteString("End\n")
	return eris.Wrap(bw.Flush(), "solver: write lp")
}

func writeTerms(bw *bufio.Writer, p *Problem, terms []Term, keepZero bool) {
	written := 0
	for _, t := range terms {
		if t.Coef == 0 && !keepZero {
			continue
		}
		if written > 0 && written%termsPerLine == 0 {
			bw.WriteString("\n  ")
		}
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		fmt.Fprintf(bw, " %s %s %s", sign, formatNumber(coef), p.Vars[t.Var].Name)
		written++
	}
	if written == 0 && len(terms) > 0 {
		fmt.Fprintf(bw, " + 0 %s", p.Vars[terms[0].Var].Name)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return formatNumber(v)
	}
}

// Package solver defines the boundary between problem construction and an
// external mixed-integer solver. A Problem is a plain list of variables and
// linear rows; backends write it out, run the solver process and read the
// assignment back.
package solver

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
)

// Status is the terminal state reported by a solver backend.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusNotSolved  Status = "not_solved"
)

// Sense is the optimization direction of the objective.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// VarKind distinguishes binary decision variables from continuous ones.
type VarKind int

const (
	Binary VarKind = iota
	Continuous
)

// Var is a decision variable with its objective coefficient.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
	Obj   float64
}

// Op is the comparison operator of a constraint row.
type Op string

const (
	GreaterEq Op = ">="
	LessEq    Op = "<="
	Equal     Op = "="
)

// Term is a coefficient applied to the variable at index Var.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a named linear row: sum(Terms) Op RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Problem is a complete solver instance.
type Problem struct {
	Name        string
	Sense       Sense
	Vars        []Var
	Constraints []Constraint
}

// Solution is the solver's answer: a status and one value per declared variable.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Solver submits a problem to a solving engine and waits for its answer.
// Implementations must honour ctx cancellation and never return a partial
// assignment for a cancelled solve.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// NewProblem creates an empty problem.
func NewProblem(name string, sense Sense) *Problem {
	return &Problem{Name: name, Sense: sense}
}

// AddBinary declares a 0/1 variable and returns its index.
func (p *Problem) AddBinary(name string, obj float64) int {
	p.Vars = append(p.Vars, Var{Name: name, Kind: Binary, Lower: 0, Upper: 1, Obj: obj})
	return len(p.Vars) - 1
}

// AddConstraint appends a row.
func (p *Problem) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

// Validate checks that names are usable in LP files and that every term
// refers to a declared variable.
func (p *Problem) Validate() error {
	if len(p.Vars) == 0 {
		return eris.New("solver: problem has no variables")
	}
	seen := make(map[string]bool, len(p.Vars)+len(p.Constraints))
	for _, v := range p.Vars {
		if !namePattern.MatchString(v.Name) {
			return eris.Errorf("solver: invalid variable name %q", v.Name)
		}
		if seen[v.Name] {
			return eris.Errorf("solver: duplicate name %q", v.Name)
		}
		seen[v.Name] = true
		if v.Lower > v.Upper {
			return eris.Errorf("solver: variable %s has lower bound above upper bound", v.Name)
		}
	}
	for _, c := range p.Constraints {
		if !namePattern.MatchString(c.Name) {
			return eris.Errorf("solver: invalid constraint name %q", c.Name)
		}
		if seen[c.Name] {
			return eris.Errorf("solver: duplicate name %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Op {
		case GreaterEq, LessEq, Equal:
		default:
			return eris.Errorf("solver: constraint %s has unknown operator %q", c.Name, c.Op)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return eris.Errorf("solver: constraint %s references variable %d of %d", c.Name, t.Var, len(p.Vars))
			}
		}
	}
	return nil
}

// VarIndex returns a name-to-index lookup for the problem's variables.
func (p *Problem) VarIndex() map[string]int {
	idx := make(map[string]int, len(p.Vars))
	for i, v := range p.Vars {
		idx[v.Name] = i
	}
	return idx
}

// Value returns the value of variable i, or 0 when the solution carries none.
func (s *Solution) Value(i int) float64 {
	if s == nil || i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// IsSet reports whether binary variable i was chosen (value above one half).
func (s *Solution) IsSet(i int) bool {
	return s.Value(i) > 0.5
}

// Package solvertest provides in-process solver.Solver implementations for
// tests: an exhaustive enumerator for tiny binary programs and a stub that
// replays a canned answer.
package solvertest

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/sells-group/location-optimizer/internal/solver"
)

// MaxExhaustiveVars bounds the enumeration to keep tests fast.
const MaxExhaustiveVars = 22

const feasTol = 1e-9

// Exhaustive enumerates every 0/1 assignment and keeps the best feasible
// one. Among equal objectives the assignment enumerated first wins, so the
// answer is deterministic.
type Exhaustive struct {
	calls atomic.Int64
}

// Name implements solver.Solver.
func (e *Exhaustive) Name() string { return "exhaustive" }

// Calls returns how many times Solve ran.
func (e *Exhaustive) Calls() int { return int(e.calls.Load()) }

// Solve implements solver.Solver.
func (e *Exhaustive) Solve(ctx context.Context, p *solver.Problem) (*solver.Solution, error) {
	e.calls.Add(1)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(p.Vars)
	if n > MaxExhaustiveVars {
		return nil, eris.Errorf("solvertest: %d variables exceed exhaustive limit %d", n, MaxExhaustiveVars)
	}
	for _, v := range p.Vars {
		if v.Kind != solver.Binary {
			return nil, eris.Errorf("solvertest: variable %s is not binary", v.Name)
		}
	}

	values := make([]float64, n)
	best := math.Inf(1)
	var bestValues []float64

	for mask := uint64(0); mask < 1<<uint(n); mask++ {
		if mask&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "solvertest: solve cancelled")
			}
		}
		for i := range values {
			values[i] = float64((mask >> uint(i)) & 1)
		}
		if !feasible(p, values) {
			continue
		}
		obj := objective(p, values)
		if p.Sense == solver.Maximize {
			obj = -obj
		}
		if obj < best-feasTol {
			best = obj
			bestValues = append(bestValues[:0], values...)
		}
	}

	if bestValues == nil {
		return &solver.Solution{Status: solver.StatusInfeasible, Values: make([]float64, n)}, nil
	}
	if p.Sense == solver.Maximize {
		best = -best
	}
	return &solver.Solution{Status: solver.StatusOptimal, Objective: best, Values: bestValues}, nil
}

func feasible(p *solver.Problem, values []float64) bool {
	for _, c := range p.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		switch c.Op {
		case solver.GreaterEq:
			if lhs < c.RHS-feasTol {
				return false
			}
		case solver.LessEq:
			if lhs > c.RHS+feasTol {
				return false
			}
		case solver.Equal:
			if math.Abs(lhs-c.RHS) > feasTol {
				return false
			}
		}
	}
	return true
}

func objective(p *solver.Problem, values []float64) float64 {
	var obj float64
	for i, v := range p.Vars {
		obj += v.Obj * values[i]
	}
	return obj
}

// Stub returns a fixed solution or error and records the last problem.
type Stub struct {
	Solution *solver.Solution
	Err      error

	mu    sync.Mutex
	last  *solver.Problem
	calls atomic.Int64
}

// Last returns the most recently submitted problem.
func (s *Stub) Last() *solver.Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Name implements solver.Solver.
func (s *Stub) Name() string { return "stub" }

// Calls returns how many times Solve ran.
func (s *Stub) Calls() int { return int(s.calls.Load()) }

// Solve implements solver.Solver.
func (s *Stub) Solve(ctx context.Context, p *solver.Problem) (*solver.Solution, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = p
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Solution == nil {
		return &solver.Solution{Status: solver.StatusNotSolved, Values: make([]float64, len(p.Vars))}, nil
	}
	sol := *s.Solution
	if len(sol.Values) < len(p.Vars) {
		padded := make([]float64, len(p.Vars))
		copy(padded, sol.Values)
		sol.Values = padded
	}
	return &sol, nil
}

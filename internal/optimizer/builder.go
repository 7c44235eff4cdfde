// Package optimizer turns coverage into a 0/1 covering location program and
// hands it to a solver backend.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/coverage"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/solver"
)

// Variable and row name prefixes of the generated program.
const (
	openPrefix  = "open_"
	servePrefix = "serve_"
	coverPrefix = "cover_"
	serviceRow  = "service"
)

// Builder constructs the location program and solves it.
type Builder struct {
	solver  solver.Solver
	timeout time.Duration
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTimeout bounds every solve. Backends receive the same limit as their
// own time limit; the context deadline adds a grace period on top and
// kills a backend that overruns it.
func WithTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.timeout = d }
}

// NewBuilder creates a Builder that solves with s.
func NewBuilder(s solver.Solver, opts ...BuilderOption) *Builder {
	b := &Builder{solver: s}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// deadline returns the hard limit of one solve: timeout plus 10% and one
// second for process start-up and solution output.
func (b *Builder) deadline() time.Duration {
	return b.timeout + b.timeout/10 + time.Second
}

// OpenVar returns the variable name of site s.
func OpenVar(s int) string { return fmt.Sprintf("%s%d", openPrefix, s) }

// ServeVar returns the variable name of demand point k.
func ServeVar(k int) string { return fmt.Sprintf("%s%d", servePrefix, k) }

// SiteCost returns the objective coefficient of opening a site: its class
// cost minus the bonus earned by reached demand and population.
func SiteCost(site model.CandidateSite, stats model.SiteStats, cs model.ConstraintSet, params model.Params) float64 {
	bonus := stats.CustomerFactor*params.CustomerBonus + stats.PopulationFactor*params.PrestigeBonus
	return cs.BaseCost(site.Prestige) - bonus
}

// Build creates the program for one constraint set. Site variables come
// first, in site order, followed by one variable per demand point.
//
//	minimize   sum_s cost_s * open_s
//	subject to sum_{s reaches k} open_s - serve_k >= 0      for every k
//	           sum_k weight_k * serve_k >= level * total
func (b *Builder) Build(demand []model.DemandPoint, sites []model.CandidateSite, cov *coverage.Result, cs model.ConstraintSet, params model.Params) *solver.Problem {
	p := solver.NewProblem("location_"+sanitize(cs.Name), solver.Minimize)

	for s := range sites {
		p.AddBinary(OpenVar(s), SiteCost(sites[s], cov.Stats[s], cs, params))
	}
	serveBase := len(p.Vars)
	for k := range demand {
		p.AddBinary(ServeVar(k), 0)
	}

	for k := range demand {
		covering := cov.Map.DemandSites[k]
		terms := make([]solver.Term, 0, len(covering)+1)
		for _, s := range covering {
			terms = append(terms, solver.Term{Var: s, Coef: 1})
		}
		terms = append(terms, solver.Term{Var: serveBase + k, Coef: -1})
		p.AddConstraint(fmt.Sprintf("%s%d", coverPrefix, k), terms, solver.GreaterEq, 0)
	}

	service := make([]solver.Term, 0, len(demand))
	for k := range demand {
		if demand[k].Weight == 0 {
			continue
		}
		service = append(service, solver.Term{Var: serveBase + k, Coef: float64(demand[k].Weight)})
	}
	target := params.ServiceLevel * float64(model.TotalWeight(demand))
	p.AddConstraint(serviceRow, service, solver.GreaterEq, target)

	return p
}

// Solve builds the program, runs the solver and decodes the decisions. The
// solver status is returned as reported; judging it is left to validation.
func (b *Builder) Solve(ctx context.Context, demand []model.DemandPoint, sites []model.CandidateSite, cov *coverage.Result, cs model.ConstraintSet, params model.Params) (*model.Outcome, error) {
	if len(cov.Stats) != len(sites) || len(cov.Map.DemandSites) != len(demand) {
		return nil, eris.Errorf("optimizer: coverage for %d sites/%d points does not match inputs (%d/%d)",
			len(cov.Stats), len(cov.Map.DemandSites), len(sites), len(demand))
	}

	p := b.Build(demand, sites, cov, cs, params)
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "optimizer: build program")
	}

	log := zap.L().With(zap.String("constraint_set", cs.Name), zap.String("solver", b.solver.Name()))
	log.Info("optimizer: solving",
		zap.Int("variables", len(p.Vars)),
		zap.Int("constraints", len(p.Constraints)),
	)

	solveCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, b.deadline())
		defer cancel()
	}

	start := time.Now()
	sol, err := b.solver.Solve(solveCtx, p)
	if err != nil {
		if ctx.Err() == nil && errors.Is(solveCtx.Err(), context.DeadlineExceeded) && !eris.Is(err, solver.ErrTimeout) {
			err = eris.Wrapf(solver.ErrTimeout, "%s: %v", b.solver.Name(), err)
		}
		return nil, eris.Wrapf(err, "optimizer: solve %s", cs.Name)
	}
	if len(sol.Values) < len(p.Vars) && sol.Status == solver.StatusOptimal {
		return nil, eris.Errorf("optimizer: solver returned %d values for %d variables", len(sol.Values), len(p.Vars))
	}

	out := Decode(sol, len(sites), len(demand))
	log.Info("optimizer: solved",
		zap.String("status", string(out.Status)),
		zap.Float64("objective", out.Objective),
		zap.Int("opened", out.OpenedCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Decode maps a solution of a program produced by Build onto site and
// demand decisions. Values above one half count as set.
func Decode(sol *solver.Solution, numSites, numDemand int) *model.Outcome {
	out := &model.Outcome{
		Status:    sol.Status,
		Objective: sol.Objective,
		Opened:    make([]bool, numSites),
		Served:    make([]bool, numDemand),
	}
	for s := range numSites {
		out.Opened[s] = sol.IsSet(s)
	}
	for k := range numDemand {
		out.Served[k] = sol.IsSet(numSites + k)
	}
	return out
}

// sanitize keeps a problem name within the LP identifier alphabet.
func sanitize(name string) string {
	out := []byte(name)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

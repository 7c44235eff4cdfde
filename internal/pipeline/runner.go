// Package pipeline evaluates constraint sets end to end: coverage,
// feasibility, solve, solution checks, overlap resolution, reporting and
// persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/location-optimizer/internal/coverage"
	"github.com/sells-group/location-optimizer/internal/metrics"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/optimizer"
	"github.com/sells-group/location-optimizer/internal/overlap"
	"github.com/sells-group/location-optimizer/internal/report"
	"github.com/sells-group/location-optimizer/internal/solver"
	"github.com/sells-group/location-optimizer/internal/store"
	"github.com/sells-group/location-optimizer/internal/validation"
)

// Phase names.
const (
	PhaseValidate      = "validate"
	PhaseCoverage      = "coverage"
	PhaseFeasibility   = "feasibility"
	PhaseSolve         = "solve"
	PhaseCheckSolution = "check_solution"
	PhaseOverlap       = "overlap"
	PhaseReport        = "report"
	PhasePersist       = "persist"
)

// Inputs are the read-only data shared by every constraint-set evaluation.
type Inputs struct {
	Sites  []model.CandidateSite
	Demand []model.DemandPoint
}

// SetResult is the outcome of evaluating one constraint set. Fields are
// filled up to the phase that failed.
type SetResult struct {
	ConstraintSet model.ConstraintSet
	RunID         string
	Coverage      *coverage.Result
	Feasibility   *validation.Feasibility
	Outcome       *model.Outcome
	Solution      *validation.SolutionReport
	Summary       *overlap.Summary
	Sites         []model.SiteResult
	Rows          []model.SiteResult
	Map           *report.Map
	Files         []string
	Warnings      []validation.Warning
	Result        *model.RunResult
	Err           error

	// Skipped is set when an earlier failure aborted the run before this
	// set started.
	Skipped bool
}

// Runner evaluates constraint sets against shared inputs.
type Runner struct {
	calc          *coverage.Calculator
	builder       *optimizer.Builder
	solveTimeout  time.Duration
	params        model.Params
	store         store.Store
	metrics       *metrics.Recorder
	warnings      *validation.Warnings
	maxConcurrent int
	outputDir     string
	writeGeoJSON  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists runs, phases and site results.
func WithStore(st store.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithMetrics records solver and run metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithWarnings collects warnings of every set on w.
func WithWarnings(w *validation.Warnings) Option {
	return func(r *Runner) { r.warnings = w }
}

// WithConcurrency bounds the number of sets evaluated at once by RunAll.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxConcurrent = n
		}
	}
}

// WithOutput writes the locations CSV, and the map when geoJSON is set,
// under dir.
func WithOutput(dir string, geoJSON bool) Option {
	return func(r *Runner) {
		r.outputDir = dir
		r.writeGeoJSON = geoJSON
	}
}

// WithSolveTimeout bounds each solve; an overrun fails the set with
// solver.ErrTimeout.
func WithSolveTimeout(d time.Duration) Option {
	return func(r *Runner) { r.solveTimeout = d }
}

// WithCalculator replaces the default coverage calculator.
func WithCalculator(c *coverage.Calculator) Option {
	return func(r *Runner) { r.calc = c }
}

// New creates a Runner solving with s under params.
func New(s solver.Solver, params model.Params, opts ...Option) *Runner {
	r := &Runner{
		calc:          coverage.NewCalculator(),
		params:        params,
		warnings:      &validation.Warnings{},
		maxConcurrent: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.builder = optimizer.NewBuilder(s, optimizer.WithTimeout(r.solveTimeout))
	return r
}

// Warnings returns the collector shared by all evaluations.
func (r *Runner) Warnings() *validation.Warnings {
	return r.warnings
}

// RunAll evaluates every set, at most maxConcurrent at a time. The first
// failing set cancels the rest: sets not yet started come back Skipped.
// Results keep the order of sets; the returned error is the first failure.
func (r *Runner) RunAll(ctx context.Context, in Inputs, sets []model.ConstraintSet) ([]*SetResult, error) {
	results := make([]*SetResult, len(sets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)
	for i, cs := range sets {
		g.Go(func() error {
			if gCtx.Err() != nil {
				results[i] = &SetResult{ConstraintSet: cs, Skipped: true}
				return nil
			}
			res, err := r.Run(gCtx, in, cs)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	var failed, skipped int
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case res.Err != nil:
			failed++
		}
	}
	zap.L().Info("pipeline: all sets evaluated",
		zap.Int("sets", len(sets)),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
	return results, err
}

// Run evaluates one constraint set. The returned SetResult is never nil;
// its Err equals the returned error.
func (r *Runner) Run(ctx context.Context, in Inputs, cs model.ConstraintSet) (*SetResult, error) {
	log := zap.L().With(zap.String("constraint_set", cs.Name))
	res := &SetResult{ConstraintSet: cs}
	rr := &model.RunResult{RequiredLevel: r.params.ServiceLevel}
	start := time.Now()

	t := &tracker{runner: r, log: log, result: rr}
	if r.store != nil {
		run, err := r.store.CreateRun(ctx, cs)
		if err != nil {
			return r.fail(ctx, res, t, eris.Wrap(err, "pipeline: create run"))
		}
		res.RunID = run.ID
		t.runID = run.ID
		log = log.With(zap.String("run_id", run.ID))
		t.log = log
	}
	log.Info("pipeline: evaluating constraint set",
		zap.Float64("max_distance_km", cs.MaxDistanceKM),
		zap.Float64("decay_start_km", cs.DecayStartKM),
	)

	addWarnings := func(ws []validation.Warning) {
		if len(ws) == 0 {
			return
		}
		res.Warnings = append(res.Warnings, ws...)
		r.warnings.Add(ws...)
	}

	// Validate
	if err := t.phase(ctx, PhaseValidate, func() (map[string]any, error) {
		return nil, validation.CheckConstraintSet(cs, r.params)
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Coverage
	t.setStatus(ctx, model.RunStatusCoverage)
	if err := t.phase(ctx, PhaseCoverage, func() (map[string]any, error) {
		cov, err := r.calc.Compute(ctx, in.Demand, in.Sites, cs, r.params)
		if err != nil {
			return nil, err
		}
		res.Coverage = cov
		return map[string]any{
			"sites":     len(in.Sites),
			"demand":    len(in.Demand),
			"uncovered": len(cov.Map.Uncovered()),
		}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Feasibility
	if err := t.phase(ctx, PhaseFeasibility, func() (map[string]any, error) {
		f, err := validation.CheckFeasibility(cs, &res.Coverage.Map, in.Demand, r.params.ServiceLevel)
		res.Feasibility = f
		if f != nil {
			rr.TotalWeight = f.TotalWeight
			rr.MaxAchievable = f.Achievable
			rr.UncoveredPoints = len(f.Uncovered)
			addWarnings(f.Warnings)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"achievable": f.Achievable, "coverable_weight": f.CoverableWeight}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Solve
	t.setStatus(ctx, model.RunStatusSolving)
	if err := t.phase(ctx, PhaseSolve, func() (map[string]any, error) {
		solveStart := time.Now()
		out, err := r.builder.Solve(ctx, in.Demand, in.Sites, res.Coverage, cs, r.params)
		if err != nil {
			r.metrics.ObserveSolve("error", time.Since(solveStart))
			return nil, err
		}
		r.metrics.ObserveSolve(string(out.Status), time.Since(solveStart))
		res.Outcome = out
		rr.SolverStatus = string(out.Status)
		rr.Objective = out.Objective
		return map[string]any{"status": string(out.Status), "objective": out.Objective}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Check solution
	if err := t.phase(ctx, PhaseCheckSolution, func() (map[string]any, error) {
		rep, err := validation.CheckSolution(cs, res.Outcome, in.Demand, r.params.ServiceLevel)
		res.Solution = rep
		if err != nil {
			return nil, err
		}
		rr.SitesOpened = rep.OpenedSites
		rr.ServedWeight = rep.ServedWeight
		rr.AchievedLevel = rep.Achieved
		addWarnings(rep.Warnings)
		return map[string]any{"opened": rep.OpenedSites, "achieved": rep.Achieved}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Overlap
	t.setStatus(ctx, model.RunStatusResolving)
	if err := t.phase(ctx, PhaseOverlap, func() (map[string]any, error) {
		sum, err := overlap.Resolve(in.Demand, in.Sites, &res.Coverage.Map, res.Outcome, res.Coverage.Stats,
			overlap.WithEarthRadius(r.params.EarthRadiusKM),
			overlap.WithConstraintSet(cs.Name),
		)
		if err != nil {
			return nil, err
		}
		res.Summary = sum
		rr.UniqueAssigned = sum.AssignedWeight
		return map[string]any{"assigned_weight": sum.AssignedWeight, "assigned_points": sum.AssignedPoints}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	// Report
	if err := t.phase(ctx, PhaseReport, func() (map[string]any, error) {
		res.Sites = report.SiteResults(res.RunID, in.Sites, res.Outcome, res.Coverage.Stats)
		res.Rows = report.OpenedRows(res.Sites)
		m, ws := report.BuildMap(report.MapInput{
			ConstraintSet: cs,
			Sites:         in.Sites,
			Demand:        in.Demand,
			Results:       res.Sites,
			Outcome:       res.Outcome,
			Summary:       res.Summary,
		})
		res.Map = m
		addWarnings(ws)

		if r.outputDir == "" {
			return nil, nil
		}
		path, err := report.SaveCSV(r.outputDir, cs.Name, res.Rows)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
		if r.writeGeoJSON {
			path, err := report.SaveGeoJSON(r.outputDir, m)
			if err != nil {
				return nil, err
			}
			res.Files = append(res.Files, path)
		}
		return map[string]any{"files": res.Files}, nil
	}); err != nil {
		return r.fail(ctx, res, t, err)
	}

	rr.Warnings = validation.Strings(res.Warnings)
	rr.DurationMS = time.Since(start).Milliseconds()

	// Persist
	if r.store != nil {
		if err := t.phase(ctx, PhasePersist, func() (map[string]any, error) {
			if err := r.store.SaveSiteResults(ctx, res.RunID, res.Sites); err != nil {
				return nil, err
			}
			return map[string]any{"sites": len(res.Sites)}, nil
		}); err != nil {
			return r.fail(ctx, res, t, err)
		}
		if err := r.store.CompleteRun(ctx, res.RunID, rr); err != nil {
			return r.fail(ctx, res, t, eris.Wrap(err, "pipeline: complete run"))
		}
	}

	res.Result = rr
	var ratio float64
	if rr.TotalWeight > 0 {
		ratio = float64(rr.ServedWeight) / float64(rr.TotalWeight)
	}
	r.metrics.ObserveRun(cs.Name, metrics.OutcomeComplete, ratio)
	log.Info("pipeline: constraint set complete",
		zap.Int("opened", rr.SitesOpened),
		zap.Float64("achieved", rr.AchievedLevel),
		zap.Int64("duration_ms", rr.DurationMS),
	)
	return res, nil
}

// fail records err on the run and the result. Store updates outlive a
// cancelled ctx so the failure is still recorded.
func (r *Runner) fail(ctx context.Context, res *SetResult, t *tracker, err error) (*SetResult, error) {
	res.Err = eris.Wrapf(err, "pipeline: constraint set %s", res.ConstraintSet.Name)
	res.Result = t.result
	r.metrics.ObserveRun(res.ConstraintSet.Name, metrics.OutcomeFailed, 0)

	if r.store != nil && res.RunID != "" {
		if ferr := r.store.FailRun(context.WithoutCancel(ctx), res.RunID, err.Error()); ferr != nil {
			t.log.Warn("pipeline: failed to record run failure", zap.Error(ferr))
		}
	}
	if validation.IsValidation(err) {
		t.log.Error("pipeline: validation failed", zap.Error(err))
	} else {
		t.log.Error("pipeline: constraint set failed", zap.Error(err))
	}
	return res, res.Err
}

// Package coverage computes which demand points each candidate site can
// reach under a constraint set, together with the per-site demand sums and
// normalized attractiveness factors the optimizer prices sites with.
package coverage

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/location-optimizer/internal/geo"
	"github.com/sells-group/location-optimizer/internal/model"
)

// Result is the coverage of one constraint set. Stats is index-aligned with
// the sites the result was computed from.
type Result struct {
	Map   model.CoverageMap
	Stats []model.SiteStats
}

// Calculator computes coverage for a constraint set.
type Calculator struct {
	workers int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithWorkers bounds the number of sites processed concurrently.
// Values below 1 fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Calculator) {
		c.workers = n
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// siteAgg is the per-site partial produced by one worker.
type siteAgg struct {
	reach    []int
	total    float64
	weighted float64
}

// Compute determines the demand reachable from every site and aggregates
// raw and decay-weighted demand per site. Inputs are not modified. Sites
// without reach are valid; whether demand can be served at all is checked
// by the validation package.
func (c *Calculator) Compute(ctx context.Context, demand []model.DemandPoint, sites []model.CandidateSite, cs model.ConstraintSet, params model.Params) (*Result, error) {
	if err := cs.Validate(); err != nil {
		return nil, eris.Wrap(err, "coverage: compute")
	}
	if err := params.Validate(); err != nil {
		return nil, eris.Wrap(err, "coverage: compute")
	}

	start := time.Now()
	aggs := make([]siteAgg, len(sites))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for s := range sites {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			aggs[s] = aggregateSite(demand, sites[s], cs, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "coverage: compute")
	}

	res := &Result{
		Map:   model.CoverageMap{SiteDemand: make([][]int, len(sites))},
		Stats: make([]model.SiteStats, len(sites)),
	}
	weighted := make([]float64, len(sites))
	for s, a := range aggs {
		res.Map.SiteDemand[s] = a.reach
		res.Stats[s].CustomersTotal = a.total
		res.Stats[s].CustomersWeighted = a.weighted
		weighted[s] = a.weighted
	}
	res.Map.DemandSites = Transpose(res.Map.SiteDemand, len(demand))

	customer := CustomerFactors(weighted)
	population := PopulationFactors(sites)
	for s := range res.Stats {
		res.Stats[s].CustomerFactor = customer[s]
		res.Stats[s].PopulationFactor = population[s]
	}

	zap.L().Debug("coverage: computed",
		zap.String("constraint_set", cs.Name),
		zap.Int("sites", len(sites)),
		zap.Int("demand_points", len(demand)),
		zap.Int("uncovered", len(res.Map.Uncovered())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func aggregateSite(demand []model.DemandPoint, site model.CandidateSite, cs model.ConstraintSet, params model.Params) siteAgg {
	var a siteAgg
	for k := range demand {
		d := geo.DistanceKM(demand[k].Coord, site.Coord, params.EarthRadiusKM)
		if d > cs.MaxDistanceKM {
			continue
		}
		w := float64(demand[k].Weight)
		a.reach = append(a.reach, k)
		a.total += w
		a.weighted += w * DecayWeight(d, cs.DecayStartKM, cs.MaxDistanceKM, params.MinWeightAtMax)
	}
	return a
}

// Transpose inverts a site-to-demand map into a demand-to-site map over n
// demand points. Site indices in each output row are ascending.
func Transpose(siteDemand [][]int, n int) [][]int {
	out := make([][]int, n)
	for s, reach := range siteDemand {
		for _, k := range reach {
			out[k] = append(out[k], s)
		}
	}
	return out
}

// CustomerFactors min-max scales weighted demand to [0,1]. When every site
// has the same value, all factors are 1.
func CustomerFactors(weighted []float64) []float64 {
	out := make([]float64, len(weighted))
	if len(weighted) == 0 {
		return out
	}
	lo, hi := weighted[0], weighted[0]
	for _, v := range weighted[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	for i, v := range weighted {
		if hi == lo {
			out[i] = 1.0
			continue
		}
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// PopulationFactors scales population by the largest population among the
// sites. All factors are 0 when no site has population.
func PopulationFactors(sites []model.CandidateSite) []float64 {
	out := make([]float64, len(sites))
	var hi int64
	for _, s := range sites {
		hi = max(hi, s.Population)
	}
	if hi <= 0 {
		return out
	}
	for i, s := range sites {
		out[i] = float64(max(s.Population, 0)) / float64(hi)
	}
	return out
}

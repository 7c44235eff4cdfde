// Package overlap attributes every served demand point to exactly one
// opened site so that per-site statistics no longer double count demand
// reached by several sites.
//
// The weighted figure of a site is rescaled by the ratio of uniquely
// assigned to reachable demand rather than recomputed from the assigned
// points. This assumes weight is spread evenly over the reachable set and
// is kept on purpose because it defines the reported numbers.
package overlap

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/geo"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/validation"
)

// Unassigned marks a demand point that is not attributed to any site.
const Unassigned = -1

// Summary describes the attribution of one outcome.
type Summary struct {
	AssignedWeight int64 `json:"assigned_weight"`
	AssignedPoints int   `json:"assigned_points"`
	// Assignment holds the site index per demand point, or Unassigned.
	Assignment []int `json:"assignment"`
	// DistanceKM holds the distance to the assigned site, 0 when unassigned.
	DistanceKM []float64 `json:"distance_km"`
	// UniqueWeight holds the uniquely attributed weight per site.
	UniqueWeight []int64 `json:"unique_weight"`
}

type options struct {
	radiusKM      float64
	constraintSet string
}

// Option configures Resolve.
type Option func(*options)

// WithEarthRadius sets the sphere radius used for distances.
func WithEarthRadius(km float64) Option {
	return func(o *options) {
		o.radiusKM = km
	}
}

// WithConstraintSet names the constraint set in errors and logs.
func WithConstraintSet(name string) Option {
	return func(o *options) {
		o.constraintSet = name
	}
}

// Resolve assigns each served demand point to its nearest opened covering
// site, first site in index order on ties, and rewrites stats in place:
// CustomersReachable receives the previous total, CustomersTotal the
// uniquely assigned total and CustomersWeighted is rescaled by
// unique/reachable. Unopened sites end with zero totals. A served point
// without an opened covering site is an invariant violation; stats are left
// untouched in that case.
func Resolve(demand []model.DemandPoint, sites []model.CandidateSite, cov *model.CoverageMap, outcome *model.Outcome, stats []model.SiteStats, opts ...Option) (*Summary, error) {
	o := options{radiusKM: model.DefaultEarthRadiusKM}
	for _, opt := range opts {
		opt(&o)
	}

	if len(stats) != len(sites) || len(outcome.Opened) != len(sites) {
		return nil, eris.Errorf("overlap: %d stats and %d decisions for %d sites", len(stats), len(outcome.Opened), len(sites))
	}
	if len(outcome.Served) != len(demand) || len(cov.DemandSites) != len(demand) {
		return nil, eris.Errorf("overlap: %d served decisions and %d coverage rows for %d demand points",
			len(outcome.Served), len(cov.DemandSites), len(demand))
	}

	sum := &Summary{
		Assignment:   make([]int, len(demand)),
		DistanceKM:   make([]float64, len(demand)),
		UniqueWeight: make([]int64, len(sites)),
	}
	for k := range demand {
		sum.Assignment[k] = Unassigned
		if !outcome.Served[k] {
			continue
		}

		best := Unassigned
		bestDist := 0.0
		for _, s := range cov.DemandSites[k] {
			if !outcome.Opened[s] {
				continue
			}
			d := geo.DistanceKM(demand[k].Coord, sites[s].Coord, o.radiusKM)
			if best == Unassigned || d < bestDist {
				best, bestDist = s, d
			}
		}
		if best == Unassigned {
			return nil, &validation.Error{
				Kind:          validation.KindInvariant,
				ConstraintSet: o.constraintSet,
				Msg:           "served demand point " + demand[k].ID + " has no opened covering site",
			}
		}

		sum.Assignment[k] = best
		sum.DistanceKM[k] = bestDist
		sum.UniqueWeight[best] += int64(demand[k].Weight)
		sum.AssignedWeight += int64(demand[k].Weight)
		sum.AssignedPoints++
	}

	for s := range stats {
		reachable := stats[s].CustomersTotal
		unique := float64(sum.UniqueWeight[s])
		stats[s].CustomersReachable = reachable
		if !outcome.Opened[s] {
			stats[s].CustomersTotal = 0
			stats[s].CustomersWeighted = 0
			continue
		}
		stats[s].CustomersTotal = unique
		if reachable > 0 {
			stats[s].CustomersWeighted *= unique / reachable
		} else {
			stats[s].CustomersWeighted = 0
		}
	}

	zap.L().Debug("overlap: resolved",
		zap.String("constraint_set", o.constraintSet),
		zap.Int("assigned_points", sum.AssignedPoints),
		zap.Int64("assigned_weight", sum.AssignedWeight),
	)
	return sum, nil
}

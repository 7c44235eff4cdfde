package validation

import (
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/solver"
)

// TightMargin is the distance between achievable and required service level
// below which a warning is raised.
const TightMargin = 0.05

// ServiceTolerance absorbs solver rounding when comparing the achieved
// service level with the target.
const ServiceTolerance = 0.001

// Feasibility is the pre-solve coverage analysis of one constraint set.
type Feasibility struct {
	TotalWeight     int64     `json:"total_weight"`
	CoverableWeight int64     `json:"coverable_weight"`
	Achievable      float64   `json:"achievable"`
	Required        float64   `json:"required"`
	Uncovered       []int     `json:"uncovered,omitempty"`
	Warnings        []Warning `json:"warnings,omitempty"`
}

// CheckFeasibility computes the largest service level any selection of
// sites could reach and fails when it is below the required level.
func CheckFeasibility(cs model.ConstraintSet, cov *model.CoverageMap, demand []model.DemandPoint, serviceLevel float64) (*Feasibility, error) {
	if len(cov.DemandSites) != len(demand) {
		return nil, newError(KindStructural, cs.Name, "coverage holds %d demand points, input has %d", len(cov.DemandSites), len(demand))
	}

	f := &Feasibility{Required: serviceLevel}
	for k, d := range demand {
		f.TotalWeight += int64(d.Weight)
		if len(cov.DemandSites[k]) > 0 {
			f.CoverableWeight += int64(d.Weight)
		} else {
			f.Uncovered = append(f.Uncovered, k)
		}
	}
	if f.TotalWeight == 0 {
		return f, newError(KindFeasibility, cs.Name, "total demand weight is zero; nothing to serve")
	}
	f.Achievable = float64(f.CoverableWeight) / float64(f.TotalWeight)

	zap.L().Info("validation: coverage analysis",
		zap.String("constraint_set", cs.Name),
		zap.Int64("total_weight", f.TotalWeight),
		zap.Int64("coverable_weight", f.CoverableWeight),
		zap.Float64("achievable", f.Achievable),
		zap.Float64("required", f.Required),
		zap.Int("uncovered_points", len(f.Uncovered)),
	)

	if f.Achievable < f.Required {
		return f, newError(KindFeasibility, cs.Name,
			"impossible service level: maximum achievable %.1f%%, required %.1f%%; increase max_distance_km or reduce service_level",
			f.Achievable*100, f.Required*100)
	}
	if f.Achievable < f.Required+TightMargin {
		f.Warnings = append(f.Warnings, newWarning(WarnTightMargin, cs.Name,
			"coverage margin is tight: max achievable %.1f%% vs required %.1f%%", f.Achievable*100, f.Required*100))
	}
	return f, nil
}

// SolutionReport is the post-solve summary of one constraint set.
type SolutionReport struct {
	Status       solver.Status `json:"status"`
	OpenedSites  int           `json:"opened_sites"`
	ServedWeight int64         `json:"served_weight"`
	TotalWeight  int64         `json:"total_weight"`
	Achieved     float64       `json:"achieved"`
	Required     float64       `json:"required"`
	Warnings     []Warning     `json:"warnings,omitempty"`
}

// CheckSolution rejects non-optimal and degenerate solutions and measures
// the service level actually achieved.
func CheckSolution(cs model.ConstraintSet, outcome *model.Outcome, demand []model.DemandPoint, serviceLevel float64) (*SolutionReport, error) {
	r := &SolutionReport{Status: outcome.Status, Required: serviceLevel}
	if outcome.Status != solver.StatusOptimal {
		return r, newError(KindSolver, cs.Name, "optimization failed with status %s; the problem is infeasible or unbounded", outcome.Status)
	}
	if len(outcome.Served) != len(demand) {
		return r, newError(KindInvariant, cs.Name, "outcome holds %d served decisions for %d demand points", len(outcome.Served), len(demand))
	}

	r.OpenedSites = outcome.OpenedCount()
	if r.OpenedSites == 0 {
		return r, newError(KindSolver, cs.Name, "solution opens no sites; check costs and constraints")
	}

	r.TotalWeight = model.TotalWeight(demand)
	r.ServedWeight = outcome.ServedWeight(demand)
	if r.TotalWeight > 0 {
		r.Achieved = float64(r.ServedWeight) / float64(r.TotalWeight)
	}

	zap.L().Info("validation: solution",
		zap.String("constraint_set", cs.Name),
		zap.Int("opened", r.OpenedSites),
		zap.Int64("served_weight", r.ServedWeight),
		zap.Int64("total_weight", r.TotalWeight),
		zap.Float64("achieved", r.Achieved),
	)

	if r.Achieved < serviceLevel-ServiceTolerance {
		r.Warnings = append(r.Warnings, newWarning(WarnServiceShortfall, cs.Name,
			"service level below target: %.1f%% < %.1f%%", r.Achieved*100, serviceLevel*100))
	}
	return r, nil
}

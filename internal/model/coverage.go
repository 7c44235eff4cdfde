package model

import "github.com/sells-group/location-optimizer/internal/solver"

// CoverageMap relates sites to the demand points within their reach.
// Indices refer to the site and demand slices the map was computed from;
// both directions hold ascending indices and are exact transposes.
type CoverageMap struct {
	SiteDemand  [][]int
	DemandSites [][]int
}

// Covers reports whether site s reaches demand point k.
func (m *CoverageMap) Covers(s, k int) bool {
	for _, d := range m.SiteDemand[s] {
		if d == k {
			return true
		}
		if d > k {
			return false
		}
	}
	return false
}

// Uncovered returns the demand indices no site can reach.
func (m *CoverageMap) Uncovered() []int {
	var out []int
	for k, sites := range m.DemandSites {
		if len(sites) == 0 {
			out = append(out, k)
		}
	}
	return out
}

// SiteStats aggregates the demand a site reaches. Before overlap resolution
// CustomersTotal and CustomersWeighted describe everything within reach;
// afterwards they hold the uniquely assigned figures and
// CustomersReachable keeps the original reach.
type SiteStats struct {
	CustomersTotal     float64 `json:"customers_total"`
	CustomersWeighted  float64 `json:"customers_weighted"`
	CustomersReachable float64 `json:"customers_reachable"`
	CustomerFactor     float64 `json:"customer_factor"`
	PopulationFactor   float64 `json:"population_factor"`
}

// Outcome is the decoded solver decision for one constraint set.
type Outcome struct {
	Status    solver.Status `json:"status"`
	Objective float64       `json:"objective"`
	Opened    []bool        `json:"opened"`
	Served    []bool        `json:"served"`
}

// OpenedCount returns the number of opened sites.
func (o *Outcome) OpenedCount() int {
	n := 0
	for _, v := range o.Opened {
		if v {
			n++
		}
	}
	return n
}

// ServedWeight sums the weight of served demand points.
func (o *Outcome) ServedWeight(demand []DemandPoint) int64 {
	var total int64
	for k, served := range o.Served {
		if served && k < len(demand) {
			total += int64(demand[k].Weight)
		}
	}
	return total
}

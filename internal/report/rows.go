// Package report turns a resolved optimization outcome into export rows,
// CSV and table output and a GeoJSON map payload.
package report

import (
	"math"
	"sort"

	"github.com/sells-group/location-optimizer/internal/model"
)

// SiteResults returns one record per candidate site in input order,
// opened or not. Unopened sites carry zero unique totals.
func SiteResults(runID string, sites []model.CandidateSite, outcome *model.Outcome, stats []model.SiteStats) []model.SiteResult {
	out := make([]model.SiteResult, len(sites))
	for i, s := range sites {
		r := model.SiteResult{
			RunID:     runID,
			SiteID:    s.ID,
			Name:      s.Name,
			Lat:       s.Coord.Lat,
			Lon:       s.Coord.Lon,
			SiteClass: s.SiteClass(),
			Prestige:  s.Prestige,
			Opened:    i < len(outcome.Opened) && outcome.Opened[i],
		}
		if i < len(stats) {
			r.CustomersReachable = stats[i].CustomersReachable
			if r.Opened {
				r.CustomersTotal = int64(math.Round(stats[i].CustomersTotal))
				r.CustomersWeighted = round2(stats[i].CustomersWeighted)
			}
		}
		out[i] = r
	}
	return out
}

// OpenedRows returns the export rows: opened sites only, sorted by unique
// customer total descending with ties broken by site id.
func OpenedRows(results []model.SiteResult) []model.SiteResult {
	var rows []model.SiteResult
	for _, r := range results {
		if r.Opened {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].CustomersTotal != rows[b].CustomersTotal {
			return rows[a].CustomersTotal > rows[b].CustomersTotal
		}
		return rows[a].SiteID < rows[b].SiteID
	})
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Package monitoring summarizes stored optimization runs over a lookback
// window.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/store"
)

// SetSnapshot aggregates the runs of one constraint set.
type SetSnapshot struct {
	Name            string  `json:"name"`
	Runs            int     `json:"runs"`
	Complete        int     `json:"complete"`
	Failed          int     `json:"failed"`
	AvgSitesOpened  float64 `json:"avg_sites_opened"`
	AvgServedRatio  float64 `json:"avg_served_ratio"`
	LastSitesOpened int     `json:"last_sites_opened"`
}

// RunSnapshot holds a point-in-time view of run history.
type RunSnapshot struct {
	Total         int     `json:"total"`
	Complete      int     `json:"complete"`
	Failed        int     `json:"failed"`
	InProgress    int     `json:"in_progress"`
	FailRate      float64 `json:"fail_rate"`
	AvgDurationMS int64   `json:"avg_duration_ms"`
	Warnings      int     `json:"warnings"`

	Sets []SetSnapshot `json:"sets"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the store subset the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	store RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window. A
// non-positive window covers all runs.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*RunSnapshot, error) {
	now := time.Now().UTC()
	snap := &RunSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.RunFilter{Limit: 10000}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	runs, err := c.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	type acc struct {
		SetSnapshot
		sites, ratio float64
		last         time.Time
	}
	bySet := make(map[string]*acc)
	var totalDur int64

	snap.Total = len(runs)
	for _, r := range runs {
		name := r.ConstraintSet.Name
		a, ok := bySet[name]
		if !ok {
			a = &acc{SetSnapshot: SetSnapshot{Name: name}}
			bySet[name] = a
		}
		a.Runs++

		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
			a.Complete++
			if r.Result != nil {
				totalDur += r.Result.DurationMS
				snap.Warnings += len(r.Result.Warnings)
				a.sites += float64(r.Result.SitesOpened)
				if r.Result.TotalWeight > 0 {
					a.ratio += float64(r.Result.ServedWeight) / float64(r.Result.TotalWeight)
				}
				if r.CreatedAt.After(a.last) || a.last.IsZero() {
					a.last = r.CreatedAt
					a.LastSitesOpened = r.Result.SitesOpened
				}
			}
		case model.RunStatusFailed:
			snap.Failed++
			a.Failed++
		default:
			snap.InProgress++
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Complete > 0 {
		snap.AvgDurationMS = totalDur / int64(snap.Complete)
	}

	for _, a := range bySet {
		if a.Complete > 0 {
			a.AvgSitesOpened = a.sites / float64(a.Complete)
			a.AvgServedRatio = a.ratio / float64(a.Complete)
		}
		snap.Sets = append(snap.Sets, a.SetSnapshot)
	}
	sort.Slice(snap.Sets, func(i, j int) bool { return snap.Sets[i].Name < snap.Sets[j].Name })

	return snap, nil
}

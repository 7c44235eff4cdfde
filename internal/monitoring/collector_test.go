package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/store"
)

type mockLister struct {
	runs    []model.Run
	listErr error
	filter  store.RunFilter
}

func (m *mockLister) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var filtered []model.Run
	for _, r := range m.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func completeRun(set string, at time.Time, opened int, served, total int64) model.Run {
	return model.Run{
		ConstraintSet: model.ConstraintSet{Name: set},
		Status:        model.RunStatusComplete,
		CreatedAt:     at,
		Result: &model.RunResult{
			SitesOpened:  opened,
			ServedWeight: served,
			TotalWeight:  total,
			DurationMS:   100,
			Warnings:     []string{"w"},
		},
	}
}

func TestCollector_Collect(t *testing.T) {
	now := time.Now().UTC()
	lister := &mockLister{runs: []model.Run{
		completeRun("Moderate", now.Add(-2*time.Hour), 10, 900, 1000),
		completeRun("Moderate", now.Add(-1*time.Hour), 12, 950, 1000),
		completeRun("Aggressive", now.Add(-1*time.Hour), 8, 910, 1000),
		{ConstraintSet: model.ConstraintSet{Name: "Aggressive"}, Status: model.RunStatusFailed, CreatedAt: now},
		{ConstraintSet: model.ConstraintSet{Name: "Conservative"}, Status: model.RunStatusSolving, CreatedAt: now},
		completeRun("Moderate", now.Add(-48*time.Hour), 99, 1, 1000),
	}}

	snap, err := NewCollector(lister).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.False(t, lister.filter.CreatedAfter.IsZero())

	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 3, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.InProgress)
	assert.InDelta(t, 0.25, snap.FailRate, 1e-9)
	assert.Equal(t, int64(100), snap.AvgDurationMS)
	assert.Equal(t, 3, snap.Warnings)

	require.Len(t, snap.Sets, 3)
	assert.Equal(t, "Aggressive", snap.Sets[0].Name)
	assert.Equal(t, 1, snap.Sets[0].Failed)

	moderate := snap.Sets[2]
	assert.Equal(t, "Moderate", moderate.Name)
	assert.Equal(t, 2, moderate.Complete)
	assert.InDelta(t, 11.0, moderate.AvgSitesOpened, 1e-9)
	assert.InDelta(t, 0.925, moderate.AvgServedRatio, 1e-9)
	assert.Equal(t, 12, moderate.LastSitesOpened)
}

func TestCollector_AllTime(t *testing.T) {
	lister := &mockLister{runs: []model.Run{
		completeRun("Moderate", time.Now().Add(-1000*time.Hour), 3, 1, 2),
	}}
	snap, err := NewCollector(lister).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, lister.filter.CreatedAfter.IsZero())
	assert.Equal(t, 1, snap.Total)
}

func TestCollector_Empty(t *testing.T) {
	snap, err := NewCollector(&mockLister{}).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Total)
	assert.Zero(t, snap.FailRate)
	assert.Empty(t, snap.Sets)
}

func TestCollector_ListError(t *testing.T) {
	_, err := NewCollector(&mockLister{listErr: errors.New("db down")}).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

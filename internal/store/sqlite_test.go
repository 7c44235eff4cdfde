package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/location-optimizer/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var testSet = model.ConstraintSet{
	Name:          "Standard",
	MaxDistanceKM: 50,
	DecayStartKM:  25,
	CostPrestige:  1.0,
	CostStandard:  1.2,
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusSolving))
	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSolving, got.Status)
	assert.Equal(t, testSet, got.ConstraintSet)
	assert.Nil(t, got.Result)

	result := &model.RunResult{
		SolverStatus:  "optimal",
		Objective:     3.4,
		SitesOpened:   3,
		TotalWeight:   1000,
		ServedWeight:  920,
		RequiredLevel: 0.9,
		AchievedLevel: 0.92,
		Warnings:      []string{"tight_margin"},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 3, got.Result.SitesOpened)
	assert.Equal(t, int64(920), got.Result.ServedWeight)
	assert.Equal(t, []string{"tight_margin"}, got.Result.Warnings)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "impossible service level"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "impossible service level", got.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = st.UpdateRunStatus(ctx, "missing", model.RunStatusSolving)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")

	err = st.CompletePhase(ctx, "missing", &model.PhaseResult{Status: model.PhaseStatusComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase not found: missing")
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	wide := testSet
	wide.Name = "Wide"

	a, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, wide)
	require.NoError(t, err)
	c, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, c.ID, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bySet, err := st.ListRuns(ctx, RunFilter{ConstraintSet: "Standard"})
	require.NoError(t, err)
	assert.Len(t, bySet, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, c.ID, failed[0].ID)

	queued, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusQueued, ConstraintSet: "Standard"})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, a.ID, queued[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Phases(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)

	p1, err := st.CreatePhase(ctx, run.ID, "coverage")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusRunning, p1.Status)
	_, err = st.CreatePhase(ctx, run.ID, "solve")
	require.NoError(t, err)

	require.NoError(t, st.CompletePhase(ctx, p1.ID, &model.PhaseResult{
		Name:     "coverage",
		Status:   model.PhaseStatusComplete,
		Duration: 12,
		Metadata: map[string]any{"uncovered": 2},
	}))

	phases, err := st.ListPhases(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, "coverage", phases[0].Name)
	assert.Equal(t, model.PhaseStatusComplete, phases[0].Status)
	require.NotNil(t, phases[0].Result)
	assert.Equal(t, int64(12), phases[0].Result.Duration)
	assert.Equal(t, float64(2), phases[0].Result.Metadata["uncovered"])
	assert.Equal(t, model.PhaseStatusRunning, phases[1].Status)
	assert.Nil(t, phases[1].Result)
}

func TestSQLite_SiteResults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)

	results := []model.SiteResult{
		{SiteID: "s1", Name: "Köln", Lat: 50.94, Lon: 6.96, SiteClass: "prestige", Prestige: true, Opened: true, CustomersTotal: 120, CustomersWeighted: 110.5, CustomersReachable: 300},
		{SiteID: "s2", Name: "Bonn", Lat: 50.73, Lon: 7.10, SiteClass: "standard", Opened: false, CustomersReachable: 80},
		{SiteID: "s3", Name: "Aachen", Lat: 50.78, Lon: 6.08, SiteClass: "standard", Opened: true, CustomersTotal: 300, CustomersWeighted: 250, CustomersReachable: 310},
	}
	require.NoError(t, st.SaveSiteResults(ctx, run.ID, results))

	all, err := st.ListSiteResults(ctx, run.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s3", all[0].SiteID)
	assert.Equal(t, run.ID, all[0].RunID)

	opened, err := st.ListSiteResults(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, opened, 2)
	assert.Equal(t, []string{"s3", "s1"}, []string{opened[0].SiteID, opened[1].SiteID})
	assert.True(t, opened[1].Prestige)
	assert.Equal(t, "Köln", opened[1].Name)
	assert.InDelta(t, 110.5, opened[1].CustomersWeighted, 1e-9)

	// Saving again replaces the previous rows.
	require.NoError(t, st.SaveSiteResults(ctx, run.ID, results[:1]))
	all, err = st.ListSiteResults(ctx, run.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "s1", all[0].SiteID)
}

func TestSQLite_ListRuns_CreatedAfter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, testSet)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/location-optimizer/internal/solver"
)

func TestCoverageMap_Covers(t *testing.T) {
	t.Parallel()

	m := &CoverageMap{
		SiteDemand:  [][]int{{0, 2}, {}},
		DemandSites: [][]int{{0}, {}, {0}},
	}
	assert.True(t, m.Covers(0, 0))
	assert.False(t, m.Covers(0, 1))
	assert.True(t, m.Covers(0, 2))
	assert.False(t, m.Covers(1, 0))
	assert.Equal(t, []int{1}, m.Uncovered())
}

func TestOutcome_Counts(t *testing.T) {
	t.Parallel()

	o := &Outcome{
		Status: solver.StatusOptimal,
		Opened: []bool{true, false, true},
		Served: []bool{true, false, true},
	}
	demand := []DemandPoint{{Weight: 10}, {Weight: 20}, {Weight: 30}}

	assert.Equal(t, 2, o.OpenedCount())
	assert.Equal(t, int64(40), o.ServedWeight(demand))
}

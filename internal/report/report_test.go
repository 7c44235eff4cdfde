package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/overlap"
	"github.com/sells-group/location-optimizer/internal/validation"
)

func fixture() ([]model.CandidateSite, *model.Outcome, []model.SiteStats) {
	sites := []model.CandidateSite{
		{ID: "s-b", Name: "Bonn", Coord: model.NewCoordinate(50.73, 7.10)},
		{ID: "s-a", Name: "Aachen", Coord: model.NewCoordinate(50.78, 6.08), Prestige: true},
		{ID: "s-k", Name: "Köln", Coord: model.NewCoordinate(50.94, 6.96)},
		{ID: "s-d", Name: "Düren", Coord: model.NewCoordinate(50.80, 6.48)},
	}
	outcome := &model.Outcome{
		Opened: []bool{true, true, false, true},
		Served: []bool{true, true},
	}
	stats := []model.SiteStats{
		{CustomersTotal: 200, CustomersWeighted: 180.456, CustomersReachable: 400},
		{CustomersTotal: 200, CustomersWeighted: 150.001, CustomersReachable: 300},
		{CustomersTotal: 0, CustomersWeighted: 0, CustomersReachable: 500},
		{CustomersTotal: 350, CustomersWeighted: 349.998, CustomersReachable: 350},
	}
	return sites, outcome, stats
}

func TestOpenedRows_OrderAndRounding(t *testing.T) {
	sites, outcome, stats := fixture()
	rows := OpenedRows(SiteResults("", sites, outcome, stats))

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"s-d", "s-a", "s-b"}, []string{rows[0].SiteID, rows[1].SiteID, rows[2].SiteID})
	assert.Equal(t, int64(350), rows[0].CustomersTotal)
	assert.Equal(t, 350.0, rows[0].CustomersWeighted)
	assert.Equal(t, 180.46, rows[2].CustomersWeighted)
	assert.Equal(t, "prestige", rows[1].SiteClass)
	assert.True(t, rows[1].Prestige)
}

func TestSiteResults_IncludesUnopened(t *testing.T) {
	sites, outcome, stats := fixture()
	results := SiteResults("run-1", sites, outcome, stats)

	require.Len(t, results, 4)
	assert.Equal(t, "run-1", results[2].RunID)
	assert.False(t, results[2].Opened)
	assert.Equal(t, int64(0), results[2].CustomersTotal)
	assert.Equal(t, 500.0, results[2].CustomersReachable)
}

func TestWriteCSV(t *testing.T) {
	sites, outcome, stats := fixture()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, OpenedRows(SiteResults("", sites, outcome, stats))))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"s-d", "Düren", "50.8", "6.48", "standard", "350", "350.00", "350", "false"}, records[1])
	assert.Equal(t, "180.46", records[3][6])
}

func TestWriteTable_GermanNumbers(t *testing.T) {
	rows := []model.SiteResult{
		{SiteID: "s1", Name: "Berlin", SiteClass: "prestige", CustomersTotal: 12345, CustomersWeighted: 11000.5, CustomersReachable: 20000},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, "Moderate", rows, "de"))

	out := buf.String()
	assert.Contains(t, out, "Moderate: 1 locations")
	assert.Contains(t, out, "12.345")
	assert.Contains(t, out, "11.000,50")
	assert.Contains(t, out, "TOTAL")
}

func TestFileSlugAndPaths(t *testing.T) {
	assert.Equal(t, "moderate", FileSlug("Moderate"))
	assert.Equal(t, "wide_50km", FileSlug(" Wide 50km! "))
	assert.Equal(t, "unnamed", FileSlug("!!"))
	assert.Equal(t, filepath.Join("out", "optimized_locations_moderate.csv"), CSVPath("out", "Moderate"))
	assert.Equal(t, filepath.Join("out", "optimization_map_moderate.geojson"), GeoJSONPath("out", "Moderate"))
}

func TestSaveCSV(t *testing.T) {
	sites, outcome, stats := fixture()
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := SaveCSV(dir, "Aggressive", OpenedRows(SiteResults("", sites, outcome, stats)))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "site_id,name,"))
}

func TestBuildMap(t *testing.T) {
	sites, outcome, stats := fixture()
	demand := []model.DemandPoint{
		{ID: "52062", Coord: model.NewCoordinate(50.77, 6.09), Weight: 30},
		{ID: "53111", Coord: model.NewCoordinate(50.74, 7.09), Weight: 20},
		{ID: "50667", Coord: model.NewCoordinate(50.94, 6.95), Weight: 5},
	}
	outcome.Served = []bool{true, true, false}
	summary := &overlap.Summary{
		Assignment: []int{1, 0, overlap.Unassigned},
		DistanceKM: []float64{1.234, 30.5, 0},
	}
	cs := model.ConstraintSet{Name: "Moderate", MaxDistanceKM: 40, DecayStartKM: 15}

	m, warnings := BuildMap(MapInput{
		ConstraintSet: cs,
		Sites:         sites,
		Demand:        demand,
		Results:       SiteResults("", sites, outcome, stats),
		Outcome:       outcome,
		Summary:       summary,
	})
	assert.Empty(t, warnings)
	require.Len(t, m.Features, 7)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, m))

	var decoded struct {
		Type          string `json:"type"`
		ConstraintSet string `json:"constraint_set"`
		Features      []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.Equal(t, "Moderate", decoded.ConstraintSet)

	site := decoded.Features[0]
	assert.Equal(t, "Point", site.Geometry.Type)
	assert.InDeltaSlice(t, []float64{7.10, 50.73}, site.Geometry.Coordinates, 1e-9)
	assert.Equal(t, KindSite, site.Properties["kind"])
	assert.Equal(t, true, site.Properties["opened"])

	first := decoded.Features[4].Properties
	assert.Equal(t, KindDemand, first["kind"])
	assert.Equal(t, "s-a", first["assigned_site"])
	assert.Equal(t, "full", first["band"])
	assert.Equal(t, 1.23, first["distance_km"])

	assert.Equal(t, "decay", decoded.Features[5].Properties["band"])

	unserved := decoded.Features[6].Properties
	assert.Equal(t, false, unserved["served"])
	assert.NotContains(t, unserved, "assigned_site")
}

func TestBuildMap_IntegrityWarning(t *testing.T) {
	demand := []model.DemandPoint{
		{ID: "a", Coord: model.NewCoordinate(50, 10), Weight: 10},
		{ID: "b", Coord: model.Coordinate{Lat: 999, Lon: 0}, Weight: 4},
	}
	m, warnings := BuildMap(MapInput{
		ConstraintSet: model.ConstraintSet{Name: "X"},
		Demand:        demand,
		Outcome:       &model.Outcome{Served: []bool{false, false}},
	})
	require.Len(t, m.Features, 1)
	require.Len(t, warnings, 1)
	assert.Equal(t, validation.WarnMapMismatch, warnings[0].Code)
	assert.Contains(t, warnings[0].Msg, "4 customers not shown")
}

func TestMap_EmptyFeatures(t *testing.T) {
	data, err := json.Marshal(&Map{ConstraintSet: "X"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","constraint_set":"X","features":[]}`, string(data))
}

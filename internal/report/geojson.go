package report

import (
	"encoding/json"
	"io"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/location-optimizer/internal/geo"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/overlap"
	"github.com/sells-group/location-optimizer/internal/validation"
)

// Feature kinds in the map payload.
const (
	KindSite   = "site"
	KindDemand = "demand"
)

// Map is a GeoJSON FeatureCollection carrying the constraint set name as a
// foreign member.
type Map struct {
	ConstraintSet string
	Features      []*geojson.Feature
}

type featureCollection struct {
	Type          string             `json:"type"`
	ConstraintSet string             `json:"constraint_set"`
	Features      []*geojson.Feature `json:"features"`
}

// MarshalJSON implements json.Marshaler.
func (m *Map) MarshalJSON() ([]byte, error) {
	features := m.Features
	if features == nil {
		features = []*geojson.Feature{}
	}
	return json.Marshal(featureCollection{
		Type:          "FeatureCollection",
		ConstraintSet: m.ConstraintSet,
		Features:      features,
	})
}

// MapInput bundles the read-only data the map is built from.
type MapInput struct {
	ConstraintSet model.ConstraintSet
	Sites         []model.CandidateSite
	Demand        []model.DemandPoint
	Results       []model.SiteResult
	Outcome       *model.Outcome
	Summary       *overlap.Summary
}

// BuildMap builds the map payload: one point per candidate site with its
// statistics and one point per demand location with its served flag,
// assigned site and distance band. The returned warnings report a
// mismatch between input demand weight and the weight shown on the map.
func BuildMap(in MapInput) (*Map, []validation.Warning) {
	m := &Map{ConstraintSet: in.ConstraintSet.Name}

	for i, s := range in.Sites {
		props := map[string]any{
			"kind":       KindSite,
			"site_id":    s.ID,
			"name":       s.Name,
			"site_class": s.SiteClass(),
			"prestige":   s.Prestige,
			"population": s.Population,
		}
		if i < len(in.Results) {
			r := in.Results[i]
			props["opened"] = r.Opened
			props["customers_covered_total"] = r.CustomersTotal
			props["customers_covered_weighted"] = r.CustomersWeighted
			props["customers_reachable"] = r.CustomersReachable
		}
		m.Features = append(m.Features, pointFeature(s.ID, s.Coord, props))
	}

	var shown int64
	for k, d := range in.Demand {
		if !d.Coord.Valid() {
			continue
		}
		props := map[string]any{
			"kind":   KindDemand,
			"id":     d.ID,
			"weight": d.Weight,
			"served": in.Outcome != nil && k < len(in.Outcome.Served) && in.Outcome.Served[k],
		}
		if d.Name != "" {
			props["name"] = d.Name
		}
		if in.Summary != nil && k < len(in.Summary.Assignment) && in.Summary.Assignment[k] != overlap.Unassigned {
			s := in.Summary.Assignment[k]
			dist := in.Summary.DistanceKM[k]
			props["assigned_site"] = in.Sites[s].ID
			props["distance_km"] = math.Round(dist*100) / 100
			props["band"] = geo.Classify(dist, in.ConstraintSet.DecayStartKM, in.ConstraintSet.MaxDistanceKM)
		}
		m.Features = append(m.Features, pointFeature(d.ID, d.Coord, props))
		shown += int64(d.Weight)
	}

	return m, validation.CheckMapIntegrity(in.ConstraintSet.Name, model.TotalWeight(in.Demand), shown)
}

func pointFeature(id string, c model.Coordinate, props map[string]any) *geojson.Feature {
	return &geojson.Feature{
		ID:         id,
		Geometry:   geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}),
		Properties: props,
	}
}

// WriteGeoJSON encodes the map payload.
func WriteGeoJSON(w io.Writer, m *Map) error {
	enc := json.NewEncoder(w)
	return eris.Wrap(enc.Encode(m), "report: encode geojson")
}

// SaveGeoJSON writes the map payload to GeoJSONPath(dir, name) and returns
// the path.
func SaveGeoJSON(dir string, m *Map) (string, error) {
	path := GeoJSONPath(dir, m.ConstraintSet)
	return path, writeFile(path, func(w io.Writer) error { return WriteGeoJSON(w, m) })
}

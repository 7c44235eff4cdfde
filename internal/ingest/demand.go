package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/validation"
)

var demandAliases = map[string][]string{
	"id":        {"id", "plz", "plz5", "zip", "postal_code", "key"},
	"name":      {"name", "place", "city"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "lon", "lng"},
	"weight":    {"weight", "customers", "customer_count", "count"},
}

var demandRequired = []string{"id", "latitude", "longitude", "weight"}

// ReadDemand reads demand points from a CSV or XLSX file. Rows sharing an
// id are aggregated by summing their weights; the first row's name and
// coordinate are kept. Points without usable coordinates are reported and
// dropped.
func ReadDemand(path string, opts Options) ([]model.DemandPoint, []validation.Warning, error) {
	t, err := readTable(path, opts.Sheet)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read demand")
	}
	t.resolve(demandAliases)
	if err := validation.CheckFields(t.header, demandRequired, "Customer data"); err != nil {
		return nil, nil, err
	}

	var (
		demand   []model.DemandPoint
		byID     = make(map[string]int, len(t.rows))
		dupKeys  = make(map[string]bool)
		warnings []validation.Warning
	)
	for i, row := range t.rows {
		line := i + 2
		id := normalizeKey(t.get(row, "id"), opts.KeyLength)
		if id == "" {
			return nil, nil, eris.Errorf("ingest: demand row %d has no id", line)
		}
		w, err := parseCount(t.get(row, "weight"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: demand row %d weight", line)
		}
		if w < 0 {
			return nil, nil, eris.Errorf("ingest: demand row %d has negative weight %d", line, w)
		}

		if k, ok := byID[id]; ok {
			demand[k].Weight += int(w)
			dupKeys[id] = true
			continue
		}

		lat, err := parseDecimal(t.get(row, "latitude"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: demand row %d latitude", line)
		}
		lon, err := parseDecimal(t.get(row, "longitude"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: demand row %d longitude", line)
		}
		byID[id] = len(demand)
		demand = append(demand, model.DemandPoint{
			ID:     id,
			Name:   t.get(row, "name"),
			Coord:  model.NewCoordinate(lat, lon),
			Weight: int(w),
		})
	}

	if len(dupKeys) > 0 {
		keys := make([]string, 0, len(dupKeys))
		for k := range dupKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 5 {
			keys = append(keys[:5], "...")
		}
		warnings = append(warnings, validation.Warning{
			Code: validation.WarnDuplicateKeys,
			Msg:  fmt.Sprintf("aggregated %d duplicate demand keys by summing weights (%s)", len(dupKeys), strings.Join(keys, ", ")),
		})
	}

	coords := make([]model.Coordinate, len(demand))
	for i, d := range demand {
		coords[i] = d.Coord
	}
	warnings = append(warnings, CheckGeoQuality(coords, opts.Bounds, opts.GeocodingThreshold, "Customer data")...)

	valid := demand[:0]
	for _, d := range demand {
		if d.Coord.Valid() {
			valid = append(valid, d)
		}
	}
	demand = valid

	ids := make([]string, len(demand))
	for i, d := range demand {
		ids[i] = d.ID
	}
	if err := validation.CheckUniqueKeys(ids, "Customer data"); err != nil {
		return nil, warnings, err
	}

	warnings = append(warnings, CheckDemandDistribution(demand, opts.KeyLength, opts.ExpectedTotal)...)

	zap.L().Info("ingest: demand loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", len(t.rows)),
		zap.Int("points", len(demand)),
		zap.Int64("total_weight", model.TotalWeight(demand)),
	)
	return demand, warnings, nil
}

package ingest

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/validation"
)

var siteAliases = map[string][]string{
	"id":         {"id", "site_id", "plz", "key"},
	"name":       {"name", "city_name", "city"},
	"latitude":   {"latitude", "lat"},
	"longitude":  {"longitude", "lon", "lng"},
	"population": {"population", "population_total"},
	"prestige":   {"prestige", "prestige_flag", "is_top_200"},
}

var siteRequired = []string{"id", "name", "latitude", "longitude", "population"}

// ReadSites reads candidate sites from a CSV or XLSX file. Rows without
// usable coordinates are reported and dropped. Without a prestige column
// the PrestigeTopN most populous sites are flagged; ties at the cut-off
// are all included.
func ReadSites(path string, opts Options) ([]model.CandidateSite, []validation.Warning, error) {
	t, err := readTable(path, opts.Sheet)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read sites")
	}
	t.resolve(siteAliases)
	if err := validation.CheckFields(t.header, siteRequired, "City data"); err != nil {
		return nil, nil, err
	}

	sites := make([]model.CandidateSite, 0, len(t.rows))
	coords := make([]model.Coordinate, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		lat, err := parseDecimal(t.get(row, "latitude"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: sites row %d latitude", line)
		}
		lon, err := parseDecimal(t.get(row, "longitude"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: sites row %d longitude", line)
		}
		pop, err := parseCount(t.get(row, "population"))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: sites row %d population", line)
		}

		// "Aachen, Stadt" keeps only the city name.
		name, _, _ := strings.Cut(t.get(row, "name"), ",")
		site := model.CandidateSite{
			ID:         normalizeKey(t.get(row, "id"), opts.KeyLength),
			Name:       strings.TrimSpace(name),
			Coord:      model.NewCoordinate(lat, lon),
			Population: pop,
		}
		if t.has("prestige") {
			site.Prestige = parseFlag(t.get(row, "prestige"))
		}
		sites = append(sites, site)
		coords = append(coords, site.Coord)
	}

	warnings := CheckGeoQuality(coords, opts.Bounds, opts.GeocodingThreshold, "City data")

	valid := sites[:0]
	for _, s := range sites {
		if s.Coord.Valid() {
			valid = append(valid, s)
		}
	}
	sites = valid

	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	if err := validation.CheckUniqueKeys(ids, "City data"); err != nil {
		return nil, warnings, err
	}

	if !t.has("prestige") {
		FlagTopN(sites, opts.PrestigeTopN)
	}

	zap.L().Info("ingest: sites loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", len(t.rows)),
		zap.Int("sites", len(sites)),
		zap.Int("prestige", countPrestige(sites)),
	)
	return sites, warnings, nil
}

// FlagTopN marks every site whose population is at least the n-th largest
// population as prestige. n <= 0 clears all flags.
func FlagTopN(sites []model.CandidateSite, n int) {
	if n <= 0 || len(sites) == 0 {
		for i := range sites {
			sites[i].Prestige = false
		}
		return
	}
	pops := make([]int64, len(sites))
	for i, s := range sites {
		pops[i] = s.Population
	}
	sort.Slice(pops, func(a, b int) bool { return pops[a] > pops[b] })
	threshold := pops[min(n, len(pops))-1]
	for i := range sites {
		sites[i].Prestige = sites[i].Population >= threshold
	}
}

func countPrestige(sites []model.CandidateSite) int {
	n := 0
	for _, s := range sites {
		if s.Prestige {
			n++
		}
	}
	return n
}

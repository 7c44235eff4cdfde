package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/location-optimizer/internal/model"
)

// CSVHeader is the column order of the exported locations file.
var CSVHeader = []string{
	"site_id", "name", "latitude", "longitude", "site_class",
	"customers_covered_total", "customers_covered_weighted", "customers_reachable", "prestige_flag",
}

// WriteCSV writes export rows with CSVHeader.
func WriteCSV(w io.Writer, rows []model.SiteResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range rows {
		rec := []string{
			r.SiteID,
			r.Name,
			strconv.FormatFloat(r.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Lon, 'f', -1, 64),
			r.SiteClass,
			strconv.FormatInt(r.CustomersTotal, 10),
			strconv.FormatFloat(r.CustomersWeighted, 'f', 2, 64),
			strconv.FormatFloat(r.CustomersReachable, 'f', -1, 64),
			strconv.FormatBool(r.Prestige),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", r.SiteID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteTable writes a human-readable summary of export rows. Numbers are
// formatted for the given locale tag (e.g. "de").
func WriteTable(out io.Writer, setName string, rows []model.SiteResult, locale string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.German
	}
	p := message.NewPrinter(tag)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintf(out, "%s: %d locations\n", setName, len(rows))
	_, _ = fmt.Fprintln(w, "#\tSITE\tNAME\tCLASS\tCUSTOMERS\tWEIGHTED\tREACHABLE\t")

	var total int64
	for i, r := range rows {
		total += r.CustomersTotal
		_, _ = p.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.2f\t%.0f\t\n",
			i+1, r.SiteID, r.Name, r.SiteClass,
			r.CustomersTotal, r.CustomersWeighted, r.CustomersReachable,
		)
	}
	_, _ = p.Fprintf(w, "\t\t\tTOTAL\t%d\t\t\t\n", total)
	return eris.Wrap(w.Flush(), "report: write table")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileSlug converts a constraint-set name into a file name fragment.
func FileSlug(name string) string {
	s := unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unnamed"
	}
	return strings.ToLower(s)
}

// CSVPath returns the locations export path for a constraint set.
func CSVPath(dir, setName string) string {
	return filepath.Join(dir, "optimized_locations_"+FileSlug(setName)+".csv")
}

// GeoJSONPath returns the map payload path for a constraint set.
func GeoJSONPath(dir, setName string) string {
	return filepath.Join(dir, "optimization_map_"+FileSlug(setName)+".geojson")
}

// writeFile creates path's directory and writes through fn.
func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}

// SaveCSV writes export rows to CSVPath(dir, setName) and returns the path.
func SaveCSV(dir, setName string, rows []model.SiteResult) (string, error) {
	path := CSVPath(dir, setName)
	return path, writeFile(path, func(w io.Writer) error { return WriteCSV(w, rows) })
}

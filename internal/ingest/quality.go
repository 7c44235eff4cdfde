package ingest

import (
	"fmt"
	"math"

	"github.com/sells-group/location-optimizer/internal/geo"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/validation"
)

// TotalTolerance is the allowed absolute difference between the demand
// total and the expected total before a warning is raised.
const TotalTolerance = 100

// CheckGeoQuality reports missing and out-of-bounds coordinates. A second
// warning is raised when the share of missing coordinates exceeds
// threshold. description names the data set in messages.
func CheckGeoQuality(coords []model.Coordinate, bounds geo.Bounds, threshold float64, description string) []validation.Warning {
	if len(coords) == 0 {
		return nil
	}
	var missing, outside int
	for _, c := range coords {
		if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
			missing++
			continue
		}
		if !bounds.Contains(c.Lat, c.Lon) {
			outside++
		}
	}

	var out []validation.Warning
	if missing > 0 {
		rate := float64(missing) / float64(len(coords))
		out = append(out, validation.Warning{
			Code: validation.WarnMissingCoordinates,
			Msg:  fmt.Sprintf("%s: %d out of %d records have no coordinates (%.1f%%)", description, missing, len(coords), rate*100),
		})
		if rate > threshold {
			out = append(out, validation.Warning{
				Code: validation.WarnGeocodingRate,
				Msg: fmt.Sprintf("%s: geocoding failure rate %.1f%% exceeds threshold %.1f%%; this may affect optimization quality",
					description, rate*100, threshold*100),
			})
		}
	}
	if outside > 0 {
		out = append(out, validation.Warning{
			Code: validation.WarnOutOfBounds,
			Msg: fmt.Sprintf("%s: %d coordinates outside lat [%g,%g] lon [%g,%g]",
				description, outside, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon),
		})
	}
	return out
}

// CheckDemandDistribution reports zero-weight points, keys that do not
// have keyLength digits and, when expectedTotal is positive, a total
// weight deviating from it by more than TotalTolerance.
func CheckDemandDistribution(demand []model.DemandPoint, keyLength int, expectedTotal int64) []validation.Warning {
	var out []validation.Warning

	var zero, invalid int
	for _, d := range demand {
		if d.Weight == 0 {
			zero++
		}
		if keyLength > 0 && (len(d.ID) != keyLength || !allDigits(d.ID)) {
			invalid++
		}
	}
	if zero > 0 {
		out = append(out, validation.Warning{
			Code: validation.WarnZeroWeight,
			Msg:  fmt.Sprintf("%d demand points have zero weight", zero),
		})
	}
	if invalid > 0 {
		out = append(out, validation.Warning{
			Code: validation.WarnInvalidKey,
			Msg:  fmt.Sprintf("found %d invalid demand keys (not %d digits)", invalid, keyLength),
		})
	}
	if expectedTotal > 0 {
		total := model.TotalWeight(demand)
		if diff := total - expectedTotal; diff > TotalTolerance || diff < -TotalTolerance {
			out = append(out, validation.Warning{
				Code: validation.WarnTotalMismatch,
				Msg:  fmt.Sprintf("demand total mismatch: got %d, expected %d", total, expectedTotal),
			})
		}
	}
	return out
}

package geo

import (
	"math"

	"github.com/sells-group/location-optimizer/internal/model"
)

// ToRadians converts decimal degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance between two points given in
// radians, on a sphere of the given radius.
func Haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a slightly above 1 for antipodal points.
	a = math.Min(1, a)
	return 2 * radius * math.Asin(math.Sqrt(a))
}

// DistanceKM returns the great-circle distance between two coordinates using
// their precomputed radian values.
func DistanceKM(a, b model.Coordinate, radiusKM float64) float64 {
	return Haversine(a.LatRad, a.LonRad, b.LatRad, b.LonRad, radiusKM)
}

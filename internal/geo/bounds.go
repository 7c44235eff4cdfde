package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// Bounds is a latitude/longitude box in decimal degrees.
type Bounds struct {
	MinLat float64 `mapstructure:"min_lat" yaml:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat" yaml:"max_lat"`
	MinLon float64 `mapstructure:"min_lon" yaml:"min_lon"`
	MaxLon float64 `mapstructure:"max_lon" yaml:"max_lon"`
}

// Germany is the box the cities and postal code inputs are expected in.
var Germany = Bounds{MinLat: 47, MaxLat: 55, MinLon: 6, MaxLon: 15}

// Contains reports whether the point lies inside the box, edges included.
// NaN coordinates are never contained.
func (b Bounds) Contains(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Validate checks that the box is well formed.
func (b Bounds) Validate() error {
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return eris.Errorf("geo: invalid bounds lat [%g,%g] lon [%g,%g]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	}
	return nil
}

package ingest

import "github.com/sells-group/location-optimizer/internal/geo"

// DefaultPrestigeTopN is the number of most populous sites flagged as
// prestige when the input carries no prestige column.
const DefaultPrestigeTopN = 200

// Options configures reading and quality checks.
type Options struct {
	Sheet              string
	PrestigeTopN       int
	KeyLength          int
	Bounds             geo.Bounds
	GeocodingThreshold float64
	ExpectedTotal      int64
}

// DefaultOptions returns options for German postal-code inputs.
func DefaultOptions() Options {
	return Options{
		PrestigeTopN:       DefaultPrestigeTopN,
		KeyLength:          5,
		Bounds:             geo.Germany,
		GeocodingThreshold: 0.05,
	}
}

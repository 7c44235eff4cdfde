// Package geo provides great-circle distance, bounding boxes and distance
// band classification for demand-to-site reachability.
package geo

// Distance band constants.
const (
	BandFull       = "full"
	BandDecay      = "decay"
	BandOutOfReach = "out_of_reach"
)

// Classify returns the reachability band of a distance.
// Rules:
//   - full: distance <= decayStartKM
//   - decay: decayStartKM < distance <= maxKM
//   - out_of_reach: distance > maxKM
func Classify(distanceKM, decayStartKM, maxKM float64) string {
	if distanceKM <= decayStartKM {
		return BandFull
	}
	if distanceKM <= maxKM {
		return BandDecay
	}
	return BandOutOfReach
}

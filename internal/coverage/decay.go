package coverage

// DecayWeight returns the relative value of demand at distance d from a
// site. Demand within decayStart counts fully; beyond it the weight falls
// linearly to minWeightAtMax at maxDistance. Callers only pass distances
// within reach.
func DecayWeight(d, decayStart, maxDistance, minWeightAtMax float64) float64 {
	if d <= decayStart {
		return 1.0
	}
	frac := (d - decayStart) / (maxDistance - decayStart)
	return 1 - frac*(1-minWeightAtMax)
}

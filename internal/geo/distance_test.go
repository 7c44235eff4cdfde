package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/location-optimizer/internal/model"
)

func TestHaversine_KnownDistances(t *testing.T) {
	t.Parallel()

	berlin := model.NewCoordinate(52.5200, 13.4050)
	munich := model.NewCoordinate(48.1351, 11.5820)
	hamburg := model.NewCoordinate(53.5511, 9.9937)

	assert.InDelta(t, 504.4, DistanceKM(berlin, munich, model.DefaultEarthRadiusKM), 2.0)
	assert.InDelta(t, 255.3, DistanceKM(berlin, hamburg, model.DefaultEarthRadiusKM), 2.0)
}

func TestHaversine_Properties(t *testing.T) {
	t.Parallel()

	a := model.NewCoordinate(50.1109, 8.6821)
	b := model.NewCoordinate(51.2277, 6.7735)

	assert.Equal(t, 0.0, DistanceKM(a, a, model.DefaultEarthRadiusKM))
	assert.InDelta(t, DistanceKM(a, b, model.DefaultEarthRadiusKM), DistanceKM(b, a, model.DefaultEarthRadiusKM), 1e-9)

	// Distance scales linearly with the radius.
	assert.InDelta(t, 2*DistanceKM(a, b, 1000), DistanceKM(a, b, 2000), 1e-9)
}

func TestHaversine_Antipodal(t *testing.T) {
	t.Parallel()

	d := Haversine(0, 0, 0, math.Pi, 1)
	require.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi, d, 1e-9)
}

func TestToRadians(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, math.Pi, ToRadians(180), 1e-12)
	assert.InDelta(t, model.NewCoordinate(47.5, 0).LatRad, ToRadians(47.5), 1e-12)
}

func TestBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, Germany.Contains(52.52, 13.405))
	assert.True(t, Germany.Contains(47, 6))
	assert.False(t, Germany.Contains(46.9, 10))
	assert.False(t, Germany.Contains(50, 15.1))
	assert.False(t, Germany.Contains(math.NaN(), 10))

	require.NoError(t, Germany.Validate())
	assert.Error(t, Bounds{MinLat: 55, MaxLat: 47, MinLon: 6, MaxLon: 15}.Validate())
}

package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecayWeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    float64
		want float64
	}{
		{"at site", 0, 1.0},
		{"inside decay start", 10, 1.0},
		{"at decay start", 15, 1.0},
		{"halfway", 27.5, 0.75},
		{"at max", 40, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, DecayWeight(tt.d, 15, 40, 0.5), 1e-12)
		})
	}
}

func TestDecayWeight_StrictlyDecreasing(t *testing.T) {
	t.Parallel()

	prev := DecayWeight(20, 20, 45, 0.5)
	for d := 20.5; d <= 45; d += 0.5 {
		w := DecayWeight(d, 20, 45, 0.5)
		assert.Less(t, w, prev, "distance %g", d)
		prev = w
	}
	assert.InDelta(t, 0.5, prev, 1e-12)
}

func TestDecayWeight_ConstantWhenFloorIsOne(t *testing.T) {
	t.Parallel()

	for _, d := range []float64{0, 90, 95, 100} {
		assert.Equal(t, 1.0, DecayWeight(d, 90, 100, 1.0))
	}
}

func TestDecayWeight_ZeroFloor(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.0, DecayWeight(100, 90, 100, 0), 1e-12)
}

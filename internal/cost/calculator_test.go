package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		DistanceMatrix: ElementRate{PerThousand: 5.0},
		OneMap:         ElementRate{PerThousand: 0.5},
	}
}

func TestDistanceMatrix(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name     string
		elements int
		want     float64
	}{
		{"zero", 0, 0},
		{"one element", 1, 0.005},
		{"one thousand", 1000, 5.0},
		{"two legs for 750 addresses", 1500, 7.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.DistanceMatrix(tt.elements), 1e-9)
		})
	}
}

func TestOneMap(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.5, calc.OneMap(1000), 1e-9)
	assert.Zero(t, NewCalculator(DefaultRates()).OneMap(100000))
}

func TestRun(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.5+10.0, calc.Run(1000, 2000), 1e-9)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	r := DefaultRates()
	assert.InDelta(t, 5.0, r.DistanceMatrix.PerThousand, 1e-9)
	assert.Zero(t, r.OneMap.PerThousand)
}

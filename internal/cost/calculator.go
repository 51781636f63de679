// Package cost estimates provider spend for an enrichment run.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	DistanceMatrix ElementRate `yaml:"distance_matrix" mapstructure:"distance_matrix"`
	OneMap         ElementRate `yaml:"onemap" mapstructure:"onemap"`
}

// ElementRate prices billable units in blocks of a thousand.
type ElementRate struct {
	PerThousand float64 `yaml:"per_thousand" mapstructure:"per_thousand"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// DistanceMatrix returns the cost of the given number of matrix elements.
// Each route query here is one origin by one destination, so one element.
func (c *Calculator) DistanceMatrix(elements int) float64 {
	return float64(elements) / 1000 * c.rates.DistanceMatrix.PerThousand
}

// OneMap returns the cost of the given number of search queries.
func (c *Calculator) OneMap(queries int) float64 {
	return float64(queries) / 1000 * c.rates.OneMap.PerThousand
}

// Run returns the combined cost of a run's geocode and route calls.
func (c *Calculator) Run(geocodes, routes int) float64 {
	return c.OneMap(geocodes) + c.DistanceMatrix(routes)
}

// DefaultRates returns the default pricing rates. OneMap search is free.
func DefaultRates() Rates {
	return Rates{
		DistanceMatrix: ElementRate{PerThousand: 5.00},
		OneMap:         ElementRate{PerThousand: 0},
	}
}

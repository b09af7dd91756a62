// Package pricing contains the pure price-statistics and arbitrage math.
// Everything here is deterministic: the same orders, strategy and fee
// always produce the same result, which keeps the scheduler's cycles
// reproducible and the package trivially testable.
package pricing

import (
	"math"
	"sort"
)

// Percentile computes the p-th percentile of values using linear
// interpolation on a sorted copy (rank = p/100 * (n-1), interpolating
// between the surrounding elements). p=0 yields the minimum, p=100 the
// maximum. An empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

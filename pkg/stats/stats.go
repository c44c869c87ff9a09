// Package stats implements the statistical primitives used to spot slow
// nodes in bandwidth samples. All functions are pure: identical input gives
// identical output, and degenerate input yields empty results rather than
// errors.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, x := range samples {
		sum += x
	}
	return sum / float64(len(samples))
}

// StdDev returns the population standard deviation, or 0 for an empty slice.
func StdDev(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	mean := Mean(samples)
	var sum float64
	for _, x := range samples {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Percentile returns the p-th percentile using linear interpolation between
// closest ranks, the same scheme numpy uses by default. The input does not
// need to be sorted.
func Percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

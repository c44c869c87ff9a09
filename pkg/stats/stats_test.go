package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 5.0, Mean([]float64{5}))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
}

func TestStdDevPopulation(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{7, 7, 7}))

	// Population stddev of [2, 4, 4, 4, 5, 5, 7, 9] is exactly 2.
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestPercentileLinearInterpolation(t *testing.T) {
	samples := []float64{1, 2, 3, 4}

	assert.InDelta(t, 2.5, Percentile(samples, 50), 1e-9)
	assert.InDelta(t, 1.75, Percentile(samples, 25), 1e-9)
	assert.InDelta(t, 3.25, Percentile(samples, 75), 1e-9)
	assert.Equal(t, 1.0, Percentile(samples, 0))
	assert.Equal(t, 4.0, Percentile(samples, 100))
}

func TestPercentileUnsortedInput(t *testing.T) {
	// Percentile sorts internally and must not reorder the caller's slice.
	samples := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Percentile(samples, 50), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, samples)
}

func TestPercentileSingleSample(t *testing.T) {
	assert.Equal(t, 5.0, Percentile([]float64{5}, 25))
	assert.Equal(t, 5.0, Percentile([]float64{5}, 99))
}
